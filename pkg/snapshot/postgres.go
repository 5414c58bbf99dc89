/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS vesselbroker_snapshots (
	name TEXT PRIMARY KEY,
	payload BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresConfig describes the database holding snapshots.
type PostgresConfig struct {
	Host            string          `json:"host" yaml:"host"`
	Port            int             `json:"port,omitempty" yaml:"port,omitempty"`
	Database        string          `json:"database" yaml:"database"`
	Username        string          `json:"username,omitempty" yaml:"username,omitempty"`
	Password        string          `json:"password,omitempty" yaml:"password,omitempty"`
	SSLMode         string          `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
	ApplicationName string          `json:"application_name,omitempty" yaml:"application_name,omitempty"`
	MaxConnections  int32           `json:"max_connections,omitempty" yaml:"max_connections,omitempty"`
	ConnectTimeout  models.Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
}

// ConnString renders the pgx connection URL.
func (c *PostgresConfig) ConnString() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, port),
		Path:   "/" + c.Database,
	}

	if c.Username != "" {
		if c.Password != "" {
			connURL.User = url.UserPassword(c.Username, c.Password)
		} else {
			connURL.User = url.User(c.Username)
		}
	}

	query := connURL.Query()

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)

	appName := c.ApplicationName
	if appName == "" {
		appName = "vesselbroker"
	}

	query.Set("application_name", appName)

	connURL.RawQuery = query.Encode()

	return connURL.String()
}

// PostgresBackend stores the snapshot in a BYTEA column through a pgx pool.
type PostgresBackend struct {
	pool *pgxpool.Pool
	name string
}

func NewPostgresBackend(ctx context.Context, cfg *PostgresConfig, name string, log logger.Logger) (*PostgresBackend, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	timeout := time.Duration(cfg.ConnectTimeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}

	if _, err := pool.Exec(connectCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create snapshots table: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Msg("Connected snapshot backend to Postgres")

	return &PostgresBackend{pool: pool, name: name}, nil
}

func (p *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var payload []byte

	err := p.pool.QueryRow(ctx, `SELECT payload FROM vesselbroker_snapshots WHERE name = $1`, p.name).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("postgres: select snapshot: %w", err)
	}

	return payload, nil
}

func (p *PostgresBackend) Save(ctx context.Context, blob []byte) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO vesselbroker_snapshots(name, payload, updated_at) VALUES($1, $2, now())
		ON CONFLICT(name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		p.name, blob)
	if err != nil {
		return fmt.Errorf("postgres: upsert snapshot: %w", err)
	}

	return nil
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
