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

// Package snapshot persists the inventory snapshot blob.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

var (
	// ErrNotFound is returned by Load when nothing has been saved yet.
	ErrNotFound = errors.New("snapshot not found")

	errUnknownDriver   = errors.New("unknown snapshot driver")
	errMissingSetting  = errors.New("missing snapshot setting")
	errBackendDisabled = errors.New("snapshot backend closed")
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverMemory   = "memory"

	defaultPath = "data/inventory.snap"
	defaultName = "inventory"
	defaultKey  = "vesselbroker/inventory.snap"
)

// Backend stores one snapshot blob.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Close() error
}

// Config selects and configures a Backend.
type Config struct {
	Driver       string          `json:"driver" yaml:"driver"`
	Path         string          `json:"path,omitempty" yaml:"path,omitempty"`
	Name         string          `json:"name,omitempty" yaml:"name,omitempty"`
	SaveInterval models.Duration `json:"save_interval,omitempty" yaml:"save_interval,omitempty"`
	Postgres     *PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
	S3           *S3Config       `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = DriverFile
	}

	if c.Name == "" {
		c.Name = defaultName
	}

	switch c.Driver {
	case DriverFile, DriverSQLite:
		if c.Path == "" {
			c.Path = defaultPath
		}
	case DriverPostgres:
		if c.Postgres == nil || c.Postgres.Host == "" {
			return fmt.Errorf("%w: postgres.host", errMissingSetting)
		}
	case DriverS3:
		if c.S3 == nil || c.S3.Bucket == "" {
			return fmt.Errorf("%w: s3.bucket", errMissingSetting)
		}

		if c.S3.Key == "" {
			c.S3.Key = defaultKey
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %s", errUnknownDriver, c.Driver)
	}

	return nil
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg *Config, log logger.Logger) (Backend, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	log.Info().Str("driver", cfg.Driver).Msg("Opening snapshot backend")

	switch cfg.Driver {
	case DriverFile:
		return NewFileBackend(cfg.Path), nil
	case DriverSQLite:
		return NewSQLiteBackend(ctx, cfg.Path, cfg.Name)
	case DriverPostgres:
		return NewPostgresBackend(ctx, cfg.Postgres, cfg.Name, log)
	case DriverS3:
		return NewS3Backend(ctx, cfg.S3)
	case DriverMemory:
		return NewMemoryBackend(), nil
	}

	return nil, fmt.Errorf("%w: %s", errUnknownDriver, cfg.Driver)
}
