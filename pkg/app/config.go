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

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/vesselbroker/pkg/api"
	"github.com/carverauto/vesselbroker/pkg/broker"
	"github.com/carverauto/vesselbroker/pkg/clearinghouse"
	"github.com/carverauto/vesselbroker/pkg/config"
	"github.com/carverauto/vesselbroker/pkg/events"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/nodemanager"
	"github.com/carverauto/vesselbroker/pkg/nodetype"
	"github.com/carverauto/vesselbroker/pkg/prober"
	"github.com/carverauto/vesselbroker/pkg/snapshot"
)

const (
	defaultListenAddr      = ":8090"
	defaultShutdownTimeout = 30 * time.Second
)

var errInvalidConfig = errors.New("invalid broker config")

// GeoIPConfig points at a MaxMind City database. Without one every vessel is
// stored with unknown geography.
type GeoIPConfig struct {
	DatabasePath string `json:"database_path,omitempty" yaml:"database_path,omitempty"`
}

// Config is the top-level broker configuration.
type Config struct {
	ListenAddr      string               `json:"listen_addr" yaml:"listen_addr"`
	ShutdownTimeout models.Duration      `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
	Logging         *logger.Config       `json:"logging,omitempty" yaml:"logging,omitempty"`
	Probe           prober.Config        `json:"probe" yaml:"probe"`
	GeoIP           GeoIPConfig          `json:"geoip" yaml:"geoip"`
	NodeType        nodetype.Config      `json:"node_type" yaml:"node_type"`
	Snapshot        snapshot.Config      `json:"snapshot" yaml:"snapshot"`
	Resolver        broker.Config        `json:"resolver" yaml:"resolver"`
	Clearinghouse   clearinghouse.Config `json:"clearinghouse" yaml:"clearinghouse"`
	NodeManager     nodemanager.Config   `json:"node_manager" yaml:"node_manager"`
	Events          events.Config        `json:"events" yaml:"events"`
	API             api.Config           `json:"api" yaml:"api"`
}

// Validate fills defaults and validates every section.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = models.Duration(defaultShutdownTimeout)
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	if c.Probe.ForceNodeTypeRefresh {
		c.NodeType.ForceRefresh = true
	}

	sections := []struct {
		name string
		v    config.Validator
	}{
		{"logging", c.Logging},
		{"probe", &c.Probe},
		{"node_type", &c.NodeType},
		{"snapshot", &c.Snapshot},
		{"resolver", &c.Resolver},
		{"clearinghouse", &c.Clearinghouse},
		{"node_manager", &c.NodeManager},
		{"events", &c.Events},
	}

	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", errInvalidConfig, s.name, err)
		}
	}

	return nil
}

// LoadConfig reads and validates the config at path.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	var cfg Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}
