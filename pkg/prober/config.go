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

package prober

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/vesselbroker/pkg/models"
)

const (
	defaultDelay        = 300 * time.Second
	defaultWorkers      = 4
	defaultGeoCacheSize = 4096
	defaultMaxRequeues  = 3
)

var errInvalidConfig = errors.New("invalid probe config")

// Config controls probe cycles.
type Config struct {
	Delay                models.Duration `json:"delay" yaml:"delay"`
	Workers              int             `json:"workers" yaml:"workers"`
	NodeKey              string          `json:"node_key" yaml:"node_key"`
	ReservedVessels      []string        `json:"reserved_vessels,omitempty" yaml:"reserved_vessels,omitempty"`
	ForceGeoRefresh      bool            `json:"force_geo_refresh,omitempty" yaml:"force_geo_refresh,omitempty"`
	ForceNodeTypeRefresh bool            `json:"force_node_type_refresh,omitempty" yaml:"force_node_type_refresh,omitempty"`
	GeoCacheSize         int             `json:"geo_cache_size,omitempty" yaml:"geo_cache_size,omitempty"`
	MaxRequeues          int             `json:"max_requeues,omitempty" yaml:"max_requeues,omitempty"`
}

// Validate fills defaults.
func (c *Config) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative", errInvalidConfig)
	}

	if c.Delay == 0 {
		c.Delay = models.Duration(defaultDelay)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", errInvalidConfig)
	}

	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}

	if c.ReservedVessels == nil {
		c.ReservedVessels = []string{"v2"}
	}

	if c.GeoCacheSize <= 0 {
		c.GeoCacheSize = defaultGeoCacheSize
	}

	if c.MaxRequeues <= 0 {
		c.MaxRequeues = defaultMaxRequeues
	}

	return nil
}
