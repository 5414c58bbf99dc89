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

package broker

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultMaxPasses bounds how many passes a group gets before it fails.
	DefaultMaxPasses = 5
	// DefaultMaxInGroupRetries bounds the empty-batch retries within a pass.
	DefaultMaxInGroupRetries = 3
)

// GroupOrder picks which unresolved group gets the next pass.
type GroupOrder string

const (
	OrderFewestRules GroupOrder = "fewest_rules"
	OrderMostRules   GroupOrder = "most_rules"
)

var errInvalidConfig = errors.New("invalid resolver config")

type Config struct {
	MaxPasses         int        `json:"max_passes" yaml:"max_passes"`
	MaxInGroupRetries int        `json:"max_in_group_retries" yaml:"max_in_group_retries"`
	GroupOrder        GroupOrder `json:"group_order" yaml:"group_order"`
}

// Validate fills defaults and rejects unknown orderings.
func (c *Config) Validate() error {
	if c.MaxPasses < 0 || c.MaxInGroupRetries < 0 {
		return fmt.Errorf("%w: limits must not be negative", errInvalidConfig)
	}

	if c.MaxPasses == 0 {
		c.MaxPasses = DefaultMaxPasses
	}

	if c.MaxInGroupRetries == 0 {
		c.MaxInGroupRetries = DefaultMaxInGroupRetries
	}

	switch GroupOrder(strings.ToLower(string(c.GroupOrder))) {
	case "", OrderFewestRules:
		c.GroupOrder = OrderFewestRules
	case OrderMostRules:
		c.GroupOrder = OrderMostRules
	default:
		return fmt.Errorf("%w: unknown group_order %q", errInvalidConfig, c.GroupOrder)
	}

	return nil
}
