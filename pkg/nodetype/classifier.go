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

// Package nodetype classifies node addresses as testbed, university or home
// machines from a static list and their reverse DNS names.
package nodetype

import (
	"context"
	"net"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

const defaultCacheSize = 4096

var homeHints = []string{"dsl", "cable", "dyn", "dhcp", "pool", "ppp", "broadband", "res", "home", "fios"}

// Config controls classification.
type Config struct {
	TestbedAddresses []string `json:"testbed_addresses,omitempty" yaml:"testbed_addresses,omitempty"`
	TestbedDomains   []string `json:"testbed_domains,omitempty" yaml:"testbed_domains,omitempty"`
	CacheSize        int      `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
	ForceRefresh     bool     `json:"force_refresh,omitempty" yaml:"force_refresh,omitempty"`
}

func (c *Config) Validate() error {
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}

	return nil
}

type reverseResolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// Classifier maps an address to a NodeType. Results are cached per address,
// so a node is only reclassified when its address changes.
type Classifier struct {
	testbed  map[string]struct{}
	domains  []string
	force    bool
	resolver reverseResolver
	cache    *lru.Cache[string, models.NodeType]
	logger   logger.Logger
}

func NewClassifier(cfg *Config, log logger.Logger) (*Classifier, error) {
	return newClassifier(cfg, net.DefaultResolver, log)
}

func newClassifier(cfg *Config, resolver reverseResolver, log logger.Logger) (*Classifier, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := lru.New[string, models.NodeType](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	testbed := make(map[string]struct{}, len(cfg.TestbedAddresses))
	for _, addr := range cfg.TestbedAddresses {
		testbed[strings.TrimSpace(addr)] = struct{}{}
	}

	domains := make([]string, 0, len(cfg.TestbedDomains))
	for _, d := range cfg.TestbedDomains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			domains = append(domains, d)
		}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Classifier{
		testbed:  testbed,
		domains:  domains,
		force:    cfg.ForceRefresh,
		resolver: resolver,
		cache:    cache,
		logger:   log,
	}, nil
}

// Classify never fails; anything it cannot place is NodeTypeUnknown.
func (c *Classifier) Classify(ctx context.Context, address string) models.NodeType {
	if !c.force {
		if t, ok := c.cache.Get(address); ok {
			return t
		}
	}

	t := c.classify(ctx, address)
	c.cache.Add(address, t)

	return t
}

func (c *Classifier) classify(ctx context.Context, address string) models.NodeType {
	if _, ok := c.testbed[address]; ok {
		return models.NodeTypeTestbed
	}

	names, err := c.resolver.LookupAddr(ctx, address)
	if err != nil {
		c.logger.Debug().Err(err).Str("address", address).Msg("Reverse lookup failed")

		return models.NodeTypeUnknown
	}

	best := models.NodeTypeUnknown

	for _, name := range names {
		switch t := classifyName(name, c.domains); t {
		case models.NodeTypeTestbed:
			return t
		case models.NodeTypeUniversity:
			best = t
		case models.NodeTypeHome:
			if best == models.NodeTypeUnknown {
				best = t
			}
		case models.NodeTypeUnknown:
		}
	}

	return best
}

func classifyName(name string, testbedDomains []string) models.NodeType {
	name = strings.TrimSuffix(strings.ToLower(name), ".")
	if name == "" {
		return models.NodeTypeUnknown
	}

	for _, d := range testbedDomains {
		if name == d || strings.HasSuffix(name, "."+d) {
			return models.NodeTypeTestbed
		}
	}

	if strings.HasSuffix(name, ".edu") || strings.Contains(name, ".edu.") || strings.Contains(name, ".ac.") {
		return models.NodeTypeUniversity
	}

	labels := strings.FieldsFunc(name, func(r rune) bool { return r == '.' || r == '-' })
	for _, label := range labels {
		for _, hint := range homeHints {
			if strings.HasPrefix(label, hint) {
				return models.NodeTypeHome
			}
		}
	}

	return models.NodeTypeUnknown
}
