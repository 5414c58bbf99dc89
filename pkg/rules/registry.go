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

package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/carverauto/vesselbroker/pkg/models"
)

// Registry maps rule names to rules. Names are unique across scopes.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// Descriptor describes a registered rule.
type Descriptor struct {
	Name  string           `json:"name"`
	Scope models.RuleScope `json:"scope"`
}

func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// NewDefaultRegistry returns a registry holding the built-in rules.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	for _, rule := range Builtins() {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}

	return r
}

func (r *Registry) Register(rule Rule) error {
	if rule == nil || rule.Name() == "" {
		return fmt.Errorf("%w: rule must have a name", ErrInvalidParameter)
	}

	switch rule.Scope() {
	case models.ScopeVessel, models.ScopeGroup:
	default:
		return fmt.Errorf("%w: bad scope %q for %s", ErrInvalidParameter, rule.Scope(), rule.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrRuleExists, rule.Name())
	}

	r.rules[rule.Name()] = rule

	return nil
}

func (r *Registry) Deregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRule, name)
	}

	delete(r.rules, name)

	return nil
}

func (r *Registry) Lookup(name string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[name]

	return rule, ok
}

// Names returns the registered names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Describe returns every registered rule with its scope, sorted by name.
func (r *Registry) Describe() []Descriptor {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(names))

	for _, name := range names {
		if rule, ok := r.rules[name]; ok {
			out = append(out, Descriptor{Name: name, Scope: rule.Scope()})
		}
	}

	return out
}

// Prepare validates a group's rules once, before resolution starts. Every
// failure wraps ErrInvalidRules.
func (r *Registry) Prepare(specs []models.RuleSpec) (RuleSet, error) {
	seen := make(map[string]struct{}, len(specs))
	out := make(RuleSet, 0, len(specs))

	for _, spec := range specs {
		name := strings.ToLower(strings.TrimSpace(spec.Name))

		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: rule %s specified more than once", ErrInvalidRules, name)
		}

		seen[name] = struct{}{}

		rule, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidRules, ErrUnknownRule, name)
		}

		params, err := rule.Validate(Params(spec.Params))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRules, name, err)
		}

		out = append(out, Prepared{Rule: rule, Invert: spec.Invert, Params: params})
	}

	return out, nil
}
