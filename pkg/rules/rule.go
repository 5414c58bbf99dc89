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

// Package rules holds the named predicates that narrow candidate vessels,
// and the evaluator that applies them to inventory.
package rules

import (
	"errors"

	"github.com/carverauto/vesselbroker/pkg/models"
)

var (
	ErrUnknownRule      = errors.New("unknown rule")
	ErrRuleExists       = errors.New("rule already registered")
	ErrInvalidParameter = errors.New("invalid rule parameter")
	// ErrInvalidRules wraps every failure to prepare a group's rules.
	ErrInvalidRules = errors.New("invalid rules")
	// ErrNoSelection is returned when asking for the worst of no members.
	ErrNoSelection = errors.New("no members selected")
)

// Params are a rule's parameters. After Validate they hold normalized values.
type Params map[string]interface{}

// EvalContext is everything a predicate may look at.
type EvalContext struct {
	Inventory  Inventory
	Candidates models.HandleSet
	// Selected holds the group's committed members; empty for vessel rules.
	Selected []models.Handle
	Params   Params
	Invert   bool
}

// Rule is one named predicate.
type Rule interface {
	Name() string
	Scope() models.RuleScope
	// Validate checks required parameters and returns normalized copies.
	Validate(params Params) (Params, error)
	// Evaluate returns the subset of the context's candidates that pass.
	Evaluate(ctx EvalContext) models.HandleSet
}

// Predicate computes a rule's matches.
type Predicate func(ctx EvalContext) models.HandleSet

// Preprocessor validates and normalizes parameters.
type Preprocessor func(params Params) (Params, error)

type funcRule struct {
	name       string
	scope      models.RuleScope
	predicate  Predicate
	preprocess Preprocessor
}

// NewRule adapts a predicate and an optional preprocessor into a Rule. A nil
// preprocessor passes parameters through unchanged.
func NewRule(name string, scope models.RuleScope, predicate Predicate, preprocess Preprocessor) Rule {
	return &funcRule{name: name, scope: scope, predicate: predicate, preprocess: preprocess}
}

func (r *funcRule) Name() string { return r.name }

func (r *funcRule) Scope() models.RuleScope { return r.scope }

func (r *funcRule) Validate(params Params) (Params, error) {
	in := params.clone()
	if r.preprocess == nil {
		return in, nil
	}

	return r.preprocess(in)
}

func (r *funcRule) Evaluate(ctx EvalContext) models.HandleSet {
	return r.predicate(ctx)
}

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// Prepared is a validated rule ready to evaluate.
type Prepared struct {
	Rule   Rule
	Invert bool
	Params Params
}

// RuleSet is one group's validated rules.
type RuleSet []Prepared

// HasGroupRules reports whether any rule depends on the selected members.
func (rs RuleSet) HasGroupRules() bool {
	for _, p := range rs {
		if p.Rule.Scope() == models.ScopeGroup {
			return true
		}
	}

	return false
}

// Names lists the rule names in order.
func (rs RuleSet) Names() []string {
	out := make([]string, len(rs))
	for i, p := range rs {
		out[i] = p.Rule.Name()
	}

	return out
}
