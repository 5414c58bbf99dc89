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
	"github.com/carverauto/vesselbroker/pkg/models"
)

// Inventory is the read side of the inventory store that rules query.
type Inventory interface {
	Record(h models.Handle) (models.EndpointRecord, bool)
	HandlesInLocation(country, city string) models.HandleSet
	LocatedHandles() models.HandleSet
	HandlesWithPort(port int) models.HandleSet
	HandlesByAddressChanges(minChanges, maxChanges float64) models.HandleSet
	HandlesOfNodeType(nodeType models.NodeType) models.HandleSet
}

// Evaluator applies rule sets to candidate handles.
type Evaluator struct {
	registry  *Registry
	inventory Inventory
}

func NewEvaluator(registry *Registry, inventory Inventory) *Evaluator {
	if registry == nil {
		registry = NewDefaultRegistry()
	}

	return &Evaluator{registry: registry, inventory: inventory}
}

func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// Prepare validates specs against the evaluator's registry.
func (e *Evaluator) Prepare(specs []models.RuleSpec) (RuleSet, error) {
	return e.registry.Prepare(specs)
}

// ApplyVesselRules intersects the matches of every vessel rule, each
// evaluated against the full candidate set.
func (e *Evaluator) ApplyVesselRules(rules RuleSet, candidates models.HandleSet) models.HandleSet {
	out := candidates.Clone()

	for _, p := range rules {
		if p.Rule.Scope() != models.ScopeVessel {
			continue
		}

		out = out.Intersect(p.Rule.Evaluate(EvalContext{
			Inventory:  e.inventory,
			Candidates: candidates,
			Params:     p.Params,
			Invert:     p.Invert,
		}))
	}

	return out
}

// ApplyGroupRules returns candidates untouched until at least one member is
// selected, then intersects the matches of every group rule.
func (e *Evaluator) ApplyGroupRules(rules RuleSet, candidates models.HandleSet, selected []models.Handle) models.HandleSet {
	if len(selected) == 0 {
		return candidates.Clone()
	}

	out := candidates.Clone()

	for _, p := range rules {
		if p.Rule.Scope() != models.ScopeGroup {
			continue
		}

		out = out.Intersect(p.Rule.Evaluate(EvalContext{
			Inventory:  e.inventory,
			Candidates: candidates,
			Selected:   selected,
			Params:     p.Params,
			Invert:     p.Invert,
		}))
	}

	return out
}

// WorstMember returns the selected member whose removal leaves the most
// candidates passing the group rules. Ties go to the earliest member.
func (e *Evaluator) WorstMember(selected []models.Handle, candidates models.HandleSet, rules RuleSet) (models.Handle, error) {
	if len(selected) == 0 {
		return models.Handle{}, ErrNoSelection
	}

	worst := selected[0]
	best := -1

	for i, m := range selected {
		rest := make([]models.Handle, 0, len(selected)-1)
		rest = append(rest, selected[:i]...)
		rest = append(rest, selected[i+1:]...)

		if n := e.ApplyGroupRules(rules, candidates, rest).Len(); n > best {
			best = n
			worst = m
		}
	}

	return worst, nil
}
