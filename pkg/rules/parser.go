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
	"strings"

	"github.com/carverauto/vesselbroker/pkg/models"
)

// ParseRuleStrings parses the compact rule form
//
//	[!]name,param~value,param~value
//
// A leading "!" inverts the rule. Empty strings are ignored. Names and
// values are lowercased.
func ParseRuleStrings(in []string) ([]models.RuleSpec, error) {
	out := make([]models.RuleSpec, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, raw := range in {
		s := strings.ToLower(strings.TrimSpace(raw))
		if s == "" {
			continue
		}

		spec := models.RuleSpec{Params: map[string]interface{}{}}

		if strings.HasPrefix(s, "!") {
			spec.Invert = true
			s = s[1:]
		}

		parts := strings.Split(s, ",")
		spec.Name = strings.TrimSpace(parts[0])

		if spec.Name == "" {
			return nil, fmt.Errorf("%w: rule %q has no name", ErrInvalidRules, raw)
		}

		if _, dup := seen[spec.Name]; dup {
			return nil, fmt.Errorf("%w: rule %s specified more than once", ErrInvalidRules, spec.Name)
		}

		seen[spec.Name] = struct{}{}

		for _, part := range parts[1:] {
			key, value, ok := strings.Cut(part, "~")
			key = strings.TrimSpace(key)

			if !ok || key == "" || strings.Contains(value, "~") {
				return nil, fmt.Errorf("%w: malformed parameter %q in rule %s", ErrInvalidRules, part, spec.Name)
			}

			spec.Params[key] = strings.TrimSpace(value)
		}

		out = append(out, spec)
	}

	return out, nil
}
