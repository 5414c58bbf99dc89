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
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float reads key as a finite number. Strings are parsed, so values from rule
// strings and JSON bodies are handled alike.
func (p Params) Float(key string) (float64, error) {
	f, err := p.number(key)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be finite", ErrInvalidParameter, key)
	}

	return f, nil
}

func (p Params) number(key string) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidParameter, key)
	}

	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalidParameter, key, err)
		}

		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not a number: %q", ErrInvalidParameter, key, n)
		}

		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidParameter, key, v)
	}
}

// String reads key as a string. Missing keys return "" and no error.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", nil
	}

	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", fmt.Errorf("%w: %s has type %T", ErrInvalidParameter, key, v)
	}
}

func (p Params) requiredString(key string) (string, error) {
	s, err := p.String(key)
	if err != nil {
		return "", err
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidParameter, key)
	}

	return s, nil
}

// orderedRange reads a non-negative min/max pair, swapping them when reversed.
func (p Params) orderedRange(minKey, maxKey string) (float64, float64, error) {
	lo, err := p.Float(minKey)
	if err != nil {
		return 0, 0, err
	}

	hi, err := p.Float(maxKey)
	if err != nil {
		return 0, 0, err
	}

	if lo < 0 || hi < 0 {
		return 0, 0, fmt.Errorf("%w: %s and %s must not be negative", ErrInvalidParameter, minKey, maxKey)
	}

	if lo > hi {
		lo, hi = hi, lo
	}

	return lo, hi, nil
}
