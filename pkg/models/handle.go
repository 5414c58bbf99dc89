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

package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var errInvalidHandle = errors.New("invalid handle")

// Handle identifies one vessel: the identity of the node hosting it plus the
// vessel name. Node identities may contain spaces but never colons in the
// vessel part, so the string form splits on the last colon.
type Handle struct {
	NodeID string
	Vessel string
}

func (h Handle) String() string {
	return h.NodeID + ":" + h.Vessel
}

// ParseHandle parses the "node_id:vessel" form produced by String.
func ParseHandle(s string) (Handle, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return Handle{}, fmt.Errorf("%w: %q", errInvalidHandle, s)
	}

	return Handle{NodeID: s[:idx], Vessel: s[idx+1:]}, nil
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(b []byte) error {
	parsed, err := ParseHandle(string(b))
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}

// Less orders handles by node id, then vessel name.
func (h Handle) Less(other Handle) bool {
	if h.NodeID != other.NodeID {
		return h.NodeID < other.NodeID
	}

	return h.Vessel < other.Vessel
}

// HandleSet is an unordered set of handles.
type HandleSet map[Handle]struct{}

func NewHandleSet(handles ...Handle) HandleSet {
	s := make(HandleSet, len(handles))
	for _, h := range handles {
		s[h] = struct{}{}
	}

	return s
}

func (s HandleSet) Add(h Handle) {
	s[h] = struct{}{}
}

func (s HandleSet) Remove(h Handle) {
	delete(s, h)
}

func (s HandleSet) Contains(h Handle) bool {
	_, ok := s[h]
	return ok
}

func (s HandleSet) Len() int {
	return len(s)
}

func (s HandleSet) Clone() HandleSet {
	out := make(HandleSet, len(s))
	for h := range s {
		out[h] = struct{}{}
	}

	return out
}

// Intersect returns the handles present in both sets.
func (s HandleSet) Intersect(other HandleSet) HandleSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}

	out := make(HandleSet, len(small))

	for h := range small {
		if large.Contains(h) {
			out[h] = struct{}{}
		}
	}

	return out
}

// Difference returns the handles of s absent from other.
func (s HandleSet) Difference(other HandleSet) HandleSet {
	out := make(HandleSet, len(s))

	for h := range s {
		if !other.Contains(h) {
			out[h] = struct{}{}
		}
	}

	return out
}

func (s HandleSet) Union(other HandleSet) HandleSet {
	out := s.Clone()
	for h := range other {
		out[h] = struct{}{}
	}

	return out
}

// Sorted returns the members in deterministic order.
func (s HandleSet) Sorted() []Handle {
	out := make([]Handle, 0, len(s))
	for h := range s {
		out = append(out, h)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })

	return out
}

// Equal reports whether both sets hold the same handles.
func (s HandleSet) Equal(other HandleSet) bool {
	if len(s) != len(other) {
		return false
	}

	for h := range s {
		if !other.Contains(h) {
			return false
		}
	}

	return true
}
