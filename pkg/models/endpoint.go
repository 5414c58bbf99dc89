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
	"strings"
	"time"
)

// NeverObserved is the address change count of a record whose address has
// not been seen yet. The first observation moves it to 0.
const NeverObserved = -1

// UnknownCity is the city bucket for handles whose country is known but city is not.
const UnknownCity = "unknown"

// Geo describes where an endpoint is. Country and city are lowercase.
type Geo struct {
	CountryCode string   `json:"country_code,omitempty"`
	City        string   `json:"city,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
}

// Known reports whether the endpoint has a usable country.
func (g Geo) Known() bool {
	return g.CountryCode != ""
}

func (g Geo) HasCoordinates() bool {
	return g.Longitude != nil && g.Latitude != nil
}

// Normalized lowercases the location and fills the unknown city bucket.
func (g Geo) Normalized() Geo {
	out := g
	out.CountryCode = strings.ToLower(strings.TrimSpace(g.CountryCode))
	out.City = strings.ToLower(strings.TrimSpace(g.City))

	if out.CountryCode == "" {
		out.City = ""
	} else if out.City == "" {
		out.City = UnknownCity
	}

	return out
}

// NodeType classifies the host a vessel runs on.
type NodeType string

const (
	NodeTypeTestbed    NodeType = "testbed"
	NodeTypeUniversity NodeType = "university"
	NodeTypeHome       NodeType = "home"
	NodeTypeUnknown    NodeType = "unknown"
)

// ValidNodeTypes lists the accepted classifications.
var ValidNodeTypes = []NodeType{NodeTypeTestbed, NodeTypeUniversity, NodeTypeHome, NodeTypeUnknown}

var errInvalidNodeType = errors.New("invalid node type")

func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range ValidNodeTypes {
		if t == valid {
			return t, nil
		}
	}

	return "", fmt.Errorf("%w: %q", errInvalidNodeType, s)
}

// EndpointRecord is the inventory's view of one vessel.
type EndpointRecord struct {
	Handle             Handle    `json:"handle"`
	Address            string    `json:"address"`
	NodeLocation       string    `json:"node_location,omitempty"`
	Ports              []int     `json:"ports"`
	Geo                Geo       `json:"geo"`
	NodeType           NodeType  `json:"node_type,omitempty"`
	AddressChangeCount int       `json:"address_change_count"`
	SuccessfulProbes   int       `json:"successful_probes"`
	TotalProbes        int       `json:"total_probes"`
	LastSeen           time.Time `json:"last_seen"`
}

// Reliability is the share of probe cycles in which the vessel answered.
func (r *EndpointRecord) Reliability() float64 {
	if r.TotalProbes == 0 {
		return 0
	}

	return float64(r.SuccessfulProbes) / float64(r.TotalProbes)
}

func (r *EndpointRecord) HasPort(port int) bool {
	for _, p := range r.Ports {
		if p == port {
			return true
		}
	}

	return false
}

// Observation is what one probe learned about a vessel.
type Observation struct {
	Address      string
	NodeLocation string
	Ports        []int
	Geo          Geo
	NodeType     NodeType
}
