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

// RuleScope says whether a rule judges candidates alone or against already selected members.
type RuleScope string

const (
	ScopeVessel RuleScope = "vessel"
	ScopeGroup  RuleScope = "group"
)

// RuleSpec is one user supplied rule before validation.
type RuleSpec struct {
	Name   string                 `json:"name"`
	Invert bool                   `json:"invert,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// GroupSpec is one group of a submitted request. RuleStrings accepts the
// compact "[!]name,param~value" form alongside structured rules.
type GroupSpec struct {
	Rules       []RuleSpec `json:"rules,omitempty"`
	RuleStrings []string   `json:"rule_strings,omitempty"`
	TargetCount int        `json:"target_count"`
}

type GroupStatus string

const (
	// GroupUnresolved groups are waiting for a pass in the current round.
	GroupUnresolved GroupStatus = "unresolved"
	// GroupIncomplete groups had their pass this round and still need vessels.
	GroupIncomplete GroupStatus = "incomplete"
	GroupResolved   GroupStatus = "resolved"
	GroupFailed     GroupStatus = "failed"
	GroupError      GroupStatus = "error"
)

// Terminal reports whether no further passes will run for the group.
func (s GroupStatus) Terminal() bool {
	switch s {
	case GroupResolved, GroupFailed, GroupError:
		return true
	case GroupUnresolved, GroupIncomplete:
		return false
	}

	return false
}

type RequestStatus string

const (
	RequestProcessing RequestStatus = "processing"
	RequestAccepted   RequestStatus = "accepted"
	RequestWorking    RequestStatus = "working"
	RequestComplete   RequestStatus = "complete"
	RequestError      RequestStatus = "error"
	RequestUnknown    RequestStatus = "unknown"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestComplete || s == RequestError
}

// AcquiredVessel is one vessel held by a group.
type AcquiredVessel struct {
	Handle       string `json:"handle"`
	NodeLocation string `json:"node_location,omitempty"`
	Vessel       string `json:"vessel"`
}

type GroupReport struct {
	Status      GroupStatus      `json:"status"`
	Error       string           `json:"error,omitempty"`
	Acquired    []AcquiredVessel `json:"acquired"`
	TargetCount int              `json:"target_count"`
	Passes      int              `json:"passes"`
}

type RequestReport struct {
	Identity string                 `json:"identity"`
	Status   RequestStatus          `json:"status"`
	Error    string                 `json:"error,omitempty"`
	Groups   map[string]GroupReport `json:"groups,omitempty"`
}
