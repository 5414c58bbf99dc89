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

package prober

//go:generate mockgen -destination=mock_prober.go -package=prober github.com/carverauto/vesselbroker/pkg/prober NodeLocator,NodeClient,Classifier

import (
	"context"
	"strconv"

	"github.com/carverauto/vesselbroker/pkg/models"
)

// NodeAddress is where a node manager listens.
type NodeAddress struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

func (a NodeAddress) String() string {
	return a.Address + ":" + strconv.Itoa(a.Port)
}

// VesselInfo is what a node reports about one vessel.
type VesselInfo struct {
	UserKeys []string `json:"userkeys"`
}

// NodeInfo is a node's identity and vessel table.
type NodeInfo struct {
	Identity string                `json:"identity"`
	Vessels  map[string]VesselInfo `json:"vessels"`
}

// NodeLocator finds nodes advertising under a key.
type NodeLocator interface {
	DiscoverActiveNodes(ctx context.Context, key string) ([]string, error)
	DescribeNode(location string) (NodeAddress, error)
}

// NodeClient talks to a single node manager.
type NodeClient interface {
	ListVessels(ctx context.Context, node NodeAddress) (NodeInfo, error)
	GetResourceDescriptor(ctx context.Context, node NodeAddress, vessel string) (string, error)
}

// Classifier labels a node address.
type Classifier interface {
	Classify(ctx context.Context, address string) models.NodeType
}

// Inventory is the part of the inventory store the prober writes to.
type Inventory interface {
	Upsert(h models.Handle, obs models.Observation) models.EndpointRecord
	Record(h models.Handle) (models.EndpointRecord, bool)
	MarkAllocated(handles []models.Handle) []models.Handle
	MarkUnallocated(handles []models.Handle) []models.Handle
	IncrementMissed(contacted models.HandleSet) int
}
