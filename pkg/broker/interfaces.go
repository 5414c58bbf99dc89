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

package broker

//go:generate mockgen -destination=mock_broker.go -package=broker github.com/carverauto/vesselbroker/pkg/broker Allocator,AllocatorFactory,EventPublisher

import (
	"context"

	"github.com/carverauto/vesselbroker/pkg/inventory"
	"github.com/carverauto/vesselbroker/pkg/models"
)

// Allocator grants and revokes exclusive use of vessels for one identity.
type Allocator interface {
	// AcquireSpecific returns the handles actually acquired.
	AcquireSpecific(ctx context.Context, handles []models.Handle) ([]models.Handle, error)
	Release(ctx context.Context, handles []models.Handle) error
}

// PortProvider is implemented by allocators that know the identity's
// default port.
type PortProvider interface {
	UserPort(ctx context.Context) (int, error)
}

// AllocatorFactory hands out an Allocator bound to an identity.
type AllocatorFactory interface {
	ForIdentity(ctx context.Context, identity string) (Allocator, error)
}

// Inventory is the allocation side of the inventory store.
type Inventory interface {
	GetAccessible(q inventory.AccessQuery) models.HandleSet
	MarkAllocated(handles []models.Handle) []models.Handle
	MarkUnallocated(handles []models.Handle) []models.Handle
	MarkInvalid(handles []models.Handle) []models.Handle
	Record(h models.Handle) (models.EndpointRecord, bool)
}

// EventPublisher announces status transitions.
type EventPublisher interface {
	PublishGroupStatus(ctx context.Context, data *models.GroupStatusEventData) error
	PublishRequestStatus(ctx context.Context, data *models.RequestStatusEventData) error
}

// Metrics receives resolution counters.
type Metrics interface {
	Acquisition(outcome string)
	Eviction()
	GroupFinished(status models.GroupStatus)
}

// Acquisition outcomes reported to Metrics.
const (
	OutcomeAcquired = "acquired"
	OutcomeClaimed  = "claimed"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

type noopPublisher struct{}

func (noopPublisher) PublishGroupStatus(context.Context, *models.GroupStatusEventData) error {
	return nil
}

func (noopPublisher) PublishRequestStatus(context.Context, *models.RequestStatusEventData) error {
	return nil
}

type noopMetrics struct{}

func (noopMetrics) Acquisition(string) {}

func (noopMetrics) Eviction() {}

func (noopMetrics) GroupFinished(models.GroupStatus) {}
