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

import (
	"sort"
	"sync"

	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/rules"
)

// Group is one group of a request. Only the Resolver and Service.Release
// mutate it; status reads may come from any goroutine.
type Group struct {
	ID    string
	Rules rules.RuleSet

	mu       sync.Mutex
	target   int
	acquired []models.Handle
	passes   int
	status   models.GroupStatus
	err      *GroupError
}

func newGroup(id string, ruleSet rules.RuleSet, target int) *Group {
	return &Group{
		ID:       id,
		Rules:    ruleSet,
		target:   target,
		acquired: []models.Handle{},
		status:   models.GroupUnresolved,
	}
}

func newErrorGroup(id string, target int, gerr *GroupError) *Group {
	g := newGroup(id, nil, target)
	g.status = models.GroupError
	g.err = gerr

	return g
}

func (g *Group) Status() models.GroupStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.status
}

func (g *Group) Target() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.target
}

func (g *Group) Passes() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.passes
}

// Acquired returns a copy of the held handles in acquisition order.
func (g *Group) Acquired() []models.Handle {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]models.Handle, len(g.acquired))
	copy(out, g.acquired)

	return out
}

// Err returns the recorded group error, if any.
func (g *Group) Err() *GroupError {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.err
}

func (g *Group) needsMore() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.acquired) < g.target
}

func (g *Group) add(h models.Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.acquired = append(g.acquired, h)
}

func (g *Group) remove(h models.Handle) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.removeLocked(h)
}

func (g *Group) removeLocked(h models.Handle) bool {
	for i, held := range g.acquired {
		if held == h {
			g.acquired = append(g.acquired[:i], g.acquired[i+1:]...)
			return true
		}
	}

	return false
}

// releaseHandles drops the handles the group holds and lowers the target by
// the number dropped. It returns the dropped handles.
func (g *Group) releaseHandles(handles []models.Handle) []models.Handle {
	g.mu.Lock()
	defer g.mu.Unlock()

	var dropped []models.Handle

	for _, h := range handles {
		if g.removeLocked(h) {
			dropped = append(dropped, h)
		}
	}

	g.target -= len(dropped)
	if g.target < 0 {
		g.target = 0
	}

	return dropped
}

// finishPass bumps the pass counter and derives the new status.
func (g *Group) finishPass(maxPasses int) models.GroupStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.passes++

	switch {
	case g.passes >= maxPasses:
		g.status = models.GroupFailed
	case len(g.acquired) >= g.target:
		g.status = models.GroupResolved
	default:
		g.status = models.GroupIncomplete
	}

	return g.status
}

func (g *Group) fail(gerr *GroupError) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.status = models.GroupError
	g.err = gerr
}

// requeue moves an incomplete group back to unresolved for the next round.
func (g *Group) requeue() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != models.GroupIncomplete {
		return false
	}

	g.status = models.GroupUnresolved

	return true
}

func (g *Group) event(identity string, previous models.GroupStatus) *models.GroupStatusEventData {
	g.mu.Lock()
	defer g.mu.Unlock()

	data := &models.GroupStatusEventData{
		Identity:       identity,
		GroupID:        g.ID,
		PreviousStatus: previous,
		Status:         g.status,
		Acquired:       len(g.acquired),
		TargetCount:    g.target,
		Passes:         g.passes,
	}

	if g.err != nil {
		data.Error = g.err.Error()
	}

	return data
}

func (g *Group) report(inv Inventory) models.GroupReport {
	g.mu.Lock()
	defer g.mu.Unlock()

	rep := models.GroupReport{
		Status:      g.status,
		Acquired:    make([]models.AcquiredVessel, 0, len(g.acquired)),
		TargetCount: g.target,
		Passes:      g.passes,
	}

	if g.err != nil {
		rep.Error = g.err.Error()
	}

	for _, h := range g.acquired {
		v := models.AcquiredVessel{Handle: h.String(), Vessel: h.Vessel}
		if rec, ok := inv.Record(h); ok {
			v.NodeLocation = rec.NodeLocation
		}

		rep.Acquired = append(rep.Acquired, v)
	}

	return rep
}

// Request is one identity's submission and its groups.
type Request struct {
	Identity string

	groups map[string]*Group
	order  []string

	mu        sync.Mutex
	port      int
	allocator Allocator
	status    models.RequestStatus
	err    error
	done   chan struct{}
}

func newRequest(identity string, port int, groups map[string]*Group) *Request {
	order := make([]string, 0, len(groups))
	for id := range groups {
		order = append(order, id)
	}

	sort.Strings(order)

	return &Request{
		Identity: identity,
		port:     port,
		groups:   groups,
		order:    order,
		status:   models.RequestProcessing,
		done:     make(chan struct{}),
	}
}

// Groups returns the groups ordered by id.
func (r *Request) Groups() []*Group {
	out := make([]*Group, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.groups[id])
	}

	return out
}

// bind attaches the identity's allocator. A zero port is replaced by the
// result of defaultPort, which is only called when needed.
func (r *Request) bind(alloc Allocator, defaultPort func() int) {
	r.mu.Lock()
	port := r.port
	r.mu.Unlock()

	if port == 0 {
		port = defaultPort()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.allocator = alloc
	r.port = port
}

// binding returns the allocator and port the request resolves with. The
// allocator is nil until the request is bound.
func (r *Request) binding() (Allocator, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.allocator, r.port
}

func (r *Request) Status() models.RequestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// Done is closed once the request reaches a terminal status.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// setStatus records a transition and reports whether it changed anything.
// Terminal statuses are final.
func (r *Request) setStatus(status models.RequestStatus, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Terminal() || r.status == status {
		return false
	}

	r.status = status
	r.err = err

	if status.Terminal() {
		close(r.done)
	}

	return true
}

func (r *Request) event() *models.RequestStatusEventData {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := &models.RequestStatusEventData{
		Identity: r.Identity,
		Status:   r.status,
	}

	if r.err != nil {
		data.Error = r.err.Error()
	}

	return data
}

func (r *Request) report(inv Inventory) models.RequestReport {
	r.mu.Lock()
	rep := models.RequestReport{
		Identity: r.Identity,
		Status:   r.status,
		Groups:   make(map[string]models.GroupReport, len(r.groups)),
	}

	if r.err != nil {
		rep.Error = r.err.Error()
	}
	r.mu.Unlock()

	for id, g := range r.groups {
		rep.Groups[id] = g.report(inv)
	}

	return rep
}
