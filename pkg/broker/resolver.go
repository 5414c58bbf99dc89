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
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/carverauto/vesselbroker/pkg/inventory"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/rules"
)

// Resolver runs passes over single groups.
type Resolver struct {
	cfg       Config
	inventory Inventory
	evaluator *rules.Evaluator
	metrics   Metrics
	logger    logger.Logger

	// pick returns an index in [0, n). Tests replace it for determinism.
	pick    func(n int) int
	running func() bool
}

// NewResolver creates a Resolver. cfg must already be validated.
func NewResolver(cfg Config, inv Inventory, evaluator *rules.Evaluator, metrics Metrics, log logger.Logger) *Resolver {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Resolver{
		cfg:       cfg,
		inventory: inv,
		evaluator: evaluator,
		metrics:   metrics,
		logger:    log,
		pick:      rand.IntN,
		running:   func() bool { return true },
	}
}

func (r *Resolver) active(ctx context.Context) bool {
	return ctx.Err() == nil && r.running()
}

// Pass runs one resolution pass on g. The returned error is always a
// *GroupError and means g is now in the error status.
func (r *Resolver) Pass(ctx context.Context, g *Group, alloc Allocator, port int) error {
	if passes := g.Passes(); passes >= r.cfg.MaxPasses {
		gerr := newGroupError(KindInternal, fmt.Errorf("%w: group %s at pass %d", errPassLimitExceeded, g.ID, passes))
		g.fail(gerr)

		return gerr
	}

	if gerr := r.fill(ctx, g, alloc, port); gerr != nil {
		g.fail(gerr)
		r.metrics.GroupFinished(models.GroupError)

		return gerr
	}

	status := g.finishPass(r.cfg.MaxPasses)
	if status.Terminal() {
		r.metrics.GroupFinished(status)
	}

	r.logger.Info().
		Str("group", g.ID).
		Str("status", string(status)).
		Int("acquired", len(g.Acquired())).
		Int("target", g.Target()).
		Int("pass", g.Passes()).
		Msg("Group pass finished")

	return nil
}

func (r *Resolver) fill(ctx context.Context, g *Group, alloc Allocator, port int) *GroupError {
	accessible := r.inventory.GetAccessible(inventory.AccessQuery{Port: port})
	matches := r.evaluator.ApplyVesselRules(g.Rules, accessible)

	r.logger.Debug().
		Str("group", g.ID).
		Int("accessible", accessible.Len()).
		Int("matches", matches.Len()).
		Msg("Vessel-level matches")

	// Handles that failed acquisition or were evicted are not offered again
	// during this pass.
	spent := models.NewHandleSet()
	retries := 0

	for g.needsMore() && retries < r.cfg.MaxInGroupRetries {
		if !r.active(ctx) {
			break
		}

		acquired := g.Acquired()
		pool := r.evaluator.ApplyGroupRules(g.Rules, matches, acquired).
			Difference(models.NewHandleSet(acquired...)).
			Difference(spent)

		got, gerr := r.drawBatch(ctx, g, alloc, pool, spent)
		if gerr != nil {
			return gerr
		}

		if got {
			continue
		}

		retries++

		if retries >= r.cfg.MaxInGroupRetries || !g.Rules.HasGroupRules() || len(acquired) == 0 {
			break
		}

		if gerr := r.evict(ctx, g, alloc, matches, spent); gerr != nil {
			return gerr
		}
	}

	return nil
}

// drawBatch tries random members of pool until one is acquired or the pool
// runs dry.
func (r *Resolver) drawBatch(ctx context.Context, g *Group, alloc Allocator, pool, spent models.HandleSet) (bool, *GroupError) {
	batch := pool.Sorted()

	for len(batch) > 0 {
		if !r.active(ctx) {
			return false, nil
		}

		i := r.pick(len(batch))
		h := batch[i]
		batch = append(batch[:i], batch[i+1:]...)

		ok, gerr := r.acquire(ctx, g, alloc, h)
		if gerr != nil {
			return false, gerr
		}

		if ok {
			return true, nil
		}

		spent.Add(h)
	}

	return false, nil
}

func (r *Resolver) acquire(ctx context.Context, g *Group, alloc Allocator, h models.Handle) (bool, *GroupError) {
	one := []models.Handle{h}

	// Claim locally first so no other group can take the same handle while
	// the allocator call is in flight.
	if len(r.inventory.MarkAllocated(one)) == 0 {
		r.metrics.Acquisition(OutcomeClaimed)
		return false, nil
	}

	got, err := alloc.AcquireSpecific(ctx, one)

	switch {
	case errors.Is(err, ErrInvalidCandidate):
		r.inventory.MarkInvalid(one)
		r.metrics.Acquisition(OutcomeInvalid)
		r.logger.Warn().Err(err).Str("handle", h.String()).Msg("Allocator rejected stale candidate")

		return false, nil
	case errors.Is(err, ErrInsufficientCredit):
		r.inventory.MarkUnallocated(one)
		r.metrics.Acquisition(OutcomeError)
		r.logger.Error().Err(err).Str("group", g.ID).Msg("Not enough vessel credits")

		return false, newGroupError(KindInsufficientCredit, err)
	case err != nil:
		r.inventory.MarkUnallocated(one)
		r.metrics.Acquisition(OutcomeError)
		r.logger.Error().Err(err).Str("handle", h.String()).Msg("Unexpected allocator failure")

		return false, newGroupError(KindAllocator, err)
	}

	if !containsHandle(got, h) {
		r.inventory.MarkUnallocated(one)
		r.metrics.Acquisition(OutcomeRejected)

		return false, nil
	}

	g.add(h)
	r.metrics.Acquisition(OutcomeAcquired)
	r.logger.Debug().Str("group", g.ID).Str("handle", h.String()).Msg("Acquired vessel")

	return true, nil
}

// evict releases the member whose removal frees up the most candidates.
func (r *Resolver) evict(ctx context.Context, g *Group, alloc Allocator, matches, spent models.HandleSet) *GroupError {
	acquired := g.Acquired()
	candidates := matches.Difference(models.NewHandleSet(acquired...))

	worst, err := r.evaluator.WorstMember(acquired, candidates, g.Rules)
	if err != nil {
		return newGroupError(KindInternal, err)
	}

	spent.Add(worst)
	g.remove(worst)
	r.metrics.Eviction()

	if err := alloc.Release(ctx, []models.Handle{worst}); err != nil {
		// The allocator may still consider it held, so keep it out of the
		// accessible pool.
		r.logger.Warn().Err(err).Str("handle", worst.String()).Msg("Failed to release evicted vessel")
		return nil
	}

	r.inventory.MarkUnallocated([]models.Handle{worst})
	r.logger.Debug().Str("group", g.ID).Str("handle", worst.String()).Msg("Evicted worst member")

	return nil
}

func containsHandle(handles []models.Handle, h models.Handle) bool {
	for _, got := range handles {
		if got == h {
			return true
		}
	}

	return false
}
