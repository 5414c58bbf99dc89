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

// Package broker resolves vessel requests: groups of rules and target counts
// turned into vessels acquired through an external allocator.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/rules"
)

var (
	ErrAllocatorUnavailable = errors.New("allocator unavailable")

	errMissingDependency = errors.New("missing service dependency")
	errInvalidTarget     = errors.New("target_count must be positive")
)

// Deps are the collaborators of a Service. Publisher and Metrics are
// optional.
type Deps struct {
	Inventory  Inventory
	Evaluator  *rules.Evaluator
	Allocators AllocatorFactory
	Publisher  EventPublisher
	Metrics    Metrics
}

// Service accepts requests and runs each one on its own goroutine.
type Service struct {
	inventory   Inventory
	evaluator   *rules.Evaluator
	allocators  AllocatorFactory
	resolver    *Resolver
	coordinator *Coordinator
	logger      logger.Logger

	mu       sync.Mutex
	requests map[string]*Request
	running  atomic.Bool
	wg       sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewService(cfg *Config, deps Deps, log logger.Logger) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case deps.Inventory == nil:
		return nil, fmt.Errorf("%w: inventory", errMissingDependency)
	case deps.Evaluator == nil:
		return nil, fmt.Errorf("%w: evaluator", errMissingDependency)
	case deps.Allocators == nil:
		return nil, fmt.Errorf("%w: allocator factory", errMissingDependency)
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Service{
		inventory:  deps.Inventory,
		evaluator:  deps.Evaluator,
		allocators: deps.Allocators,
		logger:     log,
		requests:   make(map[string]*Request),
		baseCtx:    baseCtx,
		cancel:     cancel,
	}
	s.running.Store(true)

	s.resolver = NewResolver(*cfg, deps.Inventory, deps.Evaluator, deps.Metrics, log)
	s.resolver.running = s.running.Load
	s.coordinator = NewCoordinator(s.resolver, cfg.GroupOrder, deps.Publisher, log)

	return s, nil
}

// SubmitRequest validates the groups and starts resolving them in the
// background. Groups with a bad target count or bad rules are reported as
// errored without affecting the others.
func (s *Service) SubmitRequest(
	ctx context.Context, identity string, specs map[string]models.GroupSpec, port int) (models.RequestReport, error) {
	if identity == "" {
		return models.RequestReport{}, ErrInvalidIdentity
	}

	groups := make(map[string]*Group, len(specs))
	for id, spec := range specs {
		groups[id] = s.buildGroup(id, spec)
	}

	req := newRequest(identity, port, groups)

	if err := s.register(req); err != nil {
		return models.RequestReport{Identity: identity, Status: s.QueryStatus(identity).Status}, err
	}

	for _, g := range req.Groups() {
		if g.Status() == models.GroupError {
			s.coordinator.publishGroup(ctx, identity, g, models.GroupUnresolved)
		}
	}

	alloc, err := s.allocators.ForIdentity(ctx, identity)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrAllocatorUnavailable, err)
		s.coordinator.finish(ctx, req, models.RequestError, err)

		return req.report(s.inventory), err
	}

	req.bind(alloc, func() int { return s.userPort(ctx, identity, alloc) })

	if len(groups) == 0 {
		s.coordinator.finish(ctx, req, models.RequestComplete, nil)
		return req.report(s.inventory), nil
	}

	s.coordinator.transition(ctx, req, models.RequestAccepted)
	rep := req.report(s.inventory)

	if !s.spawn(req) {
		s.coordinator.finish(ctx, req, models.RequestError, errInterrupted)
		return req.report(s.inventory), ErrShuttingDown
	}

	return rep, nil
}

func (s *Service) buildGroup(id string, spec models.GroupSpec) *Group {
	if spec.TargetCount <= 0 {
		return newErrorGroup(id, spec.TargetCount,
			newGroupError(KindInvalidRequest, fmt.Errorf("%w: got %d", errInvalidTarget, spec.TargetCount)))
	}

	specs := append([]models.RuleSpec{}, spec.Rules...)

	parsed, err := rules.ParseRuleStrings(spec.RuleStrings)
	if err != nil {
		return newErrorGroup(id, spec.TargetCount, newGroupError(KindInvalidRules, err))
	}

	ruleSet, err := s.evaluator.Prepare(append(specs, parsed...))
	if err != nil {
		return newErrorGroup(id, spec.TargetCount, newGroupError(KindInvalidRules, err))
	}

	return newGroup(id, ruleSet, spec.TargetCount)
}

func (s *Service) register(req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return ErrShuttingDown
	}

	if prev, ok := s.requests[req.Identity]; ok && !prev.Status().Terminal() {
		return ErrRequestInProgress
	}

	s.requests[req.Identity] = req

	return nil
}

func (s *Service) userPort(ctx context.Context, identity string, alloc Allocator) int {
	pp, ok := alloc.(PortProvider)
	if !ok {
		return 0
	}

	port, err := pp.UserPort(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("identity", identity).Msg("Could not look up user port, not filtering by port")
		return 0
	}

	return port
}

func (s *Service) spawn(req *Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.coordinator.transition(s.baseCtx, req, models.RequestWorking)
		s.coordinator.Run(s.baseCtx, req)
	}()

	return true
}

// QueryStatus reports the identity's request, or the unknown status when
// there is none.
func (s *Service) QueryStatus(identity string) models.RequestReport {
	req := s.lookup(identity)
	if req == nil {
		return models.RequestReport{Identity: identity, Status: models.RequestUnknown}
	}

	return req.report(s.inventory)
}

func (s *Service) lookup(identity string) *Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[identity]
}

// Release gives handles back through the identity's allocator. Groups that
// held them shrink their target count so they are not refilled, and only
// those handles return to the accessible pool.
func (s *Service) Release(ctx context.Context, identity string, handles []models.Handle) (bool, int, error) {
	if identity == "" {
		return false, 0, ErrInvalidIdentity
	}

	if len(handles) == 0 {
		return true, 0, nil
	}

	req := s.lookup(identity)

	var alloc Allocator
	if req != nil {
		alloc, _ = req.binding()
	}

	if alloc == nil {
		var err error

		alloc, err = s.allocators.ForIdentity(ctx, identity)
		if err != nil {
			return false, 0, fmt.Errorf("%w: %w", ErrAllocatorUnavailable, err)
		}
	}

	if err := alloc.Release(ctx, handles); err != nil {
		return false, 0, err
	}

	// Only handles this request held are freed locally. Anything else may
	// still belong to another identity; the prober reconciles it.
	if req != nil {
		var held []models.Handle
		for _, g := range req.Groups() {
			held = append(held, g.releaseHandles(handles)...)
		}

		s.inventory.MarkUnallocated(held)
	}

	s.logger.Info().Str("identity", identity).Int("released", len(handles)).Msg("Released vessels")

	return true, len(handles), nil
}

// Forget drops a finished request. Requests still running are kept.
func (s *Service) Forget(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[identity]
	if !ok || !req.Status().Terminal() {
		return false
	}

	delete(s.requests, identity)

	return true
}

// Active returns how many requests are still being resolved.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, req := range s.requests {
		if !req.Status().Terminal() {
			n++
		}
	}

	return n
}

// Shutdown stops accepting requests and waits for resolution goroutines. If
// ctx expires first the goroutines are canceled and waited for once more.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.running.Store(false)
	s.mu.Unlock()

	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done

		return ctx.Err()
	}
}
