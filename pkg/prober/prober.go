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

// Package prober refreshes the inventory from live node managers.
package prober

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/vesselbroker/pkg/geo"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

var (
	// ErrAlreadyRunning is returned by Start on a prober that is already running.
	ErrAlreadyRunning = errors.New("prober already running")

	errMissingCollaborator = errors.New("prober requires an inventory, node locator and node client")
)

// CycleStats summarizes one probe cycle.
type CycleStats struct {
	Nodes    int           `json:"nodes"`
	Vessels  int           `json:"vessels"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Requeued int           `json:"requeued"`
	Missed   int           `json:"missed"`
	Duration time.Duration `json:"duration"`
}

// Prober discovers nodes and upserts every vessel it can reach. Cycles never
// overlap: the next one is scheduled Delay after the previous one finished.
type Prober struct {
	cfg        *Config
	store      Inventory
	locator    NodeLocator
	client     NodeClient
	geo        geo.Locator
	classifier Classifier
	geoCache   *lru.Cache[string, models.Geo]
	reserved   map[string]struct{}
	logger     logger.Logger

	halted atomic.Bool

	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	lastCycle time.Time
	onCycle   func(context.Context, CycleStats)
}

// Deps groups the prober's collaborators. Geo and Classifier are optional.
type Deps struct {
	Store      Inventory
	Locator    NodeLocator
	Client     NodeClient
	Geo        geo.Locator
	Classifier Classifier
}

func New(cfg *Config, deps Deps, log logger.Logger) (*Prober, error) {
	if deps.Store == nil || deps.Locator == nil || deps.Client == nil {
		return nil, errMissingCollaborator
	}

	if cfg == nil {
		cfg = &Config{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := lru.New[string, models.Geo](cfg.GeoCacheSize)
	if err != nil {
		return nil, fmt.Errorf("geo cache: %w", err)
	}

	reserved := make(map[string]struct{}, len(cfg.ReservedVessels))
	for _, name := range cfg.ReservedVessels {
		reserved[name] = struct{}{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Prober{
		cfg:        cfg,
		store:      deps.Store,
		locator:    deps.Locator,
		client:     deps.Client,
		geo:        deps.Geo,
		classifier: deps.Classifier,
		geoCache:   cache,
		reserved:   reserved,
		logger:     log,
	}, nil
}

// OnCycle registers fn to run after every completed cycle started by Start.
func (p *Prober) OnCycle(fn func(context.Context, CycleStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onCycle = fn
}

// Start launches the periodic loop. The first cycle runs once Delay has
// elapsed since the last completed cycle, immediately if there was none.
func (p *Prober) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return ErrAlreadyRunning
	}

	p.halted.Store(false)
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	first := time.Duration(0)
	if !p.lastCycle.IsZero() {
		first = max(0, p.cfg.Delay.Std()-time.Since(p.lastCycle))
	}

	p.logger.Info().
		Dur("delay", p.cfg.Delay.Std()).
		Int("workers", p.cfg.Workers).
		Dur("first_cycle_in", first).
		Msg("Starting prober")

	go p.loop(ctx, first, p.stop, p.done)

	return nil
}

// Stop clears the running flag, cancels the pending timer and waits for the
// loop and every worker of an in-flight cycle to return.
func (p *Prober) Stop() {
	p.mu.Lock()

	if p.done == nil {
		p.mu.Unlock()
		return
	}

	p.halted.Store(true)
	close(p.stop)

	done := p.done
	p.done = nil
	p.mu.Unlock()

	<-done

	p.logger.Info().Msg("Prober stopped")
}

// Running reports whether the periodic loop is active.
func (p *Prober) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.done != nil
}

func (p *Prober) loop(ctx context.Context, first time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(first)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-timer.C:
		}

		stats, err := p.RunCycle(ctx)

		switch {
		case errors.Is(err, context.Canceled):
			p.logger.Debug().Err(err).Msg("Probe cycle cancelled")
		case err != nil:
			p.logger.Error().Err(err).Msg("Probe cycle failed")
		default:
			p.mu.Lock()
			hook := p.onCycle
			p.mu.Unlock()

			if hook != nil {
				hook(ctx, stats)
			}
		}

		if p.halted.Load() {
			return
		}

		timer.Reset(p.cfg.Delay.Std())
	}
}

type cycle struct {
	mu        sync.Mutex
	queue     []string
	requeues  map[string]int
	contacted models.HandleSet
	stats     CycleStats
}

func (c *cycle) next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return "", false
	}

	last := len(c.queue) - 1
	location := c.queue[last]
	c.queue = c.queue[:last]

	return location, true
}

func (c *cycle) requeue(location string, limit int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.requeues[location] >= limit {
		return false
	}

	c.requeues[location]++
	c.queue = append([]string{location}, c.queue...)
	c.stats.Requeued++

	return true
}

func (c *cycle) record(fn func(*CycleStats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

func (c *cycle) touched(h models.Handle) {
	c.mu.Lock()
	c.contacted.Add(h)
	c.stats.Vessels++
	c.mu.Unlock()
}

// RunCycle discovers nodes and drains them with the worker pool. Handles that
// were known but not contacted have their total probe count bumped, unless
// the prober was stopped mid-cycle.
func (p *Prober) RunCycle(ctx context.Context) (CycleStats, error) {
	start := time.Now()

	locations, err := p.locator.DiscoverActiveNodes(ctx, p.cfg.NodeKey)
	if err != nil {
		return CycleStats{}, fmt.Errorf("discover nodes: %w", err)
	}

	p.logger.Info().Int("nodes", len(locations)).Msg("Probing advertised nodes")

	c := &cycle{
		queue:     append([]string(nil), locations...),
		requeues:  make(map[string]int),
		contacted: models.NewHandleSet(),
	}

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < p.cfg.Workers; i++ {
		g.Go(func() error {
			return p.work(gctx, c)
		})
	}

	interrupted := g.Wait()

	if !p.halted.Load() && interrupted == nil {
		c.stats.Missed = p.store.IncrementMissed(c.contacted)
	}

	c.stats.Duration = time.Since(start)

	p.mu.Lock()
	p.lastCycle = time.Now()
	p.mu.Unlock()

	p.logger.Info().
		Int("nodes", c.stats.Nodes).
		Int("vessels", c.stats.Vessels).
		Int("skipped", c.stats.Skipped).
		Int("failed", c.stats.Failed).
		Int("requeued", c.stats.Requeued).
		Int("missed", c.stats.Missed).
		Dur("duration", c.stats.Duration).
		Msg("Probe cycle complete")

	if interrupted != nil {
		return c.stats, fmt.Errorf("probe cycle interrupted: %w", interrupted)
	}

	return c.stats, nil
}

// work drains the queue until it is empty or the prober halts. A cancelled
// cycle context is returned so the whole cycle is reported as interrupted.
func (p *Prober) work(ctx context.Context, c *cycle) error {
	for !p.halted.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}

		location, ok := c.next()
		if !ok {
			return nil
		}

		p.probeNode(ctx, c, location)
	}

	return nil
}

func (p *Prober) probeNode(ctx context.Context, c *cycle, location string) {
	node, err := p.locator.DescribeNode(location)
	if err != nil {
		p.logger.Warn().Err(err).Str("location", location).Msg("Unparseable node location")
		c.record(func(s *CycleStats) { s.Failed++ })

		return
	}

	if !usableAddress(node.Address) {
		c.record(func(s *CycleStats) { s.Skipped++ })
		return
	}

	where, err := p.lookupGeo(ctx, node.Address)

	switch {
	case err == nil:
	case geo.IsTransient(err):
		if c.requeue(location, p.cfg.MaxRequeues) {
			p.logger.Debug().Err(err).Str("location", location).Msg("Geo lookup unavailable, requeued node")
			return
		}

		p.logger.Warn().Err(err).Str("location", location).Msg("Geo lookup still unavailable, storing node without location")

		where, _ = p.geoCache.Peek(node.Address)
	default:
		p.logger.Debug().Err(err).Str("address", node.Address).Msg("No geo record for node")
	}

	info, err := p.client.ListVessels(ctx, node)
	if err != nil {
		p.logger.Error().Err(err).Str("location", location).Msg("Failed to list vessels")
		c.record(func(s *CycleStats) { s.Failed++ })

		return
	}

	names := make([]string, 0, len(info.Vessels))
	for name := range info.Vessels {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if _, skip := p.reserved[name]; skip {
			continue
		}

		descriptor, err := p.client.GetResourceDescriptor(ctx, node, name)
		if err != nil {
			p.logger.Error().Err(err).Str("location", location).Str("vessel", name).Msg("Failed to fetch resources")
			c.record(func(s *CycleStats) { s.Failed++ })

			return
		}

		h := models.Handle{NodeID: info.Identity, Vessel: name}

		p.store.Upsert(h, models.Observation{
			Address:      node.Address,
			NodeLocation: location,
			Ports:        ParsePorts(descriptor),
			Geo:          where,
			NodeType:     p.nodeType(ctx, h, node.Address),
		})

		if len(info.Vessels[name].UserKeys) > 0 {
			p.store.MarkAllocated([]models.Handle{h})
		} else {
			p.store.MarkUnallocated([]models.Handle{h})
		}

		c.touched(h)
	}

	c.record(func(s *CycleStats) { s.Nodes++ })
}

func (p *Prober) lookupGeo(ctx context.Context, address string) (models.Geo, error) {
	if p.geo == nil {
		return models.Geo{}, nil
	}

	if !p.cfg.ForceGeoRefresh {
		if cached, ok := p.geoCache.Get(address); ok {
			return cached, nil
		}
	}

	where, err := p.geo.Resolve(ctx, address)
	if err != nil {
		return models.Geo{}, err
	}

	p.geoCache.Add(address, where)

	return where, nil
}

// nodeType returns "" when the stored classification is still valid, which
// leaves it untouched on upsert.
func (p *Prober) nodeType(ctx context.Context, h models.Handle, address string) models.NodeType {
	if !p.cfg.ForceNodeTypeRefresh {
		if rec, ok := p.store.Record(h); ok && rec.Address == address && rec.NodeType != "" {
			return ""
		}
	}

	if p.classifier == nil {
		return models.NodeTypeUnknown
	}

	return p.classifier.Classify(ctx, address)
}
