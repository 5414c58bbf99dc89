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

// Package app wires the inventory, prober, broker and HTTP API into one
// service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/carverauto/vesselbroker/pkg/api"
	"github.com/carverauto/vesselbroker/pkg/broker"
	"github.com/carverauto/vesselbroker/pkg/clearinghouse"
	"github.com/carverauto/vesselbroker/pkg/events"
	"github.com/carverauto/vesselbroker/pkg/geo"
	"github.com/carverauto/vesselbroker/pkg/inventory"
	"github.com/carverauto/vesselbroker/pkg/lifecycle"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/metrics"
	"github.com/carverauto/vesselbroker/pkg/nodemanager"
	"github.com/carverauto/vesselbroker/pkg/nodetype"
	"github.com/carverauto/vesselbroker/pkg/prober"
	"github.com/carverauto/vesselbroker/pkg/rules"
	"github.com/carverauto/vesselbroker/pkg/snapshot"
)

// Server owns every long-lived component. It implements lifecycle.Service.
type Server struct {
	cfg       *Config
	store     *inventory.Store
	rules     *rules.Registry
	prober    *prober.Prober
	service   *broker.Service
	api       *api.Server
	collector *metrics.Collector
	gatherer  *prometheus.Registry
	backend   snapshot.Backend
	publisher *events.Publisher
	geo       *geo.MaxMindLocator
	logger    logger.Logger

	httpClient *http.Client

	saveMu   sync.Mutex
	lastSave time.Time
}

var _ lifecycle.Service = (*Server)(nil)

// Option customizes a Server before its components are built.
type Option func(*Server)

// WithSnapshotBackend replaces the backend selected by the snapshot config.
func WithSnapshotBackend(b snapshot.Backend) Option {
	return func(s *Server) {
		s.backend = b
	}
}

// WithHTTPClient sets the client used for node manager and clearinghouse calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		s.httpClient = c
	}
}

// NewServer builds every component from cfg. Nothing runs until Start.
func NewServer(ctx context.Context, cfg *Config, log logger.Logger, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Server{
		cfg:      cfg,
		logger:   log,
		rules:    rules.NewDefaultRegistry(),
		gatherer: prometheus.NewRegistry(),
	}

	for _, o := range opts {
		o(s)
	}

	s.store = inventory.NewStore(lifecycle.ComponentLogger(log, "inventory"))

	s.gatherer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.New(s.gatherer, s.store)

	if err := s.buildProber(); err != nil {
		s.closeAll()
		return nil, err
	}

	if err := s.buildBroker(ctx); err != nil {
		s.closeAll()
		return nil, err
	}

	if s.backend == nil {
		backend, err := snapshot.Open(ctx, &cfg.Snapshot, lifecycle.ComponentLogger(log, "snapshot"))
		if err != nil {
			s.closeAll()
			return nil, err
		}

		s.backend = backend
	}

	s.api = api.NewServer(cfg.API, s.service, lifecycle.ComponentLogger(log, "api"),
		api.WithInventory(s.store),
		api.WithRegistry(s.rules),
		api.WithMetrics(s.gatherer),
	)

	return s, nil
}

func (s *Server) buildProber() error {
	locator, err := nodemanager.NewLocator(&s.cfg.NodeManager, s.httpClient, lifecycle.ComponentLogger(s.logger, "node-manager"))
	if err != nil {
		return err
	}

	client, err := nodemanager.NewClient(&s.cfg.NodeManager, s.httpClient)
	if err != nil {
		return err
	}

	classifier, err := nodetype.NewClassifier(&s.cfg.NodeType, lifecycle.ComponentLogger(s.logger, "node-type"))
	if err != nil {
		return err
	}

	deps := prober.Deps{
		Store:      s.store,
		Locator:    locator,
		Client:     client,
		Classifier: classifier,
	}

	if path := s.cfg.GeoIP.DatabasePath; path != "" {
		s.geo, err = geo.OpenMaxMind(path)
		if err != nil {
			return err
		}

		deps.Geo = s.geo
	} else {
		s.logger.Warn().Msg("No GeoIP database configured; vessels will have unknown locations")
	}

	s.prober, err = prober.New(&s.cfg.Probe, deps, lifecycle.ComponentLogger(s.logger, "prober"))
	if err != nil {
		return err
	}

	s.prober.OnCycle(s.afterCycle)

	return nil
}

func (s *Server) buildBroker(ctx context.Context) error {
	factory, err := clearinghouse.NewFactory(&s.cfg.Clearinghouse, s.httpClient, lifecycle.ComponentLogger(s.logger, "clearinghouse"))
	if err != nil {
		return err
	}

	deps := broker.Deps{
		Inventory:  s.store,
		Evaluator:  rules.NewEvaluator(s.rules, s.store),
		Allocators: factory,
		Metrics:    s.collector,
	}

	if s.cfg.Events.Enabled {
		s.publisher, err = events.Connect(ctx, &s.cfg.Events, lifecycle.ComponentLogger(s.logger, "events"))
		if err != nil {
			return err
		}

		deps.Publisher = s.publisher
	}

	s.service, err = broker.NewService(&s.cfg.Resolver, deps, lifecycle.ComponentLogger(s.logger, "broker"))

	return err
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	return s.api.Handler()
}

// Store exposes the inventory.
func (s *Server) Store() *inventory.Store {
	return s.store
}

// Start restores the last snapshot and starts probing.
func (s *Server) Start(ctx context.Context) error {
	s.restore(ctx)

	return s.prober.Start(ctx)
}

// restore loads the saved inventory. A missing or unreadable snapshot leaves
// the store empty.
func (s *Server) restore(ctx context.Context) {
	blob, err := s.backend.Load(ctx)

	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		s.logger.Info().Msg("No inventory snapshot found, starting empty")
		return
	case err != nil:
		s.logger.Warn().Err(err).Msg("Failed to read inventory snapshot, starting empty")
		return
	}

	if err := s.store.Load(blob); err != nil {
		s.logger.Warn().Err(err).Msg("Inventory snapshot unusable, starting empty")
		return
	}

	s.logger.Info().Int("vessels", s.store.Len()).Msg("Restored inventory snapshot")
}

func (s *Server) afterCycle(ctx context.Context, stats prober.CycleStats) {
	s.collector.ObserveCycle(stats)

	interval := s.cfg.Snapshot.SaveInterval.Std()
	if interval <= 0 {
		return
	}

	s.saveMu.Lock()
	due := time.Since(s.lastSave) >= interval
	s.saveMu.Unlock()

	if !due {
		return
	}

	if err := s.save(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Periodic snapshot save failed")
	}
}

func (s *Server) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	blob, err := s.store.Dump()
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}

	if err := s.backend.Save(ctx, blob); err != nil {
		return fmt.Errorf("failed to save inventory snapshot: %w", err)
	}

	s.lastSave = time.Now()

	s.logger.Debug().Int("bytes", len(blob)).Msg("Saved inventory snapshot")

	return nil
}

// Stop finishes in-flight requests, stops probing, saves a final snapshot and
// closes external connections, in that order.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error

	if err := s.service.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("broker shutdown: %w", err))
	}

	s.prober.Stop()

	if err := s.save(context.WithoutCancel(ctx)); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, s.closeAll()...)

	return errors.Join(errs...)
}

func (s *Server) closeAll() []error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("snapshot: %w", err))
		}
	}

	if s.geo != nil {
		if err := s.geo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("geoip: %w", err))
		}
	}

	return errs
}
