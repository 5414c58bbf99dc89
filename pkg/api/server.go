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

// Package api provides the HTTP front end of the vessel broker.
package api

//go:generate mockgen -destination=mock_api.go -package=api github.com/carverauto/vesselbroker/pkg/api Broker

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carverauto/vesselbroker/pkg/inventory"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/rules"
	"github.com/carverauto/vesselbroker/pkg/version"
)

const maxBodyBytes = 1 << 20

// Config is the api section of the broker config.
type Config struct {
	APIKey string     `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	CORS   CORSConfig `json:"cors,omitempty" yaml:"cors,omitempty"`
}

// Broker is the request-handling surface the API exposes.
type Broker interface {
	SubmitRequest(ctx context.Context, identity string, groups map[string]models.GroupSpec, port int) (models.RequestReport, error)
	QueryStatus(identity string) models.RequestReport
	Release(ctx context.Context, identity string, handles []models.Handle) (bool, int, error)
	Forget(identity string) bool
}

// StatsSource reports inventory totals.
type StatsSource interface {
	Stats() inventory.Stats
}

// Server routes HTTP requests to the broker.
type Server struct {
	router    *mux.Router
	broker    Broker
	inventory StatsSource
	registry  *rules.Registry
	gatherer  prometheus.Gatherer
	config    Config
	logger    logger.Logger
}

// NewServer builds the router. Options attach the optional endpoints.
func NewServer(cfg Config, b Broker, log logger.Logger, options ...func(*Server)) *Server {
	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Server{
		router: mux.NewRouter(),
		broker: b,
		config: cfg,
		logger: log,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithInventory exposes inventory totals at /api/v1/inventory.
func WithInventory(src StatsSource) func(*Server) {
	return func(s *Server) {
		s.inventory = src
	}
}

// WithRegistry exposes the registered rules at /api/v1/rules.
func WithRegistry(r *rules.Registry) func(*Server) {
	return func(s *Server) {
		s.registry = r
	}
}

// WithMetrics serves g at /metrics.
func WithMetrics(g prometheus.Gatherer) func(*Server) {
	return func(s *Server) {
		s.gatherer = g
	}
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Info: version.Get()})
	}).Methods(http.MethodGet)

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	protected := s.router.PathPrefix("/api/v1").Subrouter()
	protected.Use(APIKeyMiddleware(s.config.APIKey, s.logger))

	protected.HandleFunc("/requests/{identity}", s.submitRequest).Methods(http.MethodPost)
	protected.HandleFunc("/requests/{identity}", s.queryStatus).Methods(http.MethodGet)
	protected.HandleFunc("/requests/{identity}", s.forgetRequest).Methods(http.MethodDelete)
	protected.HandleFunc("/requests/{identity}/release", s.release).Methods(http.MethodPost)
	protected.HandleFunc("/inventory", s.inventoryStats).Methods(http.MethodGet)
	protected.HandleFunc("/rules", s.listRules).Methods(http.MethodGet)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return CommonMiddleware(s.router, s.config.CORS, s.logger)
}

type healthResponse struct {
	Status string `json:"status"`
	version.Info
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Error: message})
}
