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

// Package metrics exposes probe and resolution activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/carverauto/vesselbroker/pkg/broker"
	"github.com/carverauto/vesselbroker/pkg/inventory"
	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/prober"
)

const namespace = "vesselbroker"

// StatsSource reports inventory totals.
type StatsSource interface {
	Stats() inventory.Stats
}

// Collector holds every broker metric.
type Collector struct {
	ProbeCycles   prometheus.Counter
	ProbeNodes    *prometheus.CounterVec
	ProbeDuration prometheus.Histogram
	Acquisitions  *prometheus.CounterVec
	Evictions     prometheus.Counter
	Groups        *prometheus.CounterVec
}

var _ broker.Metrics = (*Collector)(nil)

// New registers the collectors on reg. Inventory gauges are only registered
// when src is non-nil.
func New(reg prometheus.Registerer, src StatsSource) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		ProbeCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_cycles_total",
			Help:      "Completed probe cycles.",
		}),
		ProbeNodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_nodes_total",
			Help:      "Nodes handled by probe cycles, by outcome.",
		}, []string{"outcome"}),
		ProbeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_cycle_duration_seconds",
			Help:      "Wall time of one probe cycle.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		Acquisitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Vessel acquisition attempts, by outcome.",
		}, []string{"outcome"}),
		Evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Group members evicted to make room for better candidates.",
		}),
		Groups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_finished_total",
			Help:      "Groups reaching a terminal status, by status.",
		}, []string{"status"}),
	}

	if src != nil {
		gauge := func(name, help string, value func(inventory.Stats) int) {
			factory.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "inventory",
				Name:      name,
				Help:      help,
			}, func() float64 { return float64(value(src.Stats())) })
		}

		gauge("known_vessels", "Vessels in the inventory.", func(s inventory.Stats) int { return s.Known })
		gauge("allocated_vessels", "Vessels currently held by some group.", func(s inventory.Stats) int { return s.Allocated })
		gauge("invalid_vessels", "Vessels rejected by the clearinghouse.", func(s inventory.Stats) int { return s.Invalid })
	}

	return c
}

func (c *Collector) Acquisition(outcome string) {
	c.Acquisitions.WithLabelValues(outcome).Inc()
}

func (c *Collector) Eviction() {
	c.Evictions.Inc()
}

func (c *Collector) GroupFinished(status models.GroupStatus) {
	c.Groups.WithLabelValues(string(status)).Inc()
}

// ObserveCycle records one finished probe cycle.
func (c *Collector) ObserveCycle(stats prober.CycleStats) {
	c.ProbeCycles.Inc()
	c.ProbeDuration.Observe(stats.Duration.Seconds())
	c.ProbeNodes.WithLabelValues("probed").Add(float64(stats.Nodes))
	c.ProbeNodes.WithLabelValues("skipped").Add(float64(stats.Skipped))
	c.ProbeNodes.WithLabelValues("failed").Add(float64(stats.Failed))
	c.ProbeNodes.WithLabelValues("requeued").Add(float64(stats.Requeued))
}
