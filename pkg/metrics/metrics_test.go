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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/vesselbroker/pkg/broker"
	"github.com/carverauto/vesselbroker/pkg/inventory"
	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/prober"
)

type staticStats inventory.Stats

func (s staticStats) Stats() inventory.Stats { return inventory.Stats(s) }

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, staticStats{Known: 7, Allocated: 2, Invalid: 1})

	c.Acquisition(broker.OutcomeAcquired)
	c.Acquisition(broker.OutcomeAcquired)
	c.Acquisition(broker.OutcomeInvalid)
	c.Eviction()
	c.GroupFinished(models.GroupResolved)
	c.ObserveCycle(prober.CycleStats{Nodes: 5, Skipped: 1, Failed: 2, Duration: 3 * time.Second})

	assert.InDelta(t, 2, testutil.ToFloat64(c.Acquisitions.WithLabelValues(broker.OutcomeAcquired)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Acquisitions.WithLabelValues(broker.OutcomeInvalid)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Evictions), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Groups.WithLabelValues("resolved")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ProbeCycles), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(c.ProbeNodes.WithLabelValues("probed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.ProbeNodes.WithLabelValues("failed")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)

	gauges := map[string]float64{}

	for _, mf := range families {
		if mf.GetType().String() == "GAUGE" {
			gauges[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}

	assert.InDelta(t, 7, gauges["vesselbroker_inventory_known_vessels"], 0)
	assert.InDelta(t, 2, gauges["vesselbroker_inventory_allocated_vessels"], 0)
	assert.InDelta(t, 1, gauges["vesselbroker_inventory_invalid_vessels"], 0)
}

func TestCollectorWithoutInventory(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg, nil)

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "only the unlabelled collectors export before any observation")
}
