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

package inventory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/vesselbroker/pkg/models"
)

func populated(t *testing.T, n int) *Store {
	t.Helper()

	s := NewStore(nil)
	countries := []string{"us", "ca", "de", ""}
	cities := []string{"seattle", "toronto", "berlin", ""}

	for i := 0; i < n; i++ {
		lat := float64(i) / 10
		lon := float64(-i) / 10

		obs := models.Observation{
			Address:      fmt.Sprintf("10.0.%d.%d", i/250, i%250),
			NodeLocation: fmt.Sprintf("10.0.%d.%d:1224", i/250, i%250),
			Ports:        []int{63100 + i%3, 63200},
			Geo: models.Geo{
				CountryCode: countries[i%len(countries)],
				City:        cities[(i/2)%len(cities)],
				Latitude:    &lat,
				Longitude:   &lon,
			},
			NodeType: models.ValidNodeTypes[i%len(models.ValidNodeTypes)],
		}

		h := models.Handle{NodeID: fmt.Sprintf("node %d", i/2), Vessel: fmt.Sprintf("v%d", i%2+1)}
		s.Upsert(h, obs)

		if i%3 == 0 {
			obs.Address = "192.168.0.1"
			s.Upsert(h, obs)
		}
	}

	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	original := populated(t, 60)

	blob, err := original.Dump()
	require.NoError(t, err)

	restored := NewStore(nil)
	require.NoError(t, restored.Load(blob))

	queries := []AccessQuery{
		{},
		{Country: "us"},
		{Country: "ca", City: "toronto"},
		{Country: "de", City: "unknown"},
		{Port: 63101},
		{Port: 63200, Country: "us"},
		{Port: 63102, Country: "ca", City: "berlin"},
		{Base: models.NewHandleSet(models.Handle{NodeID: "node 3", Vessel: "v2"}, models.Handle{NodeID: "node 9", Vessel: "v1"})},
		{Base: original.Handles(), Port: 63100},
	}

	for _, q := range queries {
		assert.True(t, original.GetAccessible(q).Equal(restored.GetAccessible(q)), "query %+v", q)
	}

	assert.Equal(t, original.Stats(), restored.Stats())

	for h := range original.Handles() {
		want, _ := original.Record(h)
		got, ok := restored.Record(h)
		require.True(t, ok)
		assert.Equal(t, want.Ports, got.Ports)
		assert.Equal(t, want.Geo, got.Geo)
		assert.Equal(t, want.AddressChangeCount, got.AddressChangeCount)
		assert.Equal(t, want.TotalProbes, got.TotalProbes)
		assert.True(t, want.LastSeen.Equal(got.LastSeen))
	}

	assert.Equal(t, original.HandlesByAddressChanges(1, 1), restored.HandlesByAddressChanges(1, 1))
}

func TestRestoreRebuildsIndicesFromRecords(t *testing.T) {
	original := populated(t, 10)
	snap := original.Snapshot()

	// Persisted indices are discarded in favor of the records.
	snap.Ports = map[int][]models.Handle{1: {{NodeID: "ghost", Vessel: "v1"}}}
	snap.Geo = nil

	restored := NewStore(nil)
	require.NoError(t, restored.Restore(snap))

	assert.Empty(t, restored.HandlesWithPort(1))
	assert.True(t, original.HandlesInLocation("us", "").Equal(restored.HandlesInLocation("us", "")))
}

func TestRestoreClearsAllocationState(t *testing.T) {
	s := populated(t, 4)
	h := s.Snapshot().Records[0].Handle
	s.MarkAllocated([]models.Handle{h})

	require.NoError(t, s.Restore(s.Snapshot()))
	assert.False(t, s.IsAllocated(h))
}

func TestLoadRejectsCorruptBlob(t *testing.T) {
	s := populated(t, 4)

	err := s.Load([]byte("definitely not zstd"))
	require.ErrorIs(t, err, errCorruptSnapshot)
	assert.Equal(t, 4, s.Len(), "failed load leaves the store untouched")
}

func TestRestoreRejectsUnknownVersion(t *testing.T) {
	snap := populated(t, 2).Snapshot()
	snap.Version = 42

	err := NewStore(nil).Restore(snap)
	require.ErrorIs(t, err, errUnsupportedSnapshot)
}

func TestEncodeSnapshotDeterministic(t *testing.T) {
	s := populated(t, 20)
	snap := s.Snapshot()

	a, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	b, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
