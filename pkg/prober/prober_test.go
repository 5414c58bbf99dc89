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

package prober

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/vesselbroker/pkg/geo"
	"github.com/carverauto/vesselbroker/pkg/inventory"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

const descriptor = `resource cpu .10
resource messport 12345
resource connport 12346.0
resource connport bogus
resource memory 10000000
`

func TestParsePorts(t *testing.T) {
	assert.Equal(t, []int{12345, 12346}, ParsePorts(descriptor))
	assert.Equal(t, []int{63100}, ParsePorts("resource messport 63100.7\nresource messport 63100"))
	assert.Empty(t, ParsePorts(""))
	assert.Empty(t, ParsePorts("resource messport"))
	assert.Equal(t, []int{80}, ParsePorts("resource messport NaN\nresource connport 80.0"))
	assert.Equal(t, []int{80}, ParsePorts("resource messport -1\nresource messport +Inf\nresource connport 80"))
}

func TestUsableAddress(t *testing.T) {
	assert.True(t, usableAddress("128.208.1.1"))
	assert.False(t, usableAddress("NAT$abcdef"))
	assert.False(t, usableAddress("::1"))
	assert.False(t, usableAddress("::ffff:1.2.3.4"))
	assert.False(t, usableAddress("1.2.3"))
	assert.False(t, usableAddress("host.example.org"))
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 300*time.Second, cfg.Delay.Std())
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []string{"v2"}, cfg.ReservedVessels)
	assert.Equal(t, 4096, cfg.GeoCacheSize)
	assert.Equal(t, 3, cfg.MaxRequeues)

	require.ErrorIs(t, (&Config{Workers: -1}).Validate(), errInvalidConfig)
	require.ErrorIs(t, (&Config{Delay: -1}).Validate(), errInvalidConfig)
}

type harness struct {
	store      *inventory.Store
	locator    *MockNodeLocator
	client     *MockNodeClient
	geo        *geo.MockLocator
	classifier *MockClassifier
	prober     *Prober
}

func newHarness(t *testing.T, cfg *Config) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	h := &harness{
		store:      inventory.NewStore(logger.NewTestLogger()),
		locator:    NewMockNodeLocator(ctrl),
		client:     NewMockNodeClient(ctrl),
		geo:        geo.NewMockLocator(ctrl),
		classifier: NewMockClassifier(ctrl),
	}

	p, err := New(cfg, Deps{
		Store:      h.store,
		Locator:    h.locator,
		Client:     h.client,
		Geo:        h.geo,
		Classifier: h.classifier,
	}, logger.NewTestLogger())
	require.NoError(t, err)

	h.prober = p

	return h
}

func seattle() models.Geo {
	lat, lon := 47.6, -122.3
	return models.Geo{CountryCode: "us", City: "seattle", Latitude: &lat, Longitude: &lon}
}

func TestRunCycleInventoriesVessels(t *testing.T) {
	h := newHarness(t, &Config{Workers: 2, NodeKey: "key"})
	node := NodeAddress{Address: "10.1.1.1", Port: 1224}

	h.locator.EXPECT().DiscoverActiveNodes(gomock.Any(), "key").
		Return([]string{"10.1.1.1:1224", "NAT$ab:1224", "bad"}, nil)
	h.locator.EXPECT().DescribeNode("10.1.1.1:1224").Return(node, nil)
	h.locator.EXPECT().DescribeNode("NAT$ab:1224").Return(NodeAddress{Address: "NAT$ab", Port: 1224}, nil)
	h.locator.EXPECT().DescribeNode("bad").Return(NodeAddress{}, errors.New("missing port"))

	h.geo.EXPECT().Resolve(gomock.Any(), "10.1.1.1").Return(seattle(), nil)
	h.classifier.EXPECT().Classify(gomock.Any(), "10.1.1.1").Return(models.NodeTypeUniversity).Times(2)

	h.client.EXPECT().ListVessels(gomock.Any(), node).Return(NodeInfo{
		Identity: "nodeA",
		Vessels: map[string]VesselInfo{
			"v1": {},
			"v2": {},
			"v3": {UserKeys: []string{"pubkey"}},
		},
	}, nil)
	h.client.EXPECT().GetResourceDescriptor(gomock.Any(), node, "v1").Return(descriptor, nil)
	h.client.EXPECT().GetResourceDescriptor(gomock.Any(), node, "v3").Return("resource messport 5000", nil)

	stats, err := h.prober.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Nodes)
	assert.Equal(t, 2, stats.Vessels)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Missed)

	v1 := models.Handle{NodeID: "nodeA", Vessel: "v1"}
	v3 := models.Handle{NodeID: "nodeA", Vessel: "v3"}

	rec, ok := h.store.Record(v1)
	require.True(t, ok)
	assert.Equal(t, []int{12345, 12346}, rec.Ports)
	assert.Equal(t, "seattle", rec.Geo.City)
	assert.Equal(t, 0, rec.AddressChangeCount)
	assert.Equal(t, models.NodeTypeUniversity, rec.NodeType)
	assert.Equal(t, "10.1.1.1:1224", rec.NodeLocation)

	_, ok = h.store.Record(models.Handle{NodeID: "nodeA", Vessel: "v2"})
	assert.False(t, ok, "reserved vessel must not be inventoried")

	assert.False(t, h.store.IsAllocated(v1))
	assert.True(t, h.store.IsAllocated(v3))
}

func TestRunCycleRequeuesTransientGeoFailures(t *testing.T) {
	h := newHarness(t, &Config{Workers: 1, MaxRequeues: 2})
	node := NodeAddress{Address: "10.1.1.2", Port: 1224}

	h.locator.EXPECT().DiscoverActiveNodes(gomock.Any(), "").Return([]string{"10.1.1.2:1224"}, nil)
	h.locator.EXPECT().DescribeNode("10.1.1.2:1224").Return(node, nil).Times(2)

	gomock.InOrder(
		h.geo.EXPECT().Resolve(gomock.Any(), "10.1.1.2").Return(models.Geo{}, fmt.Errorf("%w: timeout", geo.ErrTransient)),
		h.geo.EXPECT().Resolve(gomock.Any(), "10.1.1.2").Return(seattle(), nil),
	)

	h.classifier.EXPECT().Classify(gomock.Any(), "10.1.1.2").Return(models.NodeTypeHome)
	h.client.EXPECT().ListVessels(gomock.Any(), node).
		Return(NodeInfo{Identity: "nodeB", Vessels: map[string]VesselInfo{"v4": {}}}, nil)
	h.client.EXPECT().GetResourceDescriptor(gomock.Any(), node, "v4").Return("", nil)

	stats, err := h.prober.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Requeued)
	assert.Equal(t, 1, stats.Nodes)

	rec, ok := h.store.Record(models.Handle{NodeID: "nodeB", Vessel: "v4"})
	require.True(t, ok)
	assert.Equal(t, "us", rec.Geo.CountryCode)
}

func TestRunCycleStoresUnknownGeoWhenRequeuesExhausted(t *testing.T) {
	h := newHarness(t, &Config{Workers: 1, MaxRequeues: 1})
	node := NodeAddress{Address: "10.1.1.3", Port: 1224}

	h.locator.EXPECT().DiscoverActiveNodes(gomock.Any(), "").Return([]string{"10.1.1.3:1224"}, nil)
	h.locator.EXPECT().DescribeNode("10.1.1.3:1224").Return(node, nil).Times(2)
	h.geo.EXPECT().Resolve(gomock.Any(), "10.1.1.3").Return(models.Geo{}, geo.ErrTransient).Times(2)
	h.classifier.EXPECT().Classify(gomock.Any(), "10.1.1.3").Return(models.NodeTypeUnknown)
	h.client.EXPECT().ListVessels(gomock.Any(), node).
		Return(NodeInfo{Identity: "nodeC", Vessels: map[string]VesselInfo{"v1": {}}}, nil)
	h.client.EXPECT().GetResourceDescriptor(gomock.Any(), node, "v1").Return("", nil)

	stats, err := h.prober.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Requeued)

	rec, ok := h.store.Record(models.Handle{NodeID: "nodeC", Vessel: "v1"})
	require.True(t, ok)
	assert.False(t, rec.Geo.Known())
}

func TestRunCycleCachesGeoAndCountsMissed(t *testing.T) {
	h := newHarness(t, &Config{Workers: 1})
	node := NodeAddress{Address: "10.1.1.4", Port: 1224}
	v1 := models.Handle{NodeID: "nodeD", Vessel: "v1"}

	h.locator.EXPECT().DiscoverActiveNodes(gomock.Any(), "").Return([]string{"10.1.1.4:1224"}, nil)
	h.locator.EXPECT().DescribeNode("10.1.1.4:1224").Return(node, nil)
	h.geo.EXPECT().Resolve(gomock.Any(), "10.1.1.4").Return(seattle(), nil).Times(1)
	h.classifier.EXPECT().Classify(gomock.Any(), "10.1.1.4").Return(models.NodeTypeTestbed).Times(1)
	h.client.EXPECT().ListVessels(gomock.Any(), node).
		Return(NodeInfo{Identity: "nodeD", Vessels: map[string]VesselInfo{"v1": {}}}, nil).Times(2)
	h.client.EXPECT().GetResourceDescriptor(gomock.Any(), node, "v1").Return("", nil).Times(2)

	_, err := h.prober.RunCycle(context.Background())
	require.NoError(t, err)

	// Same address again: geo and node type are not looked up.
	h.locator.EXPECT().DiscoverActiveNodes(gomock.Any(), "").Return([]string{"10.1.1.4:1224"}, nil)
	h.locator.EXPECT().DescribeNode("10.1.1.4:1224").Return(node, nil)

	_, err = h.prober.RunCycle(context.Background())
	require.NoError(t, err)

	rec, _ := h.store.Record(v1)
	assert.Equal(t, 2, rec.SuccessfulProbes)
	assert.Equal(t, 2, rec.TotalProbes)
	assert.Equal(t, models.NodeTypeTestbed, rec.NodeType)

	// Third cycle: node unreachable, the vessel is counted as missed.
	h.locator.EXPECT().DiscoverActiveNodes(gomock.Any(), "").Return([]string{"10.1.1.4:1224"}, nil)
	h.locator.EXPECT().DescribeNode("10.1.1.4:1224").Return(node, nil)
	h.client.EXPECT().ListVessels(gomock.Any(), node).Return(NodeInfo{}, errors.New("connection refused"))

	stats, err := h.prober.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Missed)

	rec, _ = h.store.Record(v1)
	assert.Equal(t, 2, rec.SuccessfulProbes)
	assert.Equal(t, 3, rec.TotalProbes)
	assert.InDelta(t, 2.0/3.0, rec.Reliability(), 1e-9)
}

func TestRunCycleDiscoveryFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.locator.EXPECT().DiscoverActiveNodes(gomock.Any(), "").Return(nil, errors.New("advertise service down"))

	_, err := h.prober.RunCycle(context.Background())
	require.Error(t, err)
}

func TestRunCycleInterrupted(t *testing.T) {
	h := newHarness(t, &Config{Workers: 2})
	h.store.Upsert(models.Handle{NodeID: "node-1", Vessel: "v1"}, models.Observation{Address: "128.208.1.1"})

	ctx, cancel := context.WithCancel(context.Background())

	h.locator.EXPECT().DiscoverActiveNodes(gomock.Any(), "").
		DoAndReturn(func(context.Context, string) ([]string, error) {
			cancel()
			return []string{"128.208.1.1:1224", "128.208.1.2:1224"}, nil
		})

	stats, err := h.prober.RunCycle(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Nodes)
	assert.Zero(t, stats.Missed)

	rec, ok := h.store.Record(models.Handle{NodeID: "node-1", Vessel: "v1"})
	require.True(t, ok)
	assert.Equal(t, 1, rec.TotalProbes, "interrupted cycles do not count as misses")
}

func TestStartStop(t *testing.T) {
	h := newHarness(t, &Config{Workers: 1, Delay: models.Duration(time.Hour)})

	cycles := make(chan CycleStats, 1)
	h.prober.OnCycle(func(_ context.Context, s CycleStats) { cycles <- s })

	h.locator.EXPECT().DiscoverActiveNodes(gomock.Any(), "").Return(nil, nil)

	ctx := context.Background()
	require.NoError(t, h.prober.Start(ctx))
	require.ErrorIs(t, h.prober.Start(ctx), ErrAlreadyRunning)
	assert.True(t, h.prober.Running())

	select {
	case <-cycles:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle did not run")
	}

	h.prober.Stop()
	assert.False(t, h.prober.Running())

	// Stopping twice is harmless.
	h.prober.Stop()
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, Deps{}, nil)
	require.ErrorIs(t, err, errMissingCollaborator)
}
