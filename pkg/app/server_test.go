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

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/vesselbroker/pkg/clearinghouse"
	"github.com/carverauto/vesselbroker/pkg/inventory"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/nodemanager"
	"github.com/carverauto/vesselbroker/pkg/prober"
	"github.com/carverauto/vesselbroker/pkg/snapshot"
)

// fakeNetwork serves the advertise service, one node manager and the
// clearinghouse from a single listener.
type fakeNetwork struct {
	srv *httptest.Server

	mu       sync.Mutex
	acquired []string
}

func newFakeNetwork(t *testing.T) *fakeNetwork {
	t.Helper()

	f := &fakeNetwork{}
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/nodes", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]string{f.srv.Listener.Addr().String()})
	})
	mux.HandleFunc("/v1/vessels", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"identity":"node-1","vessels":{"v1":{"userkeys":[]},"v2":{"userkeys":[]},"v3":{"userkeys":[]}}}`)
	})
	mux.HandleFunc("/v1/vessels/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "resource messport 63100\nresource connport 63100\n")
	})
	mux.HandleFunc("/ch/v1/accounts/alice", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"identity":"alice","user_port":63100}`)
	})
	mux.HandleFunc("/ch/v1/acquire", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Handles []string `json:"handles"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.acquired = append(f.acquired, body.Handles...)
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/ch/v1/release", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeNetwork) config() *Config {
	return &Config{
		Probe:         prober.Config{Delay: models.Duration(time.Hour), Workers: 2},
		Snapshot:      snapshot.Config{Driver: snapshot.DriverMemory},
		Clearinghouse: clearinghouse.Config{URL: f.srv.URL + "/ch"},
		NodeManager:   nodemanager.Config{AdvertiseURL: f.srv.URL},
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	require.ErrorIs(t, cfg.Validate(), errInvalidConfig)

	cfg = Config{
		Clearinghouse: clearinghouse.Config{URL: "http://clearinghouse"},
		NodeManager:   nodemanager.Config{AdvertiseURL: "http://advertise"},
	}
	cfg.Probe.ForceNodeTypeRefresh = true

	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout.Std())
	assert.NotNil(t, cfg.Logging)
	assert.True(t, cfg.NodeType.ForceRefresh)
	assert.Equal(t, snapshot.DriverFile, cfg.Snapshot.Driver)
	assert.Equal(t, 5, cfg.Resolver.MaxPasses)
	assert.Equal(t, 3, cfg.Resolver.MaxInGroupRetries)
}

func TestConfigValidateReportsSection(t *testing.T) {
	cfg := Config{
		Clearinghouse: clearinghouse.Config{URL: "http://clearinghouse"},
		NodeManager:   nodemanager.Config{AdvertiseURL: "http://advertise"},
		Snapshot:      snapshot.Config{Driver: "floppy"},
	}

	err := cfg.Validate()
	require.ErrorIs(t, err, errInvalidConfig)
	assert.Contains(t, err.Error(), "snapshot")
}

func TestLoadConfigYAML(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := t.TempDir() + "/broker.yaml"
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
probe:
  delay: 60s
  node_key: pubkey
clearinghouse:
  url: http://clearinghouse:8080
node_manager:
  advertise_url: http://advertise:10101
resolver:
  group_order: most_rules
`), 0o600))

	cfg, err := LoadConfig(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, time.Minute, cfg.Probe.Delay.Std())
	assert.Equal(t, "pubkey", cfg.Probe.NodeKey)
	assert.Equal(t, "most_rules", string(cfg.Resolver.GroupOrder))
}

func TestRestoreFallsBackToEmpty(t *testing.T) {
	network := newFakeNetwork(t)
	backend := snapshot.NewMemoryBackend()

	s, err := NewServer(context.Background(), network.config(), logger.NewTestLogger(),
		WithSnapshotBackend(backend), WithHTTPClient(network.srv.Client()))
	require.NoError(t, err)

	s.restore(context.Background())
	assert.Equal(t, 0, s.Store().Len())

	require.NoError(t, backend.Save(context.Background(), []byte("not a snapshot")))
	s.restore(context.Background())
	assert.Equal(t, 0, s.Store().Len())

	src := inventory.NewStore(nil)
	src.Upsert(models.Handle{NodeID: "node-9", Vessel: "v1"}, models.Observation{Address: "10.0.0.9", Ports: []int{63100}})

	blob, err := src.Dump()
	require.NoError(t, err)
	require.NoError(t, backend.Save(context.Background(), blob))

	s.restore(context.Background())
	assert.Equal(t, 1, s.Store().Len())
}

func TestServerProbesAndResolves(t *testing.T) {
	network := newFakeNetwork(t)
	backend := snapshot.NewMemoryBackend()
	ctx := context.Background()

	s, err := NewServer(ctx, network.config(), logger.NewTestLogger(),
		WithSnapshotBackend(backend), WithHTTPClient(network.srv.Client()))
	require.NoError(t, err)

	require.NoError(t, s.Start(ctx))

	// v2 is reserved
	require.Eventually(t, func() bool { return s.Store().Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	apiSrv := httptest.NewServer(s.Handler())
	defer apiSrv.Close()

	resp, err := http.Post(apiSrv.URL+"/api/v1/requests/alice", "application/json",
		strings.NewReader(`{"groups":{"g1":{"target_count":2}}}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var rep models.RequestReport

	require.Eventually(t, func() bool {
		resp, err := http.Get(apiSrv.URL + "/api/v1/requests/alice")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()

		rep = models.RequestReport{}
		if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
			return false
		}

		return rep.Status.Terminal()
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, models.RequestComplete, rep.Status)
	require.Contains(t, rep.Groups, "g1")
	assert.Equal(t, models.GroupResolved, rep.Groups["g1"].Status)
	assert.Len(t, rep.Groups["g1"].Acquired, 2)

	network.mu.Lock()
	assert.ElementsMatch(t, []string{"node-1:v1", "node-1:v3"}, network.acquired)
	network.mu.Unlock()

	resp, err = http.Get(apiSrv.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	require.NoError(t, s.Stop(stopCtx))
	assert.Equal(t, 1, backend.Saves())
}
