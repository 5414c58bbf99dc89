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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/vesselbroker/pkg/broker"
	"github.com/carverauto/vesselbroker/pkg/inventory"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/rules"
)

type fixedStats inventory.Stats

func (f fixedStats) Stats() inventory.Stats { return inventory.Stats(f) }

func newTestServer(t *testing.T, cfg Config, options ...func(*Server)) (*MockBroker, http.Handler) {
	t.Helper()

	ctrl := gomock.NewController(t)
	b := NewMockBroker(ctrl)

	return b, NewServer(cfg, b, logger.NewTestLogger(), options...).Handler()
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var out errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))

	return out.Error
}

func TestSubmitRequest(t *testing.T) {
	b, h := newTestServer(t, Config{})

	want := map[string]models.GroupSpec{
		"g1": {TargetCount: 2, RuleStrings: []string{"location_specific,country~DE"}},
	}

	b.EXPECT().SubmitRequest(gomock.Any(), "alice", want, 63100).
		Return(models.RequestReport{Identity: "alice", Status: models.RequestAccepted}, nil)

	rec := do(h, http.MethodPost, "/api/v1/requests/alice",
		`{"groups":{"g1":{"target_count":2,"rule_strings":["location_specific,country~DE"]}},"port":63100}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var rep models.RequestReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	assert.Equal(t, models.RequestAccepted, rep.Status)
}

func TestSubmitRequestErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{broker.ErrRequestInProgress, http.StatusConflict},
		{broker.ErrShuttingDown, http.StatusServiceUnavailable},
		{broker.ErrInvalidIdentity, http.StatusBadRequest},
		{fmt.Errorf("%w: dial tcp", broker.ErrAllocatorUnavailable), http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			b, h := newTestServer(t, Config{})

			b.EXPECT().SubmitRequest(gomock.Any(), "alice", gomock.Any(), 0).
				Return(models.RequestReport{}, tc.err)

			rec := do(h, http.MethodPost, "/api/v1/requests/alice", `{"groups":{}}`)
			assert.Equal(t, tc.code, rec.Code)
			assert.Contains(t, decodeError(t, rec), tc.err.Error())
		})
	}
}

func TestSubmitRequestBadBody(t *testing.T) {
	_, h := newTestServer(t, Config{})

	rec := do(h, http.MethodPost, "/api/v1/requests/alice", `{"groups":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/requests/alice", `{"groups":{},"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/requests/alice", `{"groups":{},"port":70000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryStatus(t *testing.T) {
	b, h := newTestServer(t, Config{})

	b.EXPECT().QueryStatus("bob").Return(models.RequestReport{Identity: "bob", Status: models.RequestUnknown})

	rec := do(h, http.MethodGet, "/api/v1/requests/bob", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rep models.RequestReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	assert.Equal(t, models.RequestUnknown, rep.Status)
}

func TestForgetRequest(t *testing.T) {
	b, h := newTestServer(t, Config{})

	gomock.InOrder(
		b.EXPECT().QueryStatus("alice").Return(models.RequestReport{Status: models.RequestUnknown}),
		b.EXPECT().QueryStatus("alice").Return(models.RequestReport{Status: models.RequestWorking}),
		b.EXPECT().QueryStatus("alice").Return(models.RequestReport{Status: models.RequestComplete}),
	)
	b.EXPECT().Forget("alice").Return(true)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/api/v1/requests/alice", "").Code)
	assert.Equal(t, http.StatusConflict, do(h, http.MethodDelete, "/api/v1/requests/alice", "").Code)
	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/api/v1/requests/alice", "").Code)
}

func TestRelease(t *testing.T) {
	b, h := newTestServer(t, Config{})

	handles := []models.Handle{{NodeID: "node key 1", Vessel: "v1"}, {NodeID: "node key 2", Vessel: "v4"}}

	b.EXPECT().Release(gomock.Any(), "alice", handles).Return(true, 2, nil)

	rec := do(h, http.MethodPost, "/api/v1/requests/alice/release", `{"handles":["node key 1:v1","node key 2:v4"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out releaseResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, releaseResponse{OK: true, Released: 2}, out)

	rec = do(h, http.MethodPost, "/api/v1/requests/alice/release", `{"handles":["no-colon"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReleaseAllocatorFailure(t *testing.T) {
	b, h := newTestServer(t, Config{})

	b.EXPECT().Release(gomock.Any(), "alice", gomock.Any()).Return(false, 0, assert.AnError)

	rec := do(h, http.MethodPost, "/api/v1/requests/alice/release", `{"handles":["n:v1"]}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAPIKey(t *testing.T) {
	b, h := newTestServer(t, Config{APIKey: "secret"})

	b.EXPECT().QueryStatus("alice").Return(models.RequestReport{Status: models.RequestUnknown}).Times(2)

	rec := do(h, http.MethodGet, "/api/v1/requests/alice", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/alice", http.NoBody)
	req.Header.Set("X-API-Key", "secret")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/requests/alice?api_key=secret", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// health checks stay open
	rec = do(h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "dev", health.Version)
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestServer(t, Config{CORS: CORSConfig{AllowedOrigins: []string{"https://ui.example"}}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/requests/alice", http.NoBody)
	req.Header.Set("Origin", "https://ui.example")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://ui.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/requests/alice", http.NoBody)
	req.Header.Set("Origin", "https://evil.example")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInventoryRulesAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "vesselbroker_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	_, h := newTestServer(t, Config{},
		WithInventory(fixedStats{Known: 4, Allocated: 1}),
		WithRegistry(rules.NewDefaultRegistry()),
		WithMetrics(reg),
	)

	rec := do(h, http.MethodGet, "/api/v1/inventory", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats inventory.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 4, stats.Known)
	assert.Equal(t, 1, stats.Allocated)

	rec = do(h, http.MethodGet, "/api/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var described []rules.Descriptor
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&described))
	assert.NotEmpty(t, described)

	rec = do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vesselbroker_test_total 1")
}

func TestOptionalEndpointsMissing(t *testing.T) {
	_, h := newTestServer(t, Config{})

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/v1/inventory", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/v1/rules", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/metrics", "").Code)
}
