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
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carverauto/vesselbroker/pkg/broker"
	"github.com/carverauto/vesselbroker/pkg/models"
)

type submitBody struct {
	Groups map[string]models.GroupSpec `json:"groups"`
	Port   int                         `json:"port,omitempty"`
}

type releaseBody struct {
	Handles []models.Handle `json:"handles"`
}

type releaseResponse struct {
	OK       bool `json:"ok"`
	Released int  `json:"released"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(out); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}

	return true
}

// brokerStatus maps broker errors to HTTP status codes.
func brokerStatus(err error) int {
	switch {
	case errors.Is(err, broker.ErrInvalidIdentity):
		return http.StatusBadRequest
	case errors.Is(err, broker.ErrRequestInProgress):
		return http.StatusConflict
	case errors.Is(err, broker.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, broker.ErrAllocatorUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	identity := mux.Vars(r)["identity"]

	var body submitBody
	if !decodeBody(w, r, &body) {
		return
	}

	if body.Port < 0 || body.Port > 65535 {
		writeError(w, "port out of range", http.StatusBadRequest)
		return
	}

	rep, err := s.broker.SubmitRequest(r.Context(), identity, body.Groups, body.Port)
	if err != nil {
		s.logger.Warn().Err(err).Str("identity", identity).Msg("Request rejected")
		writeError(w, err.Error(), brokerStatus(err))

		return
	}

	writeJSON(w, http.StatusAccepted, rep)
}

func (s *Server) queryStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.broker.QueryStatus(mux.Vars(r)["identity"]))
}

func (s *Server) forgetRequest(w http.ResponseWriter, r *http.Request) {
	identity := mux.Vars(r)["identity"]

	switch status := s.broker.QueryStatus(identity).Status; {
	case status == models.RequestUnknown:
		writeError(w, "no request for identity", http.StatusNotFound)
		return
	case !status.Terminal():
		writeError(w, broker.ErrRequestInProgress.Error(), http.StatusConflict)
		return
	}

	if !s.broker.Forget(identity) {
		writeError(w, broker.ErrRequestInProgress.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) release(w http.ResponseWriter, r *http.Request) {
	identity := mux.Vars(r)["identity"]

	var body releaseBody
	if !decodeBody(w, r, &body) {
		return
	}

	ok, n, err := s.broker.Release(r.Context(), identity, body.Handles)
	if err != nil {
		s.logger.Error().Err(err).Str("identity", identity).Msg("Release failed")

		status := brokerStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}

		writeError(w, err.Error(), status)

		return
	}

	writeJSON(w, http.StatusOK, releaseResponse{OK: ok, Released: n})
}

func (s *Server) inventoryStats(w http.ResponseWriter, _ *http.Request) {
	if s.inventory == nil {
		writeError(w, "inventory not available", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, s.inventory.Stats())
}

func (s *Server) listRules(w http.ResponseWriter, _ *http.Request) {
	if s.registry == nil {
		writeError(w, "rule registry not available", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, s.registry.Describe())
}
