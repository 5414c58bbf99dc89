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

// Package inventory holds the authoritative vessel records, the port, geo and
// mobility indices derived from them, and the allocation state.
package inventory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

// Store is safe for concurrent use. One lock covers records, indices and
// allocation state so every upsert leaves all three indices consistent.
type Store struct {
	mu        sync.RWMutex
	records   map[models.Handle]*models.EndpointRecord
	ports     *bucketIndex[int]
	geo       *geoIndex
	mobility  *bucketIndex[int]
	allocated models.HandleSet
	invalid   models.HandleSet
	now       func() time.Time
	logger    logger.Logger
}

// AccessQuery narrows GetAccessible. Zero values do not filter: an empty
// Country, a zero Port and a nil Base (all known handles). City only applies
// together with Country.
type AccessQuery struct {
	Country string
	City    string
	Port    int
	Base    models.HandleSet
}

// Stats summarizes the inventory.
type Stats struct {
	Known     int `json:"known"`
	Allocated int `json:"allocated"`
	Invalid   int `json:"invalid"`
	Ports     int `json:"ports"`
	Countries int `json:"countries"`
	Located   int `json:"located"`
}

// NewStore creates an empty Store.
func NewStore(log logger.Logger) *Store {
	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Store{
		now:    time.Now,
		logger: log,
	}
	s.reset()

	return s
}

func (s *Store) reset() {
	s.records = make(map[models.Handle]*models.EndpointRecord)
	s.ports = newBucketIndex[int]()
	s.geo = newGeoIndex()
	s.mobility = newBucketIndex[int]()
	s.allocated = models.NewHandleSet()
	s.invalid = models.NewHandleSet()
}

// Upsert records an observation of h, creating the record on first sight, and
// refiles h in every index whose bucket changed.
func (s *Store) Upsert(h models.Handle, obs models.Observation) models.EndpointRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[h]
	if !ok {
		rec = &models.EndpointRecord{
			Handle:             h,
			Ports:              []int{},
			AddressChangeCount: models.NeverObserved,
		}
		s.records[h] = rec
	}

	s.apply(rec, obs)

	return copyRecord(rec)
}

func (s *Store) apply(rec *models.EndpointRecord, obs models.Observation) {
	h := rec.Handle

	ports := normalizePorts(obs.Ports)
	s.ports.relocate(h, rec.Ports, ports)
	rec.Ports = ports

	geo := obs.Geo.Normalized()
	s.geo.relocate(h, rec.Geo, geo)
	rec.Geo = geo

	oldCount := rec.AddressChangeCount
	if obs.Address != rec.Address || oldCount == models.NeverObserved {
		if oldCount == models.NeverObserved {
			rec.AddressChangeCount = 0
		} else {
			rec.AddressChangeCount = oldCount + 1
		}
	}

	s.mobility.relocate(h, mobilityKeys(oldCount), mobilityKeys(rec.AddressChangeCount))

	rec.Address = obs.Address
	rec.NodeLocation = obs.NodeLocation

	if obs.NodeType != "" {
		rec.NodeType = obs.NodeType
	}

	rec.SuccessfulProbes++
	rec.TotalProbes++
	rec.LastSeen = s.now()
}

// GetAccessible returns the handles that are neither allocated nor invalid,
// narrowed by the query's filters.
func (s *Store) GetAccessible(q AccessQuery) models.HandleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	country := strings.ToLower(q.Country)
	city := strings.ToLower(q.City)

	out := models.NewHandleSet()

	consider := func(h models.Handle) {
		if s.allocated.Contains(h) || s.invalid.Contains(h) {
			return
		}

		if q.Port > 0 && !s.ports.contains(q.Port, h) {
			return
		}

		if country != "" {
			if city != "" {
				if !s.geo.cities.contains(geoKey{Country: country, City: city}, h) {
					return
				}
			} else if !s.geo.countries.contains(country, h) {
				return
			}
		}

		out.Add(h)
	}

	if q.Base != nil {
		for h := range q.Base {
			consider(h)
		}

		return out
	}

	for h := range s.records {
		consider(h)
	}

	return out
}

// MarkAllocated records the handles as held. It returns only the handles that
// were not already allocated. Allocated handles leave the invalid set.
func (s *Store) MarkAllocated(handles []models.Handle) []models.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make([]models.Handle, 0, len(handles))

	for _, h := range handles {
		if s.allocated.Contains(h) {
			continue
		}

		s.allocated.Add(h)
		s.invalid.Remove(h)
		changed = append(changed, h)
	}

	return changed
}

// MarkUnallocated releases the handles and returns those that were allocated.
func (s *Store) MarkUnallocated(handles []models.Handle) []models.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make([]models.Handle, 0, len(handles))

	for _, h := range handles {
		if !s.allocated.Contains(h) {
			continue
		}

		s.allocated.Remove(h)
		changed = append(changed, h)
	}

	return changed
}

// MarkInvalid records the handles as unusable and returns those newly marked.
func (s *Store) MarkInvalid(handles []models.Handle) []models.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make([]models.Handle, 0, len(handles))

	for _, h := range handles {
		if s.invalid.Contains(h) {
			continue
		}

		s.invalid.Add(h)
		s.allocated.Remove(h)
		changed = append(changed, h)
	}

	return changed
}

func (s *Store) IsAllocated(h models.Handle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.allocated.Contains(h)
}

func (s *Store) IsInvalid(h models.Handle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.invalid.Contains(h)
}

// IncrementMissed bumps total_probes for every known handle not in contacted
// and returns how many were missed.
func (s *Store) IncrementMissed(contacted models.HandleSet) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	missed := 0

	for h, rec := range s.records {
		if contacted.Contains(h) {
			continue
		}

		rec.TotalProbes++
		missed++
	}

	return missed
}

// Record returns a copy of the record for h.
func (s *Store) Record(h models.Handle) (models.EndpointRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[h]
	if !ok {
		return models.EndpointRecord{}, false
	}

	return copyRecord(rec), true
}

// Handles returns every known handle.
func (s *Store) Handles() models.HandleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(models.HandleSet, len(s.records))
	for h := range s.records {
		out.Add(h)
	}

	return out
}

// HandlesInLocation returns the handles filed under country, and city when
// city is non-empty.
func (s *Store) HandlesInLocation(country, city string) models.HandleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.geo.members(strings.ToLower(country), strings.ToLower(city))
}

// LocatedHandles returns every handle with a known country.
func (s *Store) LocatedHandles() models.HandleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.geo.located()
}

func (s *Store) HandlesWithPort(port int) models.HandleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ports.members(port)
}

// HandlesByAddressChanges returns handles whose address change count lies in
// [min, max].
func (s *Store) HandlesByAddressChanges(minChanges, maxChanges float64) models.HandleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := models.NewHandleSet()

	for count, bucket := range s.mobility.buckets {
		if float64(count) < minChanges || float64(count) > maxChanges {
			continue
		}

		for h := range bucket {
			out.Add(h)
		}
	}

	return out
}

func (s *Store) HandlesOfNodeType(nodeType models.NodeType) models.HandleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := models.NewHandleSet()

	for h, rec := range s.records {
		if rec.NodeType == nodeType {
			out.Add(h)
		}
	}

	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	located := 0
	for _, bucket := range s.geo.countries.buckets {
		located += bucket.Len()
	}

	return Stats{
		Known:     len(s.records),
		Allocated: s.allocated.Len(),
		Invalid:   s.invalid.Len(),
		Ports:     s.ports.len(),
		Countries: s.geo.countries.len(),
		Located:   located,
	}
}

func normalizePorts(ports []int) []int {
	seen := make(map[int]struct{}, len(ports))
	out := make([]int, 0, len(ports))

	for _, p := range ports {
		if _, dup := seen[p]; dup {
			continue
		}

		seen[p] = struct{}{}
		out = append(out, p)
	}

	sort.Ints(out)

	return out
}

func copyRecord(rec *models.EndpointRecord) models.EndpointRecord {
	out := *rec
	out.Ports = append([]int(nil), rec.Ports...)

	if rec.Geo.Longitude != nil {
		lon := *rec.Geo.Longitude
		out.Geo.Longitude = &lon
	}

	if rec.Geo.Latitude != nil {
		lat := *rec.Geo.Latitude
		out.Geo.Latitude = &lat
	}

	return out
}
