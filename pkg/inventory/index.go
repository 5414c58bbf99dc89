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
	"github.com/carverauto/vesselbroker/pkg/models"
)

// bucketIndex maps a key to the handles currently filed under it. Buckets
// never exist empty. Callers hold the Store lock.
type bucketIndex[K comparable] struct {
	buckets map[K]models.HandleSet
}

func newBucketIndex[K comparable]() *bucketIndex[K] {
	return &bucketIndex[K]{buckets: make(map[K]models.HandleSet)}
}

func (ix *bucketIndex[K]) add(key K, h models.Handle) {
	bucket, ok := ix.buckets[key]
	if !ok {
		bucket = models.NewHandleSet()
		ix.buckets[key] = bucket
	}

	bucket.Add(h)
}

func (ix *bucketIndex[K]) remove(key K, h models.Handle) {
	bucket, ok := ix.buckets[key]
	if !ok {
		return
	}

	bucket.Remove(h)

	if bucket.Len() == 0 {
		delete(ix.buckets, key)
	}
}

// relocate moves h from the buckets in from to the buckets in to. Keys present
// in both are left alone.
func (ix *bucketIndex[K]) relocate(h models.Handle, from, to []K) {
	for _, key := range from {
		if !containsKey(to, key) {
			ix.remove(key, h)
		}
	}

	for _, key := range to {
		if !containsKey(from, key) {
			ix.add(key, h)
		}
	}
}

// members returns a copy of the bucket, or an empty set.
func (ix *bucketIndex[K]) members(key K) models.HandleSet {
	bucket, ok := ix.buckets[key]
	if !ok {
		return models.NewHandleSet()
	}

	return bucket.Clone()
}

// contains reports whether h is filed under key without copying the bucket.
func (ix *bucketIndex[K]) contains(key K, h models.Handle) bool {
	bucket, ok := ix.buckets[key]
	return ok && bucket.Contains(h)
}

func (ix *bucketIndex[K]) len() int {
	return len(ix.buckets)
}

// export copies the index into plain sorted slices.
func (ix *bucketIndex[K]) export() map[K][]models.Handle {
	out := make(map[K][]models.Handle, len(ix.buckets))
	for key, bucket := range ix.buckets {
		out[key] = bucket.Sorted()
	}

	return out
}

func containsKey[K comparable](keys []K, key K) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}

	return false
}

// geoKey is the composite (country, city) bucket key.
type geoKey struct {
	Country string
	City    string
}

// geoIndex files handles by (country, city) and by country. Both levels move
// together through relocate, so a country bucket is pruned as soon as its
// last city bucket empties.
type geoIndex struct {
	cities    *bucketIndex[geoKey]
	countries *bucketIndex[string]
}

func newGeoIndex() *geoIndex {
	return &geoIndex{
		cities:    newBucketIndex[geoKey](),
		countries: newBucketIndex[string](),
	}
}

func (g *geoIndex) relocate(h models.Handle, from, to models.Geo) {
	g.cities.relocate(h, cityKeys(from), cityKeys(to))
	g.countries.relocate(h, countryKeys(from), countryKeys(to))
}

// members returns handles in country, narrowed to city when one is given.
func (g *geoIndex) members(country, city string) models.HandleSet {
	if city == "" {
		return g.countries.members(country)
	}

	return g.cities.members(geoKey{Country: country, City: city})
}

// located returns every handle with a known country.
func (g *geoIndex) located() models.HandleSet {
	out := models.NewHandleSet()
	for _, bucket := range g.countries.buckets {
		for h := range bucket {
			out.Add(h)
		}
	}

	return out
}

func (g *geoIndex) export() map[string]map[string][]models.Handle {
	out := make(map[string]map[string][]models.Handle, g.countries.len())

	for key, bucket := range g.cities.buckets {
		byCity, ok := out[key.Country]
		if !ok {
			byCity = make(map[string][]models.Handle)
			out[key.Country] = byCity
		}

		byCity[key.City] = bucket.Sorted()
	}

	return out
}

func cityKeys(g models.Geo) []geoKey {
	if !g.Known() {
		return nil
	}

	return []geoKey{{Country: g.CountryCode, City: g.City}}
}

func countryKeys(g models.Geo) []string {
	if !g.Known() {
		return nil
	}

	return []string{g.CountryCode}
}

func mobilityKeys(count int) []int {
	if count == models.NeverObserved {
		return nil
	}

	return []int{count}
}
