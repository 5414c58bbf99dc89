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

// Package geo resolves addresses to countries, cities and coordinates.
package geo

//go:generate mockgen -destination=mock_geo.go -package=geo github.com/carverauto/vesselbroker/pkg/geo Locator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/oschwald/maxminddb-golang"

	"github.com/carverauto/vesselbroker/pkg/models"
)

var (
	// ErrTransient marks a lookup that may succeed if retried.
	ErrTransient = errors.New("geo lookup temporarily unavailable")
	// ErrNotFound marks an address the database has nothing for.
	ErrNotFound = errors.New("no geo record for address")

	errClosed = errors.New("geo database closed")
)

// Locator resolves an address to a location. Failures wrap ErrTransient or
// ErrNotFound so callers can tell a retryable lookup from a permanent miss.
type Locator interface {
	Resolve(ctx context.Context, address string) (models.Geo, error)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

type cityRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Location struct {
		Latitude  *float64 `maxminddb:"latitude"`
		Longitude *float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

type mmdbReader interface {
	LookupNetwork(ip net.IP, result interface{}) (*net.IPNet, bool, error)
	Close() error
}

// MaxMindLocator answers from a local GeoLite2/GeoIP2 City database.
type MaxMindLocator struct {
	mu     sync.RWMutex
	reader mmdbReader
}

// OpenMaxMind opens the database at path.
func OpenMaxMind(path string) (*MaxMindLocator, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %s: %w", path, err)
	}

	return &MaxMindLocator{reader: reader}, nil
}

func (m *MaxMindLocator) Resolve(ctx context.Context, address string) (models.Geo, error) {
	if err := ctx.Err(); err != nil {
		return models.Geo{}, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return models.Geo{}, fmt.Errorf("%w: invalid address %q", ErrNotFound, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.reader == nil {
		return models.Geo{}, fmt.Errorf("%w: %w", ErrTransient, errClosed)
	}

	var rec cityRecord

	_, ok, err := m.reader.LookupNetwork(ip, &rec)
	if err != nil {
		return models.Geo{}, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	if !ok || rec.Country.ISOCode == "" {
		return models.Geo{}, fmt.Errorf("%w: %s", ErrNotFound, address)
	}

	return formatRecord(&rec), nil
}

// Close releases the database. Later lookups fail with ErrTransient.
func (m *MaxMindLocator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reader == nil {
		return nil
	}

	err := m.reader.Close()
	m.reader = nil

	return err
}

func formatRecord(rec *cityRecord) models.Geo {
	return models.Geo{
		CountryCode: strings.ToLower(rec.Country.ISOCode),
		City:        strings.ToLower(rec.City.Names["en"]),
		Latitude:    rec.Location.Latitude,
		Longitude:   rec.Location.Longitude,
	}.Normalized()
}
