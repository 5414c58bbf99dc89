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

package geo

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	records map[string]cityRecord
	err     error
	closed  bool
}

func (f *fakeReader) LookupNetwork(ip net.IP, result interface{}) (*net.IPNet, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}

	rec, ok := f.records[ip.String()]
	if !ok {
		return nil, false, nil
	}

	*(result.(*cityRecord)) = rec

	return nil, true, nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func seattleRecord() cityRecord {
	var rec cityRecord

	lat, lon := 47.6, -122.3
	rec.Country.ISOCode = "US"
	rec.City.Names = map[string]string{"en": "Seattle", "de": "Seattle"}
	rec.Location.Latitude = &lat
	rec.Location.Longitude = &lon

	return rec
}

func TestResolveFormatsRecord(t *testing.T) {
	locator := &MaxMindLocator{reader: &fakeReader{records: map[string]cityRecord{"1.2.3.4": seattleRecord()}}}

	g, err := locator.Resolve(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "us", g.CountryCode)
	assert.Equal(t, "seattle", g.City)
	require.True(t, g.HasCoordinates())
	assert.InDelta(t, 47.6, *g.Latitude, 1e-9)
}

func TestResolveMissingCityIsUnknown(t *testing.T) {
	var rec cityRecord
	rec.Country.ISOCode = "CA"

	locator := &MaxMindLocator{reader: &fakeReader{records: map[string]cityRecord{"5.6.7.8": rec}}}

	g, err := locator.Resolve(context.Background(), "5.6.7.8")
	require.NoError(t, err)
	assert.Equal(t, "unknown", g.City)
	assert.False(t, g.HasCoordinates())
}

func TestResolveErrors(t *testing.T) {
	ctx := context.Background()
	locator := &MaxMindLocator{reader: &fakeReader{records: map[string]cityRecord{}}}

	_, err := locator.Resolve(ctx, "not-an-ip")
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsTransient(err))

	_, err = locator.Resolve(ctx, "9.9.9.9")
	require.ErrorIs(t, err, ErrNotFound)

	broken := &MaxMindLocator{reader: &fakeReader{err: errors.New("io failure")}}
	_, err = broken.Resolve(ctx, "9.9.9.9")
	assert.True(t, IsTransient(err))

	require.NoError(t, locator.Close())
	_, err = locator.Resolve(ctx, "9.9.9.9")
	assert.True(t, IsTransient(err))

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = broken.Resolve(canceled, "9.9.9.9")
	assert.True(t, IsTransient(err))
}

func TestOpenMaxMindMissingFile(t *testing.T) {
	_, err := OpenMaxMind(filepath.Join(t.TempDir(), "missing.mmdb"))
	require.Error(t, err)
}
