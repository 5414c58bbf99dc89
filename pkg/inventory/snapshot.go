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
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/carverauto/vesselbroker/pkg/models"
)

const snapshotVersion = 1

var (
	errUnsupportedSnapshot = errors.New("unsupported snapshot version")
	errCorruptSnapshot     = errors.New("corrupt snapshot")
)

// Snapshot is the persisted form of the inventory: the record table plus the
// three indices. Allocation state is not persisted; it is rebuilt by the next
// probe cycle.
type Snapshot struct {
	Version  int                                    `cbor:"version"`
	TakenAt  time.Time                              `cbor:"taken_at"`
	Records  []models.EndpointRecord                `cbor:"records"`
	Ports    map[int][]models.Handle                `cbor:"ports"`
	Geo      map[string]map[string][]models.Handle `cbor:"geo"`
	Mobility map[int][]models.Handle                `cbor:"mobility"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Handles serialize as "node:vessel" text through MarshalText.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encOptions.Time = cbor.TimeRFC3339Nano

	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("inventory: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]interface{}(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("inventory: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("inventory: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("inventory: zstd decoder initialization failed: " + err.Error())
	}
}

// Snapshot captures the record table and indices under the read lock.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Version:  snapshotVersion,
		TakenAt:  s.now().UTC(),
		Records:  make([]models.EndpointRecord, 0, len(s.records)),
		Ports:    s.ports.export(),
		Geo:      s.geo.export(),
		Mobility: s.mobility.export(),
	}

	handles := make(models.HandleSet, len(s.records))
	for h := range s.records {
		handles.Add(h)
	}

	for _, h := range handles.Sorted() {
		snap.Records = append(snap.Records, copyRecord(s.records[h]))
	}

	return snap
}

// Restore replaces the inventory with the snapshot's records. Indices are
// rebuilt from the records; persisted indices that disagree are reported and
// discarded. Allocation state is cleared.
func (s *Store) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: empty snapshot", errCorruptSnapshot)
	}

	if snap.Version != snapshotVersion {
		return fmt.Errorf("%w: %d", errUnsupportedSnapshot, snap.Version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()

	for i := range snap.Records {
		rec := copyRecord(&snap.Records[i])
		rec.Geo = rec.Geo.Normalized()
		rec.Ports = normalizePorts(rec.Ports)

		s.records[rec.Handle] = &rec
		s.ports.relocate(rec.Handle, nil, rec.Ports)
		s.geo.relocate(rec.Handle, models.Geo{}, rec.Geo)
		s.mobility.relocate(rec.Handle, nil, mobilityKeys(rec.AddressChangeCount))
	}

	if !indicesMatch(s, snap) {
		s.logger.Warn().
			Int("records", len(snap.Records)).
			Msg("Snapshot indices disagree with records, using rebuilt indices")
	}

	s.logger.Info().
		Int("records", len(s.records)).
		Time("taken_at", snap.TakenAt).
		Msg("Inventory restored from snapshot")

	return nil
}

func indicesMatch(s *Store, snap *Snapshot) bool {
	return reflect.DeepEqual(normalizeIndex(s.ports.export()), normalizeIndex(snap.Ports)) &&
		reflect.DeepEqual(normalizeIndex(s.mobility.export()), normalizeIndex(snap.Mobility)) &&
		reflect.DeepEqual(normalizeGeo(s.geo.export()), normalizeGeo(snap.Geo))
}

func normalizeIndex(ix map[int][]models.Handle) map[int][]models.Handle {
	out := make(map[int][]models.Handle, len(ix))
	for k, v := range ix {
		if len(v) > 0 {
			out[k] = models.NewHandleSet(v...).Sorted()
		}
	}

	return out
}

func normalizeGeo(ix map[string]map[string][]models.Handle) map[string]map[string][]models.Handle {
	out := make(map[string]map[string][]models.Handle, len(ix))

	for country, cities := range ix {
		for city, handles := range cities {
			if len(handles) == 0 {
				continue
			}

			if out[country] == nil {
				out[country] = make(map[string][]models.Handle)
			}

			out[country][city] = models.NewHandleSet(handles...).Sorted()
		}
	}

	return out
}

// Dump encodes the current inventory as a compressed snapshot blob.
func (s *Store) Dump() ([]byte, error) {
	return EncodeSnapshot(s.Snapshot())
}

// Load decodes a blob produced by Dump and restores it.
func (s *Store) Load(blob []byte) error {
	snap, err := DecodeSnapshot(blob)
	if err != nil {
		return err
	}

	return s.Restore(snap)
}

// EncodeSnapshot serializes snap as deterministic CBOR compressed with zstd.
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	raw, err := encMode.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return zstdEncoder.EncodeAll(raw, nil), nil
}

func DecodeSnapshot(blob []byte) (*Snapshot, error) {
	raw, err := zstdDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptSnapshot, err)
	}

	var snap Snapshot
	if err := decMode.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptSnapshot, err)
	}

	return &snap, nil
}
