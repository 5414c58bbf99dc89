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

package snapshot

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/vesselbroker/pkg/logger"
)

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()

	ctx := context.Background()

	_, err := b.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Save(ctx, []byte("first")))
	require.NoError(t, b.Save(ctx, []byte("second")))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	require.NoError(t, b.Close())
}

func TestFileBackend(t *testing.T) {
	exerciseBackend(t, NewFileBackend(filepath.Join(t.TempDir(), "nested", "inventory.snap")))
}

func TestSQLiteBackend(t *testing.T) {
	b, err := NewSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "state.db"), "inventory")
	require.NoError(t, err)

	exerciseBackend(t, b)
}

func TestSQLiteBackendPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	b, err := NewSQLiteBackend(ctx, path, "inventory")
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, []byte{1, 2, 3}))
	require.NoError(t, b.Close())

	reopened, err := NewSQLiteBackend(ctx, path, "inventory")
	require.NoError(t, err)

	defer func() { _ = reopened.Close() }()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	other, err := NewSQLiteBackend(ctx, path, "other")
	require.NoError(t, err)

	defer func() { _ = other.Close() }()

	_, err = other.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend(t *testing.T) {
	b := NewMemoryBackend()
	exerciseBackend(t, b)
	assert.Equal(t, 2, b.Saves())

	_, err := b.Load(context.Background())
	require.ErrorIs(t, err, errBackendDisabled)
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data

	return &s3.PutObjectOutput{}, nil
}

func TestS3Backend(t *testing.T) {
	exerciseBackend(t, newS3Backend(&fakeS3{objects: map[string][]byte{}}, "bucket", "inventory.snap"))
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverFile, cfg.Driver)
	assert.Equal(t, defaultPath, cfg.Path)
	assert.Equal(t, defaultName, cfg.Name)

	s3cfg := &Config{Driver: "S3", S3: &S3Config{Bucket: "b"}}
	require.NoError(t, s3cfg.Validate())
	assert.Equal(t, defaultKey, s3cfg.S3.Key)
}

func TestConfigValidateErrors(t *testing.T) {
	require.ErrorIs(t, (&Config{Driver: "floppy"}).Validate(), errUnknownDriver)
	require.ErrorIs(t, (&Config{Driver: DriverPostgres}).Validate(), errMissingSetting)
	require.ErrorIs(t, (&Config{Driver: DriverS3}).Validate(), errMissingSetting)
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, &Config{Driver: DriverFile, Path: filepath.Join(dir, "a.snap")}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	b, err = Open(ctx, &Config{Driver: DriverSQLite, Path: filepath.Join(dir, "a.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	require.NoError(t, b.Close())

	b, err = Open(ctx, &Config{Driver: DriverMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)
}

func TestPostgresConnString(t *testing.T) {
	cfg := &PostgresConfig{Host: "db", Database: "broker", Username: "svc", Password: "p@ss"}

	conn := cfg.ConnString()
	assert.Contains(t, conn, "postgres://svc:p%40ss@db:5432/broker")
	assert.Contains(t, conn, "sslmode=disable")
	assert.Contains(t, conn, "application_name=vesselbroker")
}
