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

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer

	log, err := NewWithWriter(&Config{Level: "debug"}, &buf)
	require.NoError(t, err)

	log.Info().Str("handle", "node:v1").Msg("vessel observed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "node:v1", line["handle"])
	assert.Equal(t, "vessel observed", line["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	log, err := NewWithWriter(&Config{Level: "warn"}, &buf)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.SetLevel(zerolog.DebugLevel)
	log.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.ErrorIs(t, err, errInvalidConfig)

	_, err = New(&Config{Output: "/var/log/broker.log"})
	require.ErrorIs(t, err, errInvalidConfig)
}

func TestValidateNormalizes(t *testing.T) {
	cfg := &Config{Level: " WARN ", Output: "STDERR"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, OutputStderr, cfg.Output)

	cfg = &Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, OutputStdout, cfg.Output)
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	log, err := NewWithWriter(&Config{}, &buf)
	require.NoError(t, err)

	component := Wrap(log.WithComponent("prober"))
	component.Info().Msg("cycle")

	assert.Contains(t, buf.String(), `"component":"prober"`)
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("VESSELBROKER_LOG_LEVEL", "")
	t.Setenv("VESSELBROKER_DEBUG", "")
	t.Setenv("DEBUG", "yes")

	config := DefaultConfig()

	assert.Equal(t, "info", config.Level)
	assert.True(t, config.Debug)
	assert.Equal(t, "stdout", config.Output)
}

func TestDefaultConfigPrefixWins(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("VESSELBROKER_LOG_LEVEL", "trace")

	assert.Equal(t, "trace", DefaultConfig().Level)
}

func TestTestLoggerDiscards(t *testing.T) {
	log := NewTestLogger()
	log.Info().Msg("nothing")
	assert.Equal(t, zerolog.Disabled, log.WithComponent("x").GetLevel())
}
