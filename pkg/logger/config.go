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
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"

	envPrefix = "VESSELBROKER_"
)

var errInvalidConfig = errors.New("invalid logging config")

// Config is the logging section of the broker config.
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
}

// DefaultConfig reads LOG_LEVEL, DEBUG, LOG_OUTPUT and LOG_TIME_FORMAT. Each
// may also be given with the VESSELBROKER_ prefix, which wins.
func DefaultConfig() *Config {
	cfg := &Config{
		Level:      lookupEnv("LOG_LEVEL", "info"),
		Output:     lookupEnv("LOG_OUTPUT", OutputStdout),
		TimeFormat: lookupEnv("LOG_TIME_FORMAT", ""),
	}

	if debug, err := strconv.ParseBool(lookupEnv("DEBUG", "false")); err == nil {
		cfg.Debug = debug
	} else {
		switch strings.ToLower(lookupEnv("DEBUG", "")) {
		case "yes", "on":
			cfg.Debug = true
		}
	}

	return cfg
}

// Validate normalizes the level and output.
func (c *Config) Validate() error {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	if c.Level == "" {
		c.Level = "info"
	}

	if _, err := parseLevel(c); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	switch c.Output = strings.ToLower(strings.TrimSpace(c.Output)); c.Output {
	case "":
		c.Output = OutputStdout
	case OutputStdout, OutputStderr:
	default:
		return fmt.Errorf("%w: output must be %s or %s", errInvalidConfig, OutputStdout, OutputStderr)
	}

	return nil
}

func lookupEnv(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}

	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
