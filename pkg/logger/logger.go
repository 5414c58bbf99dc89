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

// Package logger provides JSON structured logging on top of zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type zlogger struct {
	logger zerolog.Logger
}

// New builds a Logger writing JSON lines to the configured output.
func New(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	var output io.Writer = os.Stdout
	if config.Output == OutputStderr {
		output = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return NewWithWriter(config, output)
}

// NewWithWriter builds a Logger writing to w, ignoring config.Output.
func NewWithWriter(config *Config, w io.Writer) (Logger, error) {
	level, err := parseLevel(config)
	if err != nil {
		return nil, err
	}

	return &zlogger{logger: zerolog.New(w).Level(level).With().Timestamp().Logger()}, nil
}

// Wrap adapts an existing zerolog.Logger, typically one returned by WithComponent.
func Wrap(zl zerolog.Logger) Logger {
	return &zlogger{logger: zl}
}

func parseLevel(config *Config) (zerolog.Level, error) {
	switch {
	case config == nil || config.Level == "":
		if config != nil && config.Debug {
			return zerolog.DebugLevel, nil
		}

		return zerolog.InfoLevel, nil
	case config.Debug:
		return zerolog.DebugLevel, nil
	}

	return zerolog.ParseLevel(config.Level)
}

func (l *zlogger) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *zlogger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *zlogger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *zlogger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *zlogger) Error() *zerolog.Event { return l.logger.Error() }
func (l *zlogger) With() zerolog.Context { return l.logger.With() }

func (l *zlogger) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *zlogger) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}
