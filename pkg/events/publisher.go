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

// Package events publishes broker status transitions as CloudEvents on NATS
// JetStream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/vesselbroker/pkg/broker"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

const (
	DefaultStream        = "VESSELBROKER"
	DefaultSubjectPrefix = "vesselbroker"

	TypeGroupStatus   = "vesselbroker.group.status"
	TypeRequestStatus = "vesselbroker.request.status"

	eventSource = "vesselbroker/broker"
)

var errInvalidConfig = errors.New("invalid events config")

// Config enables event publishing.
type Config struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	URL           string `json:"url" yaml:"url"`
	Stream        string `json:"stream,omitempty" yaml:"stream,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty" yaml:"subject_prefix,omitempty"`
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.URL == "" {
		return fmt.Errorf("%w: url is required when events are enabled", errInvalidConfig)
	}

	if c.Stream == "" {
		c.Stream = DefaultStream
	}

	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}

	return nil
}

// Publisher implements broker.EventPublisher.
type Publisher struct {
	js     jetstream.JetStream
	nc     *nats.Conn
	prefix string
	logger logger.Logger
}

var _ broker.EventPublisher = (*Publisher)(nil)

// Connect dials NATS, makes sure the stream exists and returns a Publisher
// owning the connection.
func Connect(ctx context.Context, cfg *Config, log logger.Logger, opts ...nats.Option) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	opts = append([]nats.Option{
		nats.Name("vesselbroker"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}, opts...)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg.Stream, cfg.SubjectPrefix+".>"); err != nil {
		nc.Close()
		return nil, err
	}

	log.Info().Str("stream", cfg.Stream).Msg("Event publisher connected")

	p := NewPublisher(js, cfg.SubjectPrefix, log)
	p.nc = nc

	return p, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name, subject string) error {
	if _, err := js.Stream(ctx, name); err == nil {
		return nil
	}

	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{subject},
	})
	if err != nil {
		return fmt.Errorf("failed to create or get stream %s: %w", name, err)
	}

	return nil
}

// NewPublisher wraps an existing JetStream context.
func NewPublisher(js jetstream.JetStream, prefix string, log logger.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Publisher{js: js, prefix: prefix, logger: log}
}

func (p *Publisher) PublishGroupStatus(ctx context.Context, data *models.GroupStatusEventData) error {
	return p.publish(ctx, TypeGroupStatus, p.prefix+".group.status", data.Timestamp, data)
}

func (p *Publisher) PublishRequestStatus(ctx context.Context, data *models.RequestStatusEventData) error {
	return p.publish(ctx, TypeRequestStatus, p.prefix+".request.status", data.Timestamp, data)
}

func (p *Publisher) publish(ctx context.Context, eventType, subject string, ts time.Time, data interface{}) error {
	if ts.IsZero() {
		ts = time.Now()
	}

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &ts,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	ack, err := p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Uint64("seq", ack.Sequence).
		Msg("Published event")

	return nil
}

// Close drains the connection if the Publisher owns one.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}

	return p.nc.Drain()
}
