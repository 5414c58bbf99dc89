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

package broker

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

// Coordinator walks the groups of one request through the Resolver.
type Coordinator struct {
	resolver  *Resolver
	order     GroupOrder
	publisher EventPublisher
	logger    logger.Logger
	now       func() time.Time
}

func NewCoordinator(resolver *Resolver, order GroupOrder, publisher EventPublisher, log logger.Logger) *Coordinator {
	if publisher == nil {
		publisher = noopPublisher{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Coordinator{
		resolver:  resolver,
		order:     order,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// Run resolves req until every group is terminal, a fatal group error
// occurs, or the broker stops.
//
// Work happens in rounds: every unresolved group gets one pass, and groups
// left incomplete wait until no unresolved group remains.
func (c *Coordinator) Run(ctx context.Context, req *Request) {
	alloc, port := req.binding()

	for {
		if !c.resolver.active(ctx) {
			c.finish(ctx, req, models.RequestError, errInterrupted)
			return
		}

		g := c.next(req)
		if g == nil {
			if c.startRound(req) {
				continue
			}

			c.finish(ctx, req, models.RequestComplete, nil)

			return
		}

		previous := g.Status()
		err := c.resolver.Pass(ctx, g, alloc, port)
		c.publishGroup(ctx, req.Identity, g, previous)

		var gerr *GroupError
		if errors.As(err, &gerr) && gerr.Fatal() {
			c.logger.Error().Err(err).Str("identity", req.Identity).Str("group", g.ID).Msg("Request aborted")
			c.finish(ctx, req, models.RequestError, err)

			return
		}
	}
}

// next picks the unresolved group with the fewest (or most) rules. Ties go to
// the group that sorts first by id.
func (c *Coordinator) next(req *Request) *Group {
	var chosen *Group

	for _, g := range req.Groups() {
		if g.Status() != models.GroupUnresolved {
			continue
		}

		if chosen == nil || c.before(g, chosen) {
			chosen = g
		}
	}

	return chosen
}

func (c *Coordinator) before(a, b *Group) bool {
	if c.order == OrderMostRules {
		return len(a.Rules) > len(b.Rules)
	}

	return len(a.Rules) < len(b.Rules)
}

// startRound moves incomplete groups back to unresolved. It reports whether
// any group was moved.
func (c *Coordinator) startRound(req *Request) bool {
	moved := false

	for _, g := range req.Groups() {
		if g.requeue() {
			moved = true
		}
	}

	return moved
}

func (c *Coordinator) finish(ctx context.Context, req *Request, status models.RequestStatus, err error) {
	if !req.setStatus(status, err) {
		return
	}

	c.logger.Info().Str("identity", req.Identity).Str("status", string(status)).Msg("Request finished")
	c.publishRequest(ctx, req)
}

// transition records a non-terminal request status and announces it.
func (c *Coordinator) transition(ctx context.Context, req *Request, status models.RequestStatus) {
	if req.setStatus(status, nil) {
		c.publishRequest(ctx, req)
	}
}

// Publishing must survive a canceled request context so shutdown transitions
// still go out.
func (c *Coordinator) publishGroup(ctx context.Context, identity string, g *Group, previous models.GroupStatus) {
	data := g.event(identity, previous)
	if data.Status == previous {
		return
	}

	data.Timestamp = c.now()

	if err := c.publisher.PublishGroupStatus(context.WithoutCancel(ctx), data); err != nil {
		c.logger.Warn().Err(err).Str("group", g.ID).Msg("Failed to publish group status")
	}
}

func (c *Coordinator) publishRequest(ctx context.Context, req *Request) {
	data := req.event()
	data.Timestamp = c.now()

	if err := c.publisher.PublishRequestStatus(context.WithoutCancel(ctx), data); err != nil {
		c.logger.Warn().Err(err).Str("identity", req.Identity).Msg("Failed to publish request status")
	}
}
