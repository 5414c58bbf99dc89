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

// Package clearinghouse talks to the vessel clearinghouse that owns user
// accounts, credits and vessel acquisition.
package clearinghouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/carverauto/vesselbroker/pkg/broker"
	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
)

const defaultTimeout = 30 * time.Second

var (
	ErrUnknownAccount = errors.New("unknown clearinghouse account")

	errInvalidConfig    = errors.New("invalid clearinghouse config")
	errUnexpectedStatus = errors.New("unexpected clearinghouse response")
)

// Config points at the clearinghouse API.
type Config struct {
	URL     string          `json:"url" yaml:"url"`
	APIKey  string          `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Timeout models.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("%w: url is required", errInvalidConfig)
	}

	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	if c.Timeout <= 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}

	return nil
}

// Factory hands out per-identity clients sharing one HTTP client.
type Factory struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	logger  logger.Logger
}

// NewFactory builds a Factory. httpClient may be nil.
func NewFactory(cfg *Config, httpClient *http.Client, log logger.Logger) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout.Std()}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Factory{baseURL: parsed, apiKey: cfg.APIKey, http: httpClient, logger: log}, nil
}

type account struct {
	Identity string `json:"identity"`
	UserPort int    `json:"user_port"`
}

// ForIdentity looks up the account and returns a client bound to it.
func (f *Factory) ForIdentity(ctx context.Context, identity string) (broker.Allocator, error) {
	c := &Client{factory: f, identity: identity}

	var acct account
	if err := f.do(ctx, http.MethodGet, "/v1/accounts/"+identity, nil, &acct); err != nil {
		return nil, err
	}

	c.userPort = acct.UserPort

	return c, nil
}

// Client is the Allocator for one identity.
type Client struct {
	factory  *Factory
	identity string
	userPort int
}

type handlesBody struct {
	Identity string          `json:"identity,omitempty"`
	Handles  []models.Handle `json:"handles"`
}

func (c *Client) AcquireSpecific(ctx context.Context, handles []models.Handle) ([]models.Handle, error) {
	var out handlesBody
	if err := c.factory.do(ctx, http.MethodPost, "/v1/acquire", handlesBody{Identity: c.identity, Handles: handles}, &out); err != nil {
		return nil, err
	}

	c.factory.logger.Debug().
		Str("identity", c.identity).
		Int("requested", len(handles)).
		Int("acquired", len(out.Handles)).
		Msg("Clearinghouse acquisition")

	return out.Handles, nil
}

func (c *Client) Release(ctx context.Context, handles []models.Handle) error {
	return c.factory.do(ctx, http.MethodPost, "/v1/release", handlesBody{Identity: c.identity, Handles: handles}, nil)
}

// UserPort returns the port the clearinghouse assigned to the account.
func (c *Client) UserPort(context.Context) (int, error) {
	return c.userPort, nil
}

func (f *Factory) do(ctx context.Context, method, route string, body, out interface{}) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal clearinghouse request: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	endpoint := *f.baseURL
	endpoint.Path = path.Join(endpoint.Path, route)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create clearinghouse request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if f.apiKey != "" {
		req.Header.Set("X-API-Key", f.apiKey)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("clearinghouse request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode clearinghouse response: %w", err)
	}

	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(msg))

	switch resp.StatusCode {
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", broker.ErrInsufficientCredit, detail)
	case http.StatusConflict, http.StatusGone, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", broker.ErrInvalidCandidate, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrUnknownAccount, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", errUnexpectedStatus, resp.StatusCode, detail)
	}
}
