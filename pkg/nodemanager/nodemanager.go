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

// Package nodemanager discovers nodes through the advertise service and reads
// vessel tables from node managers over HTTP.
package nodemanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/vesselbroker/pkg/logger"
	"github.com/carverauto/vesselbroker/pkg/models"
	"github.com/carverauto/vesselbroker/pkg/prober"
)

const (
	DefaultNodePort = 1224

	defaultTimeout     = 10 * time.Second
	maxDescriptorBytes = 1 << 20
)

var (
	ErrInvalidLocation = errors.New("invalid node location")

	errInvalidConfig    = errors.New("invalid node manager config")
	errUnexpectedStatus = errors.New("unexpected node manager response")
)

// Config locates the advertise service and tunes node manager calls.
type Config struct {
	AdvertiseURL string          `json:"advertise_url" yaml:"advertise_url"`
	Scheme       string          `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	DefaultPort  int             `json:"default_port,omitempty" yaml:"default_port,omitempty"`
	Timeout      models.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.AdvertiseURL) == "" {
		return fmt.Errorf("%w: advertise_url is required", errInvalidConfig)
	}

	if _, err := url.Parse(c.AdvertiseURL); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	switch c.Scheme {
	case "":
		c.Scheme = "http"
	case "http", "https":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", errInvalidConfig, c.Scheme)
	}

	if c.DefaultPort <= 0 {
		c.DefaultPort = DefaultNodePort
	}

	if c.Timeout <= 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}

	return nil
}

// Locator implements prober.NodeLocator against the advertise service.
type Locator struct {
	baseURL     *url.URL
	defaultPort int
	http        *http.Client
	logger      logger.Logger
}

var _ prober.NodeLocator = (*Locator)(nil)

func NewLocator(cfg *Config, httpClient *http.Client, log logger.Logger) (*Locator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(cfg.AdvertiseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout.Std()}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Locator{baseURL: parsed, defaultPort: cfg.DefaultPort, http: httpClient, logger: log}, nil
}

// DiscoverActiveNodes lists the locations advertising under key.
func (l *Locator) DiscoverActiveNodes(ctx context.Context, key string) ([]string, error) {
	endpoint := *l.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/nodes")
	endpoint.RawQuery = url.Values{"key": []string{key}}.Encode()

	var locations []string
	if err := getJSON(ctx, l.http, endpoint.String(), &locations); err != nil {
		return nil, err
	}

	l.logger.Debug().Int("nodes", len(locations)).Msg("Discovered advertised nodes")

	return locations, nil
}

// DescribeNode splits a "host:port" location. A location without a port uses
// the default node manager port. NAT locations are returned as-is so the
// caller can decide to skip them.
func (l *Locator) DescribeNode(location string) (prober.NodeAddress, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return prober.NodeAddress{}, fmt.Errorf("%w: empty", ErrInvalidLocation)
	}

	idx := strings.LastIndex(location, ":")
	if idx < 0 {
		return prober.NodeAddress{Address: location, Port: l.defaultPort}, nil
	}

	host := location[:idx]

	port, err := strconv.Atoi(location[idx+1:])
	if err != nil || port <= 0 || port > 65535 || host == "" {
		return prober.NodeAddress{}, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	return prober.NodeAddress{Address: host, Port: port}, nil
}

// Client implements prober.NodeClient.
type Client struct {
	scheme string
	http   *http.Client
}

var _ prober.NodeClient = (*Client)(nil)

func NewClient(cfg *Config, httpClient *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout.Std()}
	}

	return &Client{scheme: cfg.Scheme, http: httpClient}, nil
}

func (c *Client) nodeURL(node prober.NodeAddress, elem ...string) string {
	u := url.URL{
		Scheme: c.scheme,
		Host:   node.String(),
		Path:   path.Join(append([]string{"/v1/vessels"}, elem...)...),
	}

	return u.String()
}

func (c *Client) ListVessels(ctx context.Context, node prober.NodeAddress) (prober.NodeInfo, error) {
	var info prober.NodeInfo
	if err := getJSON(ctx, c.http, c.nodeURL(node), &info); err != nil {
		return prober.NodeInfo{}, err
	}

	if info.Identity == "" {
		return prober.NodeInfo{}, fmt.Errorf("%w: node %s reported no identity", errUnexpectedStatus, node)
	}

	return info, nil
}

func (c *Client) GetResourceDescriptor(ctx context.Context, node prober.NodeAddress, vessel string) (string, error) {
	resp, err := get(ctx, c.http, c.nodeURL(node, vessel, "resources"), "text/plain")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptorBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read resource descriptor: %w", err)
	}

	return string(body), nil
}

func get(ctx context.Context, client *http.Client, target, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create node manager request: %w", err)
	}

	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("node manager request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()

		return nil, fmt.Errorf("%w: status %d: %s", errUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return resp, nil
}

func getJSON(ctx context.Context, client *http.Client, target string, out interface{}) error {
	resp, err := get(ctx, client, target, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode node manager response: %w", err)
	}

	return nil
}
