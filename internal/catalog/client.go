// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog is the HTTP client for the model-configuration list.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jeranaias/playground-tui/internal/model"
)

const (
	// DefaultTimeout bounds one list request.
	DefaultTimeout = 10 * time.Second

	// DefaultPollInterval matches the refresh rate of the model view.
	DefaultPollInterval = 2 * time.Second

	// maxListSize caps the decoded response body.
	maxListSize = 4 * 1024 * 1024
)

// ErrBadStatus is wrapped when the endpoint answers with a non-2xx status.
var ErrBadStatus = errors.New("unexpected status from model list endpoint")

// =============================================================================
// CLIENT
// =============================================================================

// Client reads and replaces the model-configuration list.
type Client struct {
	url        string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d, Transport: c.httpClient.Transport}
		}
	}
}

// New creates a client for the list at url (e.g. http://localhost:8000/models).
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the list endpoint.
func (c *Client) URL() string {
	return c.url
}

// List fetches the current list.
func (c *Client) List(ctx context.Context) ([]model.ModelConfiguration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	var list []model.ModelConfiguration
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxListSize)).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	if list == nil {
		list = []model.ModelConfiguration{}
	}
	return list, nil
}

// Lookup fetches the list and finds id in it.
func (c *Client) Lookup(ctx context.Context, id string) (model.ModelConfiguration, bool, error) {
	list, err := c.List(ctx)
	if err != nil {
		return model.ModelConfiguration{}, false, err
	}
	cfg, ok := model.FindConfiguration(list, id)
	return cfg, ok, nil
}

// Replace posts the full replacement list.
func (c *Client) Replace(ctx context.Context, list []model.ModelConfiguration) error {
	if list == nil {
		list = []model.ModelConfiguration{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode model list: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create replace request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replace model list: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxListSize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	return nil
}
