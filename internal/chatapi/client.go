// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi posts a chat request and hands back the streamed reply body.
//
// The wire format of the reply is raw UTF-8 text; concatenating the body in
// arrival order yields the full reply. This package performs exactly one
// attempt per call and never retries.
package chatapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultConnectTimeout bounds the wait for response headers.
	DefaultConnectTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept for the error.
	maxErrorBody = 4 * 1024
)

// ErrNotStreamable is returned when a successful response carries no body.
var ErrNotStreamable = errors.New("backend response was not streamable")

// =============================================================================
// ERRORS
// =============================================================================

// TransportError is returned for non-2xx responses.
type TransportError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := "Backend response was not ok"
	if e.Status != "" {
		msg += " (" + e.Status + ")"
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsTransportError reports whether err carries an HTTP status failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client posts chat requests to one endpoint.
type Client struct {
	url            string
	httpClient     *http.Client
	connectTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. It must not set Timeout, which
// would cut long streams short; the context controls lifetime.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithConnectTimeout bounds the wait for response headers. Zero disables.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.connectTimeout = d
	}
}

// New creates a client posting to url (e.g. http://localhost:8000/chat).
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:            url,
		httpClient:     &http.Client{},
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the chat endpoint.
func (c *Client) URL() string {
	return c.url
}

// Post sends body and returns the reply stream. The caller must close it.
// Cancelling ctx aborts both the request and any read in progress.
func (c *Client) Post(ctx context.Context, body io.Reader, contentType string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	cancel := context.CancelFunc(func() {})
	var timer *time.Timer
	var timedOut chan struct{}
	if c.connectTimeout > 0 {
		var reqCtx context.Context
		reqCtx, cancel = context.WithCancel(ctx)
		req = req.WithContext(reqCtx)
		timedOut = make(chan struct{})
		timer = time.AfterFunc(c.connectTimeout, func() {
			close(timedOut)
			cancel()
		})
	}

	resp, err := c.httpClient.Do(req)
	if timer != nil && !timer.Stop() {
		// The timer fired: the request context is already cancelled.
		<-timedOut
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("chat request: no response within %s", c.connectTimeout)
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("chat request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		cancel()
		return nil, ErrNotStreamable
	}
	return &streamBody{ReadCloser: resp.Body, cancel: cancel}, nil
}

// streamBody releases the request context when the stream is closed.
type streamBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *streamBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
