// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"time"

	"github.com/jeranaias/playground-tui/internal/model"
)

// Result is one poll outcome.
type Result struct {
	Models []model.ModelConfiguration
	Err    error
}

// Available reports whether at least one model is configured.
func (r Result) Available() bool {
	return r.Err == nil && len(r.Models) > 0
}

// Watch lists immediately and then every interval until ctx is done,
// calling fn with each result. A result whose request finished after ctx
// was cancelled is not delivered.
func (c *Client) Watch(ctx context.Context, interval time.Duration, fn func(Result)) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	poll := func() {
		list, err := c.List(ctx)
		if ctx.Err() != nil {
			return
		}
		fn(Result{Models: list, Err: err})
	}

	poll()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
