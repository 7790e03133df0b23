// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upstream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/playground-tui/internal/model"
)

// DefaultImageType is used for attachments that arrive without a media type.
const DefaultImageType = "image/jpeg"

// Provider kinds accepted by New.
const (
	KindCompat    = "compat"
	KindLangchain = "langchain"
)

// ErrNoModel is returned for requests without a model identifier.
var ErrNoModel = errors.New("model name is required")

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Image is one attachment forwarded with the user message.
type Image struct {
	MediaType string
	Data      []byte
}

// DataURL encodes the image as a data: URL.
func (i Image) DataURL() string {
	mt := strings.TrimSpace(i.MediaType)
	if mt == "" {
		mt = DefaultImageType
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Request is one turn to forward upstream.
type Request struct {
	Model   string
	BaseURL string
	APIKey  string

	// History is replayed before the new user message, in order.
	History []model.ContextTurn
	Prompt  string
	Images  []Image

	Temperature     float64
	MaxTokens       int
	TopP            float64
	ReasoningEffort model.ReasoningEffort
}

// DeltaFunc receives each non-empty text delta. Returning an error stops
// the stream.
type DeltaFunc func(delta string) error

// Provider streams one completion.
type Provider interface {
	Stream(ctx context.Context, req Request, onDelta DeltaFunc) error
}

// New returns the provider for kind. A nil client uses a client without
// an overall timeout; the request context bounds each call.
func New(kind string, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{}
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindCompat:
		return NewCompatProvider(client), nil
	case KindLangchain:
		return NewLangchainProvider(client), nil
	default:
		return nil, fmt.Errorf("unknown upstream provider %q", kind)
	}
}

// completionsURL joins the endpoint path onto a base URL such as
// https://api.openai.com/v1.
func completionsURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/chat/completions"
}

// =============================================================================
// ERRORS
// =============================================================================

// APIError is a non-2xx answer from the model endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}
