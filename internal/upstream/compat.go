// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/playground-tui/internal/model"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// =============================================================================
// WIRE TYPES
// =============================================================================

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// wireMessage carries either a plain string or a list of content parts.
type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type completionRequest struct {
	Model           string        `json:"model"`
	Messages        []wireMessage `json:"messages"`
	Temperature     float64       `json:"temperature"`
	MaxTokens       int           `json:"max_tokens"`
	TopP            float64       `json:"top_p"`
	Stream          bool          `json:"stream"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// COMPAT PROVIDER
// =============================================================================

// CompatProvider talks to any OpenAI-compatible /chat/completions endpoint.
type CompatProvider struct {
	client *http.Client
}

// NewCompatProvider creates a provider using client.
func NewCompatProvider(client *http.Client) *CompatProvider {
	return &CompatProvider{client: client}
}

// Stream posts req and calls onDelta for every content delta until the
// endpoint signals the end of the stream.
func (p *CompatProvider) Stream(ctx context.Context, req Request, onDelta DeltaFunc) error {
	if strings.TrimSpace(req.Model) == "" {
		return ErrNoModel
	}

	body, err := json.Marshal(buildCompletionRequest(req))
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, completionsURL(req.BaseURL), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	return processStream(ctx, resp.Body, onDelta)
}

// buildCompletionRequest assembles the wire request: history verbatim, then
// the new user message.
func buildCompletionRequest(req Request) completionRequest {
	messages := make([]wireMessage, 0, len(req.History)+1)
	for _, turn := range req.History {
		messages = append(messages, wireMessage{Role: turn.Role.String(), Content: turn.Content})
	}
	messages = append(messages, userMessage(req))

	out := completionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Stream:      true,
	}
	if req.ReasoningEffort.Forwardable() {
		out.ReasoningEffort = string(req.ReasoningEffort)
	}
	return out
}

func userMessage(req Request) wireMessage {
	if len(req.Images) == 0 {
		return wireMessage{Role: model.RoleUser.String(), Content: req.Prompt}
	}
	parts := make([]contentPart, 0, len(req.Images)+1)
	parts = append(parts, contentPart{Type: "text", Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img.DataURL()}})
	}
	return wireMessage{Role: model.RoleUser.String(), Content: parts}
}

// processStream reads SSE events until [DONE], EOF or a finish reason.
func processStream(ctx context.Context, body io.Reader, onDelta DeltaFunc) error {
	reader := NewSSEReader(body)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk completionChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			continue
		}
		if chunk.Error != nil {
			return &APIError{StatusCode: http.StatusOK, Message: chunk.Error.Message}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
		if fr := chunk.Choices[0].FinishReason; fr != nil && *fr != "" {
			return nil
		}
	}
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error.Message != "" {
		apiErr.Message = eb.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
