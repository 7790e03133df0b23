// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/jeranaias/playground-tui/internal/model"
)

// placeholderToken is sent to endpoints configured without a credential.
// The langchaingo client refuses an empty token.
const placeholderToken = "EMPTY"

// =============================================================================
// LANGCHAIN PROVIDER
// =============================================================================

// LangchainProvider streams through langchaingo's openai client. Reasoning
// effort is not forwarded.
type LangchainProvider struct {
	client *http.Client
}

// NewLangchainProvider creates a provider using client for transport.
func NewLangchainProvider(client *http.Client) *LangchainProvider {
	return &LangchainProvider{client: client}
}

// Stream implements Provider.
func (p *LangchainProvider) Stream(ctx context.Context, req Request, onDelta DeltaFunc) error {
	if strings.TrimSpace(req.Model) == "" {
		return ErrNoModel
	}

	token := req.APIKey
	if token == "" {
		token = placeholderToken
	}
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithModel(req.Model),
		openai.WithBaseURL(strings.TrimRight(req.BaseURL, "/")),
		openai.WithHTTPClient(p.client),
	)
	if err != nil {
		return fmt.Errorf("create openai model: %w", err)
	}

	_, err = llm.GenerateContent(ctx, messageContents(req),
		llms.WithTemperature(req.Temperature),
		llms.WithMaxTokens(req.MaxTokens),
		llms.WithTopP(req.TopP),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return onDelta(string(chunk))
		}),
	)
	if err != nil {
		return fmt.Errorf("generate content: %w", err)
	}
	return nil
}

// messageContents converts the history and the new user message.
func messageContents(req Request) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(req.History)+1)
	for _, turn := range req.History {
		out = append(out, llms.TextParts(chatMessageType(turn.Role), turn.Content))
	}

	parts := []llms.ContentPart{llms.TextContent{Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, llms.ImageURLPart(img.DataURL()))
	}
	out = append(out, llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: parts})
	return out
}

func chatMessageType(r model.Role) llms.ChatMessageType {
	switch r {
	case model.RoleAssistant:
		return llms.ChatMessageTypeAI
	case model.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}
