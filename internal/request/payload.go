// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/model"
)

// Form field names shared with the backend.
const (
	FieldPrompt          = "user_prompt"
	FieldMessages        = "messages"
	FieldSessionID       = "session_id"
	FieldModel           = "model_name"
	FieldTemperature     = "temperature"
	FieldMaxTokens       = "max_tokens"
	FieldTopP            = "top_p"
	FieldReasoningEffort = "reasoning_effort"
	FieldBaseURL         = "base_url"
	FieldAPIKey          = "api_key"
	FieldFiles           = "files"
)

// =============================================================================
// PAYLOAD
// =============================================================================

// Payload is one fully resolved chat request.
type Payload struct {
	Prompt          string
	History         []model.ContextTurn
	SessionID       string
	Model           string
	Temperature     float64
	MaxTokens       int
	TopP            float64
	ReasoningEffort model.ReasoningEffort
	BaseURL         string
	APIKey          string
	Files           []attach.File
}

// Encode writes the payload as a multipart/form-data body.
func (p *Payload) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	turns := p.History
	if turns == nil {
		turns = []model.ContextTurn{}
	}
	history, err := json.Marshal(turns)
	if err != nil {
		return nil, "", fmt.Errorf("encode history: %w", err)
	}

	effort := p.ReasoningEffort
	if effort == "" {
		effort = model.ReasoningNone
	}

	fields := []struct{ name, value string }{
		{FieldPrompt, p.Prompt},
		{FieldMessages, string(history)},
		{FieldSessionID, p.SessionID},
		{FieldModel, p.Model},
		{FieldTemperature, strconv.FormatFloat(p.Temperature, 'f', -1, 64)},
		{FieldMaxTokens, strconv.Itoa(p.MaxTokens)},
		{FieldTopP, strconv.FormatFloat(p.TopP, 'f', -1, 64)},
		{FieldReasoningEffort, string(effort)},
		{FieldBaseURL, p.BaseURL},
		{FieldAPIKey, p.APIKey},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	for _, f := range p.Files {
		part, err := w.CreatePart(filePartHeader(f))
		if err != nil {
			return nil, "", fmt.Errorf("create part for %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write part for %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(f attach.File) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldFiles, quoteEscaper.Replace(f.Name)))
	mediaType := f.MediaType
	if mediaType == "" {
		mediaType = attach.DefaultMediaType
	}
	h.Set("Content-Type", mediaType)
	return h
}
