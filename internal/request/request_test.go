// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package request

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/model"
)

type fakeLister struct {
	list  []model.ModelConfiguration
	err   error
	calls int
}

func (f *fakeLister) List(ctx context.Context) ([]model.ModelConfiguration, error) {
	f.calls++
	return f.list, f.err
}

func settings(modelID string) model.RunSettings {
	s := model.DefaultRunSettings()
	s.Model = modelID
	return s
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestBuild_NoModelSelected(t *testing.T) {
	lister := &fakeLister{}
	b := NewBuilder(lister)

	_, err := b.Build(context.Background(), Input{Text: "hello", Settings: settings("")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigurationMissing))
	assert.True(t, IsNoModelSelected(err))
	assert.Equal(t, 0, lister.calls, "no lookup when no model is selected")
}

func TestBuild_ModelNotFound(t *testing.T) {
	lister := &fakeLister{list: []model.ModelConfiguration{{Model: "other"}}}
	b := NewBuilder(lister)

	_, err := b.Build(context.Background(), Input{Text: "hello", Settings: settings("gpt-4o")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigurationMissing))
	assert.True(t, IsModelNotFound(err))
	assert.Equal(t, "Configuration for model 'gpt-4o' not found.", err.Error())
	assert.Equal(t, 1, lister.calls, "exactly one lookup, no retry")
}

func TestBuild_ListUnavailable(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	b := NewBuilder(lister)

	_, err := b.Build(context.Background(), Input{Text: "hello", Settings: settings("gpt-4o")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrListUnavailable)
	assert.False(t, IsModelNotFound(err))
	assert.NotErrorIs(t, err, ErrConfigurationMissing)
	assert.Equal(t, "model list unavailable: connection refused", err.Error())
	assert.Equal(t, 1, lister.calls)
}

func TestCheck_EmptyPrompt(t *testing.T) {
	err := Check(Input{Text: "   ", Settings: settings("m")})
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	err = Check(Input{Text: "", Files: []attach.File{attach.NewFile("a.txt", []byte("x"))}, Settings: settings("m")})
	assert.NoError(t, err, "files alone are enough to send")
}

// =============================================================================
// PAYLOAD TESTS
// =============================================================================

func TestBuild_PayloadFields(t *testing.T) {
	lister := &fakeLister{list: []model.ModelConfiguration{
		{Model: "gpt-4o", BaseURL: "https://api.example.com/v1", APIKey: "sk-test"},
	}}
	b := NewBuilder(lister)

	s := settings("gpt-4o")
	s.Temperature = 0.7
	s.MaxTokens = 256
	s.TopP = 0.9
	s.ReasoningEffort = model.ReasoningHigh

	history := []model.ContextTurn{
		{Role: model.RoleUser, Content: "q1"},
		{Role: model.RoleAssistant, Content: "a1"},
	}
	files := []attach.File{
		attach.NewFile("notes.txt", []byte("some notes")),
		{Name: `we"ird.bin`, Data: []byte{1, 2, 3}},
	}

	p, err := b.Build(context.Background(), Input{
		Text:      "  hello  ",
		Files:     files,
		SessionID: "sess-1",
		Settings:  s,
		History:   history,
	})
	require.NoError(t, err)

	body, contentType, err := p.Encode()
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)

	want := map[string]string{
		FieldPrompt:          "hello",
		FieldSessionID:       "sess-1",
		FieldModel:           "gpt-4o",
		FieldTemperature:     "0.7",
		FieldMaxTokens:       "256",
		FieldTopP:            "0.9",
		FieldReasoningEffort: "high",
		FieldBaseURL:         "https://api.example.com/v1",
		FieldAPIKey:          "sk-test",
	}
	for k, v := range want {
		require.Len(t, form.Value[k], 1, "field %s", k)
		assert.Equal(t, v, form.Value[k][0], "field %s", k)
	}

	var gotHistory []model.ContextTurn
	require.NoError(t, json.Unmarshal([]byte(form.Value[FieldMessages][0]), &gotHistory))
	assert.Equal(t, history, gotHistory)

	parts := form.File[FieldFiles]
	require.Len(t, parts, 2)
	assert.Equal(t, "notes.txt", parts[0].Filename)
	assert.Equal(t, "text/plain", parts[0].Header.Get("Content-Type"))
	assert.Equal(t, `we"ird.bin`, parts[1].Filename)
	assert.Equal(t, attach.DefaultMediaType, parts[1].Header.Get("Content-Type"))

	f, err := parts[0].Open()
	require.NoError(t, err)
	data, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, "some notes", string(data))
}

func TestEncode_EmptyHistoryIsArray(t *testing.T) {
	p := &Payload{Prompt: "hi", Model: "m", MaxTokens: 512, Temperature: 1, TopP: 1}
	body, contentType, err := p.Encode()
	require.NoError(t, err)

	_, params, _ := mime.ParseMediaType(contentType)
	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)

	assert.Equal(t, "[]", form.Value[FieldMessages][0])
	assert.Equal(t, "none", form.Value[FieldReasoningEffort][0])
	assert.Equal(t, "1", form.Value[FieldTemperature][0])
}
