// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/request"
	"github.com/jeranaias/playground-tui/internal/upstream"
)

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodySize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", s.opts.MaxBodySize))
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := parseChatForm(r.MultipartForm)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx := r.Context()
	if s.opts.UpstreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.UpstreamTimeout)
		defer cancel()
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	flush()

	start := time.Now()
	written := 0
	err = s.provider.Stream(ctx, req, func(delta string) error {
		n, werr := io.WriteString(w, delta)
		written += n
		if werr != nil {
			return werr
		}
		flush()
		return nil
	})

	switch {
	case err == nil:
		s.logger.Info("chat completed",
			"model", req.Model,
			"history", len(req.History),
			"images", len(req.Images),
			"bytes", written,
			"duration", time.Since(start))
	case r.Context().Err() != nil:
		// Client went away; nobody is left to read an error
		s.logger.Info("chat abandoned by client", "model", req.Model, "bytes", written)
	default:
		s.logger.Warn("upstream failed", "model", req.Model, "error", err)
		io.WriteString(w, ErrorPrefix+err.Error())
		flush()
	}
}

// parseChatForm converts the multipart form into an upstream request.
func parseChatForm(form *multipart.Form) (upstream.Request, error) {
	values := form.Value
	if f := missingField(values); f != "" {
		return upstream.Request{}, fmt.Errorf("missing form field %q", f)
	}
	if isBlank(formValue(values, request.FieldModel)) {
		return upstream.Request{}, fmt.Errorf("form field %q is empty", request.FieldModel)
	}

	req := upstream.Request{
		Model:           formValue(values, request.FieldModel),
		BaseURL:         formValue(values, request.FieldBaseURL),
		APIKey:          formValue(values, request.FieldAPIKey),
		Prompt:          formValue(values, request.FieldPrompt),
		History:         parseHistory(formValue(values, request.FieldMessages)),
		Temperature:     model.DefaultTemperature,
		MaxTokens:       model.DefaultMaxTokens,
		TopP:            model.DefaultTopP,
		ReasoningEffort: model.ParseReasoningEffort(formValue(values, request.FieldReasoningEffort)),
	}

	var err error
	if v, ok := values[request.FieldTemperature]; ok && len(v) > 0 {
		if req.Temperature, err = strconv.ParseFloat(v[0], 64); err != nil {
			return upstream.Request{}, fmt.Errorf("invalid %s: %w", request.FieldTemperature, err)
		}
	}
	if v, ok := values[request.FieldMaxTokens]; ok && len(v) > 0 {
		if req.MaxTokens, err = strconv.Atoi(v[0]); err != nil {
			return upstream.Request{}, fmt.Errorf("invalid %s: %w", request.FieldMaxTokens, err)
		}
	}
	if v, ok := values[request.FieldTopP]; ok && len(v) > 0 {
		if req.TopP, err = strconv.ParseFloat(v[0], 64); err != nil {
			return upstream.Request{}, fmt.Errorf("invalid %s: %w", request.FieldTopP, err)
		}
	}

	for _, fh := range form.File[request.FieldFiles] {
		img, err := readImage(fh)
		if err != nil {
			return upstream.Request{}, err
		}
		req.Images = append(req.Images, img)
	}
	return req, nil
}

// parseHistory decodes the replayed turns. Malformed history is treated as
// empty.
func parseHistory(raw string) []model.ContextTurn {
	var turns []model.ContextTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil
	}
	return turns
}

func readImage(fh *multipart.FileHeader) (upstream.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return upstream.Image{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return upstream.Image{}, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	return upstream.Image{MediaType: fh.Header.Get("Content-Type"), Data: data}, nil
}
