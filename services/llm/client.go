// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the LLM advisor clients used by the UNDERSTAND
// and SEARCH pipelines.
//
// Three backends implement the Client interface: OpenAI (and
// OpenAI-compatible local servers via base-URL override), Anthropic,
// and Ollama. The backend is selected by LLM_BACKEND_TYPE. Content
// errors are never retried here; malformed JSON is handled by the
// repair path in ExtractJSON and the callers' fallback strategies.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrMissingKey reports that the selected backend has no API key in
// the environment or the secrets directory. The CLI maps this to exit
// code 2.
var ErrMissingKey = errors.New("LLM API key is missing")

// Request is one completion request. Both pipelines send a fixed
// system prompt and a per-call user prompt, and require JSON back.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Client is the standard interface for any LLM backend.
type Client interface {
	// Complete sends the request and returns the raw response text.
	// The text may be wrapped in code fences; callers unwrap it with
	// ExtractJSON.
	Complete(ctx context.Context, req *Request) (string, error)

	// Model returns the backend model identifier, for health output.
	Model() string
}

// NewFromEnv builds the backend selected by LLM_BACKEND_TYPE. An
// unset or unknown value defaults to openai with a warning.
func NewFromEnv() (Client, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_BACKEND_TYPE")))
	switch backend {
	case "openai", "":
		if backend == "" {
			slog.Warn("LLM_BACKEND_TYPE not set, defaulting to openai")
		}
		return NewOpenAIClient()
	case "claude", "anthropic":
		return NewAnthropicClient()
	case "ollama":
		return NewOllamaClient()
	default:
		slog.Warn("LLM_BACKEND_TYPE invalid, defaulting to openai", "value", backend)
		return NewOpenAIClient()
	}
}

// envOrDefault reads an environment variable, logging a warning and
// returning fallback when it is unset.
func envOrDefault(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	slog.Warn(fmt.Sprintf("%s not set, defaulting to %s", name, fallback))
	return fallback
}
