// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to the OpenAI API, or to any OpenAI-compatible
// local server when OPENAI_BASE_URL is set.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client from OPENAI_API_KEY (with
// /run/secrets fallback), LLM_MODEL, and optional OPENAI_BASE_URL.
func NewOpenAIClient() (*OpenAIClient, error) {
	key, err := LoadKey("OPENAI_API_KEY", "/run/secrets/openai_api_key")
	if err != nil {
		return nil, err
	}

	model := envOrDefault("LLM_MODEL", "gpt-4o-mini")

	var client *openai.Client
	if err := key.Use(func(apiKey string) error {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
			cfg.BaseURL = baseURL
			slog.Info("using OpenAI-compatible base URL", "base_url", baseURL)
		}
		client = openai.NewClientWithConfig(cfg)
		return nil
	}); err != nil {
		return nil, err
	}

	slog.Info("initializing OpenAI client", "model", model)
	return &OpenAIClient{client: client, model: model}, nil
}

// Model returns the configured model identifier.
func (o *OpenAIClient) Model() string { return o.model }

// Complete implements the Client interface.
func (o *OpenAIClient) Complete(ctx context.Context, req *Request) (string, error) {
	slog.Debug("generating analysis via OpenAI", "model", o.model)

	chatReq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxCompletionTokens = req.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	slog.Debug("received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

var _ Client = (*OpenAIClient)(nil)
