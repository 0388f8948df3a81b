// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/Mekoros/services/corpus"
	"github.com/AleutianAI/Mekoros/services/llm"
	"github.com/AleutianAI/Mekoros/services/understand"
)

const validateSystemPrompt = `You are an expert in Talmudic literature checking search anchors.
Given a query's Hebrew terms, a search strategy summary, and a list of candidate
Talmud references, decide whether these are the right sugyot for the topic.
Respond with a single JSON object and nothing else:
{"confirmed": true|false, "refs": ["Tractate 12a", ...], "note": "..."}
When confirmed is true, echo the candidates in "refs". When false, put the
correct references in "refs". Only cite real references.`

const maxValidateTokens = 512

// anchorValidation is the LLM's verdict.
type anchorValidation struct {
	Confirmed bool     `json:"confirmed"`
	Refs      []string `json:"refs"`
	Note      string   `json:"note"`
}

// validateAnchors is phase B: ask the LLM whether the located anchors
// are the right sugyos. A replacement list is accepted ref-by-ref,
// and only refs the corpus can actually serve survive; anything else
// is dropped silently. On any LLM failure the located anchors stand.
func (e *Engine) validateAnchors(ctx context.Context, strategy *understand.Strategy, terms, anchors []string) []string {
	if len(anchors) == 0 || e.llm == nil {
		return anchors
	}
	ctx, span := searchTracer.Start(ctx, "search.validateAnchors")
	defer span.End()

	raw, err := e.llm.Complete(ctx, &llm.Request{
		System:    validateSystemPrompt,
		Prompt:    buildValidatePrompt(strategy, terms, anchors),
		MaxTokens: maxValidateTokens,
	})
	if err != nil {
		slog.Warn("anchor validation LLM call failed; keeping located anchors", "error", err)
		return anchors
	}
	payload, err := llm.ExtractJSON(raw)
	if err != nil {
		slog.Warn("anchor validation response unparseable; keeping located anchors", "error", err)
		return anchors
	}
	var verdict anchorValidation
	if err := json.Unmarshal([]byte(payload), &verdict); err != nil {
		slog.Warn("anchor validation JSON mismatched schema; keeping located anchors", "error", err)
		return anchors
	}
	if verdict.Confirmed || len(verdict.Refs) == 0 {
		return anchors
	}

	// Hallucination filter: a proposed ref survives only if the
	// corpus serves a text for it.
	kept := make([]string, 0, len(verdict.Refs))
	for _, ref := range dedupeRefs(verdict.Refs) {
		if _, err := e.corpus.GetText(ctx, ref); err != nil {
			if corpus.IsNotFoundError(err) {
				e.hallucinationDropped(ref)
				continue
			}
			slog.Warn("proposed anchor unverifiable; dropping", "ref", ref, "error", err)
			continue
		}
		kept = append(kept, ref)
	}
	if len(kept) == 0 {
		slog.Warn("no proposed anchor survived corpus validation; keeping located anchors")
		return anchors
	}
	return kept
}

// hallucinationDropped records a silently discarded LLM ref. Never
// surfaced to the user.
func (e *Engine) hallucinationDropped(ref string) {
	slog.Debug("hallucinated reference dropped", "ref", ref)
	if e.onHallucination != nil {
		e.onHallucination()
	}
}

func buildValidatePrompt(strategy *understand.Strategy, terms, anchors []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hebrew terms: %s\n", strings.Join(terms, " | "))
	fmt.Fprintf(&sb, "Query type: %s; fetch strategy: %s; depth: %s\n",
		strategy.QueryType, strategy.FetchStrategy, strategy.Depth)
	if strategy.Reasoning != "" {
		fmt.Fprintf(&sb, "Analysis: %s\n", strategy.Reasoning)
	}
	fmt.Fprintf(&sb, "Candidate references: %s\n", strings.Join(anchors, "; "))
	return sb.String()
}
