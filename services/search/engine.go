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
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/Mekoros/services/authors"
	"github.com/AleutianAI/Mekoros/services/corpus"
	"github.com/AleutianAI/Mekoros/services/llm"
	"github.com/AleutianAI/Mekoros/services/understand"
)

var searchTracer = otel.Tracer("mekoros.search")

// maxBroadScanAnchors bounds anchors taken from an unrestricted scan.
const maxBroadScanAnchors = 3

// Engine executes the locate-validate-trickle-fetch phases.
type Engine struct {
	corpus     CorpusClient
	llm        llm.Client
	kb         *authors.KB
	fetchLimit int

	// onHallucination is invoked per silently dropped LLM ref
	// (metrics hook).
	onHallucination func()
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithFetchConcurrency overrides the fetch fan-out cap.
func WithFetchConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.fetchLimit = n
		}
	}
}

// WithHallucinationHook registers a callback per dropped ref.
func WithHallucinationHook(fn func()) EngineOption {
	return func(e *Engine) { e.onHallucination = fn }
}

// NewEngine wires the SEARCH stage. client may be nil to skip LLM
// anchor validation.
func NewEngine(corpusClient CorpusClient, client llm.Client, kb *authors.KB, opts ...EngineOption) *Engine {
	e := &Engine{
		corpus:     corpusClient,
		llm:        client,
		kb:         kb,
		fetchLimit: DefaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a search under an already-clarified strategy. The
// result either carries sources or clarification options; Run never
// surfaces hallucinated or dropped refs.
func (e *Engine) Run(ctx context.Context, query string, terms []string, strategy *understand.Strategy) (*Result, error) {
	ctx, span := searchTracer.Start(ctx, "search.Run")
	defer span.End()

	res := &Result{
		OriginalQuery:  query,
		HebrewTerms:    terms,
		Interpretation: strategy.Reasoning,
		Confidence:     string(strategy.Confidence),
		SourcesByLevel: map[Level][]Source{},
	}

	anchors, options, err := e.resolveAnchors(ctx, query, terms, strategy)
	if err != nil {
		return nil, err
	}
	if len(options) > 0 {
		res.NeedsClarification = true
		res.ClarificationPrompt = "Multiple distinct discussions match; which one did you mean?"
		res.ClarificationOptions = options
		return res, nil
	}
	if len(anchors) == 0 {
		res.Message = "no sources located for the query"
		return res, nil
	}
	planned := e.trickle(ctx, strategy, anchors)
	e.planTargetCommentaries(planned, anchors, strategy, func(p plannedRef) {
		planned = append(planned, p)
	})

	// The primary ref comes out of the fetch, not the plan: a
	// direct-ref anchor is unvalidated LLM output and must not name
	// the result unless its text actually resolved.
	sources, primaryRef, err := e.fetchAll(ctx, planned)
	if err != nil {
		res.Message = err.Error()
		return res, nil
	}

	res.PrimaryRef = primaryRef
	res.Sources = sources
	res.TotalSources = len(sources)
	res.SourcesByLevel, res.LevelsPresent = groupByLevel(sources)
	if strategy.QueryType == understand.QueryComparison {
		res.SourcesByTerm = groupByTerm(sources, strategy.ComparisonTerms)
	}

	span.SetAttributes(
		attribute.Int("search.sources", res.TotalSources),
		attribute.Int("search.levels", len(res.LevelsPresent)),
		attribute.String("search.primary_ref", res.PrimaryRef),
	)
	return res, nil
}

// resolveAnchors produces the validated anchor refs for a strategy,
// or clarification options when phase A is ambiguous.
func (e *Engine) resolveAnchors(ctx context.Context, query string, terms []string, strategy *understand.Strategy) ([]string, []ClarifyOption, error) {
	switch strategy.FetchStrategy {
	case understand.FetchDirectRef:
		return dedupeRefs(strategy.PrimarySources), nil, nil

	case understand.FetchBroadScan:
		anchors, err := e.broadScan(ctx, query, terms)
		return anchors, nil, err

	default:
		anchors := dedupeRefs(strategy.PrimarySources)
		var options []ClarifyOption
		if len(anchors) == 0 {
			var err error
			anchors, options, err = e.locate(ctx, terms)
			if err != nil {
				return nil, nil, err
			}
			if len(options) > 0 {
				return nil, options, nil
			}
		}
		return e.validateAnchors(ctx, strategy, terms, anchors), nil, nil
	}
}

// broadScan anchors on the top hits of an unrestricted search; the
// last resort when nothing was deciphered or located.
func (e *Engine) broadScan(ctx context.Context, query string, terms []string) ([]string, error) {
	queries := terms
	if len(queries) == 0 {
		queries = []string{strings.TrimSpace(query)}
	}
	var anchors []string
	for _, q := range queries {
		res, err := e.corpus.Search(ctx, q, corpus.SearchOptions{Size: maxBroadScanAnchors})
		if err != nil {
			return nil, err
		}
		anchors = append(anchors, res.TopRefs...)
	}
	anchors = dedupeRefs(anchors)
	if len(anchors) > maxBroadScanAnchors {
		anchors = anchors[:maxBroadScanAnchors]
	}
	return anchors, nil
}

// planTargetCommentaries constructs commentary refs for the
// strategy's target authors directly from the anchors ("Rashi on
// Pesachim 4b"), covering authors the related-links walk missed.
// Nonexistent constructions are dropped later by the fetch phase.
func (e *Engine) planTargetCommentaries(existing []plannedRef, anchors []string, strategy *understand.Strategy, add func(plannedRef)) {
	if len(strategy.TargetAuthors) == 0 {
		return
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.Ref] = true
	}
	for _, anchor := range anchors {
		for _, key := range strategy.TargetAuthors {
			ref, ok := e.kb.CorpusRef(key, anchor)
			if !ok || seen[ref] {
				continue
			}
			seen[ref] = true
			add(plannedRef{Ref: ref, AuthorKey: key, Level: LevelForAuthor(key, e.kb)})
		}
	}
}
