// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package understand

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/Mekoros/services/authors"
	"github.com/AleutianAI/Mekoros/services/cache"
	"github.com/AleutianAI/Mekoros/services/decipher"
	"github.com/AleutianAI/Mekoros/services/llm"
)

var understandTracer = otel.Tracer("mekoros.understand")

const analysisSystemPrompt = `You are an expert in Talmudic literature helping locate primary sources.
Given a query, its Hebrew terms, and corpus statistics, produce a search strategy.
Respond with a single JSON object and nothing else, matching this schema:
{
  "query_type": "concept|sugya-reference|author-citation|comparison|halachic-practice|unknown",
  "primary_sources": ["Tractate 12a", ...],
  "target_authors": ["rashi", ...],
  "related_sugyos": [{"ref": "...", "importance": "critical|important|related", "connection": "..."}],
  "comparison_terms": ["...", "..."],
  "fetch_strategy": "trickle-up|trickle-down|direct-ref|broad-scan",
  "depth": "basic|standard|deep",
  "confidence": "high|medium|low",
  "reasoning": "...",
  "clarification_prompt": "",
  "clarification_options": []
}
Prefer references that appear in the corpus statistics. If the topic is
ambiguous, set confidence to "low" and fill clarification_prompt with 2-4
clarification_options.`

// maxAnalysisTokens bounds the LLM completion.
const maxAnalysisTokens = 1024

// Analyzer is the UNDERSTAND stage.
type Analyzer struct {
	llm      llm.Client
	searcher Searcher
	kb       *authors.KB
	cache    *cache.FileCache

	// flight coalesces identical in-flight analyses.
	flight singleflight.Group
}

// NewAnalyzer wires the stage. responses may be nil to disable the
// LLM response cache.
func NewAnalyzer(client llm.Client, searcher Searcher, kb *authors.KB, responses *cache.FileCache) *Analyzer {
	return &Analyzer{llm: client, searcher: searcher, kb: kb, cache: responses}
}

// Understand produces the search strategy for a deciphered query.
// Deterministic shortcuts run first; the LLM is consulted only when
// they miss. The returned strategy is always normalized and valid.
func (a *Analyzer) Understand(ctx context.Context, query string, dec *decipher.Result) (*Strategy, error) {
	ctx, span := understandTracer.Start(ctx, "understand.Understand")
	defer span.End()

	norm := decipher.NormalizeQuery(query)
	terms := dec.HebrewTerms

	strategy, how := a.analyze(ctx, norm, query, terms, dec)
	strategy.Normalize()
	a.gateConfidence(strategy)
	strategy.Normalize()

	span.SetAttributes(
		attribute.String("understand.path", how),
		attribute.String("understand.query_type", string(strategy.QueryType)),
		attribute.String("understand.fetch_strategy", string(strategy.FetchStrategy)),
		attribute.String("understand.confidence", string(strategy.Confidence)),
	)
	if err := strategy.Validate(); err != nil {
		// Normalize guarantees the invariants; a failure here is a bug.
		return nil, fmt.Errorf("internal: %w", err)
	}
	return strategy, nil
}

// analyze picks the resolution path and returns the raw strategy plus
// a tag naming the path taken (for tracing).
func (a *Analyzer) analyze(ctx context.Context, norm, query string, terms []string, dec *decipher.Result) (*Strategy, string) {
	// Pure English or nothing deciphered: broad scan, no LLM.
	if dec.IsPureEnglish || len(terms) == 0 {
		return &Strategy{
			QueryType:     QueryUnknown,
			FetchStrategy: FetchBroadScan,
			Depth:         DepthStandard,
			Confidence:    ConfidenceMedium,
			Reasoning:     "no Hebrew terms; falling back to broad scan",
		}, "broad-scan"
	}

	// Direct reference: tractate + daf in the query.
	if ref, ok := DetectDirectRef(norm); ok {
		targets := a.kb.DetectInText(query)
		qt := QuerySugyaReference
		if len(targets) > 0 {
			qt = QueryAuthorCitation
		}
		return &Strategy{
			QueryType:      qt,
			PrimarySources: []string{ref},
			TargetAuthors:  targets,
			FetchStrategy:  FetchDirectRef,
			Depth:          DepthStandard,
			Confidence:     ConfidenceHigh,
			Reasoning:      fmt.Sprintf("direct reference %s in query", ref),
		}, "direct-ref"
	}

	// Comparison: two or more terms joined by a comparison marker.
	if len(terms) >= 2 && hasComparisonMarker(norm) {
		return a.comparisonStrategy(ctx, norm, query, terms), "comparison"
	}

	// Known sugya: settled anchors, no LLM.
	if entry, ok := MatchKnownSugya(norm, terms); ok {
		return a.knownSugyaStrategy(entry, query), "known-sugya"
	}

	return a.llmStrategy(ctx, query, terms), "llm"
}

// knownSugyaStrategy builds the deterministic strategy for a table
// entry.
func (a *Analyzer) knownSugyaStrategy(entry *KnownSugya, query string) *Strategy {
	s := &Strategy{
		QueryType:      QueryConcept,
		PrimarySources: append([]string(nil), entry.PrimaryRefs...),
		TargetAuthors:  a.kb.DetectInText(query),
		FetchStrategy:  FetchTrickleDown,
		Depth:          DepthStandard,
		Confidence:     ConfidenceHigh,
		Reasoning:      fmt.Sprintf("known sugya %q", entry.Key),
	}
	for _, ref := range entry.PrimaryRefs[1:] {
		s.RelatedSugyos = append(s.RelatedSugyos, RelatedSugya{
			Ref:        ref,
			Importance: entry.Importance,
		})
	}
	return s
}

// comparisonStrategy anchors each compared term, preferring known
// sugyos and falling back to a per-term corpus search.
func (a *Analyzer) comparisonStrategy(ctx context.Context, norm, query string, terms []string) *Strategy {
	s := &Strategy{
		QueryType:       QueryComparison,
		ComparisonTerms: append([]string(nil), terms...),
		TargetAuthors:   a.kb.DetectInText(query),
		FetchStrategy:   FetchTrickleDown,
		Depth:           DepthStandard,
		Confidence:      ConfidenceHigh,
		Reasoning:       "comparison query",
	}
	for _, term := range terms {
		// Match on the Hebrew term alone; the full query would let
		// the first term's transliteration key fire for every term.
		if entry, ok := MatchKnownSugya("", []string{term}); ok {
			s.PrimarySources = append(s.PrimarySources, entry.PrimaryRefs...)
			continue
		}
		profile, err := BuildProfile(ctx, a.searcher, []string{term})
		if err != nil || len(profile.TopRefs) == 0 {
			s.Confidence = ConfidenceMedium
			continue
		}
		s.PrimarySources = append(s.PrimarySources, profile.TopRefs[0])
	}
	s.PrimarySources = dedupe(s.PrimarySources)
	return s
}

// llmStrategy profiles the corpus and asks the LLM, with response
// caching, in-flight coalescing, and the repair/fallback ladder.
func (a *Analyzer) llmStrategy(ctx context.Context, query string, terms []string) *Strategy {
	profile, err := BuildProfile(ctx, a.searcher, terms)
	if err != nil {
		slog.Warn("corpus profile failed; using fallback strategy", "error", err)
		return fallbackStrategy(&Profile{}, terms)
	}

	fingerprint := analysisFingerprint(terms, profile)
	raw, ok := a.cachedResponse(fingerprint)
	if !ok {
		raw, err = a.completeOnce(ctx, fingerprint, query, terms, profile)
		if err != nil {
			slog.Warn("LLM analysis failed; using fallback strategy", "error", err)
			return fallbackStrategy(profile, terms)
		}
	}

	payload, err := llm.ExtractJSON(raw)
	if err != nil {
		slog.Warn("LLM analysis unparseable after repair; using fallback strategy", "error", err)
		return fallbackStrategy(profile, terms)
	}
	var s Strategy
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		slog.Warn("LLM analysis JSON mismatched schema; using fallback strategy", "error", err)
		return fallbackStrategy(profile, terms)
	}
	if len(s.PrimarySources) == 0 && len(profile.TopRefs) > 0 {
		s.PrimarySources = []string{profile.TopRefs[0]}
	}
	return &s
}

// completeOnce performs the LLM call, coalescing identical in-flight
// analyses and caching the successful raw response.
func (a *Analyzer) completeOnce(ctx context.Context, fingerprint, query string, terms []string, profile *Profile) (string, error) {
	v, err, _ := a.flight.Do(fingerprint, func() (any, error) {
		prompt := buildAnalysisPrompt(query, terms, profile)
		raw, err := a.llm.Complete(ctx, &llm.Request{
			System:    analysisSystemPrompt,
			Prompt:    prompt,
			MaxTokens: maxAnalysisTokens,
		})
		if err != nil {
			return "", err
		}
		if a.cache != nil {
			if err := a.cache.Set(fingerprint, raw); err != nil {
				slog.Warn("caching LLM analysis failed", "error", err)
			}
		}
		return raw, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (a *Analyzer) cachedResponse(fingerprint string) (string, bool) {
	if a.cache == nil {
		return "", false
	}
	var raw string
	if !a.cache.Get(fingerprint, &raw) {
		return "", false
	}
	return raw, true
}

// gateConfidence fills clarification fields when the strategy is not
// confident enough to search on.
func (a *Analyzer) gateConfidence(s *Strategy) {
	if s.Confidence != ConfidenceLow || len(s.ClarificationOptions) >= 2 {
		return
	}
	options := append([]string(nil), s.ClarificationOptions...)
	for _, ref := range s.PrimarySources {
		if len(options) >= 4 {
			break
		}
		options = append(options, ref)
	}
	for _, rs := range s.RelatedSugyos {
		if len(options) >= 4 {
			break
		}
		options = append(options, rs.Ref)
	}
	if len(options) < 2 {
		options = append(options, "Rephrase the query with more context")
	}
	s.ClarificationOptions = dedupe(options)
}

// fallbackStrategy is the last rung of the repair ladder.
func fallbackStrategy(profile *Profile, terms []string) *Strategy {
	s := &Strategy{
		QueryType:           QueryConcept,
		FetchStrategy:       FetchTrickleDown,
		Depth:               DepthStandard,
		Confidence:          ConfidenceLow,
		Reasoning:           "analysis unavailable; anchored on top corpus reference",
		ClarificationPrompt: fmt.Sprintf("Several sources discuss %s; which did you mean?", strings.Join(terms, ", ")),
	}
	if len(profile.TopRefs) > 0 {
		s.PrimarySources = []string{profile.TopRefs[0]}
	} else {
		s.FetchStrategy = FetchBroadScan
	}
	return s
}

func buildAnalysisPrompt(query string, terms []string, profile *Profile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n", query)
	fmt.Fprintf(&sb, "Hebrew terms: %s\n", strings.Join(terms, " | "))
	sb.WriteString("Corpus profile:\n")
	sb.WriteString(profile.Summary())
	return sb.String()
}

// analysisFingerprint keys the response cache and the singleflight
// group by (terms, profile summary).
func analysisFingerprint(terms []string, profile *Profile) string {
	sum := md5.Sum([]byte(strings.Join(terms, "|") + "\n" + profile.Summary()))
	return "understand:" + hex.EncodeToString(sum[:])
}

// hasComparisonMarker reports whether a normalized query asks to
// contrast topics.
func hasComparisonMarker(norm string) bool {
	for _, tok := range strings.Fields(norm) {
		switch tok {
		case "vs", "versus", "difference", "compare", "compared", "between":
			return true
		}
	}
	return false
}
