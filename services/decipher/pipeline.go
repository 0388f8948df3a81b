// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package decipher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/Mekoros/services/authors"
)

var decipherTracer = otel.Tracer("mekoros.decipher")

// highConfidence is the acceptance bar: a validated candidate at or
// above it with corpus hits is accepted without user confirmation.
const (
	highConfidence   = 0.6
	mediumConfidence = 0.35
)

// englishMarkers are common English scaffolding words. Three or more
// of them with no transliteration patterns classifies a query as pure
// English.
var englishMarkers = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true,
	"on": true, "to": true, "and": true, "or": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "do": true,
	"does": true, "did": true, "what": true, "when": true, "where": true,
	"why": true, "how": true, "who": true, "which": true, "can": true,
	"could": true, "will": true, "would": true, "should": true,
	"say": true, "says": true, "said": true, "about": true,
	"between": true, "difference": true, "compare": true, "compared": true,
	"vs": true, "versus": true, "explain": true, "mean": true,
	"meaning": true, "with": true, "for": true, "from": true,
	"there": true, "this": true, "that": true, "at": true, "night": true,
}

// Pipeline orchestrates dictionary lookup, rules transliteration,
// corpus validation, and the user-confirmation round.
type Pipeline struct {
	dict      *Dictionary
	engine    *Engine
	validator *Validator
	kb        *authors.KB
}

// NewPipeline wires the decipher stage.
func NewPipeline(dict *Dictionary, engine *Engine, validator *Validator, kb *authors.KB) *Pipeline {
	return &Pipeline{dict: dict, engine: engine, validator: validator, kb: kb}
}

// Decipher converts one query into Hebrew terms. Failures are carried
// in the Result (success=false); the error return is reserved for
// context cancellation.
func (p *Pipeline) Decipher(ctx context.Context, query string) (*Result, error) {
	ctx, span := decipherTracer.Start(ctx, "decipher.Decipher")
	defer span.End()

	res, _, err := p.decipher(ctx, query)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("decipher.success", res.Success),
		attribute.String("decipher.method", string(res.Method)),
		attribute.Bool("decipher.needs_validation", res.NeedsValidation),
	)
	return res, nil
}

// Confirm applies a user's choice for one uncertain word, learns it,
// and re-emits the completed result. selectionIndex addresses
// Result.WordValidations from the preceding Decipher call.
func (p *Pipeline) Confirm(ctx context.Context, query string, selectionIndex int, selectedHebrew string) (*Result, error) {
	ctx, span := decipherTracer.Start(ctx, "decipher.Confirm")
	defer span.End()

	res, phrases, err := p.decipher(ctx, query)
	if err != nil {
		return nil, err
	}
	if selectionIndex < 0 || selectionIndex >= len(res.WordValidations) {
		res.Success = false
		res.Method = MethodFailed
		res.Message = fmt.Sprintf("selection index %d out of range", selectionIndex)
		return res, nil
	}
	if selectedHebrew == "" {
		selectedHebrew = res.WordValidations[selectionIndex].BestHebrew
	}

	target := res.WordValidations[selectionIndex].Original
	if err := p.dict.Record(target, selectedHebrew, SourceUserConfirmed); err != nil {
		slog.Warn("recording confirmed mapping failed", "word", target, "error", err)
	}

	// Substitute into the flat list and the phrase structure.
	res.WordValidations[selectionIndex].BestHebrew = selectedHebrew
	res.WordValidations[selectionIndex].Confidence = ConfidenceHigh
	res.WordValidations[selectionIndex].NeedsValidation = false
	flat := 0
	for pi := range phrases {
		for wi := range phrases[pi] {
			if flat == selectionIndex {
				phrases[pi][wi].BestHebrew = selectedHebrew
				phrases[pi][wi].NeedsValidation = false
				phrases[pi][wi].Confidence = ConfidenceHigh
			}
			flat++
		}
	}

	finalizeResult(res, phrases)
	return res, nil
}

// Reject discards the proposed variants for a query. Nothing is
// learned; the caller rephrases.
func (p *Pipeline) Reject(query string) {
	slog.Info("decipher variants rejected", "query", query)
}

// decipher runs the full pipeline, returning the result plus the
// per-phrase validation structure used by Confirm.
func (p *Pipeline) decipher(ctx context.Context, query string) (*Result, [][]WordValidation, error) {
	norm := NormalizeQuery(query)
	res := &Result{OriginalQuery: query, ExtractionConfident: true}

	if norm == "" {
		res.Method = MethodFailed
		res.Confidence = ConfidenceLow
		res.Message = "empty query"
		return res, nil, nil
	}

	// Pure Hebrew passes through untouched.
	if IsHebrew(norm) {
		res.Success = true
		res.HebrewTerm = norm
		res.HebrewTerms = []string{norm}
		res.Confidence = ConfidenceHigh
		res.Method = MethodPassthrough
		return res, nil, nil
	}

	cls := p.classify(norm)
	if cls.pureEnglish {
		res.Success = true
		res.IsPureEnglish = true
		res.Confidence = ConfidenceLow
		res.Method = MethodPassthrough
		res.Message = "no transliterated terms detected; downstream search will use a broad scan"
		return res, nil, nil
	}
	res.IsMixedQuery = cls.mixed
	res.ExtractionConfident = cls.confident

	if len(cls.phrases) == 0 {
		res.Method = MethodFailed
		res.Confidence = ConfidenceLow
		res.Message = "no transliterated phrases could be extracted"
		return res, nil, nil
	}

	phrases := make([][]WordValidation, 0, len(cls.phrases))
	usedRules := false
	for _, phrase := range cls.phrases {
		words, phraseUsedRules, err := p.decipherPhrase(ctx, phrase)
		if err != nil {
			return nil, nil, err
		}
		usedRules = usedRules || phraseUsedRules
		phrases = append(phrases, words)
	}

	switch {
	case cls.mixed:
		res.Method = MethodMixedExtraction
	case usedRules:
		res.Method = MethodRules
	default:
		res.Method = MethodDictionary
	}

	finalizeResult(res, phrases)
	return res, phrases, nil
}

// decipherPhrase resolves one extracted phrase word-by-word.
func (p *Pipeline) decipherPhrase(ctx context.Context, phrase string) ([]WordValidation, bool, error) {
	var words []WordValidation
	usedRules := false

	for _, sp := range p.dict.LookupAll(phrase) {
		if sp.Matched {
			words = append(words, WordValidation{
				Original:   sp.Words,
				BestHebrew: sp.Hebrew,
				Confidence: ConfidenceHigh,
			})
			continue
		}
		for _, word := range strings.Fields(sp.Words) {
			if ContainsHebrew(word) {
				words = append(words, WordValidation{
					Original:   word,
					BestHebrew: word,
					Confidence: ConfidenceHigh,
				})
				continue
			}
			usedRules = true
			wv, err := p.decipherWord(ctx, word)
			if err != nil {
				return nil, false, err
			}
			words = append(words, wv)
		}
	}
	return words, usedRules, nil
}

// decipherWord runs rules plus corpus validation for one token.
func (p *Pipeline) decipherWord(ctx context.Context, word string) (WordValidation, error) {
	wv := WordValidation{Original: word, Confidence: ConfidenceLow}

	variants := p.engine.Variants(word)
	if len(variants) == 0 {
		wv.NeedsValidation = true
		return wv, nil
	}

	validated, err := p.validator.Validate(ctx, word, variants)
	if err != nil {
		return wv, err
	}
	if len(validated) == 0 {
		wv.NeedsValidation = true
		return wv, nil
	}

	top := validated[0]
	wv.BestHebrew = top.Hebrew
	wv.RulesFired = top.Rules
	wv.HitCount = top.Hits
	for _, alt := range validated[1:] {
		wv.Alternatives = append(wv.Alternatives, alt.Hebrew)
	}

	switch {
	case top.Confidence >= highConfidence || top.FromException || top.IsAuthor:
		wv.Confidence = ConfidenceHigh
	case top.Confidence >= mediumConfidence:
		wv.Confidence = ConfidenceMedium
		wv.NeedsValidation = true
	default:
		wv.Confidence = ConfidenceLow
		wv.NeedsValidation = true
	}
	return wv, nil
}

// =============================================================================
// Classification & Extraction
// =============================================================================

type classification struct {
	mixed       bool
	pureEnglish bool
	confident   bool
	phrases     []string
}

// classify buckets a normalized query and extracts candidate
// transliterated phrases. Author tokens are lexical anchors: they are
// never retransliterated and never join a phrase.
func (p *Pipeline) classify(norm string) classification {
	tokens := strings.Fields(norm)
	markers := 0
	translit := 0
	for _, tok := range tokens {
		switch {
		case englishMarkers[tok]:
			markers++
		case p.looksTransliterated(tok):
			translit++
		}
	}

	cls := classification{confident: true}
	if markers >= 3 && translit == 0 {
		cls.pureEnglish = true
		return cls
	}
	cls.mixed = markers > 0

	// Contiguous runs of non-marker, non-author tokens form phrases.
	var current []string
	flush := func() {
		if len(current) > 0 {
			cls.phrases = append(cls.phrases, strings.Join(current, " "))
			current = nil
		}
	}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if englishMarkers[tok] {
			flush()
			continue
		}
		// Two-token author surfaces first ("magen avraham").
		if i+1 < len(tokens) {
			if _, ok := p.kb.Matches(tok + " " + tokens[i+1]); ok {
				flush()
				i++
				continue
			}
		}
		if _, ok := p.kb.Matches(tok); ok {
			flush()
			continue
		}
		if cls.mixed && !p.looksTransliterated(tok) && !ContainsHebrew(tok) {
			// Unrecognized token folded into a phrase on a guess.
			cls.confident = false
		}
		current = append(current, tok)
	}
	flush()
	return cls
}

// looksTransliterated reports whether a token shows transliteration
// patterns: a dictionary or exception hit, Hebrew script, a
// characteristic digraph, or an internal apostrophe.
func (p *Pipeline) looksTransliterated(tok string) bool {
	if ContainsHebrew(tok) {
		return true
	}
	if _, ok := p.dict.Lookup(tok); ok {
		return true
	}
	if _, ok := exceptions[tok]; ok {
		return true
	}
	if _, ok := p.kb.Matches(tok); ok {
		return true
	}
	for _, dg := range []string{"ch", "tz", "ts", "kh", "sh"} {
		if strings.Contains(tok, dg) {
			return true
		}
	}
	return strings.Contains(tok, "'")
}

// finalizeResult derives the top-level fields from the per-phrase
// validations.
func finalizeResult(res *Result, phrases [][]WordValidation) {
	res.HebrewTerms = res.HebrewTerms[:0]
	res.WordValidations = res.WordValidations[:0]
	res.NeedsValidation = false
	failed := ""
	worst := ConfidenceHigh

	for _, words := range phrases {
		var parts []string
		for _, wv := range words {
			res.WordValidations = append(res.WordValidations, wv)
			if wv.BestHebrew == "" {
				failed = wv.Original
				continue
			}
			parts = append(parts, wv.BestHebrew)
			if wv.NeedsValidation {
				res.NeedsValidation = true
			}
			worst = worse(worst, wv.Confidence)
		}
		if len(parts) > 0 {
			res.HebrewTerms = append(res.HebrewTerms, strings.Join(parts, " "))
		}
	}

	if failed != "" {
		res.Success = false
		res.Method = MethodFailed
		res.Confidence = ConfidenceLow
		res.Message = fmt.Sprintf("no corpus-validated rendering for %q", failed)
		return
	}
	if len(res.HebrewTerms) == 0 {
		res.Success = false
		res.Method = MethodFailed
		res.Confidence = ConfidenceLow
		res.Message = "nothing deciphered"
		return
	}

	res.Success = true
	res.HebrewTerm = res.HebrewTerms[0]
	res.Confidence = worst
	if res.NeedsValidation && worst == ConfidenceHigh {
		res.Confidence = ConfidenceMedium
	}
	if res.NeedsValidation {
		res.Message = "some words need confirmation; see word_validations"
	}
}

func worse(a, b Confidence) Confidence {
	rank := map[Confidence]int{ConfidenceHigh: 0, ConfidenceMedium: 1, ConfidenceLow: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
