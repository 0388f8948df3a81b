// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package decipher converts Latin-script transliterations of Hebrew
// and Aramaic into validated Hebrew strings.
//
// The pipeline is: word dictionary lookup, then the rules engine for
// uncovered spans, then corpus validation of the candidates, then an
// optional user-confirmation round for uncertain words. Confirmed
// mappings are learned back into the dictionary.
package decipher

// Confidence is the closed confidence set shared across the pipeline.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Method tags how a DecipherResult was produced.
type Method string

const (
	MethodDictionary      Method = "dictionary"
	MethodRules           Method = "rules"
	MethodMixedExtraction Method = "mixed-extraction"
	MethodPassthrough     Method = "passthrough"
	MethodFailed          Method = "failed"
)

// Variant is one candidate Hebrew rendering of a transliterated word.
type Variant struct {
	// Hebrew is the candidate string.
	Hebrew string `json:"hebrew"`

	// Rules lists the detector rules that fired to produce it.
	Rules []string `json:"rules,omitempty"`

	// Confidence is the product of the fired patterns' confidences,
	// in [0,1].
	Confidence float64 `json:"confidence"`

	// FromException marks variants produced by the hand-curated
	// short-token exception map rather than the detectors.
	FromException bool `json:"from_exception,omitempty"`
}

// WordValidation reports the validation outcome for one input token.
type WordValidation struct {
	// Original is the input token.
	Original string `json:"original"`

	// BestHebrew is the top validated candidate, empty when nothing
	// validated.
	BestHebrew string `json:"best_hebrew"`

	// Alternatives are further validated candidates, best-first.
	Alternatives []string `json:"alternatives,omitempty"`

	// Confidence grades the match.
	Confidence Confidence `json:"confidence"`

	// NeedsValidation asks the user to confirm or pick an
	// alternative.
	NeedsValidation bool `json:"needs_validation"`

	// RulesFired lists the detector rules behind BestHebrew.
	RulesFired []string `json:"rules_fired,omitempty"`

	// HitCount is the corpus hit count backing BestHebrew.
	HitCount int `json:"hit_count"`
}

// Result is the outcome of one decipher request.
type Result struct {
	Success bool `json:"success"`

	// HebrewTerm is the single best phrase.
	HebrewTerm string `json:"hebrew_term"`

	// HebrewTerms preserves multi-topic queries (e.g. comparisons)
	// as separate phrases. Always contains HebrewTerm first when
	// non-empty.
	HebrewTerms []string `json:"hebrew_terms"`

	Confidence Confidence `json:"confidence"`
	Method     Method     `json:"method"`

	// IsMixedQuery marks queries mixing English scaffolding with
	// transliterated terms.
	IsMixedQuery bool `json:"is_mixed_query"`

	// IsPureEnglish marks queries with no transliteration at all;
	// HebrewTerms is empty and downstream falls back to broad scan.
	IsPureEnglish bool `json:"is_pure_english,omitempty"`

	OriginalQuery string `json:"original_query"`

	// ExtractionConfident is false when the mixed-query phrase
	// extraction was heuristic.
	ExtractionConfident bool `json:"extraction_confident"`

	// NeedsValidation asks the caller to run the confirmation round.
	NeedsValidation bool `json:"needs_validation,omitempty"`

	// WordValidations carries the per-word payload for the
	// confirmation round.
	WordValidations []WordValidation `json:"word_validations,omitempty"`

	Message string `json:"message,omitempty"`
}
