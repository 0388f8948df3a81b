// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package understand turns deciphered Hebrew terms into a search
// strategy: which references to anchor on, which authors to target,
// how deep to traverse. Deterministic shortcuts (known sugyos, direct
// references) run before the LLM; LLM output is repaired or replaced
// by a fallback when malformed.
package understand

import (
	"fmt"
	"strings"
)

// QueryType classifies what the user is asking for.
type QueryType string

const (
	QueryConcept          QueryType = "concept"
	QuerySugyaReference   QueryType = "sugya-reference"
	QueryAuthorCitation   QueryType = "author-citation"
	QueryComparison       QueryType = "comparison"
	QueryHalachicPractice QueryType = "halachic-practice"
	QueryUnknown          QueryType = "unknown"
)

// FetchStrategy selects the SEARCH traversal mode.
type FetchStrategy string

const (
	FetchTrickleUp   FetchStrategy = "trickle-up"
	FetchTrickleDown FetchStrategy = "trickle-down"
	FetchDirectRef   FetchStrategy = "direct-ref"
	FetchBroadScan   FetchStrategy = "broad-scan"
)

// Depth bounds traversal breadth per source level.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// Confidence grades a strategy.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Related-sugya importance values.
const (
	ImportanceCritical  = "critical"
	ImportanceImportant = "important"
	ImportanceRelated   = "related"
)

// RelatedSugya links a strategy to a neighboring discussion.
type RelatedSugya struct {
	Ref        string `json:"ref"`
	Importance string `json:"importance"`
	Connection string `json:"connection,omitempty"`
}

// Strategy is the UNDERSTAND output consumed by SEARCH.
type Strategy struct {
	QueryType QueryType `json:"query_type"`

	// PrimarySources are canonical references, best-first.
	// PrimarySource mirrors the first element for older consumers.
	PrimarySources []string `json:"primary_sources"`
	PrimarySource  string   `json:"primary_source"`

	TargetAuthors []string       `json:"target_authors,omitempty"`
	RelatedSugyos []RelatedSugya `json:"related_sugyos,omitempty"`

	// ComparisonTerms is populated only for comparison queries.
	ComparisonTerms []string `json:"comparison_terms,omitempty"`

	FetchStrategy FetchStrategy `json:"fetch_strategy"`
	Depth         Depth         `json:"depth"`
	Confidence    Confidence    `json:"confidence"`

	Reasoning string `json:"reasoning,omitempty"`

	ClarificationPrompt  string   `json:"clarification_prompt,omitempty"`
	ClarificationOptions []string `json:"clarification_options,omitempty"`
}

// NeedsClarification reports whether SEARCH should pause for the
// user.
func (s *Strategy) NeedsClarification() bool {
	return s.ClarificationPrompt != ""
}

// Normalize fills derived fields and coerces out-of-set values to
// safe defaults. Call after decoding LLM output.
func (s *Strategy) Normalize() {
	switch s.QueryType {
	case QueryConcept, QuerySugyaReference, QueryAuthorCitation,
		QueryComparison, QueryHalachicPractice:
	default:
		s.QueryType = QueryUnknown
	}
	switch s.FetchStrategy {
	case FetchTrickleUp, FetchTrickleDown, FetchDirectRef:
	default:
		s.FetchStrategy = FetchBroadScan
	}
	switch s.Depth {
	case DepthBasic, DepthDeep:
	default:
		s.Depth = DepthStandard
	}
	switch s.Confidence {
	case ConfidenceHigh, ConfidenceMedium:
	default:
		s.Confidence = ConfidenceLow
	}

	if s.QueryType == QueryComparison && len(s.ComparisonTerms) < 2 {
		s.QueryType = QueryConcept
		s.ComparisonTerms = nil
	}
	if s.FetchStrategy == FetchDirectRef && len(s.PrimarySources) == 0 {
		s.FetchStrategy = FetchBroadScan
	}
	if s.Confidence == ConfidenceLow && s.ClarificationPrompt == "" {
		s.ClarificationPrompt = "The query is ambiguous; which topic did you mean?"
	}

	if len(s.PrimarySources) > 0 {
		s.PrimarySource = s.PrimarySources[0]
	} else {
		s.PrimarySource = ""
	}
}

// Validate checks the strategy invariants, collecting all problems.
func (s *Strategy) Validate() error {
	var problems []string
	if s.QueryType == QueryComparison && len(s.ComparisonTerms) < 2 {
		problems = append(problems, "comparison requires at least two comparison_terms")
	}
	if s.FetchStrategy == FetchDirectRef && len(s.PrimarySources) == 0 {
		problems = append(problems, "direct-ref requires primary_sources")
	}
	if s.Confidence == ConfidenceLow && s.ClarificationPrompt == "" {
		problems = append(problems, "low confidence requires clarification_prompt")
	}
	if len(s.PrimarySources) > 0 && s.PrimarySource != s.PrimarySources[0] {
		problems = append(problems, "primary_source must mirror primary_sources[0]")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid strategy: %s", strings.Join(problems, "; "))
	}
	return nil
}
