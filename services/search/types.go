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

	"github.com/AleutianAI/Mekoros/services/corpus"
)

// CorpusClient is the corpus surface SEARCH consumes.
type CorpusClient interface {
	Search(ctx context.Context, hebrewTerm string, opts corpus.SearchOptions) (*corpus.SearchResult, error)
	GetText(ctx context.Context, ref string) (*corpus.TextResult, error)
	GetRelated(ctx context.Context, ref string) (*corpus.RelatedResult, error)
}

// Source is one retrieved text record.
type Source struct {
	Ref         string `json:"ref"`
	HebrewLabel string `json:"hebrew_label,omitempty"`
	AuthorKey   string `json:"author_key,omitempty"`
	Level       Level  `json:"level"`
	HebrewText  string `json:"hebrew_text"`
	EnglishText string `json:"english_text,omitempty"`
	CharCount   int    `json:"char_count"`
}

// ClarifyOption is one concrete choice offered to the user.
type ClarifyOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Ref   string `json:"ref,omitempty"`
}

// Result is the final grouped output of one search request.
type Result struct {
	OriginalQuery string   `json:"original_query"`
	HebrewTerms   []string `json:"hebrew_terms"`
	PrimaryRef    string   `json:"primary_ref"`

	Sources        []Source           `json:"sources"`
	SourcesByLevel map[Level][]Source `json:"sources_by_level"`

	// SourcesByTerm is populated for comparison queries, keyed by
	// comparison term. The per-term sets partition Sources.
	SourcesByTerm map[string][]Source `json:"sources_by_term,omitempty"`

	TotalSources  int     `json:"total_sources"`
	LevelsPresent []Level `json:"levels_present"`

	Interpretation string `json:"interpretation,omitempty"`
	Confidence     string `json:"confidence"`

	NeedsClarification   bool            `json:"needs_clarification"`
	QueryID              string          `json:"query_id,omitempty"`
	ClarificationPrompt  string          `json:"clarification_prompt,omitempty"`
	ClarificationOptions []ClarifyOption `json:"clarification_options,omitempty"`

	Message string `json:"message,omitempty"`
}

// plannedRef is one reference scheduled for fetching.
type plannedRef struct {
	Ref       string
	AuthorKey string
	Level     Level

	// Anchor refs are fatal when every one of them fails to fetch.
	Anchor bool
}
