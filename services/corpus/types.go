// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package corpus is the client for the external Jewish-texts corpus API.
//
// The corpus exposes four read-only operations: full-text search, text
// fetch by canonical reference, related-link enumeration, and name
// disambiguation. All calls are cached in the corpus-texts file cache,
// rate limited, and retried on transient failures.
//
// The upstream wire formats are loose: hits.total is sometimes an int
// and sometimes {"value": n}, and text bodies arrive as a string, a
// list, or a nested list. The decode types in this file absorb those
// shapes so callers only ever see flat strings and ints.
package corpus

import (
	"encoding/json"
	"strings"
	"unicode"
)

// =============================================================================
// Public Result Types
// =============================================================================

// SearchOptions tunes one Search call.
type SearchOptions struct {
	// Size is the maximum number of hits requested. Zero means the
	// default (10).
	Size int

	// Filters restricts the search, encoded as the upstream filters
	// JSON object (e.g. {"path": "Halakhah/Shulchan Arukh"}).
	Filters map[string]string
}

// SampleHit is one search hit with its text snippets.
type SampleHit struct {
	Ref        string   `json:"ref"`
	Hebrew     string   `json:"hebrew"`
	English    string   `json:"english"`
	Categories []string `json:"categories"`
}

// SearchResult aggregates one corpus search.
type SearchResult struct {
	TotalHits  int            `json:"total_hits"`
	ByCategory map[string]int `json:"by_category"`
	ByTractate map[string]int `json:"by_tractate"`
	TopRefs    []string       `json:"top_refs"`
	SampleHits []SampleHit    `json:"sample_hits"`
}

// TextResult is one fetched text.
type TextResult struct {
	CanonicalRef string `json:"canonical_ref"`
	Hebrew       string `json:"hebrew"`
	English      string `json:"english"`
}

// RelatedLink is one commentary or citation link on a reference.
type RelatedLink struct {
	Ref      string `json:"ref"`
	Category string `json:"category"`
	Work     string `json:"work,omitempty"`
}

// RelatedResult holds the link neighborhood of a reference.
type RelatedResult struct {
	Commentaries []RelatedLink `json:"commentaries"`
	Links        []RelatedLink `json:"links"`
}

// NameMatch is one disambiguation candidate from the name lookup.
type NameMatch struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	IsRef bool   `json:"is_ref"`
}

// =============================================================================
// Tolerant Wire Decoding
// =============================================================================

// totalCount decodes hits.total whether it is an int or {"value": n}.
type totalCount int

func (t *totalCount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*t = totalCount(n)
		return nil
	}
	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = totalCount(obj.Value)
	return nil
}

// flexText decodes a text body that may be a string, a list of strings,
// or an arbitrarily nested list. Nested segments are flattened
// depth-first and joined with single spaces.
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var parts []string
	collectText(raw, &parts)
	*f = flexText(strings.Join(parts, " "))
	return nil
}

func collectText(node any, out *[]string) {
	switch v := node.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			*out = append(*out, s)
		}
	case []any:
		for _, child := range v {
			collectText(child, out)
		}
	}
}

// searchEnvelope mirrors the upstream /search-wrapper response.
type searchEnvelope struct {
	Hits struct {
		Total totalCount `json:"total"`
		Hits  []struct {
			Source struct {
				Ref        string   `json:"ref"`
				HeText     flexText `json:"he_text"`
				EnText     flexText `json:"en_text"`
				Categories []string `json:"categories"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// textEnvelope mirrors the upstream /texts/<ref> response.
type textEnvelope struct {
	Ref  string   `json:"ref"`
	He   flexText `json:"he"`
	Text flexText `json:"text"`
}

// relatedEnvelope mirrors the upstream /related/<ref> response.
type relatedEnvelope struct {
	Commentaries []relatedWireLink `json:"commentary"`
	Links        []relatedWireLink `json:"links"`
}

type relatedWireLink struct {
	Ref            string `json:"ref"`
	Category       string `json:"category"`
	CollectiveName string `json:"collectiveTitle,omitempty"`
	SourceRef      string `json:"sourceRef,omitempty"`
}

// nameEnvelope mirrors the upstream /name/<token> response.
type nameEnvelope struct {
	Completions []string `json:"completions"`
	IsRef       bool     `json:"is_ref"`
	Ref         string   `json:"ref"`
}

// =============================================================================
// Reference Helpers
// =============================================================================

// TractateOf extracts the work name from a canonical reference by
// trimming the trailing locator ("Pesachim 4b:2" -> "Pesachim",
// "Rashi on Pesachim 4b" -> "Rashi on Pesachim"). Returns the input
// unchanged when no locator is present.
func TractateOf(ref string) string {
	idx := strings.IndexFunc(ref, unicode.IsDigit)
	if idx <= 0 {
		return strings.TrimSpace(ref)
	}
	return strings.TrimSpace(strings.TrimRight(ref[:idx], " ,"))
}
