// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/Mekoros/services/decipher"
	"github.com/AleutianAI/Mekoros/services/search"
)

func TestRenderSearchGroupsByLevelInOrder(t *testing.T) {
	res := &search.Result{
		OriginalQuery: "chezkas haguf",
		HebrewTerms:   []string{"חזקת הגוף"},
		PrimaryRef:    "Ketubot 75b",
		SourcesByLevel: map[search.Level][]search.Source{
			search.LevelShulchanAruch: {{Ref: "Shulchan Arukh, Even HaEzer 117:1", Level: search.LevelShulchanAruch}},
			search.LevelGemara:        {{Ref: "Ketubot 75b", Level: search.LevelGemara, HebrewText: "חזקת הגוף"}},
			search.LevelRashi:         {{Ref: "Rashi on Ketubot 75b", Level: search.LevelRashi}},
		},
		TotalSources: 3,
		Confidence:   "high",
	}

	out := renderSearch(res)

	assert.Contains(t, out, "Ketubot 75b")
	assert.Contains(t, out, "Gemara")
	assert.Contains(t, out, "Rashi")
	assert.Contains(t, out, "Shulchan Aruch")
	assert.Contains(t, out, "3 sources")

	// Earlier layers render before later ones.
	gemara := strings.Index(out, "Gemara")
	rashi := strings.Index(out, "Rashi on Ketubot")
	sa := strings.Index(out, "Shulchan Aruch")
	assert.Less(t, gemara, rashi)
	assert.Less(t, rashi, sa)
}

func TestRenderSearchClarification(t *testing.T) {
	res := &search.Result{
		OriginalQuery:       "hilchos treifos",
		NeedsClarification:  true,
		QueryID:             "0b38a2a5-7a43-4a8f-9c56-0a43d1a0e2af",
		ClarificationPrompt: "Which discussion did you mean?",
		ClarificationOptions: []search.ClarifyOption{
			{ID: "opt-0", Label: "Chullin 42a", Ref: "Chullin 42a"},
			{ID: "opt-1", Label: "Yoreh De'ah 29", Ref: "Shulchan Arukh, Yoreh De'ah 29"},
		},
	}

	out := renderSearch(res)

	assert.Contains(t, out, "Which discussion did you mean?")
	assert.Contains(t, out, "opt-0")
	assert.Contains(t, out, "Chullin 42a")
	assert.Contains(t, out, res.QueryID)
	// No source groups on the clarification path.
	assert.NotContains(t, out, "sources · confidence")
}

func TestRenderSearchComparisonUsesTermGroups(t *testing.T) {
	res := &search.Result{
		OriginalQuery: "chezkas haguf vs chezkas mamon",
		SourcesByTerm: map[string][]search.Source{
			"חזקת הגוף": {{Ref: "Ketubot 75b", Level: search.LevelGemara}},
			"חזקת ממון": {{Ref: "Bava Kamma 46a", Level: search.LevelGemara}},
		},
		TotalSources: 2,
		Confidence:   "high",
	}

	out := renderSearch(res)

	assert.Contains(t, out, "חזקת הגוף")
	assert.Contains(t, out, "חזקת ממון")
	assert.Contains(t, out, "Ketubot 75b")
	assert.Contains(t, out, "Bava Kamma 46a")
}

func TestRenderDecipherFlagsUnconfirmedWords(t *testing.T) {
	res := &decipher.Result{
		Success:         true,
		OriginalQuery:   "goral",
		HebrewTerm:      "גורל",
		HebrewTerms:     []string{"גורל"},
		Confidence:      decipher.ConfidenceMedium,
		Method:          decipher.MethodRules,
		NeedsValidation: true,
		WordValidations: []decipher.WordValidation{{
			Original:        "goral",
			BestHebrew:      "גורל",
			Alternatives:    []string{"גרל"},
			NeedsValidation: true,
		}},
	}

	out := renderDecipher(res)

	assert.Contains(t, out, "גורל")
	assert.Contains(t, out, "unconfirmed")
	assert.Contains(t, out, "גרל")
}

func TestRenderDecipherFailure(t *testing.T) {
	res := &decipher.Result{
		Success:       false,
		OriginalQuery: "tzviliok",
		Message:       "no candidate validated against the corpus",
	}

	out := renderDecipher(res)

	assert.Contains(t, out, "Could not decipher")
	assert.Contains(t, out, "tzviliok")
	assert.Contains(t, out, "no candidate validated")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "אבג…", truncateRunes("אבגדה", 3))
	assert.Equal(t, "trimmed", truncateRunes("  trimmed  ", 10))
}
