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

import "strings"

// KnownSugya is one entry of the deterministic shortcut table:
// canonical topics whose anchors are settled and need no LLM.
type KnownSugya struct {
	// Key is the canonical topic identifier.
	Key string

	// TranslitKeys are transliteration phrases that select this entry.
	// Matching is word-boundary safe: every word of a key must appear
	// as a whole consecutive token run in the query.
	TranslitKeys []string

	// HebrewTerms select this entry on exact Hebrew term equality.
	HebrewTerms []string

	// PrimaryRefs are the anchor references, best-first.
	PrimaryRefs []string

	// KeyTerms are additional Hebrew search terms for the topic.
	KeyTerms []string

	// Importance feeds related-sugya annotations.
	Importance string
}

var knownSugyos = []KnownSugya{
	{
		Key:          "chezkas-haguf",
		TranslitKeys: []string{"chezkas haguf", "chezkat haguf"},
		HebrewTerms:  []string{"חזקת הגוף"},
		PrimaryRefs:  []string{"Ketubot 75b", "Ketubot 76a"},
		KeyTerms:     []string{"חזקת הגוף", "העמד הגוף על חזקתו"},
		Importance:   ImportanceCritical,
	},
	{
		Key:          "chezkas-mamon",
		TranslitKeys: []string{"chezkas mamon", "chezkas mammon", "chezkat mamon"},
		HebrewTerms:  []string{"חזקת ממון"},
		PrimaryRefs:  []string{"Bava Kamma 46a", "Bava Metzia 2b"},
		KeyTerms:     []string{"חזקת ממון", "המוציא מחבירו עליו הראיה"},
		Importance:   ImportanceCritical,
	},
	{
		Key:          "bedikas-chometz",
		TranslitKeys: []string{"bedikas chometz", "bedikat chametz"},
		HebrewTerms:  []string{"בדיקת חמץ"},
		PrimaryRefs:  []string{"Pesachim 2a", "Pesachim 4a"},
		KeyTerms:     []string{"בדיקת חמץ", "אור לארבעה עשר"},
		Importance:   ImportanceCritical,
	},
	{
		Key:          "mukas-etz",
		TranslitKeys: []string{"mukas etz", "mukat etz"},
		HebrewTerms:  []string{"מוכת עץ"},
		PrimaryRefs:  []string{"Ketubot 11a", "Ketubot 13a"},
		KeyTerms:     []string{"מוכת עץ"},
		Importance:   ImportanceImportant,
	},
	{
		Key:          "yeush",
		TranslitKeys: []string{"yeush shelo midaas", "yeush"},
		HebrewTerms:  []string{"יאוש", "יאוש שלא מדעת"},
		PrimaryRefs:  []string{"Bava Metzia 21b"},
		KeyTerms:     []string{"יאוש שלא מדעת", "אביי ורבא"},
		Importance:   ImportanceCritical,
	},
	{
		Key:          "migo",
		TranslitKeys: []string{"migo", "miggo"},
		HebrewTerms:  []string{"מיגו", "מגו"},
		PrimaryRefs:  []string{"Bava Metzia 2a", "Ketubot 16a"},
		KeyTerms:     []string{"מיגו", "מה לי לשקר"},
		Importance:   ImportanceImportant,
	},
	{
		Key:          "gud-achvis",
		TranslitKeys: []string{"gud achvis", "gud asik"},
		HebrewTerms:  []string{"גוד אחית", "גוד אסיק"},
		PrimaryRefs:  []string{"Eruvin 4b", "Sukkah 4b"},
		KeyTerms:     []string{"גוד אחית מחיצתא", "גוד אסיק מחיצתא"},
		Importance:   ImportanceImportant,
	},
	{
		Key:          "bari-veshema",
		TranslitKeys: []string{"bari veshema", "bari v'shema"},
		HebrewTerms:  []string{"ברי ושמא"},
		PrimaryRefs:  []string{"Ketubot 12b", "Bava Kamma 118a"},
		KeyTerms:     []string{"ברי ושמא", "ברי עדיף"},
		Importance:   ImportanceImportant,
	},
}

// MatchKnownSugya finds the table entry selected by a query and its
// deciphered Hebrew terms. Transliteration matching word-tokenizes
// both sides; substring matches across word boundaries never fire.
func MatchKnownSugya(normQuery string, hebrewTerms []string) (*KnownSugya, bool) {
	for i := range knownSugyos {
		e := &knownSugyos[i]
		for _, term := range hebrewTerms {
			for _, known := range e.HebrewTerms {
				if term == known {
					return e, true
				}
			}
		}
		queryTokens := strings.Fields(normQuery)
		for _, key := range e.TranslitKeys {
			if containsTokenRun(queryTokens, strings.Fields(key)) {
				return e, true
			}
		}
	}
	return nil, false
}

// containsTokenRun reports whether tokens contains run as a
// consecutive whole-token subsequence.
func containsTokenRun(tokens, run []string) bool {
	if len(run) == 0 || len(run) > len(tokens) {
		return false
	}
	for i := 0; i+len(run) <= len(tokens); i++ {
		match := true
		for j, w := range run {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
