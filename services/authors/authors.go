// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package authors is the static knowledge base of rabbinic authors:
// canonical keys, name variations and acronyms, eras, works, corpus
// reference prefixes, and authority levels.
//
// The KB is built once at startup and immutable afterwards, so reads
// need no locking. Surface forms are deduplicated at build time; a
// form claimed by two authors resolves toward the earlier era and the
// conflict is logged.
package authors

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

// Era buckets authors chronologically. Ordering matters only for
// surface-form conflict resolution (earlier era wins).
const (
	EraTannaim   = "tannaim"
	EraAmoraim   = "amoraim"
	EraGeonim    = "geonim"
	EraRishonim  = "rishonim"
	EraAcharonim = "acharonim"
)

var eraRank = map[string]int{
	EraTannaim:   0,
	EraAmoraim:   1,
	EraGeonim:    2,
	EraRishonim:  3,
	EraAcharonim: 4,
}

// Author is one catalog entry.
type Author struct {
	// Key is the canonical lowercase identifier ("rashi", "rambam").
	Key string

	// PrimaryName is the author's name in Hebrew script.
	PrimaryName string

	// Variations are the surface forms that resolve to this author:
	// common spellings, acronyms (punctuation-insensitive), and work
	// titles used metonymically.
	Variations []string

	// Era is one of the Era constants.
	Era string

	// Region is the author's main region of activity.
	Region string

	// Works lists the author's principal works.
	Works []string

	// RefPrefix builds corpus refs for commentary works:
	// "Rashi on" + " Pesachim 4b". Empty for authors whose works are
	// cited standalone (codes).
	RefPrefix string

	// Level is the authority level used by result grouping. Values
	// follow the source-level enum ("rashi", "rishonim", ...).
	Level string
}

// KB is the immutable authors knowledge base.
type KB struct {
	byKey     map[string]*Author
	bySurface map[string]string
}

// NewKB builds the KB from the builtin catalog.
func NewKB() *KB {
	return newKBFrom(builtinAuthors)
}

func newKBFrom(catalog []Author) *KB {
	kb := &KB{
		byKey:     make(map[string]*Author, len(catalog)),
		bySurface: make(map[string]string),
	}
	for i := range catalog {
		a := &catalog[i]
		kb.byKey[a.Key] = a

		surfaces := append([]string{a.Key, a.PrimaryName}, a.Variations...)
		for _, surface := range surfaces {
			norm := NormalizeSurface(surface)
			if norm == "" {
				continue
			}
			existing, taken := kb.bySurface[norm]
			if !taken {
				kb.bySurface[norm] = a.Key
				continue
			}
			if existing == a.Key {
				continue
			}
			// Conflict: keep the earlier era.
			prev := kb.byKey[existing]
			if eraRank[a.Era] < eraRank[prev.Era] {
				kb.bySurface[norm] = a.Key
			}
			slog.Warn("duplicate author surface form",
				"surface", norm,
				"kept", kb.bySurface[norm],
				"dropped", pickOther(kb.bySurface[norm], existing, a.Key),
			)
		}
	}
	return kb
}

func pickOther(kept, a, b string) string {
	if kept == a {
		return b
	}
	return a
}

// NormalizeSurface lowercases a surface form, strips punctuation
// (acronym periods, quote marks, geresh), and collapses whitespace.
func NormalizeSurface(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			sb.WriteRune(' ')
		}
		// Periods, apostrophes, gershayim are dropped entirely so
		// 'maharsh"a' and "maharsha" collide.
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// IsAuthor reports whether token resolves to a known author.
func (kb *KB) IsAuthor(token string) bool {
	_, ok := kb.Matches(token)
	return ok
}

// Matches resolves a surface form to its author key.
func (kb *KB) Matches(token string) (string, bool) {
	key, ok := kb.bySurface[NormalizeSurface(token)]
	return key, ok
}

// Get returns the catalog entry for a key.
func (kb *KB) Get(key string) (*Author, bool) {
	a, ok := kb.byKey[key]
	return a, ok
}

// Level returns the authority level for a key, or "other" when the
// key is unknown.
func (kb *KB) Level(key string) string {
	if a, ok := kb.byKey[key]; ok && a.Level != "" {
		return a.Level
	}
	return "other"
}

// Disambiguate resolves a token that may name several authors, using
// surrounding query text as a hint: when the token itself is
// ambiguous, an author whose work title appears in the context wins.
func (kb *KB) Disambiguate(token, context string) (string, bool) {
	key, ok := kb.Matches(token)
	if !ok {
		return "", false
	}
	normCtx := NormalizeSurface(context)
	if normCtx == "" {
		return key, true
	}
	a := kb.byKey[key]
	for _, work := range a.Works {
		if strings.Contains(normCtx, NormalizeSurface(work)) {
			return key, true
		}
	}
	return key, true
}

// CorpusRef builds the canonical corpus reference for an author's
// commentary on baseRef ("rashi", "Pesachim 4b" -> "Rashi on
// Pesachim 4b"). Returns false for authors without a commentary
// prefix.
func (kb *KB) CorpusRef(key, baseRef string) (string, bool) {
	a, ok := kb.byKey[key]
	if !ok || a.RefPrefix == "" {
		return "", false
	}
	return fmt.Sprintf("%s %s", a.RefPrefix, strings.TrimSpace(baseRef)), true
}

// DetectInText scans free text and returns the author keys whose
// surface forms appear as whole tokens, in order of first appearance,
// deduplicated.
func (kb *KB) DetectInText(text string) []string {
	tokens := strings.Fields(NormalizeSurface(text))
	var keys []string
	seen := make(map[string]bool)

	// Two-token window first so "magen avraham" beats "avraham".
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) {
			if key, ok := kb.bySurface[tokens[i]+" "+tokens[i+1]]; ok && !seen[key] {
				seen[key] = true
				keys = append(keys, key)
				i++
				continue
			}
		}
		if key, ok := kb.bySurface[tokens[i]]; ok && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// Keys returns all author keys. Order is unspecified.
func (kb *KB) Keys() []string {
	keys := make([]string, 0, len(kb.byKey))
	for k := range kb.byKey {
		keys = append(keys, k)
	}
	return keys
}
