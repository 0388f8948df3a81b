// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search is the citation-archaeology stage: locate the
// codified discussions of a topic, validate the underlying sugyos,
// trickle through the citation graph, and fetch and group the texts.
package search

import (
	"strings"

	"github.com/AleutianAI/Mekoros/services/authors"
	"github.com/AleutianAI/Mekoros/services/understand"
)

// Level is the source-level enum. The declaration order is the
// display and grouping order, earliest layer first.
type Level string

const (
	LevelChumash       Level = "chumash"
	LevelMishnah       Level = "mishnah"
	LevelGemara        Level = "gemara"
	LevelRashi         Level = "rashi"
	LevelTosfos        Level = "tosfos"
	LevelRishonim      Level = "rishonim"
	LevelRambam        Level = "rambam"
	LevelTur           Level = "tur"
	LevelShulchanAruch Level = "shulchan-aruch"
	LevelNoseiKeilim   Level = "nosei-keilim"
	LevelAcharonim     Level = "acharonim"
	LevelOther         Level = "other"
)

// LevelOrder is the total order over levels.
var LevelOrder = []Level{
	LevelChumash, LevelMishnah, LevelGemara, LevelRashi, LevelTosfos,
	LevelRishonim, LevelRambam, LevelTur, LevelShulchanAruch,
	LevelNoseiKeilim, LevelAcharonim, LevelOther,
}

var levelRank = func() map[Level]int {
	m := make(map[Level]int, len(LevelOrder))
	for i, l := range LevelOrder {
		m[l] = i
	}
	return m
}()

// Rank returns the level's position in the total order. Unknown
// values rank as other.
func (l Level) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return levelRank[LevelOther]
}

// Valid reports membership in the closed set.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// DepthCap returns the per-level source cap for a traversal depth.
func DepthCap(d understand.Depth) int {
	switch d {
	case understand.DepthBasic:
		return 3
	case understand.DepthDeep:
		return 15
	default:
		return 7
	}
}

// refLevelPrefixes maps leading work names in a canonical ref to a
// level. Checked before the author KB because refs are more specific
// than surface names.
var refLevelPrefixes = []struct {
	prefix string
	level  Level
}{
	{"rashi on ", LevelRashi},
	{"tosafot on ", LevelTosfos},
	{"mishneh torah", LevelRambam},
	{"rambam", LevelRambam},
	{"tur ", LevelTur},
	{"tur,", LevelTur},
	{"shulchan arukh", LevelShulchanAruch},
	{"shulchan aruch", LevelShulchanAruch},
	{"siftei kohen", LevelNoseiKeilim},
	{"turei zahav", LevelNoseiKeilim},
	{"magen avraham", LevelNoseiKeilim},
	{"mishnah berurah", LevelAcharonim},
	{"mishnah ", LevelMishnah},
	{"genesis", LevelChumash},
	{"exodus", LevelChumash},
	{"leviticus", LevelChumash},
	{"numbers", LevelChumash},
	{"deuteronomy", LevelChumash},
}

// LevelForRef assigns a level to a canonical ref: commentary-work
// prefixes first, then the author KB via the ref's leading token run,
// then tractate+daf shape (gemara), then other.
func LevelForRef(ref string, kb *authors.KB) Level {
	lower := strings.ToLower(strings.TrimSpace(ref))
	for _, p := range refLevelPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return p.level
		}
	}

	// "Ketzot HaChoshen 34:1" style: the work head may be an author
	// surface form.
	if head, _, found := strings.Cut(lower, " on "); found {
		if key, ok := kb.Matches(head); ok {
			return Level(kb.Level(key))
		}
	}
	head := strings.TrimRight(lower, " 0123456789:ab.,-")
	if key, ok := kb.Matches(head); ok {
		return Level(kb.Level(key))
	}

	if isDafRef(lower) {
		return LevelGemara
	}
	return LevelOther
}

// LevelForAuthor maps an author key to its level.
func LevelForAuthor(key string, kb *authors.KB) Level {
	return Level(kb.Level(key))
}

// isDafRef reports the tractate+daf citation shape: a name followed
// by digits and an amud letter ("Pesachim 4b", "Bava Metzia 21b").
func isDafRef(lower string) bool {
	fields := strings.Fields(lower)
	if len(fields) < 2 {
		return false
	}
	last := fields[len(fields)-1]
	if len(last) < 2 {
		return false
	}
	side := last[len(last)-1]
	if side != 'a' && side != 'b' {
		return false
	}
	for _, c := range last[:len(last)-1] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
