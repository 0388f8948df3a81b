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
	"sort"
	"strings"
	"unicode"
)

const (
	// DefaultMaxVariants bounds the candidate list per word.
	DefaultMaxVariants = 15

	// beamWidth bounds the partial products kept while expanding
	// letter choices, so ambiguous words stay cheap.
	beamWidth = 64
)

// Detector rule names, reported in Variant.Rules and
// WordValidation.RulesFired.
const (
	RuleAyinDoubleVowel = "ayin-double-vowel"
	RuleAyinInitial     = "ayin-initial-vowel"
	RuleAramaicAleph    = "aramaic-aleph"
	RuleSmichutTav      = "smichut-tav"
	RuleFeminineHey     = "feminine-hey"
	RuleFinalBet        = "final-bet"
	RuleDoubleConsonant = "double-consonant"
	RulePrefixSplit     = "prefix-split"
	RuleConsonantChoice = "consonant-ambiguity"
	RuleVowelMater      = "vowel-mater"
)

// letterChoice is one candidate Hebrew rendering of a consumed span.
// An empty Hebrew string means the span is silent (an omitted vowel).
type letterChoice struct {
	hebrew string
	rule   string
	conf   float64
}

// hebrewFinals maps regular letter forms to their word-final forms.
var hebrewFinals = map[rune]rune{
	'מ': 'ם',
	'נ': 'ן',
	'צ': 'ץ',
	'פ': 'ף',
	'כ': 'ך',
}

// hebrewPrefixes maps leading particles to their Hebrew prefix letter.
var hebrewPrefixes = map[byte]string{
	'b': "ב",
	'l': "ל",
	'm': "מ",
	'k': "כ",
	'v': "ו",
	'h': "ה",
}

// Engine is the rules-based transliteration engine. Purely
// deterministic; the only non-rule behavior is the hand-curated
// exception map for truly ambiguous short tokens. Safe for concurrent
// use.
type Engine struct {
	maxVariants int
}

// NewEngine creates an Engine. maxVariants <= 0 selects the default.
func NewEngine(maxVariants int) *Engine {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}
	return &Engine{maxVariants: maxVariants}
}

// Variants produces candidate Hebrew renderings of one word,
// best-first. Exception-map hits come first, then generated variants
// ranked by the product of their pattern confidences.
func (e *Engine) Variants(word string) []Variant {
	w := normalizeWord(word)
	if w == "" {
		return nil
	}
	if ContainsHebrew(w) {
		return []Variant{{Hebrew: w, Confidence: 1.0}}
	}

	variants := append([]Variant(nil), exceptionVariants(w)...)
	variants = append(variants, e.generate(w, 1.0, nil)...)

	// Prefix split: a leading particle followed by a consonant is
	// likely b'/l'/m'/k'/v'/h' plus a root.
	if root, prefix, ok := splitPrefix(w); ok {
		for _, v := range e.generate(root, 0.6, []string{RulePrefixSplit}) {
			v.Hebrew = prefix + v.Hebrew
			variants = append(variants, v)
		}
	}

	variants = dedupeVariants(variants)
	sort.SliceStable(variants, func(i, j int) bool {
		if variants[i].FromException != variants[j].FromException {
			return variants[i].FromException
		}
		return variants[i].Confidence > variants[j].Confidence
	})
	if len(variants) > e.maxVariants {
		variants = variants[:e.maxVariants]
	}
	return variants
}

// PhraseVariants renders a multi-word phrase by combining the best
// candidates per word positionally. The i-th variant joins each
// word's i-th candidate (falling back to the word's best).
func (e *Engine) PhraseVariants(phrase string) []Variant {
	words := strings.Fields(normalizeWord(phrase))
	if len(words) == 0 {
		return nil
	}
	if len(words) == 1 {
		return e.Variants(words[0])
	}

	perWord := make([][]Variant, len(words))
	depth := 0
	for i, word := range words {
		perWord[i] = e.Variants(word)
		if len(perWord[i]) == 0 {
			return nil
		}
		if len(perWord[i]) > depth {
			depth = len(perWord[i])
		}
	}
	if depth > e.maxVariants {
		depth = e.maxVariants
	}

	variants := make([]Variant, 0, depth)
	for rank := 0; rank < depth; rank++ {
		parts := make([]string, len(words))
		conf := 1.0
		var rules []string
		for i, candidates := range perWord {
			pick := candidates[0]
			if rank < len(candidates) {
				pick = candidates[rank]
			}
			parts[i] = pick.Hebrew
			conf *= pick.Confidence
			rules = append(rules, pick.Rules...)
		}
		variants = append(variants, Variant{
			Hebrew:     strings.Join(parts, " "),
			Rules:      dedupeStrings(rules),
			Confidence: conf,
		})
	}
	return dedupeVariants(variants)
}

// generate expands one normalized word into ranked variants, scaling
// every confidence by baseConf and tagging extraRules.
func (e *Engine) generate(w string, baseConf float64, extraRules []string) []Variant {
	sets := choiceSets(w)
	if len(sets) == 0 {
		return nil
	}

	type partial struct {
		hebrew string
		rules  []string
		conf   float64
	}
	beam := []partial{{conf: baseConf, rules: extraRules}}

	for _, set := range sets {
		next := make([]partial, 0, len(beam)*len(set))
		for _, p := range beam {
			for _, choice := range set {
				rules := p.rules
				if choice.rule != "" {
					rules = append(append([]string(nil), p.rules...), choice.rule)
				}
				next = append(next, partial{
					hebrew: p.hebrew + choice.hebrew,
					rules:  rules,
					conf:   p.conf * choice.conf,
				})
			}
		}
		sort.SliceStable(next, func(i, j int) bool { return next[i].conf > next[j].conf })
		if len(next) > beamWidth {
			next = next[:beamWidth]
		}
		beam = next
	}

	variants := make([]Variant, 0, len(beam))
	for _, p := range beam {
		if p.hebrew == "" {
			continue
		}
		variants = append(variants, Variant{
			Hebrew:     finalizeHebrew(p.hebrew),
			Rules:      dedupeStrings(p.rules),
			Confidence: p.conf,
		})
	}
	return variants
}

// =============================================================================
// Pattern Detectors
// =============================================================================

// choiceSets tokenizes a normalized Latin word into ordered spans,
// each with its competing Hebrew renderings. Digraphs are consumed
// before singles; doubled consonants collapse; terminal patterns
// (smichut-tav, feminine-hey, aramaic-aleph, final-bet) fire on the
// last span.
func choiceSets(w string) [][]letterChoice {
	var sets [][]letterChoice
	i := 0
	for i < len(w) {
		c := w[i]
		last := i == len(w)-1

		// Apostrophes separate vowels (handled in vowel runs) and
		// mark elisions; standalone they are silent.
		if c == '\'' {
			i++
			continue
		}

		// Doubled consonant reflects a dagesh; collapse to one.
		if !isVowel(c) && i+1 < len(w) && w[i+1] == c {
			single := consonantChoices(c, i+2 == len(w))
			set := make([]letterChoice, 0, len(single))
			for _, choice := range single {
				choice.rule = RuleDoubleConsonant
				choice.conf *= 0.95
				set = append(set, choice)
			}
			sets = append(sets, set)
			i += 2
			continue
		}

		// Digraphs before singles.
		if i+1 < len(w) {
			if set, consumed := digraphChoices(w[i : i+2]); consumed {
				sets = append(sets, set)
				i += 2
				continue
			}
		}

		if isVowel(c) {
			set, consumed := vowelChoices(w, i)
			sets = append(sets, set)
			i += consumed
			continue
		}

		sets = append(sets, consonantChoices(c, last))
		i++
	}
	return sets
}

func digraphChoices(pair string) ([]letterChoice, bool) {
	switch pair {
	case "sh":
		return []letterChoice{{hebrew: "ש", conf: 0.95}}, true
	case "ch":
		return []letterChoice{
			{hebrew: "ח", conf: 0.7},
			{hebrew: "כ", rule: RuleConsonantChoice, conf: 0.5},
		}, true
	case "kh":
		return []letterChoice{{hebrew: "כ", conf: 0.85}}, true
	case "tz", "ts":
		return []letterChoice{{hebrew: "צ", conf: 0.9}}, true
	case "th":
		return []letterChoice{{hebrew: "ת", conf: 0.85}}, true
	case "ck":
		return []letterChoice{{hebrew: "ק", conf: 0.85}}, true
	}
	return nil, false
}

// vowelChoices consumes a run of vowels (and internal apostrophes)
// starting at i and returns its renderings plus the consumed length.
func vowelChoices(w string, i int) ([]letterChoice, int) {
	run := 1
	for i+run < len(w) && (isVowel(w[i+run]) || (w[i+run] == '\'' && i+run+1 < len(w) && isVowel(w[i+run+1]))) {
		run++
	}
	terminal := i+run == len(w)

	// Word-initial vowel sequences usually carry an aleph or ayin.
	if i == 0 {
		return []letterChoice{
			{hebrew: "א", rule: RuleAyinInitial, conf: 0.7},
			{hebrew: "ע", rule: RuleAyinInitial, conf: 0.5},
		}, run
	}

	// Double vowels mid-word most commonly reflect an ayin
	// ("baal", "ma'aseh").
	if run >= 2 && !terminal {
		return []letterChoice{
			{hebrew: "ע", rule: RuleAyinDoubleVowel, conf: 0.75},
			{hebrew: "", conf: 0.3},
		}, run
	}

	if terminal {
		switch w[i] {
		case 'a':
			return []letterChoice{
				{hebrew: "ה", rule: RuleFeminineHey, conf: 0.65},
				{hebrew: "א", rule: RuleAramaicAleph, conf: 0.6},
			}, run
		case 'e':
			return []letterChoice{
				{hebrew: "ה", rule: RuleFeminineHey, conf: 0.6},
				{hebrew: "א", rule: RuleAramaicAleph, conf: 0.4},
			}, run
		case 'i', 'y':
			return []letterChoice{{hebrew: "י", conf: 0.8}}, run
		default: // o, u
			return []letterChoice{
				{hebrew: "ו", rule: RuleAramaicAleph, conf: 0.5},
				{hebrew: "א", rule: RuleAramaicAleph, conf: 0.4},
			}, run
		}
	}

	// Single mid-word vowel: o/u/i may surface as a mater lectionis,
	// a/e are normally silent.
	switch w[i] {
	case 'o', 'u':
		return []letterChoice{
			{hebrew: "ו", rule: RuleVowelMater, conf: 0.55},
			{hebrew: "", conf: 0.6},
		}, run
	case 'i':
		return []letterChoice{
			{hebrew: "", conf: 0.6},
			{hebrew: "י", rule: RuleVowelMater, conf: 0.5},
		}, run
	default:
		return []letterChoice{{hebrew: "", conf: 1.0}}, run
	}
}

func consonantChoices(c byte, terminal bool) []letterChoice {
	if terminal {
		switch c {
		case 's':
			// Yeshivish orthography: terminal "s" is usually a tav
			// ("shabbos", "chezkas").
			return []letterChoice{
				{hebrew: "ת", rule: RuleSmichutTav, conf: 0.7},
				{hebrew: "ס", conf: 0.5},
			}
		case 'v':
			return []letterChoice{
				{hebrew: "ב", rule: RuleFinalBet, conf: 0.8},
				{hebrew: "ו", conf: 0.4},
			}
		}
	}

	switch c {
	case 'b':
		return []letterChoice{{hebrew: "ב", conf: 0.95}}
	case 'v':
		return []letterChoice{
			{hebrew: "ב", rule: RuleConsonantChoice, conf: 0.6},
			{hebrew: "ו", rule: RuleConsonantChoice, conf: 0.5},
		}
	case 'g':
		return []letterChoice{{hebrew: "ג", conf: 0.95}}
	case 'd':
		return []letterChoice{{hebrew: "ד", conf: 0.95}}
	case 'h':
		return []letterChoice{{hebrew: "ה", conf: 0.9}}
	case 'z':
		return []letterChoice{{hebrew: "ז", conf: 0.95}}
	case 't':
		return []letterChoice{
			{hebrew: "ת", rule: RuleConsonantChoice, conf: 0.6},
			{hebrew: "ט", rule: RuleConsonantChoice, conf: 0.55},
		}
	case 'k':
		return []letterChoice{
			{hebrew: "ק", rule: RuleConsonantChoice, conf: 0.7},
			{hebrew: "כ", rule: RuleConsonantChoice, conf: 0.55},
		}
	case 'c', 'q':
		return []letterChoice{{hebrew: "ק", conf: 0.8}}
	case 'l':
		return []letterChoice{{hebrew: "ל", conf: 0.95}}
	case 'm':
		return []letterChoice{{hebrew: "מ", conf: 0.95}}
	case 'n':
		return []letterChoice{{hebrew: "נ", conf: 0.95}}
	case 's':
		return []letterChoice{
			{hebrew: "ס", rule: RuleConsonantChoice, conf: 0.6},
			{hebrew: "ש", rule: RuleConsonantChoice, conf: 0.5},
		}
	case 'p':
		return []letterChoice{{hebrew: "פ", conf: 0.95}}
	case 'f':
		return []letterChoice{{hebrew: "פ", conf: 0.9}}
	case 'r':
		return []letterChoice{{hebrew: "ר", conf: 0.95}}
	case 'w':
		return []letterChoice{{hebrew: "ו", conf: 0.85}}
	case 'y':
		return []letterChoice{{hebrew: "י", conf: 0.9}}
	case 'x':
		return []letterChoice{{hebrew: "קס", conf: 0.6}}
	case 'j':
		return []letterChoice{{hebrew: "ג", conf: 0.5}}
	default:
		return []letterChoice{{hebrew: "", conf: 0.3}}
	}
}

// splitPrefix detects a leading particle (b-, l-, m-, k-, v-, h-)
// followed by an apostrophe or a consonant cluster, returning the
// root and the Hebrew prefix letter.
func splitPrefix(w string) (root, prefix string, ok bool) {
	if len(w) < 4 {
		return "", "", false
	}
	prefix, found := hebrewPrefixes[w[0]]
	if !found {
		return "", "", false
	}
	switch {
	case w[1] == '\'':
		return w[2:], prefix, true
	case !isVowel(w[1]) && w[1] != w[0]:
		return w[1:], prefix, true
	}
	return "", "", false
}

// =============================================================================
// Normalization Helpers
// =============================================================================

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// normalizeWord lowercases and strips punctuation except apostrophes,
// collapsing whitespace. Hebrew runes pass through untouched.
func normalizeWord(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 0x0590 && r <= 0x05FF:
			sb.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case r == '\'' || r == '’':
			sb.WriteRune('\'')
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// NormalizeQuery normalizes a whole query for tokenizing: lowercase,
// punctuation stripped except apostrophes, whitespace collapsed.
func NormalizeQuery(s string) string {
	return normalizeWord(s)
}

// ContainsHebrew reports whether s has at least one Hebrew-block rune.
func ContainsHebrew(s string) bool {
	for _, r := range s {
		if r >= 0x0590 && r <= 0x05FF {
			return true
		}
	}
	return false
}

// IsHebrew reports whether every letter in s is Hebrew.
func IsHebrew(s string) bool {
	sawHebrew := false
	for _, r := range s {
		if r >= 0x0590 && r <= 0x05FF {
			sawHebrew = true
			continue
		}
		if unicode.IsLetter(r) {
			return false
		}
	}
	return sawHebrew
}

// finalizeHebrew rewrites the last letter of a word to its final form
// where one exists.
func finalizeHebrew(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	if final, ok := hebrewFinals[runes[len(runes)-1]]; ok {
		runes[len(runes)-1] = final
	}
	return string(runes)
}

func dedupeVariants(variants []Variant) []Variant {
	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if v.Hebrew == "" || seen[v.Hebrew] {
			continue
		}
		seen[v.Hebrew] = true
		out = append(out, v)
	}
	return out
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
