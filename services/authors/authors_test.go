// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package authors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSurface(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rashi", "rashi"},
		{`MaHaRSH"A`, "maharsha"},
		{"Magen  Avraham", "magen avraham"},
		{"ketzos-hachoshen", "ketzos hachoshen"},
		{"R' Akiva Eiger", "r akiva eiger"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSurface(tt.in))
		})
	}
}

func TestMatchesResolvesVariations(t *testing.T) {
	kb := NewKB()

	tests := []struct {
		token string
		want  string
	}{
		{"rashi", "rashi"},
		{"Tosafot", "tosfos"},
		{"maimonides", "rambam"},
		{"shulchan aruch", "mechaber"},
		{"Mishna Brura", "mishnah-berurah"},
		{`maharsh"a`, "maharsha"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			key, ok := kb.Matches(tt.token)
			require.True(t, ok, "expected %q to resolve", tt.token)
			assert.Equal(t, tt.want, key)
		})
	}

	_, ok := kb.Matches("chometz")
	assert.False(t, ok, "ordinary vocabulary must not resolve to an author")
}

func TestSurfaceDeduplication(t *testing.T) {
	catalog := []Author{
		{Key: "early", PrimaryName: "א", Variations: []string{"shared name"}, Era: EraRishonim, Level: "rishonim"},
		{Key: "late", PrimaryName: "ב", Variations: []string{"shared name"}, Era: EraAcharonim, Level: "acharonim"},
	}
	kb := newKBFrom(catalog)

	key, ok := kb.Matches("shared name")
	require.True(t, ok)
	assert.Equal(t, "early", key, "conflicts resolve toward the earlier era")
}

func TestCorpusRef(t *testing.T) {
	kb := NewKB()

	ref, ok := kb.CorpusRef("rashi", "Pesachim 4b")
	require.True(t, ok)
	assert.Equal(t, "Rashi on Pesachim 4b", ref)

	ref, ok = kb.CorpusRef("tosfos", "Bava Metzia 2a")
	require.True(t, ok)
	assert.Equal(t, "Tosafot on Bava Metzia 2a", ref)

	// Codes are cited standalone; no commentary prefix.
	_, ok = kb.CorpusRef("rambam", "Pesachim 4b")
	assert.False(t, ok)

	_, ok = kb.CorpusRef("nobody", "Pesachim 4b")
	assert.False(t, ok)
}

func TestDetectInText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single author",
			text: "what does rashi say about chezkas haguf",
			want: []string{"rashi"},
		},
		{
			name: "multi-word surface form wins over fragment",
			text: "the magen avraham disagrees here",
			want: []string{"magen-avraham"},
		},
		{
			name: "multiple authors in order of appearance",
			text: "machlokes rashi and tosafos on pesachim",
			want: []string{"rashi", "tosfos"},
		},
		{
			name: "no authors",
			text: "bedikas chometz at night",
			want: nil,
		},
	}
	kb := NewKB()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kb.DetectInText(tt.text))
		})
	}
}

func TestLevelDefaultsToOther(t *testing.T) {
	kb := NewKB()
	assert.Equal(t, "rashi", kb.Level("rashi"))
	assert.Equal(t, "nosei-keilim", kb.Level("shach"))
	assert.Equal(t, "other", kb.Level("unknown-author"))
}
