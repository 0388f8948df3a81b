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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variantStrings(variants []Variant) []string {
	out := make([]string, len(variants))
	for i, v := range variants {
		out[i] = v.Hebrew
	}
	return out
}

func TestVariantsCoverCommonWords(t *testing.T) {
	e := NewEngine(0)

	tests := []struct {
		word string
		want string
	}{
		{"shabbos", "שבת"},
		{"chometz", "חמץ"},
		{"baal", "בעל"},
		{"kinyan", "קנין"},
		{"torah", "תורה"},
		{"sukkah", "סוכה"},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got := variantStrings(e.Variants(tt.word))
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestVariantsHebrewInputPassesThrough(t *testing.T) {
	e := NewEngine(0)

	got := e.Variants("חזקה")
	require.Len(t, got, 1)
	assert.Equal(t, "חזקה", got[0].Hebrew)
	assert.Equal(t, 1.0, got[0].Confidence)
}

func TestVariantsExceptionsRankFirst(t *testing.T) {
	e := NewEngine(0)

	got := e.Variants("chezkas")
	require.NotEmpty(t, got)
	assert.Equal(t, "חזקת", got[0].Hebrew)
	assert.True(t, got[0].FromException)
}

func TestVariantsDetectorRules(t *testing.T) {
	e := NewEngine(0)

	// Mid-word double vowel carries an ayin.
	var ayin *Variant
	for _, v := range e.Variants("baal") {
		if v.Hebrew == "בעל" {
			ayin = &v
			break
		}
	}
	require.NotNil(t, ayin)
	assert.Contains(t, ayin.Rules, RuleAyinDoubleVowel)

	// Terminal "s" prefers the tav rendering.
	var tav, samech float64
	for _, v := range e.Variants("geirus") {
		switch v.Hebrew {
		case "גרות", "גירות":
			if v.Confidence > tav {
				tav = v.Confidence
			}
		case "גרוס", "גירוס":
			if v.Confidence > samech {
				samech = v.Confidence
			}
		}
	}
	assert.Greater(t, tav, samech, "smichut-tav should outrank samech at word end")
}

func TestVariantsRespectsLimit(t *testing.T) {
	e := NewEngine(3)
	got := e.Variants("chakira")
	assert.LessOrEqual(t, len(got), 3)
}

func TestFinalizeHebrew(t *testing.T) {
	tests := []struct{ in, want string }{
		{"חמצ", "חמץ"},
		{"שלומ", "שלום"},
		{"גפ", "גף"},
		{"שבת", "שבת"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, finalizeHebrew(tt.in))
	}
}

func TestSplitPrefix(t *testing.T) {
	root, prefix, ok := splitPrefix("b'dika")
	require.True(t, ok)
	assert.Equal(t, "dika", root)
	assert.Equal(t, "ב", prefix)

	root, prefix, ok = splitPrefix("brov")
	require.True(t, ok)
	assert.Equal(t, "rov", root)
	assert.Equal(t, "ב", prefix)

	// Vowel after the particle letter: no split.
	_, _, ok = splitPrefix("bedika")
	assert.False(t, ok)

	_, _, ok = splitPrefix("rov")
	assert.False(t, ok)
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Chezkas   HaGuf?  ", "chezkas haguf"},
		{"ma’aseh", "ma'aseh"},
		{"בדיקת חמץ", "בדיקת חמץ"},
		{"what-does-rashi-say", "what does rashi say"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuery(tt.in))
	}
}

func TestIsHebrew(t *testing.T) {
	assert.True(t, IsHebrew("חזקת הגוף"))
	assert.False(t, IsHebrew("chezkas הגוף"))
	assert.False(t, IsHebrew("chezkas"))
	assert.False(t, IsHebrew("123"))
}
