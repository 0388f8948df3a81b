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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDictionary(t *testing.T) *Dictionary {
	t.Helper()
	d, err := NewDictionary(filepath.Join(t.TempDir(), "word_dictionary.json"))
	require.NoError(t, err)
	return d
}

func TestNewDictionarySeedsFreshFile(t *testing.T) {
	d := newTestDictionary(t)

	e, ok := d.Lookup("pesachim")
	require.True(t, ok)
	assert.Equal(t, "פסחים", e.Hebrew)
	assert.Equal(t, SourceImport, e.Source)

	_, err := os.Stat(d.Path())
	assert.NoError(t, err, "seeding must persist the file")
}

func TestLookupAllGreedyLongestSpan(t *testing.T) {
	d := newTestDictionary(t)

	spans := d.LookupAll("hilchos bava kama perek alef")
	require.Len(t, spans, 3)

	assert.False(t, spans[0].Matched)
	assert.Equal(t, "hilchos", spans[0].Words)

	assert.True(t, spans[1].Matched)
	assert.Equal(t, "bava kama", spans[1].Words)
	assert.Equal(t, "בבא קמא", spans[1].Hebrew)

	assert.False(t, spans[2].Matched)
	assert.Equal(t, "perek alef", spans[2].Words)
}

func TestLookupAllPrefersLongerSpan(t *testing.T) {
	d := newTestDictionary(t)
	require.NoError(t, d.Record("chezkas", "חזקת", SourceManual))

	// "chezkas haguf" (seeded, two words) must win over the
	// single-word "chezkas" entry.
	spans := d.LookupAll("chezkas haguf")
	require.Len(t, spans, 1)
	assert.True(t, spans[0].Matched)
	assert.Equal(t, "חזקת הגוף", spans[0].Hebrew)
}

func TestRecordPersistsAndBacksUp(t *testing.T) {
	d := newTestDictionary(t)
	require.NoError(t, d.Record("goral", "גורל", SourceUserConfirmed))

	// Entry visible through a fresh handle.
	d2, err := NewDictionary(d.Path())
	require.NoError(t, err)
	e, ok := d2.Lookup("goral")
	require.True(t, ok)
	assert.Equal(t, "גורל", e.Hebrew)
	assert.Equal(t, SourceUserConfirmed, e.Source)
	assert.Equal(t, 1, e.UsageCount)

	// A snapshot of the pre-write file exists.
	backups, err := filepath.Glob(filepath.Join(filepath.Dir(d.Path()), "backups", "*.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, backups)
}

func TestRecordUpdatesExistingEntry(t *testing.T) {
	d := newTestDictionary(t)
	require.NoError(t, d.Record("goral", "גרל", SourceRulesConfirm))
	require.NoError(t, d.Record("goral", "גורל", SourceUserConfirmed))

	e, ok := d.Lookup("goral")
	require.True(t, ok)
	assert.Equal(t, "גורל", e.Hebrew)
	assert.Equal(t, SourceUserConfirmed, e.Source)
	assert.Equal(t, 2, e.UsageCount)
}

func TestStats(t *testing.T) {
	d := newTestDictionary(t)
	require.NoError(t, d.Record("goral", "גורל", SourceUserConfirmed))

	s := d.Stats()
	assert.Equal(t, d.Path(), s.Path)
	assert.Greater(t, s.Entries, 1)
	assert.Equal(t, 1, s.BySource[SourceUserConfirmed])
	assert.Greater(t, s.BySource[SourceImport], 0)
}

func TestWatcherReloadsOnExternalEdit(t *testing.T) {
	d := newTestDictionary(t)
	w, err := WatchDictionary(d)
	require.NoError(t, err)
	defer w.Close()

	// Hand-edit the file the way an operator would.
	entries := map[string]DictEntry{
		"handmade": {Hebrew: "בדוק", Confidence: 1.0, Source: SourceManual, LastUsedAt: time.Now()},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(d.Path(), data, 0o644))

	require.Eventually(t, func() bool {
		_, ok := d.Lookup("handmade")
		return ok
	}, 3*time.Second, 50*time.Millisecond)
}
