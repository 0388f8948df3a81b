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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Mekoros/services/authors"
	"github.com/AleutianAI/Mekoros/services/corpus"
	"github.com/AleutianAI/Mekoros/services/decipher"
	"github.com/AleutianAI/Mekoros/services/llm"
	"github.com/AleutianAI/Mekoros/services/session"
	"github.com/AleutianAI/Mekoros/services/understand"
)

// newTestService wires the full pipeline over a fake corpus with an
// in-memory clarification store.
func newTestService(t *testing.T, fc *fakeCorpus, client llm.Client) *Service {
	t.Helper()
	kb := authors.NewKB()

	dict, err := decipher.NewDictionary(filepath.Join(t.TempDir(), "dictionary.json"))
	require.NoError(t, err)
	dp := decipher.NewPipeline(dict, decipher.NewEngine(15), decipher.NewValidator(fc, kb, 4), kb)

	analyzer := understand.NewAnalyzer(client, fc, kb, nil)

	store, err := session.Open(session.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewService(dp, analyzer, NewEngine(fc, nil, kb), store)
}

func TestServiceKnownSugyaFlow(t *testing.T) {
	fc := &fakeCorpus{
		texts: map[string]*corpus.TextResult{
			"Ketubot 75b": text("Ketubot 75b", "חזקת הגוף"),
			"Ketubot 76a": text("Ketubot 76a", "העמד הגוף על חזקתו"),
		},
	}
	svc := newTestService(t, fc, &fakeLLM{response: "should never be called"})

	res, err := svc.Search(context.Background(), "chezkas haguf")
	require.NoError(t, err)

	assert.False(t, res.NeedsClarification)
	assert.Equal(t, "Ketubot 75b", res.PrimaryRef)
	assert.Equal(t, 2, res.TotalSources)
	assert.Contains(t, res.HebrewTerms, "חזקת הגוף")
	assert.Equal(t, string(understand.ConfidenceHigh), res.Confidence)
}

func TestServiceClarifyRoundTrip(t *testing.T) {
	fc := &fakeCorpus{
		texts: map[string]*corpus.TextResult{
			"Pesachim 4b": text("Pesachim 4b", "חמץ"),
		},
		searches: map[string]*corpus.SearchResult{
			"חמץ": {TotalHits: 12, TopRefs: []string{"Pesachim 4b"}},
		},
	}
	svc := newTestService(t, fc, &fakeLLM{response: "sorry, I cannot answer in JSON"})
	ctx := context.Background()

	res, err := svc.Search(ctx, "chometz")
	require.NoError(t, err)
	require.True(t, res.NeedsClarification)
	require.NotEmpty(t, res.QueryID)
	require.GreaterOrEqual(t, len(res.ClarificationOptions), 2)
	assert.Equal(t, "Pesachim 4b", res.ClarificationOptions[0].Ref)
	assert.Empty(t, res.Sources)

	resumed, err := svc.Clarify(ctx, res.QueryID, res.ClarificationOptions[0].ID)
	require.NoError(t, err)
	assert.False(t, resumed.NeedsClarification)
	assert.Equal(t, "Pesachim 4b", resumed.PrimaryRef)
	assert.Equal(t, 1, resumed.TotalSources)
	assert.Equal(t, string(understand.ConfidenceHigh), resumed.Confidence)
	assert.Equal(t, "chometz", resumed.OriginalQuery)

	// The answered clarification is single-use.
	again, err := svc.Clarify(ctx, res.QueryID, res.ClarificationOptions[0].ID)
	require.NoError(t, err)
	assert.Contains(t, again.Message, "expired")
}

func TestServiceClarifyUnknownID(t *testing.T) {
	svc := newTestService(t, &fakeCorpus{}, &fakeLLM{response: "{}"})

	res, err := svc.Clarify(context.Background(), "no-such-id", "opt-0")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "expired")
	assert.False(t, res.NeedsClarification)
}

func TestServiceClarifyUnknownOptionKeepsState(t *testing.T) {
	fc := &fakeCorpus{
		texts: map[string]*corpus.TextResult{
			"Pesachim 4b": text("Pesachim 4b", "חמץ"),
		},
		searches: map[string]*corpus.SearchResult{
			"חמץ": {TotalHits: 12, TopRefs: []string{"Pesachim 4b"}},
		},
	}
	svc := newTestService(t, fc, &fakeLLM{response: "not json"})
	ctx := context.Background()

	res, err := svc.Search(ctx, "chometz")
	require.NoError(t, err)
	require.True(t, res.NeedsClarification)

	bogus, err := svc.Clarify(ctx, res.QueryID, "opt-99")
	require.NoError(t, err)
	assert.True(t, bogus.NeedsClarification)
	assert.Equal(t, res.QueryID, bogus.QueryID)
	assert.NotEmpty(t, bogus.ClarificationOptions)

	// The original id still resolves after a bad pick.
	resumed, err := svc.Clarify(ctx, res.QueryID, res.ClarificationOptions[0].ID)
	require.NoError(t, err)
	assert.False(t, resumed.NeedsClarification)
	assert.Equal(t, 1, resumed.TotalSources)
}

func TestServiceFailedDecipherShortCircuits(t *testing.T) {
	svc := newTestService(t, &fakeCorpus{}, &fakeLLM{response: "{}"})

	res, err := svc.Search(context.Background(), "tzviliok")
	require.NoError(t, err)
	assert.Zero(t, res.TotalSources)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, string(understand.ConfidenceLow), res.Confidence)
}
