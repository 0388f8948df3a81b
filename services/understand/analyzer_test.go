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

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Mekoros/services/authors"
	"github.com/AleutianAI/Mekoros/services/cache"
	"github.com/AleutianAI/Mekoros/services/corpus"
	"github.com/AleutianAI/Mekoros/services/decipher"
	"github.com/AleutianAI/Mekoros/services/llm"
)

type stubSearcher struct {
	results map[string]*corpus.SearchResult
}

func (s *stubSearcher) Search(_ context.Context, term string, _ corpus.SearchOptions) (*corpus.SearchResult, error) {
	if res, ok := s.results[term]; ok {
		return res, nil
	}
	return &corpus.SearchResult{
		TotalHits:  12,
		ByTractate: map[string]int{"Pesachim": 8, "Shabbat": 4},
		ByCategory: map[string]int{"Talmud": 12},
		TopRefs:    []string{"Pesachim 4b", "Shabbat 21a"},
	}, nil
}

type stubLLM struct {
	response string
	err      error
	calls    atomic.Int64
}

func (s *stubLLM) Complete(context.Context, *llm.Request) (string, error) {
	s.calls.Add(1)
	return s.response, s.err
}

func (s *stubLLM) Model() string { return "stub" }

func newTestAnalyzer(t *testing.T, client *stubLLM) *Analyzer {
	t.Helper()
	responses, err := cache.New(cache.LLMResponseConfig(t.TempDir()))
	require.NoError(t, err)
	return NewAnalyzer(client, &stubSearcher{}, authors.NewKB(), responses)
}

func TestKnownSugyaShortcutSkipsLLM(t *testing.T) {
	client := &stubLLM{response: `{"query_type":"concept"}`}
	a := newTestAnalyzer(t, client)

	dec := &decipher.Result{Success: true, HebrewTerms: []string{"חזקת הגוף"}}
	s, err := a.Understand(context.Background(), "chezkas haguf", dec)
	require.NoError(t, err)

	assert.Equal(t, QueryConcept, s.QueryType)
	assert.NotEmpty(t, s.PrimarySources)
	assert.Equal(t, s.PrimarySources[0], s.PrimarySource)
	assert.Equal(t, ConfidenceHigh, s.Confidence)
	assert.Equal(t, int64(0), client.calls.Load(), "known sugya must not call the LLM")
}

func TestNoSubstringMatchAcrossWordBoundaries(t *testing.T) {
	// "bedikas chometz" must never select the entry keyed "mukas etz".
	entry, ok := MatchKnownSugya("bedikas chometz", nil)
	require.True(t, ok)
	assert.NotEqual(t, "mukas-etz", entry.Key)
	assert.Equal(t, "bedikas-chometz", entry.Key)

	// Near-miss token shapes must not fire at all.
	_, ok = MatchKnownSugya("hamukas etzba", nil)
	assert.False(t, ok)
}

func TestContainsTokenRun(t *testing.T) {
	tests := []struct {
		tokens []string
		run    []string
		want   bool
	}{
		{[]string{"bedikas", "chometz"}, []string{"mukas", "etz"}, false},
		{[]string{"the", "mukas", "etz", "case"}, []string{"mukas", "etz"}, true},
		{[]string{"mukas"}, []string{"mukas", "etz"}, false},
		{[]string{"etz", "mukas"}, []string{"mukas", "etz"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsTokenRun(tt.tokens, tt.run))
	}
}

func TestDirectReferenceShortcut(t *testing.T) {
	client := &stubLLM{}
	a := newTestAnalyzer(t, client)

	dec := &decipher.Result{Success: true, HebrewTerms: []string{"פסחים"}}
	s, err := a.Understand(context.Background(), "show me rashi on pesachim 4b", dec)
	require.NoError(t, err)

	assert.Equal(t, FetchDirectRef, s.FetchStrategy)
	assert.Equal(t, []string{"Pesachim 4b"}, s.PrimarySources)
	assert.Equal(t, []string{"rashi"}, s.TargetAuthors)
	assert.Equal(t, QueryAuthorCitation, s.QueryType)
	assert.Equal(t, int64(0), client.calls.Load())
}

func TestComparisonQuery(t *testing.T) {
	client := &stubLLM{}
	a := newTestAnalyzer(t, client)

	dec := &decipher.Result{Success: true, HebrewTerms: []string{"חזקת הגוף", "חזקת ממון"}}
	s, err := a.Understand(context.Background(), "chezkas haguf vs chezkas mammon", dec)
	require.NoError(t, err)

	assert.Equal(t, QueryComparison, s.QueryType)
	require.Len(t, s.ComparisonTerms, 2)
	assert.Contains(t, s.PrimarySources, "Ketubot 75b")
	assert.Contains(t, s.PrimarySources, "Bava Kamma 46a")
	assert.Equal(t, int64(0), client.calls.Load())
}

func TestPureEnglishFallsBackToBroadScan(t *testing.T) {
	client := &stubLLM{}
	a := newTestAnalyzer(t, client)

	dec := &decipher.Result{Success: true, IsPureEnglish: true}
	s, err := a.Understand(context.Background(), "sources for women covering hair", dec)
	require.NoError(t, err)

	assert.Equal(t, FetchBroadScan, s.FetchStrategy)
	assert.Equal(t, int64(0), client.calls.Load())
}

func TestLLMStrategyParsed(t *testing.T) {
	client := &stubLLM{response: "```json\n" + `{
		"query_type": "halachic-practice",
		"primary_sources": ["Pesachim 4b"],
		"fetch_strategy": "trickle-down",
		"depth": "deep",
		"confidence": "high",
		"reasoning": "candle lighting at night"
	}` + "\n```"}
	a := newTestAnalyzer(t, client)

	dec := &decipher.Result{Success: true, HebrewTerms: []string{"צורבא מרבנן"}}
	s, err := a.Understand(context.Background(), "tzurva merabanan", dec)
	require.NoError(t, err)

	assert.Equal(t, QueryHalachicPractice, s.QueryType)
	assert.Equal(t, "Pesachim 4b", s.PrimarySource)
	assert.Equal(t, DepthDeep, s.Depth)
	assert.Equal(t, int64(1), client.calls.Load())
}

func TestLLMMalformedFallsBack(t *testing.T) {
	client := &stubLLM{response: "I think you should look at various sources."}
	a := newTestAnalyzer(t, client)

	dec := &decipher.Result{Success: true, HebrewTerms: []string{"צורבא מרבנן"}}
	s, err := a.Understand(context.Background(), "tzurva merabanan", dec)
	require.NoError(t, err)

	assert.Equal(t, ConfidenceLow, s.Confidence)
	assert.NotEmpty(t, s.ClarificationPrompt)
	assert.GreaterOrEqual(t, len(s.ClarificationOptions), 2)
	assert.Equal(t, []string{"Pesachim 4b"}, s.PrimarySources,
		"fallback anchors on the top profile ref")
}

func TestLLMResponseCached(t *testing.T) {
	client := &stubLLM{response: `{"query_type":"concept","primary_sources":["Pesachim 4b"],"fetch_strategy":"trickle-down","depth":"standard","confidence":"high"}`}
	responses, err := cache.New(cache.Config{
		Dir:  filepath.Join(t.TempDir(), "cache"),
		Name: "llm_responses",
		TTL:  cache.LLMResponseTTL,
	})
	require.NoError(t, err)
	a := NewAnalyzer(client, &stubSearcher{}, authors.NewKB(), responses)

	dec := &decipher.Result{Success: true, HebrewTerms: []string{"צורבא מרבנן"}}
	for i := 0; i < 2; i++ {
		_, err := a.Understand(context.Background(), "tzurva merabanan", dec)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), client.calls.Load(), "second analysis must hit the response cache")
}

func TestStrategyNormalizeInvariants(t *testing.T) {
	s := &Strategy{
		QueryType:       QueryComparison,
		ComparisonTerms: []string{"only one"},
		FetchStrategy:   FetchDirectRef,
		Confidence:      Confidence("bogus"),
	}
	s.Normalize()

	assert.Equal(t, QueryConcept, s.QueryType, "comparison with one term downgrades")
	assert.Equal(t, FetchBroadScan, s.FetchStrategy, "direct-ref without sources downgrades")
	assert.Equal(t, ConfidenceLow, s.Confidence)
	assert.NotEmpty(t, s.ClarificationPrompt, "low confidence forces a prompt")
	assert.NoError(t, s.Validate())
}

func TestDetectDirectRef(t *testing.T) {
	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"pesachim 4b", "Pesachim 4b", true},
		{"rashi on bava kama 46a", "Bava Kamma 46a", true},
		{"the sugya in kesubos 75b please", "Ketubot 75b", true},
		{"pesachim perek alef", "", false},
		{"4b pesachim", "", false},
		{"no reference here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := DetectDirectRef(tt.query)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
