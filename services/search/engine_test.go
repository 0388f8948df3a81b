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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Mekoros/services/authors"
	"github.com/AleutianAI/Mekoros/services/corpus"
	"github.com/AleutianAI/Mekoros/services/llm"
	"github.com/AleutianAI/Mekoros/services/understand"
)

// fakeCorpus serves canned corpus responses.
type fakeCorpus struct {
	texts    map[string]*corpus.TextResult
	related  map[string]*corpus.RelatedResult
	searches map[string]*corpus.SearchResult
}

func (f *fakeCorpus) Search(_ context.Context, term string, _ corpus.SearchOptions) (*corpus.SearchResult, error) {
	if res, ok := f.searches[term]; ok {
		return res, nil
	}
	return &corpus.SearchResult{}, nil
}

func (f *fakeCorpus) GetText(_ context.Context, ref string) (*corpus.TextResult, error) {
	if t, ok := f.texts[ref]; ok {
		return t, nil
	}
	return nil, &corpus.NotFoundError{Ref: ref, StatusCode: 404}
}

func (f *fakeCorpus) GetRelated(_ context.Context, ref string) (*corpus.RelatedResult, error) {
	if r, ok := f.related[ref]; ok {
		return r, nil
	}
	return &corpus.RelatedResult{}, nil
}

type fakeLLM struct {
	response string
}

func (f *fakeLLM) Complete(context.Context, *llm.Request) (string, error) {
	return f.response, nil
}

func (f *fakeLLM) Model() string { return "fake" }

func text(ref, he string) *corpus.TextResult {
	return &corpus.TextResult{CanonicalRef: ref, Hebrew: he}
}

func TestDirectRefFillsAuthorBuckets(t *testing.T) {
	fc := &fakeCorpus{
		texts: map[string]*corpus.TextResult{
			"Pesachim 4b":          text("Pesachim 4b", "המשכיר בית לחבירו"),
			"Rashi on Pesachim 4b": text("Rashi on Pesachim 4b", "בודקין את החמץ"),
		},
	}
	e := NewEngine(fc, nil, authors.NewKB())

	strategy := &understand.Strategy{
		QueryType:      understand.QueryAuthorCitation,
		PrimarySources: []string{"Pesachim 4b"},
		TargetAuthors:  []string{"rashi"},
		FetchStrategy:  understand.FetchDirectRef,
		Depth:          understand.DepthStandard,
		Confidence:     understand.ConfidenceHigh,
	}
	res, err := e.Run(context.Background(), "show me rashi on pesachim 4b", []string{"פסחים"}, strategy)
	require.NoError(t, err)

	assert.Equal(t, "Pesachim 4b", res.PrimaryRef)
	require.NotEmpty(t, res.SourcesByLevel[LevelRashi], "rashi bucket must be populated")
	assert.Equal(t, "Rashi on Pesachim 4b", res.SourcesByLevel[LevelRashi][0].Ref)
	assert.Equal(t, "rashi", res.SourcesByLevel[LevelRashi][0].AuthorKey)
	require.NotEmpty(t, res.SourcesByLevel[LevelGemara])
}

func TestHallucinatedRefRejected(t *testing.T) {
	fc := &fakeCorpus{
		texts: map[string]*corpus.TextResult{
			"Ketubot 75b": text("Ketubot 75b", "חזקת הגוף"),
		},
	}
	drops := 0
	client := &fakeLLM{response: `{"confirmed": false, "refs": ["Bava Kamma 999a", "Ketubot 75b"]}`}
	e := NewEngine(fc, client, authors.NewKB(), WithHallucinationHook(func() { drops++ }))

	strategy := &understand.Strategy{
		QueryType:      understand.QueryConcept,
		PrimarySources: []string{"Ketubot 75b"},
		FetchStrategy:  understand.FetchTrickleDown,
		Depth:          understand.DepthStandard,
		Confidence:     understand.ConfidenceHigh,
	}
	res, err := e.Run(context.Background(), "chezkas haguf", []string{"חזקת הגוף"}, strategy)
	require.NoError(t, err)

	for _, s := range res.Sources {
		assert.NotEqual(t, "Bava Kamma 999a", s.Ref, "hallucinated ref must never surface")
	}
	require.NotEmpty(t, res.Sources, "the legitimate ref must survive")
	assert.Equal(t, "Ketubot 75b", res.Sources[0].Ref)
	assert.Equal(t, 1, drops)
}

func TestPrimaryRefNamesFetchedAnchor(t *testing.T) {
	// Direct-ref anchors bypass corpus validation, so the first
	// anchor may be an invention the corpus has no text for. The
	// primary ref must follow the first anchor that fetched.
	fc := &fakeCorpus{
		texts: map[string]*corpus.TextResult{
			"Ketubot 75b": text("Ketubot 75b", "חזקת הגוף"),
		},
	}
	e := NewEngine(fc, nil, authors.NewKB())

	strategy := &understand.Strategy{
		QueryType:      understand.QueryConcept,
		PrimarySources: []string{"Bava Kamma 999a", "Ketubot 75b"},
		FetchStrategy:  understand.FetchDirectRef,
		Depth:          understand.DepthStandard,
		Confidence:     understand.ConfidenceHigh,
	}
	res, err := e.Run(context.Background(), "chezkas haguf", []string{"חזקת הגוף"}, strategy)
	require.NoError(t, err)

	assert.Equal(t, "Ketubot 75b", res.PrimaryRef, "primary must be the anchor whose text resolved")
	for _, s := range res.Sources {
		assert.NotEqual(t, "Bava Kamma 999a", s.Ref)
	}
	require.NotEmpty(t, res.Sources)
}

func TestComparisonGroupingPartitionsSources(t *testing.T) {
	fc := &fakeCorpus{
		texts: map[string]*corpus.TextResult{
			"Ketubot 75b":    text("Ketubot 75b", "העמד הגוף על חזקתו חזקת הגוף"),
			"Bava Kamma 46a": text("Bava Kamma 46a", "המוציא מחבירו עליו הראיה חזקת ממון"),
		},
	}
	e := NewEngine(fc, nil, authors.NewKB())

	strategy := &understand.Strategy{
		QueryType:       understand.QueryComparison,
		ComparisonTerms: []string{"חזקת הגוף", "חזקת ממון"},
		PrimarySources:  []string{"Ketubot 75b", "Bava Kamma 46a"},
		FetchStrategy:   understand.FetchTrickleDown,
		Depth:           understand.DepthStandard,
		Confidence:      understand.ConfidenceHigh,
	}
	res, err := e.Run(context.Background(), "chezkas haguf vs chezkas mammon",
		[]string{"חזקת הגוף", "חזקת ממון"}, strategy)
	require.NoError(t, err)

	require.Len(t, res.SourcesByTerm, 2)
	total := 0
	seen := make(map[string]int)
	for _, group := range res.SourcesByTerm {
		total += len(group)
		for _, s := range group {
			seen[s.Ref]++
		}
	}
	assert.Equal(t, res.TotalSources, total, "per-term groups partition the sources")
	for ref, n := range seen {
		assert.Equal(t, 1, n, "source %s appears in exactly one group", ref)
	}
	require.Len(t, res.SourcesByTerm["חזקת הגוף"], 1)
	assert.Equal(t, "Ketubot 75b", res.SourcesByTerm["חזקת הגוף"][0].Ref)
	require.Len(t, res.SourcesByTerm["חזקת ממון"], 1)
	assert.Equal(t, "Bava Kamma 46a", res.SourcesByTerm["חזקת ממון"][0].Ref)
}

func TestOrderingStability(t *testing.T) {
	fc := &fakeCorpus{
		texts: map[string]*corpus.TextResult{
			"Pesachim 4b":            text("Pesachim 4b", "א"),
			"Pesachim 5a":            text("Pesachim 5a", "ב"),
			"Pesachim 10a":           text("Pesachim 10a", "ג"),
			"Rashi on Pesachim 4b":   text("Rashi on Pesachim 4b", "ד"),
			"Tosafot on Pesachim 4b": text("Tosafot on Pesachim 4b", "ה"),
		},
		related: map[string]*corpus.RelatedResult{
			"Pesachim 4b": {Commentaries: []corpus.RelatedLink{
				{Ref: "Tosafot on Pesachim 4b", Work: "tosafot"},
				{Ref: "Rashi on Pesachim 4b", Work: "rashi"},
			}},
		},
	}
	strategy := &understand.Strategy{
		QueryType:      understand.QueryConcept,
		PrimarySources: []string{"Pesachim 4b", "Pesachim 10a", "Pesachim 5a"},
		FetchStrategy:  understand.FetchTrickleDown,
		Depth:          understand.DepthStandard,
		Confidence:     understand.ConfidenceHigh,
	}

	run := func() *Result {
		e := NewEngine(fc, nil, authors.NewKB())
		res, err := e.Run(context.Background(), "q", []string{"חמץ"}, strategy)
		require.NoError(t, err)
		return res
	}
	first, second := run(), run()
	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, first.SourcesByLevel, second.SourcesByLevel)

	// Within the gemara level: primary daf, neighbor daf, then the rest.
	gemara := first.SourcesByLevel[LevelGemara]
	require.Len(t, gemara, 3)
	assert.Equal(t, "Pesachim 4b", gemara[0].Ref)
	assert.Equal(t, "Pesachim 5a", gemara[1].Ref)
	assert.Equal(t, "Pesachim 10a", gemara[2].Ref)
}

func TestLevelPartitionTotality(t *testing.T) {
	fc := &fakeCorpus{
		texts: map[string]*corpus.TextResult{
			"Pesachim 4b":            text("Pesachim 4b", "א"),
			"Rashi on Pesachim 4b":   text("Rashi on Pesachim 4b", "ב"),
			"Mishnah Berurah 431:1":  text("Mishnah Berurah 431:1", "ג"),
			"Shulchan Arukh, Orach Chayim 431": text("Shulchan Arukh, Orach Chayim 431", "ד"),
		},
	}
	e := NewEngine(fc, nil, authors.NewKB())

	strategy := &understand.Strategy{
		QueryType: understand.QueryConcept,
		PrimarySources: []string{
			"Pesachim 4b", "Rashi on Pesachim 4b",
			"Mishnah Berurah 431:1", "Shulchan Arukh, Orach Chayim 431",
		},
		FetchStrategy: understand.FetchTrickleDown,
		Depth:         understand.DepthStandard,
		Confidence:    understand.ConfidenceHigh,
	}
	res, err := e.Run(context.Background(), "q", []string{"בדיקת חמץ"}, strategy)
	require.NoError(t, err)

	grouped := 0
	for level, group := range res.SourcesByLevel {
		assert.True(t, level.Valid(), "level %q outside the enum", level)
		grouped += len(group)
	}
	assert.Equal(t, res.TotalSources, grouped, "by-level groups partition the sources")
	assert.Equal(t, len(res.LevelsPresent), len(res.SourcesByLevel))
}

func TestAmbiguousLocateReturnsClarification(t *testing.T) {
	fc := &fakeCorpus{
		searches: map[string]*corpus.SearchResult{
			"מוקצה": {
				TotalHits: 10,
				SampleHits: []corpus.SampleHit{
					{Ref: "Shulchan Arukh, Orach Chayim 308", Categories: []string{"Halakhah"}},
					{Ref: "Shulchan Arukh, Orach Chayim 495", Categories: []string{"Halakhah"}},
				},
			},
		},
		related: map[string]*corpus.RelatedResult{
			"Shulchan Arukh, Orach Chayim 308": {Links: []corpus.RelatedLink{
				{Ref: "Shabbat 44a", Category: "Talmud"},
			}},
			"Shulchan Arukh, Orach Chayim 495": {Links: []corpus.RelatedLink{
				{Ref: "Beitzah 2a", Category: "Talmud"},
			}},
		},
	}
	e := NewEngine(fc, nil, authors.NewKB())

	strategy := &understand.Strategy{
		QueryType:     understand.QueryConcept,
		FetchStrategy: understand.FetchTrickleDown,
		Depth:         understand.DepthStandard,
		Confidence:    understand.ConfidenceHigh,
	}
	res, err := e.Run(context.Background(), "muktzah", []string{"מוקצה"}, strategy)
	require.NoError(t, err)

	assert.True(t, res.NeedsClarification)
	assert.Len(t, res.ClarificationOptions, 2)
	assert.Empty(t, res.Sources)
}

func TestAllAnchorsFailingIsFatal(t *testing.T) {
	e := NewEngine(&fakeCorpus{}, nil, authors.NewKB())

	strategy := &understand.Strategy{
		QueryType:      understand.QueryConcept,
		PrimarySources: []string{"Pesachim 4b"},
		FetchStrategy:  understand.FetchTrickleDown,
		Depth:          understand.DepthStandard,
		Confidence:     understand.ConfidenceHigh,
	}
	res, err := e.Run(context.Background(), "q", []string{"חמץ"}, strategy)
	require.NoError(t, err)
	assert.Empty(t, res.Sources)
	assert.NotEmpty(t, res.Message)
}

func TestSplitDafRef(t *testing.T) {
	tests := []struct {
		ref      string
		tractate string
		daf      int
		ok       bool
	}{
		{"Pesachim 4b", "pesachim", 4, true},
		{"Bava Metzia 21a", "bava metzia", 21, true},
		{"Rashi on Pesachim 4b", "pesachim", 4, true},
		{"Rashi on Pesachim 4b:1", "pesachim", 4, true},
		{"Shulchan Arukh 431", "", 0, false},
		{"Pesachim", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			tractate, daf, ok := splitDafRef(tt.ref)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.tractate, tractate)
			assert.Equal(t, tt.daf, daf)
		})
	}
}

func TestLevelForRef(t *testing.T) {
	kb := authors.NewKB()
	tests := []struct {
		ref  string
		want Level
	}{
		{"Pesachim 4b", LevelGemara},
		{"Rashi on Pesachim 4b", LevelRashi},
		{"Tosafot on Pesachim 4b", LevelTosfos},
		{"Mishneh Torah, Chametz uMatzah 2:3", LevelRambam},
		{"Shulchan Arukh, Orach Chayim 431", LevelShulchanAruch},
		{"Mishnah Berurah 431:1", LevelAcharonim},
		{"Genesis 1:1", LevelChumash},
		{"Some Unknown Work 3", LevelOther},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelForRef(tt.ref, kb))
		})
	}
}

func TestDepthCaps(t *testing.T) {
	assert.Equal(t, 3, DepthCap(understand.DepthBasic))
	assert.Equal(t, 7, DepthCap(understand.DepthStandard))
	assert.Equal(t, 15, DepthCap(understand.DepthDeep))
}
