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
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/Mekoros/services/corpus"
)

const (
	// profileFanout bounds parallel corpus searches while profiling.
	profileFanout = 4

	// snippetChunkSize bounds each sample snippet carried into the
	// LLM prompt; only the leading chunk per ref is kept.
	snippetChunkSize = 400

	topTractates = 3
	maxSamples   = 5
)

// Searcher is the corpus surface the profiler needs.
type Searcher interface {
	Search(ctx context.Context, hebrewTerm string, opts corpus.SearchOptions) (*corpus.SearchResult, error)
}

// Sample is one snippet carried into the analysis prompt.
type Sample struct {
	Ref     string `json:"ref"`
	Snippet string `json:"snippet"`
}

// Profile is the corpus statistics summary for a set of Hebrew terms.
type Profile struct {
	TotalHits  int            `json:"total_hits"`
	ByTractate map[string]int `json:"by_tractate"`
	ByCategory map[string]int `json:"by_category"`
	TopRefs    []string       `json:"top_refs"`
	Samples    []Sample       `json:"samples"`
}

// BuildProfile searches each term and merges the aggregates. Terms
// fan out on an errgroup; any search error fails the profile.
func BuildProfile(ctx context.Context, searcher Searcher, terms []string) (*Profile, error) {
	profile := &Profile{
		ByTractate: make(map[string]int),
		ByCategory: make(map[string]int),
	}
	if len(terms) == 0 {
		return profile, nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(snippetChunkSize),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " "}),
	)

	results := make([]*corpus.SearchResult, len(terms))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(profileFanout)

	for i, term := range terms {
		g.Go(func() error {
			res, err := searcher.Search(ctx, term, corpus.SearchOptions{Size: 10})
			if err != nil {
				return fmt.Errorf("profiling %q: %w", term, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in input-term order, never completion order: the profile
	// feeds cache fingerprints and anchor selection, so identical
	// requests must yield identical profiles.
	for _, res := range results {
		profile.TotalHits += res.TotalHits
		for tractate, n := range res.ByTractate {
			profile.ByTractate[tractate] += n
		}
		for cat, n := range res.ByCategory {
			profile.ByCategory[cat] += n
		}
		profile.TopRefs = append(profile.TopRefs, res.TopRefs...)
		for _, hit := range res.SampleHits {
			if len(profile.Samples) >= maxSamples {
				break
			}
			profile.Samples = append(profile.Samples, Sample{
				Ref:     hit.Ref,
				Snippet: leadingChunk(splitter, hit.Hebrew),
			})
		}
	}

	profile.ByTractate = topN(profile.ByTractate, topTractates)
	profile.TopRefs = dedupe(profile.TopRefs)
	return profile, nil
}

// Summary renders the profile for prompts and cache fingerprints.
// Maps are emitted in sorted order so the rendering is deterministic.
func (p *Profile) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "total hits: %d\n", p.TotalHits)

	fmt.Fprintf(&sb, "by tractate:")
	for _, k := range sortedKeys(p.ByTractate) {
		fmt.Fprintf(&sb, " %s=%d", k, p.ByTractate[k])
	}
	sb.WriteByte('\n')

	fmt.Fprintf(&sb, "by category:")
	for _, k := range sortedKeys(p.ByCategory) {
		fmt.Fprintf(&sb, " %s=%d", k, p.ByCategory[k])
	}
	sb.WriteByte('\n')

	fmt.Fprintf(&sb, "top refs: %s\n", strings.Join(p.TopRefs, "; "))
	for _, s := range p.Samples {
		fmt.Fprintf(&sb, "sample [%s]: %s\n", s.Ref, s.Snippet)
	}
	return sb.String()
}

// leadingChunk returns the first chunk of text under the splitter's
// chunk size. Splitter failures fall back to a rune-bounded cut.
func leadingChunk(splitter textsplitter.TextSplitter, text string) string {
	if text == "" {
		return ""
	}
	chunks, err := splitter.SplitText(text)
	if err != nil || len(chunks) == 0 {
		runes := []rune(text)
		if len(runes) > snippetChunkSize {
			runes = runes[:snippetChunkSize]
		}
		return string(runes)
	}
	return chunks[0]
}

func topN(m map[string]int, n int) map[string]int {
	if len(m) <= n {
		return m
	}
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool { return m[keys[i]] > m[keys[j]] })
	out := make(map[string]int, n)
	for _, k := range keys[:n] {
		out[k] = m[k]
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
