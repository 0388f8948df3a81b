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
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/Mekoros/services/authors"
	"github.com/AleutianAI/Mekoros/services/corpus"
)

// DefaultValidateConcurrency bounds parallel corpus lookups per word.
const DefaultValidateConcurrency = 15

// authorBoost dominates any realistic hit count, so a candidate that
// names a known author outranks a common Hebrew word with more hits.
const authorBoost = 1 << 24

// Searcher is the corpus surface the validator needs.
type Searcher interface {
	Search(ctx context.Context, hebrewTerm string, opts corpus.SearchOptions) (*corpus.SearchResult, error)
}

// Validated is a variant that survived corpus validation.
type Validated struct {
	Variant

	// Hits is the corpus hit count.
	Hits int

	// TopRefs are the leading references for the term.
	TopRefs []string

	// IsAuthor marks candidates recognized by the authors KB.
	IsAuthor bool
}

// Validator checks candidate Hebrew renderings against the corpus.
type Validator struct {
	corpus      Searcher
	kb          *authors.KB
	concurrency int64
}

// NewValidator creates a Validator. concurrency <= 0 selects the
// default.
func NewValidator(searcher Searcher, kb *authors.KB, concurrency int) *Validator {
	if concurrency <= 0 {
		concurrency = DefaultValidateConcurrency
	}
	return &Validator{corpus: searcher, kb: kb, concurrency: int64(concurrency)}
}

// Validate looks every candidate up in the corpus in parallel and
// returns the ones with hits, ordered by hit count descending, ties
// broken by original rank. Candidates matching a known author are
// boosted above any hit count. Lookup failures drop the candidate
// with a warning; Validate only returns an error when the context is
// canceled.
func (v *Validator) Validate(ctx context.Context, word string, variants []Variant) ([]Validated, error) {
	if len(variants) == 0 {
		return nil, nil
	}

	sem := semaphore.NewWeighted(v.concurrency)
	results := make([]*Validated, len(variants))
	var wg sync.WaitGroup

	for i, variant := range variants {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(rank int, variant Variant) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := v.corpus.Search(ctx, variant.Hebrew, corpus.SearchOptions{Size: 5})
			if err != nil {
				slog.Warn("candidate validation lookup failed",
					"word", word,
					"candidate", variant.Hebrew,
					"error", err,
				)
				return
			}
			if res.TotalHits == 0 {
				return
			}
			results[rank] = &Validated{
				Variant:  variant,
				Hits:     res.TotalHits,
				TopRefs:  res.TopRefs,
				IsAuthor: v.kb != nil && v.kb.IsAuthor(variant.Hebrew),
			}
		}(i, variant)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type ranked struct {
		v    Validated
		rank int
	}
	var kept []ranked
	for rank, r := range results {
		if r != nil {
			kept = append(kept, ranked{*r, rank})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		si, sj := score(kept[i].v), score(kept[j].v)
		if si != sj {
			return si > sj
		}
		return kept[i].rank < kept[j].rank
	})

	out := make([]Validated, len(kept))
	for i, r := range kept {
		out[i] = r.v
	}
	return out, nil
}

func score(v Validated) int {
	if v.IsAuthor {
		return v.Hits + authorBoost
	}
	return v.Hits
}
