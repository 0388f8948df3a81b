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
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency caps parallel text fetches per request.
const DefaultFetchConcurrency = 8

// fetchAll is phase D's retrieval half: fetch every planned ref with
// bounded concurrency. A failed non-anchor ref is logged and dropped;
// if every anchor fails the whole request is dead. The returned order
// is deterministic regardless of completion order.
//
// The returned primary ref is the first anchor (in planned order)
// whose text actually fetched, so an unfetchable anchor never names
// the result.
func (e *Engine) fetchAll(ctx context.Context, planned []plannedRef) ([]Source, string, error) {
	ctx, span := searchTracer.Start(ctx, "search.fetchAll")
	defer span.End()

	sources := make([]*Source, len(planned))
	var mu sync.Mutex
	anchorTotal, anchorFailed := 0, 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fetchLimit)

	for i, p := range planned {
		if p.Anchor {
			anchorTotal++
		}
		g.Go(func() error {
			text, err := e.corpus.GetText(ctx, p.Ref)
			if err != nil {
				slog.Warn("source fetch failed; dropping", "ref", p.Ref, "anchor", p.Anchor, "error", err)
				if p.Anchor {
					mu.Lock()
					anchorFailed++
					mu.Unlock()
				}
				return nil
			}

			ref := text.CanonicalRef
			if ref == "" {
				ref = p.Ref
			}
			src := &Source{
				Ref:         ref,
				AuthorKey:   p.AuthorKey,
				Level:       p.Level,
				HebrewText:  text.Hebrew,
				EnglishText: text.English,
				CharCount:   len([]rune(text.Hebrew)) + len([]rune(text.English)),
			}
			if a, ok := e.kb.Get(p.AuthorKey); ok {
				src.HebrewLabel = a.PrimaryName
			}
			sources[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	if anchorTotal > 0 && anchorFailed == anchorTotal {
		return nil, "", fmt.Errorf("no anchor reference could be fetched")
	}

	primaryRef := ""
	for i, p := range planned {
		if p.Anchor && sources[i] != nil {
			primaryRef = sources[i].Ref
			break
		}
	}

	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			out = append(out, *s)
		}
	}
	sortSources(out, primaryRef)
	return out, primaryRef, nil
}

// sortSources orders deterministically: level order, then adjacency
// to the primary ref (same daf, neighboring daf, elsewhere), then
// alphabetic canonical ref.
func sortSources(sources []Source, primaryRef string) {
	sort.SliceStable(sources, func(i, j int) bool {
		if ri, rj := sources[i].Level.Rank(), sources[j].Level.Rank(); ri != rj {
			return ri < rj
		}
		if bi, bj := adjacencyBucket(primaryRef, sources[i].Ref), adjacencyBucket(primaryRef, sources[j].Ref); bi != bj {
			return bi < bj
		}
		return sources[i].Ref < sources[j].Ref
	})
}

// adjacencyBucket buckets a ref by distance from the primary ref:
// 0 same daf (either amud), 1 neighboring daf in the same tractate,
// 2 elsewhere.
func adjacencyBucket(primaryRef, ref string) int {
	pt, pd, pok := splitDafRef(primaryRef)
	st, sd, sok := splitDafRef(ref)
	if !pok || !sok || pt != st {
		return 2
	}
	switch d := pd - sd; {
	case d == 0:
		return 0
	case d == 1 || d == -1:
		return 1
	default:
		return 2
	}
}

// splitDafRef parses "Pesachim 4b" (or "Rashi on Pesachim 4b") into
// tractate and daf number.
func splitDafRef(ref string) (tractate string, daf int, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(ref))
	if _, tail, found := strings.Cut(lower, " on "); found {
		lower = tail
	}
	// Commentary refs may carry a trailing segment ("...4b:1").
	if head, _, found := strings.Cut(lower, ":"); found {
		lower = head
	}

	fields := strings.Fields(lower)
	if len(fields) < 2 {
		return "", 0, false
	}
	last := fields[len(fields)-1]
	if len(last) < 2 {
		return "", 0, false
	}
	side := last[len(last)-1]
	if side != 'a' && side != 'b' {
		return "", 0, false
	}
	n, err := strconv.Atoi(last[:len(last)-1])
	if err != nil {
		return "", 0, false
	}
	return strings.Join(fields[:len(fields)-1], " "), n, true
}
