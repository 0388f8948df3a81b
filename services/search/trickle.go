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
	"log/slog"
	"strings"

	"github.com/AleutianAI/Mekoros/services/understand"
)

// defaultTargetAuthors is used when the strategy names no authors:
// the commentators a learner reaches for first.
var defaultTargetAuthors = []string{
	"rashi", "tosfos", "rambam", "rosh", "ran", "rashba", "ritva", "maharsha",
}

// trickle is phase C: from each validated anchor, traverse outward to
// its commentaries and, for halachic queries, upward into the codes
// that cite it. Per-level breadth is capped by the strategy depth.
func (e *Engine) trickle(ctx context.Context, strategy *understand.Strategy, anchors []string) []plannedRef {
	ctx, span := searchTracer.Start(ctx, "search.trickle")
	defer span.End()

	levelCap := DepthCap(strategy.Depth)
	targets := targetSet(strategy.TargetAuthors)

	perLevel := make(map[Level]int)
	seen := make(map[string]bool)
	var planned []plannedRef

	add := func(p plannedRef) {
		if seen[p.Ref] {
			return
		}
		if !p.Anchor && perLevel[p.Level] >= levelCap {
			return
		}
		seen[p.Ref] = true
		perLevel[p.Level]++
		planned = append(planned, p)
	}

	for _, anchor := range anchors {
		add(plannedRef{Ref: anchor, Level: LevelForRef(anchor, e.kb), Anchor: true})
	}

	climbCodes := strategy.QueryType == understand.QueryHalachicPractice ||
		strategy.FetchStrategy == understand.FetchTrickleUp

	for _, anchor := range anchors {
		related, err := e.corpus.GetRelated(ctx, anchor)
		if err != nil {
			slog.Warn("related lookup failed during trickle", "ref", anchor, "error", err)
			continue
		}

		for _, link := range related.Commentaries {
			authorKey := e.authorOfRef(link.Ref, link.Work)
			if authorKey == "" || !targets[authorKey] {
				continue
			}
			add(plannedRef{
				Ref:       link.Ref,
				AuthorKey: authorKey,
				Level:     LevelForAuthor(authorKey, e.kb),
			})
		}

		if !climbCodes {
			continue
		}
		for _, link := range related.Links {
			if !isCodeCategory(link.Category) {
				continue
			}
			level := LevelForRef(link.Ref, e.kb)
			if level != LevelRambam && level != LevelTur && level != LevelShulchanAruch && level != LevelNoseiKeilim {
				continue
			}
			add(plannedRef{
				Ref:       link.Ref,
				AuthorKey: e.authorOfRef(link.Ref, link.Work),
				Level:     level,
			})
		}
	}
	return planned
}

// targetSet expands the strategy's author list, defaulting when
// empty.
func targetSet(targetAuthors []string) map[string]bool {
	keys := targetAuthors
	if len(keys) == 0 {
		keys = defaultTargetAuthors
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// authorOfRef resolves the author key behind a commentary ref, using
// the work name when given, else the ref's head before " on ".
func (e *Engine) authorOfRef(ref, work string) string {
	if work != "" {
		if key, ok := e.kb.Matches(work); ok {
			return key
		}
	}
	head := strings.ToLower(ref)
	if h, _, found := strings.Cut(head, " on "); found {
		head = h
	}
	if key, ok := e.kb.Matches(head); ok {
		return key
	}
	return ""
}

func isCodeCategory(category string) bool {
	switch strings.ToLower(category) {
	case "halakhah", "halacha", "codes":
		return true
	}
	return false
}
