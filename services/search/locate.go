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
	"regexp"
	"sort"
	"strings"

	"github.com/AleutianAI/Mekoros/services/corpus"
)

// Classical-source priority weights for ranking located hits. Talmud
// outranks Rishonim, which outrank the codes, which outrank modern
// works: commentary noise must not bury the primary discussion.
const (
	weightTalmud   = 3.0
	weightRishonim = 2.0
	weightCodes    = 1.5
	weightDefault  = 1.0
)

// ambiguityRatio: two unrelated top simanim within this weight ratio
// of each other mean the topic is ambiguous.
const ambiguityRatio = 1.3

// maxSimanim bounds how many located simanim are mined for refs.
const maxSimanim = 3

// talmudRefPattern extracts tractate+daf citations from text bodies.
// The fallback when a siman has no usable related links.
var talmudRefPattern = regexp.MustCompile(`(?i)\b(Berakhot|Shabbat|Eruvin|Pesachim|Yoma|Sukkah|Beitzah|Rosh Hashanah|Taanit|Megillah|Moed Katan|Chagigah|Yevamot|Ketubot|Nedarim|Nazir|Sotah|Gittin|Kiddushin|Bava Kamma|Bava Metzia|Bava Batra|Sanhedrin|Makkot|Shevuot|Avodah Zarah|Horayot|Zevachim|Menachot|Chullin|Bekhorot|Arakhin|Temurah|Keritot|Meilah|Niddah)\s+(\d{1,3})([ab])\b`)

// siman is one located codified section with its accumulated weight.
type siman struct {
	Ref    string
	Weight float64
}

// locate is phase A: find the codified sections that discuss the
// topic, rank them by weighted hit density, and mine each for its
// underlying Talmud references. A close race between unrelated
// simanim returns clarification options instead of anchors.
func (e *Engine) locate(ctx context.Context, terms []string) (anchors []string, options []ClarifyOption, err error) {
	ctx, span := searchTracer.Start(ctx, "search.locate")
	defer span.End()

	weights := make(map[string]float64)
	var order []string
	for _, term := range terms {
		res, err := e.corpus.Search(ctx, term, corpus.SearchOptions{
			Size:    10,
			Filters: map[string]string{"path": "Halakhah"},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("locating %q: %w", term, err)
		}
		for _, hit := range res.SampleHits {
			if _, seen := weights[hit.Ref]; !seen {
				order = append(order, hit.Ref)
			}
			weights[hit.Ref] += hitWeight(hit.Categories)
		}
	}
	if len(weights) == 0 {
		return nil, nil, nil
	}

	ranked := make([]siman, 0, len(weights))
	for _, ref := range order {
		ranked = append(ranked, siman{Ref: ref, Weight: weights[ref]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Weight != ranked[j].Weight {
			return ranked[i].Weight > ranked[j].Weight
		}
		return ranked[i].Ref < ranked[j].Ref
	})
	if len(ranked) > maxSimanim {
		ranked = ranked[:maxSimanim]
	}

	refsBySiman := make([][]string, len(ranked))
	for i, s := range ranked {
		refsBySiman[i] = e.talmudRefsOf(ctx, s.Ref)
	}

	// Ambiguity: comparable weight, disjoint underlying sugyos.
	if len(ranked) >= 2 &&
		ranked[1].Weight > 0 &&
		ranked[0].Weight/ranked[1].Weight < ambiguityRatio &&
		disjoint(refsBySiman[0], refsBySiman[1]) {
		for i, s := range ranked[:2] {
			options = append(options, ClarifyOption{
				ID:    fmt.Sprintf("siman-%d", i),
				Label: s.Ref,
				Ref:   s.Ref,
			})
		}
		return nil, options, nil
	}

	for _, refs := range refsBySiman {
		anchors = append(anchors, refs...)
	}
	return dedupeRefs(anchors), nil, nil
}

// talmudRefsOf extracts the Talmud references a codified section
// cites, preferring related links and falling back to scanning the
// section body for tractate patterns.
func (e *Engine) talmudRefsOf(ctx context.Context, simanRef string) []string {
	var refs []string

	related, err := e.corpus.GetRelated(ctx, simanRef)
	if err == nil {
		for _, link := range append(related.Links, related.Commentaries...) {
			if strings.EqualFold(link.Category, "Talmud") || isDafRef(strings.ToLower(link.Ref)) {
				refs = append(refs, link.Ref)
			}
		}
	} else {
		slog.Debug("related lookup failed during locate", "ref", simanRef, "error", err)
	}
	if len(refs) > 0 {
		return dedupeRefs(refs)
	}

	text, err := e.corpus.GetText(ctx, simanRef)
	if err != nil {
		slog.Debug("siman body unavailable during locate", "ref", simanRef, "error", err)
		return nil
	}
	for _, m := range talmudRefPattern.FindAllStringSubmatch(text.Hebrew+" "+text.English, -1) {
		refs = append(refs, fmt.Sprintf("%s %s%s", m[1], m[2], strings.ToLower(m[3])))
	}
	return dedupeRefs(refs)
}

func hitWeight(categories []string) float64 {
	for _, c := range categories {
		switch strings.ToLower(c) {
		case "talmud", "mishnah":
			return weightTalmud
		case "rishonim", "commentary":
			return weightRishonim
		case "halakhah", "halacha":
			return weightCodes
		}
	}
	return weightDefault
}

func disjoint(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if set[s] {
			return false
		}
	}
	return true
}

func dedupeRefs(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
