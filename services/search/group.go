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

import "strings"

// groupByLevel partitions sources by level, preserving their sorted
// order, and returns the levels present in enum order.
func groupByLevel(sources []Source) (map[Level][]Source, []Level) {
	byLevel := make(map[Level][]Source)
	for _, s := range sources {
		byLevel[s.Level] = append(byLevel[s.Level], s)
	}
	var present []Level
	for _, l := range LevelOrder {
		if len(byLevel[l]) > 0 {
			present = append(present, l)
		}
	}
	return byLevel, present
}

// groupByTerm assigns each source to the comparison term with the
// higher term frequency in its body; ties break to the first term.
// The per-term sets partition the input.
func groupByTerm(sources []Source, terms []string) map[string][]Source {
	if len(terms) == 0 {
		return nil
	}
	byTerm := make(map[string][]Source, len(terms))
	for _, term := range terms {
		byTerm[term] = nil
	}
	for _, s := range sources {
		best := terms[0]
		bestCount := termFrequency(s, terms[0])
		for _, term := range terms[1:] {
			if c := termFrequency(s, term); c > bestCount {
				best, bestCount = term, c
			}
		}
		byTerm[best] = append(byTerm[best], s)
	}
	return byTerm
}

// termFrequency counts occurrences of term in the source's bodies.
func termFrequency(s Source, term string) int {
	return strings.Count(s.HebrewText, term) + strings.Count(s.EnglishText, term)
}
