// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/Mekoros/services/decipher"
	"github.com/AleutianAI/Mekoros/services/search"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess    = 0   // Operation completed successfully
	CLIExitError      = 1   // Operation failed
	CLIExitMissingKey = 2   // No LLM API key available
	CLIExitInterrupt  = 130 // Interrupted by signal
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	levelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	refStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	hebrewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// levelTitles maps the grouping levels to display headings.
var levelTitles = map[search.Level]string{
	search.LevelChumash:       "Chumash",
	search.LevelMishnah:       "Mishnah",
	search.LevelGemara:        "Gemara",
	search.LevelRashi:         "Rashi",
	search.LevelTosfos:        "Tosfos",
	search.LevelRishonim:      "Rishonim",
	search.LevelRambam:        "Rambam",
	search.LevelTur:           "Tur",
	search.LevelShulchanAruch: "Shulchan Aruch",
	search.LevelNoseiKeilim:   "Nosei Keilim",
	search.LevelAcharonim:     "Acharonim",
	search.LevelOther:         "Other Sources",
}

func levelTitle(l search.Level) string {
	if t, ok := levelTitles[l]; ok {
		return t
	}
	return string(l)
}

// OutputJSON writes data as indented JSON to stdout.
func OutputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// truncateRunes shortens s to at most n runes, appending an ellipsis
// when anything was cut.
func truncateRunes(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "…"
}

// renderSearch formats a search result for the terminal, one heading
// per source level in canonical order.
func renderSearch(res *search.Result) string {
	var b strings.Builder

	if res.NeedsClarification {
		b.WriteString(warnStyle.Render("Clarification needed: "+res.ClarificationPrompt) + "\n")
		for _, opt := range res.ClarificationOptions {
			b.WriteString(fmt.Sprintf("  [%s] %s\n", refStyle.Render(opt.ID), opt.Label))
		}
		b.WriteString(faintStyle.Render("Resume with: mekoros search --clarify "+res.QueryID+" --option <id>") + "\n")
		return b.String()
	}

	header := res.OriginalQuery
	if res.PrimaryRef != "" {
		header += " → " + res.PrimaryRef
	}
	b.WriteString(titleStyle.Render(header) + "\n")
	if len(res.HebrewTerms) > 0 {
		b.WriteString(hebrewStyle.Render(strings.Join(res.HebrewTerms, " · ")) + "\n")
	}
	if res.Interpretation != "" {
		b.WriteString(faintStyle.Render(res.Interpretation) + "\n")
	}

	if len(res.SourcesByTerm) > 0 {
		for term, sources := range res.SourcesByTerm {
			b.WriteString("\n" + levelStyle.Render("── "+term+" ──") + "\n")
			for _, src := range sources {
				writeSource(&b, src)
			}
		}
	} else {
		for _, level := range search.LevelOrder {
			sources := res.SourcesByLevel[level]
			if len(sources) == 0 {
				continue
			}
			b.WriteString("\n" + levelStyle.Render("── "+levelTitle(level)+" ──") + "\n")
			for _, src := range sources {
				writeSource(&b, src)
			}
		}
	}

	b.WriteString("\n" + faintStyle.Render(fmt.Sprintf("%d sources · confidence %s", res.TotalSources, res.Confidence)) + "\n")
	if res.Message != "" {
		b.WriteString(warnStyle.Render(res.Message) + "\n")
	}
	return b.String()
}

func writeSource(b *strings.Builder, src search.Source) {
	label := src.Ref
	if src.HebrewLabel != "" {
		label += "  " + src.HebrewLabel
	}
	b.WriteString("  " + refStyle.Render(label) + "\n")
	if src.HebrewText != "" {
		b.WriteString("    " + truncateRunes(src.HebrewText, 120) + "\n")
	}
}

// renderDecipher formats a decipher result, flagging words that still
// need confirmation.
func renderDecipher(res *decipher.Result) string {
	var b strings.Builder

	if !res.Success {
		b.WriteString(warnStyle.Render("Could not decipher: "+res.OriginalQuery) + "\n")
		if res.Message != "" {
			b.WriteString(faintStyle.Render(res.Message) + "\n")
		}
		return b.String()
	}

	b.WriteString(titleStyle.Render(res.OriginalQuery) + "\n")
	b.WriteString(hebrewStyle.Render(strings.Join(res.HebrewTerms, " · ")) + "\n")
	b.WriteString(faintStyle.Render(fmt.Sprintf("confidence %s · method %s", res.Confidence, res.Method)) + "\n")

	for i, wv := range res.WordValidations {
		if !wv.NeedsValidation {
			continue
		}
		line := fmt.Sprintf("  [%d] %s → %s", i, wv.Original, wv.BestHebrew)
		if len(wv.Alternatives) > 0 {
			line += faintStyle.Render("  (also: " + strings.Join(wv.Alternatives, ", ") + ")")
		}
		b.WriteString(warnStyle.Render("unconfirmed") + line + "\n")
	}
	return b.String()
}
