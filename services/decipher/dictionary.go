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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Dictionary entry provenance values.
const (
	SourceManual        = "manual"
	SourceImport        = "dictionary-import"
	SourceRulesConfirm  = "rules-confirmed"
	SourceUserConfirmed = "user-confirmed"
	SourceRuntime       = "runtime"
)

// maxSpanWords bounds the phrase length tried during LookupAll.
const maxSpanWords = 4

// DictEntry is one learned transliteration -> Hebrew mapping.
type DictEntry struct {
	Hebrew     string    `json:"hebrew"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Span is one segment of a query after dictionary matching. Matched
// spans carry the learned Hebrew; unmatched spans go to the rules
// engine.
type Span struct {
	Words   string
	Hebrew  string
	Matched bool
}

// Dictionary is the persistent learned word dictionary. All access is
// serialized behind a single mutex; disk rewrites snapshot the
// previous file into <dir>/backups first.
type Dictionary struct {
	mu      sync.Mutex
	path    string
	entries map[string]DictEntry
}

// NewDictionary loads the dictionary at path, creating and seeding it
// when absent.
func NewDictionary(path string) (*Dictionary, error) {
	d := &Dictionary{
		path:    path,
		entries: make(map[string]DictEntry),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating dictionary dir: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		d.seed()
		if err := d.saveLocked(); err != nil {
			return nil, err
		}
		slog.Info("seeded new word dictionary", "path", path, "entries", len(d.entries))
		return d, nil
	}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the backing file path.
func (d *Dictionary) Path() string { return d.path }

// Reload replaces the in-memory map from disk. Called at startup and
// by the file watcher when an operator hand-edits the file.
func (d *Dictionary) Reload() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("reading dictionary: %w", err)
	}
	entries := make(map[string]DictEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing dictionary %s: %w", d.path, err)
	}

	d.mu.Lock()
	d.entries = entries
	d.mu.Unlock()

	slog.Debug("word dictionary reloaded", "path", d.path, "entries", len(entries))
	return nil
}

// Lookup returns the entry for one normalized word.
func (d *Dictionary) Lookup(word string) (DictEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[normalizeWord(word)]
	return e, ok
}

// LookupAll segments a query into dictionary-matched and uncovered
// spans. Matching is greedy left-to-right, longest span first at each
// position. Usage counts of matched entries are bumped in memory only;
// they persist on the next Record.
func (d *Dictionary) LookupAll(query string) []Span {
	words := strings.Fields(normalizeWord(query))
	if len(words) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var spans []Span
	var pending []string // accumulating unmatched words
	flush := func() {
		if len(pending) > 0 {
			spans = append(spans, Span{Words: strings.Join(pending, " ")})
			pending = nil
		}
	}

	i := 0
	for i < len(words) {
		matched := false
		max := maxSpanWords
		if rest := len(words) - i; rest < max {
			max = rest
		}
		for n := max; n >= 1; n-- {
			key := strings.Join(words[i:i+n], " ")
			e, ok := d.entries[key]
			if !ok {
				continue
			}
			flush()
			e.UsageCount++
			e.LastUsedAt = time.Now()
			d.entries[key] = e
			spans = append(spans, Span{Words: key, Hebrew: e.Hebrew, Matched: true})
			i += n
			matched = true
			break
		}
		if !matched {
			pending = append(pending, words[i])
			i++
		}
	}
	flush()
	return spans
}

// Record inserts or updates a mapping and persists the dictionary.
// The previous file is snapshotted to <dir>/backups first.
func (d *Dictionary) Record(translit, hebrew, source string) error {
	key := normalizeWord(translit)
	if key == "" || hebrew == "" {
		return fmt.Errorf("empty dictionary mapping %q -> %q", translit, hebrew)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.entries[key]
	if !exists {
		e = DictEntry{Hebrew: hebrew, Confidence: 1.0, Source: source, CreatedAt: time.Now()}
	} else {
		e.Hebrew = hebrew
		e.Source = source
	}
	e.UsageCount++
	e.LastUsedAt = time.Now()
	d.entries[key] = e

	if err := d.backupLocked(); err != nil {
		slog.Warn("dictionary backup failed", "error", err)
	}
	return d.saveLocked()
}

// DictListing pairs a key with its entry for iteration.
type DictListing struct {
	Key   string
	Entry DictEntry
}

// Entries returns a copy of the dictionary sorted by key.
func (d *Dictionary) Entries() []DictListing {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]DictListing, 0, len(d.entries))
	for k, e := range d.entries {
		out = append(out, DictListing{k, e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats summarizes the dictionary for the CLI.
type Stats struct {
	Path     string         `json:"path"`
	Entries  int            `json:"entries"`
	BySource map[string]int `json:"by_source"`
	TotalUse int            `json:"total_use"`
}

func (d *Dictionary) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{Path: d.path, Entries: len(d.entries), BySource: make(map[string]int)}
	for _, e := range d.entries {
		s.BySource[e.Source]++
		s.TotalUse += e.UsageCount
	}
	return s
}

// Backup snapshots the current file into <dir>/backups and returns
// the snapshot path.
func (d *Dictionary) Backup() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backupPathLocked()
}

func (d *Dictionary) backupLocked() error {
	_, err := d.backupPathLocked()
	return err
}

func (d *Dictionary) backupPathLocked() (string, error) {
	src, err := os.Open(d.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer src.Close()

	backupDir := filepath.Join(filepath.Dir(d.path), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", err
	}
	dstPath := filepath.Join(backupDir, time.Now().UTC().Format("20060102T150405.000")+".json")
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return dstPath, nil
}

// saveLocked rewrites the dictionary file atomically. Caller holds mu.
func (d *Dictionary) saveLocked() error {
	data, err := json.MarshalIndent(d.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dictionary: %w", err)
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing dictionary: %w", err)
	}
	return nil
}

// seed populates a fresh dictionary with tractate names and common
// sugya vocabulary.
func (d *Dictionary) seed() {
	seeds := map[string]string{
		// Tractates (Bavli, common citation forms).
		"brachos":      "ברכות",
		"berachos":     "ברכות",
		"shabbos":      "שבת",
		"eruvin":       "עירובין",
		"pesachim":     "פסחים",
		"yoma":         "יומא",
		"sukkah":       "סוכה",
		"beitzah":      "ביצה",
		"rosh hashana": "ראש השנה",
		"taanis":       "תענית",
		"megillah":     "מגילה",
		"moed katan":   "מועד קטן",
		"chagigah":     "חגיגה",
		"yevamos":      "יבמות",
		"kesubos":      "כתובות",
		"nedarim":      "נדרים",
		"nazir":        "נזיר",
		"sotah":        "סוטה",
		"gittin":       "גיטין",
		"kiddushin":    "קידושין",
		"bava kama":    "בבא קמא",
		"bava kamma":   "בבא קמא",
		"bava metzia":  "בבא מציעא",
		"bava basra":   "בבא בתרא",
		"sanhedrin":    "סנהדרין",
		"makkos":       "מכות",
		"shevuos":      "שבועות",
		"avodah zarah": "עבודה זרה",
		"horayos":      "הוריות",
		"zevachim":     "זבחים",
		"menachos":     "מנחות",
		"chullin":      "חולין",
		"bechoros":     "בכורות",
		"erchin":       "ערכין",
		"temurah":      "תמורה",
		"kerisus":      "כריתות",
		"meilah":       "מעילה",
		"niddah":       "נדה",

		// Common sugya vocabulary.
		"chezkas haguf":   "חזקת הגוף",
		"chezkas mamon":   "חזקת ממון",
		"bedikas chometz": "בדיקת חמץ",
		"chometz":         "חמץ",
		"muktzah":         "מוקצה",
		"shomer":          "שומר",
		"shomrim":         "שומרים",
		"kinyan":          "קנין",
		"kinyanim":        "קנינים",
		"safek":           "ספק",
		"sfeika":          "ספיקא",
		"bari":            "ברי",
		"shema":           "שמא",
		"migo":            "מיגו",
		"yeush":           "יאוש",
		"hefker":          "הפקר",
		"mezuzah":         "מזוזה",
		"tefillin":        "תפילין",
	}
	now := time.Now()
	for k, v := range seeds {
		d.entries[normalizeWord(k)] = DictEntry{
			Hebrew:     v,
			Confidence: 1.0,
			Source:     SourceImport,
			CreatedAt:  now,
			LastUsedAt: now,
		}
	}
}
