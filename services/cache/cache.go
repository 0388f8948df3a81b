// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache implements the keyed blob cache backing corpus texts and
// LLM responses.
//
// Each entry is one JSON file under <dir>/<name>/<md5(key)>.json holding
// {timestamp, key_preview, data}. TTL is enforced on read: expired and
// corrupt entries are evicted silently. Writers never leave a torn file
// behind; entries are written to a temp file and renamed into place, so a
// concurrent Set on the same key always yields one complete entry.
//
// Two instances are configured in practice: corpus texts (30 day TTL,
// the corpus is effectively immutable) and LLM responses (24 hour TTL).
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// keyPreviewLen bounds the human-readable key excerpt stored in
	// each entry for debugging.
	keyPreviewLen = 64

	// CorpusTextTTL is the default lifetime of cached corpus texts.
	CorpusTextTTL = 30 * 24 * time.Hour

	// LLMResponseTTL is the default lifetime of cached LLM responses.
	LLMResponseTTL = 24 * time.Hour
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds settings for one cache instance.
type Config struct {
	// Dir is the parent cache directory; the instance stores entries
	// under Dir/Name.
	Dir string

	// Name distinguishes the instance ("corpus_texts", "llm_responses").
	Name string

	// TTL is the entry lifetime. Entries older than TTL are evicted on
	// read. Must be positive.
	TTL time.Duration

	// Disabled turns the instance into a pass-through: Get always
	// misses and Set is a no-op.
	Disabled bool
}

// Validate checks the configuration, collecting all problems into a
// single error.
func (c Config) Validate() error {
	var errs []string
	if c.Dir == "" {
		errs = append(errs, "Dir must not be empty")
	}
	if c.Name == "" {
		errs = append(errs, "Name must not be empty")
	}
	if strings.ContainsAny(c.Name, `/\`) {
		errs = append(errs, "Name must not contain path separators")
	}
	if c.TTL <= 0 {
		errs = append(errs, "TTL must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid cache config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// CorpusTextConfig returns the corpus-texts instance config rooted at dir.
func CorpusTextConfig(dir string) Config {
	return Config{Dir: dir, Name: "corpus_texts", TTL: CorpusTextTTL}
}

// LLMResponseConfig returns the LLM-responses instance config rooted at dir.
func LLMResponseConfig(dir string) Config {
	return Config{Dir: dir, Name: "llm_responses", TTL: LLMResponseTTL}
}

// =============================================================================
// Entry and Stats
// =============================================================================

// entry is the on-disk envelope for one cached value.
type entry struct {
	Timestamp  time.Time       `json:"timestamp"`
	KeyPreview string          `json:"key_preview"`
	Data       json.RawMessage `json:"data"`
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Saves   uint64  `json:"saves"`
	Entries int     `json:"entries"`
	Bytes   int64   `json:"bytes"`
	HitRate float64 `json:"hit_rate"`
}

// =============================================================================
// FileCache
// =============================================================================

// FileCache is one cache instance. Safe for concurrent use; counters are
// atomics and writes go through rename.
type FileCache struct {
	cfg  Config
	root string

	hits   atomic.Uint64
	misses atomic.Uint64
	saves  atomic.Uint64
}

// New creates a FileCache, creating its directory if needed.
func New(cfg Config) (*FileCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root := filepath.Join(cfg.Dir, cfg.Name)
	if !cfg.Disabled {
		if err := os.MkdirAll(root, 0750); err != nil {
			return nil, fmt.Errorf("create cache dir %s: %w", root, err)
		}
	}
	return &FileCache{cfg: cfg, root: root}, nil
}

// Name returns the instance name.
func (c *FileCache) Name() string { return c.cfg.Name }

// Get loads the entry for key into out (a pointer). Returns false on
// miss, expiry, corruption, or when the cache is disabled. Expired and
// corrupt entries are removed as a side effect.
func (c *FileCache) Get(key string, out any) bool {
	raw, ok := c.GetRaw(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Debug("cache payload did not match target type", "cache", c.cfg.Name, "error", err)
		c.evict(key)
		return false
	}
	return true
}

// GetRaw returns the raw JSON payload for key, applying the same TTL and
// corruption rules as Get.
func (c *FileCache) GetRaw(key string) (json.RawMessage, bool) {
	if c.cfg.Disabled {
		return nil, false
	}

	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.evict(key)
		c.misses.Add(1)
		return nil, false
	}

	if time.Since(e.Timestamp) > c.cfg.TTL {
		c.evict(key)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return e.Data, true
}

// Set stores value under key. A no-op when disabled. The entry is
// written to a temp file in the cache directory and renamed into place.
func (c *FileCache) Set(key string, value any) error {
	if c.cfg.Disabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	e := entry{
		Timestamp:  time.Now(),
		KeyPreview: preview(key),
		Data:       data,
	}
	blob, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp entry: %w", err)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish cache entry: %w", err)
	}

	c.saves.Add(1)
	return nil
}

// Clear removes every entry and returns how many were deleted.
func (c *FileCache) Clear() (int, error) {
	if c.cfg.Disabled {
		return 0, nil
	}

	names, err := filepath.Glob(filepath.Join(c.root, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("list cache entries: %w", err)
	}
	removed := 0
	for _, name := range names {
		if err := os.Remove(name); err == nil {
			removed++
		} else if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove cache entry", "cache", c.cfg.Name, "path", name, "error", err)
		}
	}
	return removed, nil
}

// Stats reports counters plus a directory walk for entry and byte counts.
func (c *FileCache) Stats() Stats {
	s := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Saves:  c.saves.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}

	if c.cfg.Disabled {
		return s
	}
	names, err := filepath.Glob(filepath.Join(c.root, "*.json"))
	if err != nil {
		return s
	}
	for _, name := range names {
		info, err := os.Stat(name)
		if err != nil {
			continue
		}
		s.Entries++
		s.Bytes += info.Size()
	}
	return s
}

// path maps a key to its stable on-disk filename.
func (c *FileCache) path(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(c.root, hex.EncodeToString(sum[:])+".json")
}

func (c *FileCache) evict(key string) {
	_ = os.Remove(c.path(key))
}

func preview(key string) string {
	if len(key) <= keyPreviewLen {
		return key
	}
	return key[:keyPreviewLen]
}
