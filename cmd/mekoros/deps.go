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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/Mekoros/services/authors"
	"github.com/AleutianAI/Mekoros/services/cache"
	"github.com/AleutianAI/Mekoros/services/corpus"
	"github.com/AleutianAI/Mekoros/services/decipher"
	"github.com/AleutianAI/Mekoros/services/llm"
	"github.com/AleutianAI/Mekoros/services/search"
	"github.com/AleutianAI/Mekoros/services/session"
	"github.com/AleutianAI/Mekoros/services/understand"
)

// clarifyTTL bounds how long a pending clarification survives between
// CLI invocations.
const clarifyTTL = 30 * time.Minute

// pipelineDeps wires the pipeline in-process, the same assembly the
// orchestrator performs, sized for a single interactive user.
type pipelineDeps struct {
	Dict     *decipher.Dictionary
	Decipher *decipher.Pipeline
	Search   *search.Service
	LLMModel string

	closers []func() error
}

// Close releases the clarification store and any other held handles.
func (d *pipelineDeps) Close() {
	for _, fn := range d.closers {
		if err := fn(); err != nil {
			slog.Warn("cleanup failed", "error", err)
		}
	}
}

// buildDeps assembles the local pipeline. withSearch additionally
// wires the LLM client, analyzer, and clarification store; decipher
// alone needs none of them and must work without an API key.
func buildDeps(cfg CLIConfig, withSearch bool) (*pipelineDeps, error) {
	corpusCache, err := cache.New(cache.CorpusTextConfig(cfg.CacheDir))
	if err != nil {
		return nil, fmt.Errorf("corpus cache: %w", err)
	}

	corpusClient, err := corpus.New(corpus.DefaultConfig(cfg.Corpus.BaseURL), nil, corpusCache)
	if err != nil {
		return nil, fmt.Errorf("corpus client: %w", err)
	}

	kb := authors.NewKB()
	dict, err := decipher.NewDictionary(filepath.Join(cfg.DataDir, "word_dictionary.json"))
	if err != nil {
		return nil, fmt.Errorf("word dictionary: %w", err)
	}

	deps := &pipelineDeps{
		Dict: dict,
		Decipher: decipher.NewPipeline(
			dict,
			decipher.NewEngine(15),
			decipher.NewValidator(corpusClient, kb, 8),
			kb,
		),
	}
	if !withSearch {
		return deps, nil
	}

	llmCache, err := cache.New(cache.LLMResponseConfig(cfg.CacheDir))
	if err != nil {
		return nil, fmt.Errorf("llm cache: %w", err)
	}
	llmClient, err := llm.NewFromEnv()
	if err != nil {
		return nil, err
	}
	deps.LLMModel = llmClient.Model()

	store, err := session.Open(session.Config{
		Dir: filepath.Join(cfg.DataDir, "sessions"),
		TTL: clarifyTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("clarification store: %w", err)
	}
	deps.closers = append(deps.closers, store.Close)

	analyzer := understand.NewAnalyzer(llmClient, corpusClient, kb, llmCache)
	engine := search.NewEngine(corpusClient, llmClient, kb)
	deps.Search = search.NewService(deps.Decipher, analyzer, engine, store)
	return deps, nil
}

// interactiveTerminal reports whether stdin is a TTY, gating the huh
// prompts. Piped input always takes the non-interactive path.
func interactiveTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
