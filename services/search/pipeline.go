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
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/Mekoros/services/decipher"
	"github.com/AleutianAI/Mekoros/services/session"
	"github.com/AleutianAI/Mekoros/services/understand"
)

// Service runs the full query pipeline and owns the clarification
// loop across requests.
type Service struct {
	decipher *decipher.Pipeline
	analyzer *understand.Analyzer
	engine   *Engine
	store    *session.Store
}

// NewService wires the pipeline. store may be nil; clarifications
// then degrade to stateless prompts without a resumable query_id.
func NewService(d *decipher.Pipeline, a *understand.Analyzer, e *Engine, store *session.Store) *Service {
	return &Service{decipher: d, analyzer: a, engine: e, store: store}
}

// clarifyState is the JSON payload persisted between a clarification
// and its answer.
type clarifyState struct {
	Stage       string               `json:"stage"`
	Query       string               `json:"original_query"`
	HebrewTerms []string             `json:"hebrew_terms"`
	Strategy    *understand.Strategy `json:"strategy,omitempty"`
	Options     []ClarifyOption      `json:"options"`
}

// Search runs decipher, understand, and search for one query. A
// clarification raised by either later stage is stored and surfaced
// with a query_id for Clarify.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	dec, err := s.decipher.Decipher(ctx, query)
	if err != nil {
		return nil, err
	}
	if !dec.Success && !dec.IsPureEnglish {
		return &Result{
			OriginalQuery:  query,
			Confidence:     string(understand.ConfidenceLow),
			SourcesByLevel: map[Level][]Source{},
			Message:        dec.Message,
		}, nil
	}

	strategy, err := s.analyzer.Understand(ctx, query, dec)
	if err != nil {
		return nil, err
	}
	if strategy.NeedsClarification() {
		return s.suspend(query, dec.HebrewTerms, strategy, "understand",
			strategy.ClarificationPrompt, optionsFromStrings(strategy.ClarificationOptions)), nil
	}

	res, err := s.engine.Run(ctx, query, dec.HebrewTerms, strategy)
	if err != nil {
		return nil, err
	}
	if res.NeedsClarification {
		suspended := s.suspend(query, dec.HebrewTerms, strategy, "search",
			res.ClarificationPrompt, res.ClarificationOptions)
		return suspended, nil
	}
	return res, nil
}

// Clarify resumes a suspended search with the user's chosen option as
// the anchor.
func (s *Service) Clarify(ctx context.Context, queryID, selectedOptionID string) (*Result, error) {
	if s.store == nil {
		return nil, fmt.Errorf("clarification store not configured")
	}
	var state clarifyState
	if err := s.store.Get(queryID, &state); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return &Result{
				Confidence:     string(understand.ConfidenceLow),
				SourcesByLevel: map[Level][]Source{},
				Message:        "clarification expired or unknown; please repeat the search",
			}, nil
		}
		return nil, err
	}

	chosen, ok := pickOption(state.Options, selectedOptionID)
	if !ok {
		return &Result{
			OriginalQuery:        state.Query,
			Confidence:           string(understand.ConfidenceLow),
			SourcesByLevel:       map[Level][]Source{},
			NeedsClarification:   true,
			QueryID:              queryID,
			ClarificationOptions: state.Options,
			Message:              fmt.Sprintf("unknown option %q", selectedOptionID),
		}, nil
	}
	if err := s.store.Delete(queryID); err != nil {
		slog.Warn("deleting answered clarification failed", "query_id", queryID, "error", err)
	}

	strategy := state.Strategy
	if strategy == nil {
		strategy = &understand.Strategy{
			QueryType:     understand.QueryConcept,
			FetchStrategy: understand.FetchTrickleDown,
			Depth:         understand.DepthStandard,
		}
	}
	anchor := chosen.Ref
	if anchor == "" {
		anchor = chosen.Label
	}
	strategy.PrimarySources = []string{anchor}
	strategy.Confidence = understand.ConfidenceHigh
	strategy.ClarificationPrompt = ""
	strategy.ClarificationOptions = nil
	strategy.Normalize()

	return s.engine.Run(ctx, state.Query, state.HebrewTerms, strategy)
}

// suspend stores pending state and shapes the clarification result.
func (s *Service) suspend(query string, terms []string, strategy *understand.Strategy, stage, prompt string, options []ClarifyOption) *Result {
	res := &Result{
		OriginalQuery:        query,
		HebrewTerms:          terms,
		Confidence:           string(strategy.Confidence),
		SourcesByLevel:       map[Level][]Source{},
		NeedsClarification:   true,
		ClarificationPrompt:  prompt,
		ClarificationOptions: options,
	}
	if s.store == nil {
		return res
	}
	id, err := s.store.Put(clarifyState{
		Stage:       stage,
		Query:       query,
		HebrewTerms: terms,
		Strategy:    strategy,
		Options:     options,
	})
	if err != nil {
		slog.Warn("storing clarification state failed", "error", err)
		return res
	}
	res.QueryID = id
	return res
}

func optionsFromStrings(options []string) []ClarifyOption {
	out := make([]ClarifyOption, 0, len(options))
	for i, o := range options {
		opt := ClarifyOption{ID: fmt.Sprintf("opt-%d", i), Label: o}
		if _, _, ok := splitDafRef(o); ok {
			opt.Ref = o
		}
		out = append(out, opt)
	}
	return out
}

func pickOption(options []ClarifyOption, id string) (ClarifyOption, bool) {
	for _, o := range options {
		if o.ID == id || o.Label == id {
			return o, true
		}
	}
	return ClarifyOption{}, false
}
