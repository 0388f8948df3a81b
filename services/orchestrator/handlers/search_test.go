// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Mekoros/services/cache"
	"github.com/AleutianAI/Mekoros/services/search"
)

type stubSearch struct {
	result    *search.Result
	clarified struct {
		queryID string
		option  string
	}
}

func (s *stubSearch) Search(context.Context, string) (*search.Result, error) {
	return s.result, nil
}

func (s *stubSearch) Clarify(_ context.Context, queryID, option string) (*search.Result, error) {
	s.clarified.queryID = queryID
	s.clarified.option = option
	return s.result, nil
}

func searchRouter(stub *stubSearch) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/search", HandleSearch(stub))
	router.POST("/search/clarify", HandleClarify(stub))
	return router
}

func TestHandleSearch(t *testing.T) {
	stub := &stubSearch{result: &search.Result{
		OriginalQuery: "chezkas haguf",
		PrimaryRef:    "Ketubot 75b",
		TotalSources:  2,
		Confidence:    "high",
	}}
	router := searchRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/search",
		strings.NewReader(`{"query": "chezkas haguf"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res search.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Ketubot 75b", res.PrimaryRef)
	assert.Equal(t, 2, res.TotalSources)
}

func TestHandleSearchRejectsEmptyBody(t *testing.T) {
	router := searchRouter(&stubSearch{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleClarify(t *testing.T) {
	stub := &stubSearch{result: &search.Result{PrimaryRef: "Pesachim 4b", TotalSources: 1}}
	router := searchRouter(stub)

	id := "0b38a2a5-7a43-4a8f-9c56-0a43d1a0e2af"
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/search/clarify",
		strings.NewReader(`{"query_id": "`+id+`", "selected_option_id": "opt-0"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, stub.clarified.queryID)
	assert.Equal(t, "opt-0", stub.clarified.option)
}

func TestHandleClarifyRequiresUUID(t *testing.T) {
	router := searchRouter(&stubSearch{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/search/clarify",
		strings.NewReader(`{"query_id": "not-a-uuid", "selected_option_id": "opt-0"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fc, err := cache.New(cache.Config{Dir: t.TempDir(), Name: "corpus_texts", TTL: cache.CorpusTextTTL})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/health", HandleHealth("gpt-4o-mini", fc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		OK       bool `json:"ok"`
		Versions struct {
			Service  string `json:"service"`
			LLMModel string `json:"llm_model"`
		} `json:"versions"`
		CacheStats map[string]cache.Stats `json:"cache_stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, Version, body.Versions.Service)
	assert.Equal(t, "gpt-4o-mini", body.Versions.LLMModel)
	assert.Contains(t, body.CacheStats, "corpus_texts")
}
