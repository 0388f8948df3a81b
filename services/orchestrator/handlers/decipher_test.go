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

	"github.com/AleutianAI/Mekoros/services/decipher"
)

type stubDecipher struct {
	result   *decipher.Result
	rejected []string
}

func (s *stubDecipher) Decipher(_ context.Context, query string) (*decipher.Result, error) {
	return s.result, nil
}

func (s *stubDecipher) Confirm(_ context.Context, query string, _ int, hebrew string) (*decipher.Result, error) {
	return &decipher.Result{Success: true, OriginalQuery: query, HebrewTerm: hebrew,
		HebrewTerms: []string{hebrew}}, nil
}

func (s *stubDecipher) Reject(query string) {
	s.rejected = append(s.rejected, query)
}

func decipherRouter(stub *stubDecipher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/decipher", HandleDecipher(stub))
	router.POST("/decipher/confirm", HandleConfirm(stub))
	router.POST("/decipher/reject", HandleReject(stub))
	return router
}

func TestHandleDecipher(t *testing.T) {
	stub := &stubDecipher{result: &decipher.Result{
		Success:     true,
		HebrewTerm:  "חזקת הגוף",
		HebrewTerms: []string{"חזקת הגוף"},
	}}
	router := decipherRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decipher",
		strings.NewReader(`{"query": "chezkas haguf"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res decipher.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "חזקת הגוף", res.HebrewTerm)
}

func TestHandleDecipherRejectsMissingQuery(t *testing.T) {
	router := decipherRouter(&stubDecipher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decipher", strings.NewReader(`{}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDecipherRejectsOversizedQuery(t *testing.T) {
	router := decipherRouter(&stubDecipher{})

	huge := strings.Repeat("a", 5000)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decipher",
		strings.NewReader(`{"query": "`+huge+`"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleConfirm(t *testing.T) {
	router := decipherRouter(&stubDecipher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decipher/confirm",
		strings.NewReader(`{"original_query": "goral", "selection_index": 0, "selected_hebrew": "גורל"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res decipher.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "גורל", res.HebrewTerm)
}

func TestHandleReject(t *testing.T) {
	stub := &stubDecipher{}
	router := decipherRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decipher/reject",
		strings.NewReader(`{"original_query": "goral"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"goral"}, stub.rejected)
}
