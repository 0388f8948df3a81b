// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the request DTOs for the orchestrator's HTTP
// surface. Response bodies are the pipeline result types themselves
// (decipher.Result, search.Result); only the inbound shapes live here.
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// MaxQueryBytes bounds a query body. Byte length, not rune count, so
// oversized payloads are rejected before any processing.
const MaxQueryBytes = 4096

// requestValidate is the validator instance for request datatypes.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxQueryBytes
}

// DecipherRequest is the POST /decipher body.
type DecipherRequest struct {
	Query string `json:"query" binding:"required"`

	// Strict suppresses the confirmation round: uncertain words are
	// returned as-is with needs_validation set.
	Strict bool `json:"strict,omitempty"`
}

// Validate applies the package validation rules.
func (r *DecipherRequest) Validate() error {
	if err := requestValidate.Var(r.Query, "required,maxbytes"); err != nil {
		return fmt.Errorf("query must be non-empty and at most %d bytes", MaxQueryBytes)
	}
	return nil
}

// ConfirmRequest is the POST /decipher/confirm body.
type ConfirmRequest struct {
	OriginalQuery  string `json:"original_query" binding:"required"`
	SelectionIndex int    `json:"selection_index" binding:"gte=0"`
	SelectedHebrew string `json:"selected_hebrew" binding:"required"`
}

// Validate applies the package validation rules.
func (r *ConfirmRequest) Validate() error {
	if err := requestValidate.Var(r.OriginalQuery, "required,maxbytes"); err != nil {
		return fmt.Errorf("original_query must be non-empty and at most %d bytes", MaxQueryBytes)
	}
	return nil
}

// RejectRequest is the POST /decipher/reject body.
type RejectRequest struct {
	OriginalQuery string `json:"original_query" binding:"required"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

// Validate applies the package validation rules.
func (r *SearchRequest) Validate() error {
	if err := requestValidate.Var(r.Query, "required,maxbytes"); err != nil {
		return fmt.Errorf("query must be non-empty and at most %d bytes", MaxQueryBytes)
	}
	return nil
}

// ClarifyRequest is the POST /search/clarify body.
type ClarifyRequest struct {
	OriginalQuery    string `json:"original_query,omitempty"`
	QueryID          string `json:"query_id" binding:"required,uuid4"`
	SelectedOptionID string `json:"selected_option_id" binding:"required"`
}
