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
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/Mekoros/services/orchestrator/datatypes"
	"github.com/AleutianAI/Mekoros/services/orchestrator/observability"
	"github.com/AleutianAI/Mekoros/services/search"
)

// Searching is the full-pipeline surface the handlers need.
// Implemented by search.Service; tests substitute a stub.
type Searching interface {
	Search(ctx context.Context, query string) (*search.Result, error)
	Clarify(ctx context.Context, queryID, selectedOptionID string) (*search.Result, error)
}

// HandleSearch serves POST /search: the full
// decipher-understand-search pipeline for one query.
func HandleSearch(svc Searching) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleSearch")
		defer span.End()

		var req datatypes.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, span, "/search", "failed to bind search request", err)
			return
		}
		if err := req.Validate(); err != nil {
			badRequest(c, span, "/search", "invalid search request", err)
			return
		}
		span.SetAttributes(attribute.Int("query_length", len(req.Query)))

		start := time.Now()
		res, err := svc.Search(ctx, req.Query)
		observability.ObserveStage("search", start)
		if err != nil {
			internalError(c, span, "/search", "search failed", err)
			return
		}
		span.SetAttributes(
			attribute.Int("total_sources", res.TotalSources),
			attribute.Bool("needs_clarification", res.NeedsClarification),
		)
		observability.CountRequest("/search", strconv.Itoa(http.StatusOK))
		c.JSON(http.StatusOK, res)
	}
}

// HandleClarify serves POST /search/clarify: resume a suspended
// search with the user's chosen option.
func HandleClarify(svc Searching) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleClarify")
		defer span.End()

		var req datatypes.ClarifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, span, "/search/clarify", "failed to bind clarify request", err)
			return
		}
		span.SetAttributes(
			attribute.String("query_id", req.QueryID),
			attribute.String("selected_option", req.SelectedOptionID),
		)

		res, err := svc.Clarify(ctx, req.QueryID, req.SelectedOptionID)
		if err != nil {
			internalError(c, span, "/search/clarify", "clarify failed", err)
			return
		}
		observability.CountRequest("/search/clarify", strconv.Itoa(http.StatusOK))
		c.JSON(http.StatusOK, res)
	}
}
