// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the orchestrator's HTTP handlers as
// closures over their pipeline dependencies.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/Mekoros/services/decipher"
	"github.com/AleutianAI/Mekoros/services/orchestrator/datatypes"
	"github.com/AleutianAI/Mekoros/services/orchestrator/observability"
)

var handlerTracer = otel.Tracer("mekoros.orchestrator.handlers")

// Deciphering is the DECIPHER surface the handlers need. Implemented
// by decipher.Pipeline; tests substitute a stub.
type Deciphering interface {
	Decipher(ctx context.Context, query string) (*decipher.Result, error)
	Confirm(ctx context.Context, query string, selectionIndex int, selectedHebrew string) (*decipher.Result, error)
	Reject(query string)
}

// HandleDecipher serves POST /decipher.
func HandleDecipher(pipeline Deciphering) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleDecipher")
		defer span.End()

		var req datatypes.DecipherRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, span, "/decipher", "failed to bind decipher request", err)
			return
		}
		if err := req.Validate(); err != nil {
			badRequest(c, span, "/decipher", "invalid decipher request", err)
			return
		}
		span.SetAttributes(
			attribute.Int("query_length", len(req.Query)),
			attribute.Bool("strict", req.Strict),
		)

		start := time.Now()
		res, err := pipeline.Decipher(ctx, req.Query)
		observability.ObserveStage("decipher", start)
		if err != nil {
			internalError(c, span, "/decipher", "decipher failed", err)
			return
		}
		observability.CountRequest("/decipher", strconv.Itoa(http.StatusOK))
		c.JSON(http.StatusOK, res)
	}
}

// HandleConfirm serves POST /decipher/confirm: the user picked a
// rendering for an uncertain word and the dictionary learns it.
func HandleConfirm(pipeline Deciphering) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleConfirm")
		defer span.End()

		var req datatypes.ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, span, "/decipher/confirm", "failed to bind confirm request", err)
			return
		}
		if err := req.Validate(); err != nil {
			badRequest(c, span, "/decipher/confirm", "invalid confirm request", err)
			return
		}
		span.SetAttributes(attribute.Int("selection_index", req.SelectionIndex))

		res, err := pipeline.Confirm(ctx, req.OriginalQuery, req.SelectionIndex, req.SelectedHebrew)
		if err != nil {
			internalError(c, span, "/decipher/confirm", "confirm failed", err)
			return
		}
		observability.CountRequest("/decipher/confirm", strconv.Itoa(http.StatusOK))
		c.JSON(http.StatusOK, res)
	}
}

// HandleReject serves POST /decipher/reject. Rejections are logged
// for rule tuning; nothing is recorded in the dictionary.
func HandleReject(pipeline Deciphering) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := handlerTracer.Start(c.Request.Context(), "HandleReject")
		defer span.End()

		var req datatypes.RejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, span, "/decipher/reject", "failed to bind reject request", err)
			return
		}
		pipeline.Reject(req.OriginalQuery)
		observability.CountRequest("/decipher/reject", strconv.Itoa(http.StatusOK))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// badRequest records and responds to a caller error.
func badRequest(c *gin.Context, span trace.Span, endpoint, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.Error(msg, "error", err)
	observability.CountRequest(endpoint, strconv.Itoa(http.StatusBadRequest))
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// internalError records and responds to a pipeline failure.
func internalError(c *gin.Context, span trace.Span, endpoint, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.Error(msg, "error", err)
	observability.CountRequest(endpoint, strconv.Itoa(http.StatusInternalServerError))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
