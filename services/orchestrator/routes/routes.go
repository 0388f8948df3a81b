// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes registers the orchestrator's HTTP surface.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/Mekoros/services/orchestrator/handlers"
)

// Deps carries the pipeline services the routes close over.
type Deps struct {
	Decipher handlers.Deciphering
	Search   handlers.Searching
	LLMModel string
	Caches   []handlers.CacheReporter
}

// SetupRoutes registers every endpoint on the router. The path set is
// the fixed v7 surface; new endpoints go through here.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HandleHealth(deps.LLMModel, deps.Caches...))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/decipher", handlers.HandleDecipher(deps.Decipher))
	router.POST("/decipher/confirm", handlers.HandleConfirm(deps.Decipher))
	router.POST("/decipher/reject", handlers.HandleReject(deps.Decipher))

	router.POST("/search", handlers.HandleSearch(deps.Search))
	router.POST("/search/clarify", handlers.HandleClarify(deps.Search))
}
