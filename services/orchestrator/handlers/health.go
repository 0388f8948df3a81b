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
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Mekoros/services/cache"
)

// Version is the service version reported by /health.
const Version = "0.7.0"

// CacheReporter is the stats surface of one cache instance.
// Implemented by cache.FileCache.
type CacheReporter interface {
	Name() string
	Stats() cache.Stats
}

// HandleHealth serves GET /health with versions and cache
// effectiveness counters.
func HandleHealth(llmModel string, caches ...CacheReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := make(map[string]cache.Stats, len(caches))
		for _, cr := range caches {
			stats[cr.Name()] = cr.Stats()
		}
		c.JSON(http.StatusOK, gin.H{
			"ok": true,
			"versions": gin.H{
				"service":   Version,
				"go":        runtime.Version(),
				"llm_model": llmModel,
			},
			"cache_stats": stats,
		})
	}
}
