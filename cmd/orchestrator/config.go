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
	"strconv"
	"strings"
	"time"
)

// Defaults for every tunable. Each env read falls back with a warning
// so a bare `go run` works against the public corpus.
const (
	defaultPort            = "8595"
	defaultCorpusBaseURL   = "https://www.sefaria.org/api"
	defaultCorpusTimeout   = 15 * time.Second
	defaultCorpusRetries   = 3
	defaultCorpusRateRPS   = 10.0
	defaultCacheDir        = "data/cache"
	defaultDataDir         = "data"
	defaultMaxVariants     = 15
	defaultValidateWorkers = 15
	defaultFetchWorkers    = 8
	defaultRequestTimeout  = 60 * time.Second
	defaultClarifyTTL      = 30 * time.Minute
)

// config holds the orchestrator process settings, read from the
// environment once at startup.
type config struct {
	Port           string
	RequestTimeout time.Duration

	CorpusBaseURL    string
	CorpusTimeout    time.Duration
	CorpusMaxRetries int
	CorpusRateRPS    float64

	CacheDir       string
	CacheDisabled  bool
	CorpusCacheTTL time.Duration
	LLMCacheTTL    time.Duration

	DataDir    string
	ClarifyTTL time.Duration

	MaxVariants         int
	ValidateConcurrency int
	FetchConcurrency    int

	CORSOrigins  []string
	OTLPEndpoint string
}

// loadConfig reads every setting, warning on each fallback.
func loadConfig() config {
	cfg := config{
		Port:           envOrDefault("PORT", defaultPort),
		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", int(defaultRequestTimeout/time.Second))) * time.Second,

		CorpusBaseURL:    envOrDefault("CORPUS_BASE_URL", defaultCorpusBaseURL),
		CorpusTimeout:    time.Duration(envInt("CORPUS_TIMEOUT_SECONDS", int(defaultCorpusTimeout/time.Second))) * time.Second,
		CorpusMaxRetries: envInt("CORPUS_MAX_RETRIES", defaultCorpusRetries),
		CorpusRateRPS:    envFloat("CORPUS_RATE_LIMIT_RPS", defaultCorpusRateRPS),

		CacheDir:       envOrDefault("MEKOROS_CACHE_DIR", defaultCacheDir),
		CacheDisabled:  envBool("MEKOROS_CACHE_DISABLED", false),
		CorpusCacheTTL: time.Duration(envInt("CORPUS_CACHE_TTL_HOURS", 30*24)) * time.Hour,
		LLMCacheTTL:    time.Duration(envInt("LLM_CACHE_TTL_HOURS", 24)) * time.Hour,

		DataDir:    envOrDefault("MEKOROS_DATA_DIR", defaultDataDir),
		ClarifyTTL: time.Duration(envInt("CLARIFY_TTL_MINUTES", int(defaultClarifyTTL/time.Minute))) * time.Minute,

		MaxVariants:         envInt("MAX_VARIANTS", defaultMaxVariants),
		ValidateConcurrency: envInt("VALIDATE_CONCURRENCY", defaultValidateWorkers),
		FetchConcurrency:    envInt("FETCH_CONCURRENCY", defaultFetchWorkers),

		OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}
	if origins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	return cfg
}

// validate collects all configuration problems into one error.
func (c config) validate() error {
	var errs []string
	if c.CorpusBaseURL == "" {
		errs = append(errs, "CORPUS_BASE_URL must not be empty")
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxVariants <= 0 {
		errs = append(errs, "MAX_VARIANTS must be positive")
	}
	if c.ValidateConcurrency <= 0 {
		errs = append(errs, "VALIDATE_CONCURRENCY must be positive")
	}
	if c.FetchConcurrency <= 0 {
		errs = append(errs, "FETCH_CONCURRENCY must be positive")
	}
	if c.ClarifyTTL <= 0 {
		errs = append(errs, "CLARIFY_TTL_MINUTES must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid orchestrator config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	slog.Warn(fmt.Sprintf("%s not set, defaulting to %s", name, fallback))
	return fallback
}

func envInt(name string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		slog.Warn(fmt.Sprintf("%s not set, defaulting to %d", name, fallback))
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s invalid, defaulting to %d", name, fallback), "value", v)
		return fallback
	}
	return n
}

func envFloat(name string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		slog.Warn(fmt.Sprintf("%s not set, defaulting to %g", name, fallback))
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s invalid, defaulting to %g", name, fallback), "value", v)
		return fallback
	}
	return f
}

func envBool(name string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s invalid, defaulting to %t", name, fallback), "value", v)
		return fallback
	}
	return b
}
