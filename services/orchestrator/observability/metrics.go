// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the pipeline.
//
// Metrics cover request counts and latencies per endpoint, per-stage
// durations, cache effectiveness, corpus retries, LLM JSON repairs,
// and dropped hallucinated references. All metrics live under the
// "mekoros" namespace and are exposed at GET /metrics.
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "mekoros"

// PipelineMetrics holds all Prometheus metrics for the pipeline.
// Initialize once at startup via InitMetrics().
type PipelineMetrics struct {
	// RequestsTotal counts HTTP requests by endpoint and status code.
	RequestsTotal *prometheus.CounterVec

	// StageDurationSeconds measures pipeline stage latency.
	// Labels: stage (decipher, understand, search).
	StageDurationSeconds *prometheus.HistogramVec

	// CorpusRetriesTotal counts corpus request retry attempts.
	CorpusRetriesTotal prometheus.Counter

	// LLMRepairsTotal counts truncated LLM responses repaired by the
	// bracket-balance pass.
	LLMRepairsTotal prometheus.Counter

	// HallucinationDropsTotal counts LLM-proposed references silently
	// discarded because the corpus could not serve them.
	HallucinationDropsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance. Nil until InitMetrics is
// called; all helpers below tolerate that, so unit tests need no
// registry setup.
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all metrics on the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "HTTP requests by endpoint and status code",
			},
			[]string{"endpoint", "status"},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),

		CorpusRetriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "corpus_retries_total",
				Help:      "Corpus request retry attempts",
			},
		),

		LLMRepairsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "llm_repairs_total",
				Help:      "Truncated LLM responses repaired before parsing",
			},
		),

		HallucinationDropsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "hallucination_drops_total",
				Help:      "LLM-proposed references dropped by corpus validation",
			},
		),
	}
	return DefaultMetrics
}

// CountRequest records one HTTP request outcome.
func CountRequest(endpoint, status string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// ObserveStage records one stage execution duration.
func ObserveStage(stage string, start time.Time) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.StageDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// IncCorpusRetry is wired into corpus.OnRetry at startup.
func IncCorpusRetry() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.CorpusRetriesTotal.Inc()
}

// IncLLMRepair is wired into llm.OnRepair at startup.
func IncLLMRepair() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.LLMRepairsTotal.Inc()
}

// IncHallucinationDrop is wired into the search engine's
// hallucination hook at startup.
func IncHallucinationDrop() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.HallucinationDropsTotal.Inc()
}
