// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/Mekoros/services/cache"
)

// CacheReporter matches cache.FileCache's stats surface.
type CacheReporter interface {
	Name() string
	Stats() cache.Stats
}

// cacheStatsCollector exports the file caches' own counters to
// Prometheus at scrape time, so the caches stay metrics-agnostic.
type cacheStatsCollector struct {
	caches []CacheReporter

	hits    *prometheus.Desc
	misses  *prometheus.Desc
	saves   *prometheus.Desc
	entries *prometheus.Desc
	bytes   *prometheus.Desc
}

// RegisterCacheStats registers a collector over the given caches on
// the default registry. Call once at startup.
func RegisterCacheStats(caches ...CacheReporter) {
	c := &cacheStatsCollector{
		caches: caches,
		hits: prometheus.NewDesc(
			metricsNamespace+"_cache_hits_total",
			"Cache hits by instance", []string{"cache"}, nil),
		misses: prometheus.NewDesc(
			metricsNamespace+"_cache_misses_total",
			"Cache misses by instance", []string{"cache"}, nil),
		saves: prometheus.NewDesc(
			metricsNamespace+"_cache_saves_total",
			"Cache writes by instance", []string{"cache"}, nil),
		entries: prometheus.NewDesc(
			metricsNamespace+"_cache_entries",
			"Live cache entries by instance", []string{"cache"}, nil),
		bytes: prometheus.NewDesc(
			metricsNamespace+"_cache_bytes",
			"Cache size on disk by instance", []string{"cache"}, nil),
	}
	prometheus.MustRegister(c)
}

func (c *cacheStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.saves
	ch <- c.entries
	ch <- c.bytes
}

func (c *cacheStatsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, fc := range c.caches {
		s := fc.Stats()
		name := fc.Name()
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits), name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses), name)
		ch <- prometheus.MustNewConstMetric(c.saves, prometheus.CounterValue, float64(s.Saves), name)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries), name)
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(s.Bytes), name)
	}
}
