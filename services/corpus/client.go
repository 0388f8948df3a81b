// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/Mekoros/services/cache"
)

// corpusTracer is the OpenTelemetry tracer for corpus operations.
var corpusTracer = otel.Tracer("mekoros.corpus")

// HTTPClient is the minimal surface the client needs from net/http,
// abstracted so tests can inject doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// =============================================================================
// Configuration
// =============================================================================

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxRetries   = 3
	defaultRateLimitRPS = 10
	initialRetryDelay   = 500 * time.Millisecond
	defaultSearchSize   = 10
)

// Config holds corpus client settings.
type Config struct {
	// BaseURL is the corpus API root, e.g. "https://corpus.example.org/api".
	BaseURL string

	// Timeout applies per request attempt.
	Timeout time.Duration

	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int

	// RateLimitRPS spaces outbound calls. Zero disables limiting.
	RateLimitRPS float64
}

// DefaultConfig returns production defaults for the given base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
		RateLimitRPS: defaultRateLimitRPS,
	}
}

// Validate checks the configuration, collecting all problems into a
// single error.
func (c Config) Validate() error {
	var errs []string
	if c.BaseURL == "" {
		errs = append(errs, "BaseURL must not be empty")
	} else if _, err := url.Parse(c.BaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("BaseURL is not a valid URL: %v", err))
	}
	if c.Timeout <= 0 {
		errs = append(errs, "Timeout must be positive")
	}
	if c.MaxRetries < 0 {
		errs = append(errs, "MaxRetries must not be negative")
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, "RateLimitRPS must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid corpus config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// =============================================================================
// Client
// =============================================================================

// Client wraps the external corpus HTTP API with caching, rate
// limiting, and retries. Safe for concurrent use.
type Client struct {
	cfg     Config
	http    HTTPClient
	cache   *cache.FileCache
	limiter *rate.Limiter
}

// New creates a Client. httpClient may be nil, in which case a pooled
// net/http client is used. texts may be nil to run uncached.
func New(cfg Config, httpClient HTTPClient, texts *cache.FileCache) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), int(cfg.RateLimitRPS)+1)
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		cache:   texts,
		limiter: limiter,
	}, nil
}

// Search runs a full-text search for hebrewTerm and aggregates the
// hit envelope into counts, top refs, and sample snippets.
func (c *Client) Search(ctx context.Context, hebrewTerm string, opts SearchOptions) (*SearchResult, error) {
	ctx, span := corpusTracer.Start(ctx, "corpus.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("term_length", len(hebrewTerm)))

	size := opts.Size
	if size <= 0 {
		size = defaultSearchSize
	}

	key := searchCacheKey(hebrewTerm, size, opts.Filters)
	var cached SearchResult
	if c.cache != nil && c.cache.Get(key, &cached) {
		span.SetAttributes(attribute.Bool("cached", true))
		return &cached, nil
	}

	q := url.Values{}
	q.Set("query", hebrewTerm)
	q.Set("type", "text")
	q.Set("size", strconv.Itoa(size))
	if len(opts.Filters) > 0 {
		blob, err := json.Marshal(opts.Filters)
		if err != nil {
			return nil, fmt.Errorf("encode search filters: %w", err)
		}
		q.Set("filters", string(blob))
	}

	body, err := c.getJSON(ctx, "/search-wrapper?"+q.Encode(), hebrewTerm)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var env searchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	result := aggregateSearch(&env)
	span.SetAttributes(attribute.Int("total_hits", result.TotalHits))

	if c.cache != nil {
		if err := c.cache.Set(key, result); err != nil {
			slog.Warn("failed to cache search result", "error", err)
		}
	}
	return result, nil
}

// GetText fetches the Hebrew and English body for a canonical ref.
// Returns NotFoundError when the corpus does not know the ref.
func (c *Client) GetText(ctx context.Context, ref string) (*TextResult, error) {
	ctx, span := corpusTracer.Start(ctx, "corpus.GetText")
	defer span.End()
	span.SetAttributes(attribute.String("ref", ref))

	key := "text|" + normalizeRefKey(ref)
	var cached TextResult
	if c.cache != nil && c.cache.Get(key, &cached) {
		span.SetAttributes(attribute.Bool("cached", true))
		return &cached, nil
	}

	body, err := c.getJSON(ctx, "/texts/"+url.PathEscape(ref), ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var env textEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode text response for %q: %w", ref, err)
	}

	canonical := env.Ref
	if canonical == "" {
		canonical = ref
	}
	result := &TextResult{
		CanonicalRef: canonical,
		Hebrew:       string(env.He),
		English:      string(env.Text),
	}

	if result.Hebrew == "" && result.English == "" {
		// Some corpus deployments answer 200 with an empty body for
		// unknown refs.
		return nil, &NotFoundError{Ref: ref, StatusCode: http.StatusOK}
	}

	if c.cache != nil {
		if err := c.cache.Set(key, result); err != nil {
			slog.Warn("failed to cache text", "ref", ref, "error", err)
		}
	}
	return result, nil
}

// GetRelated enumerates commentaries and citation links on a ref.
func (c *Client) GetRelated(ctx context.Context, ref string) (*RelatedResult, error) {
	ctx, span := corpusTracer.Start(ctx, "corpus.GetRelated")
	defer span.End()
	span.SetAttributes(attribute.String("ref", ref))

	key := "related|" + normalizeRefKey(ref)
	var cached RelatedResult
	if c.cache != nil && c.cache.Get(key, &cached) {
		span.SetAttributes(attribute.Bool("cached", true))
		return &cached, nil
	}

	body, err := c.getJSON(ctx, "/related/"+url.PathEscape(ref), ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var env relatedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode related response for %q: %w", ref, err)
	}

	result := &RelatedResult{
		Commentaries: convertLinks(env.Commentaries),
		Links:        convertLinks(env.Links),
	}
	span.SetAttributes(
		attribute.Int("commentaries", len(result.Commentaries)),
		attribute.Int("links", len(result.Links)),
	)

	if c.cache != nil {
		if err := c.cache.Set(key, result); err != nil {
			slog.Warn("failed to cache related links", "ref", ref, "error", err)
		}
	}
	return result, nil
}

// NameLookup asks the corpus to disambiguate a name token.
func (c *Client) NameLookup(ctx context.Context, token string) ([]NameMatch, error) {
	ctx, span := corpusTracer.Start(ctx, "corpus.NameLookup")
	defer span.End()

	key := "name|" + strings.ToLower(strings.TrimSpace(token))
	var cached []NameMatch
	if c.cache != nil && c.cache.Get(key, &cached) {
		span.SetAttributes(attribute.Bool("cached", true))
		return cached, nil
	}

	body, err := c.getJSON(ctx, "/name/"+url.PathEscape(token), token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var env nameEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode name response for %q: %w", token, err)
	}

	var matches []NameMatch
	if env.IsRef && env.Ref != "" {
		matches = append(matches, NameMatch{Key: env.Ref, Title: env.Ref, IsRef: true})
	}
	for _, completion := range env.Completions {
		matches = append(matches, NameMatch{Key: completion, Title: completion})
	}

	if c.cache != nil {
		if err := c.cache.Set(key, matches); err != nil {
			slog.Warn("failed to cache name lookup", "token", token, "error", err)
		}
	}
	return matches, nil
}

// =============================================================================
// Transport
// =============================================================================

// OnRetry, when set, is invoked once per retry attempt. Metrics
// hook; set once at startup.
var OnRetry func()

// getJSON performs a GET with rate limiting and retries. Transient
// failures (network errors, 5xx) back off exponentially up to
// MaxRetries; 4xx returns NotFoundError immediately. Response bodies
// are always fully drained so the pooled connection is reusable.
func (c *Client) getJSON(ctx context.Context, path, ref string) ([]byte, error) {
	var lastErr error
	retryDelay := initialRetryDelay

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if OnRetry != nil {
				OnRetry()
			}
			slog.Debug("retrying corpus request",
				"path", path,
				"attempt", attempt,
				"delay", retryDelay,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, err := c.doOnce(ctx, path, ref)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if IsNotFoundError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, &TransientError{
		Message:   fmt.Sprintf("exhausted %d retries: %v", c.cfg.MaxRetries, lastErr),
		Retryable: true,
	}
}

func (c *Client) doOnce(ctx context.Context, path, ref string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet,
		strings.TrimRight(c.cfg.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build corpus request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Message: err.Error(), Retryable: true}
	}
	defer func() {
		// Drain so the pooled connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Message: fmt.Sprintf("read response body: %v", err), Retryable: true}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &NotFoundError{Ref: ref, StatusCode: resp.StatusCode}
	default:
		return nil, &TransientError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Retryable:  true,
		}
	}
}

// =============================================================================
// Aggregation Helpers
// =============================================================================

func aggregateSearch(env *searchEnvelope) *SearchResult {
	result := &SearchResult{
		TotalHits:  int(env.Hits.Total),
		ByCategory: make(map[string]int),
		ByTractate: make(map[string]int),
	}
	for _, hit := range env.Hits.Hits {
		src := hit.Source
		if src.Ref == "" {
			continue
		}
		result.TopRefs = append(result.TopRefs, src.Ref)
		result.SampleHits = append(result.SampleHits, SampleHit{
			Ref:        src.Ref,
			Hebrew:     string(src.HeText),
			English:    string(src.EnText),
			Categories: src.Categories,
		})
		if len(src.Categories) > 0 {
			result.ByCategory[src.Categories[0]]++
		}
		result.ByTractate[TractateOf(src.Ref)]++
	}
	return result
}

func convertLinks(wire []relatedWireLink) []RelatedLink {
	links := make([]RelatedLink, 0, len(wire))
	for _, l := range wire {
		ref := l.Ref
		if ref == "" {
			ref = l.SourceRef
		}
		if ref == "" {
			continue
		}
		links = append(links, RelatedLink{
			Ref:      ref,
			Category: l.Category,
			Work:     l.CollectiveName,
		})
	}
	return links
}

func searchCacheKey(term string, size int, filters map[string]string) string {
	var sb strings.Builder
	sb.WriteString("search|")
	sb.WriteString(strings.TrimSpace(term))
	sb.WriteString("|")
	sb.WriteString(strconv.Itoa(size))
	if len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for k := range filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString("|")
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(filters[k])
		}
	}
	return sb.String()
}

func normalizeRefKey(ref string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(ref)), " ")
}
