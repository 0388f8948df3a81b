// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command orchestrator starts the Mekoros HTTP server.
//
// Configuration comes from environment variables; see config.go for
// the full list and defaults. The minimum for a working instance is
// an LLM API key (OPENAI_API_KEY, ANTHROPIC_API_KEY, or an Ollama
// endpoint via LLM_BACKEND_TYPE=ollama).
//
// # Usage
//
//	go build -o orchestrator ./cmd/orchestrator
//	./orchestrator
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/Mekoros/services/authors"
	"github.com/AleutianAI/Mekoros/services/cache"
	"github.com/AleutianAI/Mekoros/services/corpus"
	"github.com/AleutianAI/Mekoros/services/decipher"
	"github.com/AleutianAI/Mekoros/services/llm"
	"github.com/AleutianAI/Mekoros/services/orchestrator/handlers"
	"github.com/AleutianAI/Mekoros/services/orchestrator/middleware"
	"github.com/AleutianAI/Mekoros/services/orchestrator/observability"
	"github.com/AleutianAI/Mekoros/services/orchestrator/routes"
	"github.com/AleutianAI/Mekoros/services/search"
	"github.com/AleutianAI/Mekoros/services/session"
	"github.com/AleutianAI/Mekoros/services/understand"
)

// initTracer wires the OTLP gRPC exporter and returns its shutdown
// function.
func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("mekoros-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// requestTimeout bounds each request's wall clock; the deadline
// propagates to every corpus and LLM fan-out.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := loadConfig()
	if err := cfg.validate(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	if cfg.OTLPEndpoint != "" {
		cleanup, err := initTracer(cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	} else {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set; tracing disabled")
	}

	observability.InitMetrics()
	corpus.OnRetry = observability.IncCorpusRetry
	llm.OnRepair = observability.IncLLMRepair

	// --- Caches ---
	corpusCache, err := cache.New(cache.Config{
		Dir: cfg.CacheDir, Name: "corpus_texts",
		TTL: cfg.CorpusCacheTTL, Disabled: cfg.CacheDisabled,
	})
	if err != nil {
		log.Fatalf("FATAL: corpus cache: %v", err)
	}
	llmCache, err := cache.New(cache.Config{
		Dir: cfg.CacheDir, Name: "llm_responses",
		TTL: cfg.LLMCacheTTL, Disabled: cfg.CacheDisabled,
	})
	if err != nil {
		log.Fatalf("FATAL: llm cache: %v", err)
	}
	observability.RegisterCacheStats(corpusCache, llmCache)

	// --- Corpus and LLM clients ---
	corpusClient, err := corpus.New(corpus.Config{
		BaseURL:      cfg.CorpusBaseURL,
		Timeout:      cfg.CorpusTimeout,
		MaxRetries:   cfg.CorpusMaxRetries,
		RateLimitRPS: cfg.CorpusRateRPS,
	}, nil, corpusCache)
	if err != nil {
		log.Fatalf("FATAL: corpus client: %v", err)
	}

	slog.Info("configuring the LLM client")
	llmClient, err := llm.NewFromEnv()
	if err != nil {
		log.Fatalf("failed to initialize LLM client: %v", err)
	}

	// --- Knowledge base, dictionary, pipelines ---
	kb := authors.NewKB()

	dict, err := decipher.NewDictionary(filepath.Join(cfg.DataDir, "word_dictionary.json"))
	if err != nil {
		log.Fatalf("FATAL: word dictionary: %v", err)
	}
	watcher, err := decipher.WatchDictionary(dict)
	if err != nil {
		slog.Warn("dictionary watcher unavailable; hot reload disabled", "error", err)
	}

	decipherPipeline := decipher.NewPipeline(
		dict,
		decipher.NewEngine(cfg.MaxVariants),
		decipher.NewValidator(corpusClient, kb, cfg.ValidateConcurrency),
		kb,
	)
	analyzer := understand.NewAnalyzer(llmClient, corpusClient, kb, llmCache)
	engine := search.NewEngine(corpusClient, llmClient, kb,
		search.WithFetchConcurrency(cfg.FetchConcurrency),
		search.WithHallucinationHook(observability.IncHallucinationDrop),
	)

	store, err := session.Open(session.Config{
		Dir: filepath.Join(cfg.DataDir, "sessions"),
		TTL: cfg.ClarifyTTL,
	})
	if err != nil {
		log.Fatalf("FATAL: clarification store: %v", err)
	}

	service := search.NewService(decipherPipeline, analyzer, engine, store)

	// --- Router ---
	router := gin.Default()
	router.Use(otelgin.Middleware("mekoros-orchestrator"))
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(requestTimeout(cfg.RequestTimeout))

	routes.SetupRoutes(router, routes.Deps{
		Decipher: decipherPipeline,
		Search:   service,
		LLMModel: llmClient.Model(),
		Caches:   []handlers.CacheReporter{corpusCache, llmCache},
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		slog.Info("starting the orchestrator server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, os.Interrupt)
	sig := <-stop
	slog.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			slog.Warn("dictionary watcher close failed", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		slog.Error("clarification store close failed", "error", err)
	}
	slog.Info("shutdown complete")
}
