// QuantForge API server: wires the stores, feeds, LLM fallback chain, and
// analysis engine behind the REST API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/quantforge/quantforge/internal/api"
	"github.com/quantforge/quantforge/internal/config"
	"github.com/quantforge/quantforge/internal/db"
	"github.com/quantforge/quantforge/internal/embeddings"
	"github.com/quantforge/quantforge/internal/engine"
	"github.com/quantforge/quantforge/internal/evidence"
	"github.com/quantforge/quantforge/internal/feeds"
	"github.com/quantforge/quantforge/internal/llm"
	"github.com/quantforge/quantforge/internal/memory"
	"github.com/quantforge/quantforge/internal/metrics"
	"github.com/quantforge/quantforge/internal/validation"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logFormat := "json"
	if cfg.App.Environment == "development" {
		logFormat = "console"
	}
	config.InitLogger(cfg.App.LogLevel, logFormat)
	log.Info().
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Msg("Starting QuantForge API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Database and stores
	database, err := db.New(ctx, cfg.Database.GetDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	documents := memory.NewDocumentStore(database.Pool(), cfg.Embeddings.Dimensions)
	timeseries := memory.NewTimeseriesStore(database.Pool())

	// Evidence gathering
	embedder := embeddings.NewClient(cfg.Embeddings, config.NewLogger("embeddings"))
	gatherer := evidence.NewGatherer(embedder, documents, timeseries)

	// LLM fallback chain: hosted providers only when credentialed, local
	// daemon always
	var providers []llm.Provider
	if cfg.Providers.HuggingFace.APIKey != "" {
		providers = append(providers, llm.NewHuggingFaceProvider(llm.HuggingFaceConfig{
			Endpoint: cfg.Providers.HuggingFace.Endpoint,
			Model:    cfg.Providers.HuggingFace.Model,
			APIKey:   cfg.Providers.HuggingFace.APIKey,
			Timeout:  cfg.Providers.HuggingFace.GetTimeout(),
		}))
	}
	if cfg.Providers.OpenAI.APIKey != "" {
		providers = append(providers, llm.NewOpenAIProvider(llm.OpenAIConfig{
			Endpoint: cfg.Providers.OpenAI.Endpoint,
			Model:    cfg.Providers.OpenAI.Model,
			APIKey:   cfg.Providers.OpenAI.APIKey,
			Timeout:  cfg.Providers.OpenAI.GetTimeout(),
		}))
	}
	providers = append(providers, llm.NewOllamaProvider(llm.OllamaLocalConfig{
		URL:     cfg.Providers.Ollama.URL,
		Model:   cfg.Providers.Ollama.Model,
		Timeout: cfg.Providers.Ollama.GetTimeout(),
	}))

	router := llm.NewRouter(llm.RouterConfig{
		Providers:  providers,
		MaxRetries: cfg.Providers.MaxRetries,
	})

	// Prompt registry with optional overrides
	registry := llm.NewRegistry()
	if cfg.Analysis.PromptOverrides != "" {
		if err := registry.LoadOverrides(cfg.Analysis.PromptOverrides); err != nil {
			log.Fatal().Err(err).Str("path", cfg.Analysis.PromptOverrides).Msg("Failed to load prompt overrides")
		}
	}

	// Analysis engine
	analysisEngine := engine.New(
		registry,
		router,
		gatherer,
		validation.NewValidator(),
		validation.NewCalibrator(),
		cfg.Analysis,
	)

	// Redis-backed rate limiting, degrading to in-process when unreachable
	var limiter *api.RateLimiter
	if !cfg.API.RateLimitDisabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, rate limiting falls back to in-process")
		}
		limiter = api.NewRateLimiter(rdb, cfg.API.RateLimitPerMin)
	}

	// Feed ingestion
	if cfg.Feeds.Enabled {
		feedLogger := config.NewLogger("feeds")
		watched := make([]string, 0, len(cfg.Feeds.BinanceSymbols))
		for _, symbol := range cfg.Feeds.BinanceSymbols {
			watched = append(watched, trimQuote(symbol))
		}

		runner := feeds.NewRunner([]feeds.Source{
			feeds.NewRSSIngester(cfg.Feeds.RSSSources, watched, embedder, documents, feedLogger),
			feeds.NewBinanceFeed(cfg.Feeds.BinanceSymbols, timeseries, feedLogger),
		}, cfg.Feeds.PollInterval(), feedLogger)
		go runner.Start(ctx)
	}

	// Metrics server
	var metricsServer *metrics.Server
	if cfg.Monitoring.EnableMetrics {
		metricsServer = metrics.NewServer(cfg.Monitoring.PrometheusPort)
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Error().Err(err).Msg("Metrics server error")
			}
		}()
	}

	// API server
	server := api.NewServer(api.Config{
		Host:    cfg.API.Host,
		Port:    cfg.API.Port,
		Version: cfg.App.Version,
	}, analysisEngine, registry, database, limiter)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		log.Error().Err(err).Msg("Server error")
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop server gracefully")
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server gracefully")
		}
	}

	log.Info().Msg("Server stopped")
}

// trimQuote maps a trading pair back to its base ticker for news matching
func trimQuote(symbol string) string {
	if len(symbol) > 4 && symbol[len(symbol)-4:] == "USDT" {
		return symbol[:len(symbol)-4]
	}
	return symbol
}
