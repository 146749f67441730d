package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/api"
	"github.com/myjournal/backend/app/cfg"
	"github.com/myjournal/backend/app/database"
	"github.com/myjournal/backend/app/digest"
	"github.com/myjournal/backend/app/feed"
	"github.com/myjournal/backend/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting myjournal backend", "version", appCfg.Version, "port", appCfg.Port, "db", appCfg.DBPath)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	articleRepo := database.NewArticleRepository(db)
	digestRepo := database.NewDigestRepository(db)
	userRepo := database.NewUserRepository(db)

	catalog, err := feed.LoadCatalog(appCfg.FeedsFile)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: appCfg.ProviderTimeout}
	aggregator := newAggregator(appCfg, catalog, httpClient)
	reader := feed.NewReader(httpClient, appCfg.UserAgent)

	summarizer, closeSummarizer, err := newSummarizer(appCfg)
	if err != nil {
		return err
	}
	defer closeSummarizer()

	builder := digest.NewBuilder(articleRepo, digestRepo, aggregator, reader, summarizer, digest.Config{
		Concurrency: appCfg.AIConcurrency,
	})

	if appCfg.EnableJobs {
		scheduler, err := tasks.NewScheduler(userRepo, builder, appCfg.CronSchedule, time.Local, appCfg.WorkerCount)
		if err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	} else {
		slog.Info("Background jobs disabled")
	}

	handler := api.NewHandler(articleRepo, userRepo, builder, aggregator, reader, summarizer, appCfg.SessionTTL, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.CORSOrigin),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

// newAggregator prefers the paid headline APIs whose keys are set and always
// keeps the RSS catalog as the free fallback.
func newAggregator(appCfg *cfg.Cfg, catalog *feed.Catalog, httpClient *http.Client) *feed.Aggregator {
	var paid []feed.Provider
	if appCfg.NewsAPIKey != "" {
		paid = append(paid, feed.NewNewsAPIProvider(appCfg.NewsAPIKey, httpClient, appCfg.UserAgent))
	}
	if appCfg.GNewsAPIKey != "" {
		paid = append(paid, feed.NewGNewsProvider(appCfg.GNewsAPIKey, httpClient, appCfg.UserAgent))
	}

	defaultTopics := appCfg.FeedsTopics
	if len(defaultTopics) == 0 {
		defaultTopics = catalog.DefaultTopics
	}
	free := []feed.Provider{
		feed.NewRSSProvider(catalog, defaultTopics, appCfg.FeedsExtra, httpClient, appCfg.UserAgent),
	}

	slog.Info("News providers configured", "paid", len(paid), "topics", defaultTopics, "extra_feeds", len(appCfg.FeedsExtra))

	aggCfg := feed.DefaultAggregatorConfig()
	aggCfg.ProviderTimeout = appCfg.ProviderTimeout
	return feed.NewAggregator(aggCfg, paid, free)
}

// newSummarizer picks the configured text provider. Without an API key the
// client still works and every caller falls back to local extraction.
func newSummarizer(appCfg *cfg.Cfg) (ai.Summarizer, func(), error) {
	var provider ai.Provider
	switch appCfg.AIProvider {
	case "gemini":
		if appCfg.GeminiAPIKey != "" {
			provider = ai.NewGeminiProvider(appCfg.GeminiAPIKey, appCfg.GeminiModel, &http.Client{Timeout: appCfg.AITimeout})
		}
	default:
		if appCfg.AIAPIKey != "" {
			provider = ai.NewOpenAIProvider(appCfg.AIAPIKey, appCfg.AIModel, appCfg.AIBaseURL)
		}
	}

	if provider == nil {
		slog.Warn("No AI provider key configured, summaries use local extraction", "provider", appCfg.AIProvider)
	} else {
		slog.Info("AI provider configured", "provider", provider.Name())
	}

	client := ai.NewClient(provider, ai.Config{
		MaxInputChars: appCfg.AIMaxInputChars,
		Timeout:       appCfg.AITimeout,
	})

	if appCfg.SummaryCacheDir == "" {
		return client, func() {}, nil
	}

	cache, err := ai.OpenCache(client, appCfg.SummaryCacheDir, appCfg.SummaryCacheTTL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Summary cache enabled", "dir", appCfg.SummaryCacheDir, "ttl", appCfg.SummaryCacheTTL.String())

	return cache, func() {
		if err := cache.Close(); err != nil {
			slog.Error("Failed to close summary cache", "error", err)
		}
	}, nil
}
