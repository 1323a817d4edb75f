package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/medlookup-api/cache"
	"github.com/giygas/medlookup-api/config"
	"github.com/giygas/medlookup-api/data"
	"github.com/giygas/medlookup-api/handlers"
	"github.com/giygas/medlookup-api/health"
	"github.com/giygas/medlookup-api/interfaces"
	"github.com/giygas/medlookup-api/logging"
	"github.com/giygas/medlookup-api/lookup"
	"github.com/giygas/medlookup-api/scheduler"
	"github.com/giygas/medlookup-api/server"
	"github.com/giygas/medlookup-api/upstream"
	"github.com/giygas/medlookup-api/usagesparser"
	"github.com/giygas/medlookup-api/validation"
	"github.com/joho/godotenv"
)

func init() {
	// Read .env from the working directory, else from the executable directory
	if err := godotenv.Load(); err != nil {
		ex, err := os.Executable()
		if err != nil {
			slog.Error("Failed to get executable path", "error", err)
			os.Exit(1)
		}
		if err := os.Chdir(filepath.Dir(ex)); err != nil {
			slog.Error("Failed to change directory", "error", err)
			os.Exit(1)
		}
		// Missing .env is fine, every setting has a default
		_ = godotenv.Load()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(logging.Options{
		Dir:            "logs",
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() {
		if err := logging.Close(); err != nil {
			slog.Error("Failed to close logger", "error", err)
		}
	}()

	logging.Info("Configuration loaded",
		"env", cfg.Env.String(),
		"rxnav", cfg.RxNavBaseURL,
		"openfda", cfg.OpenFDABaseURL,
		"cache_size", cfg.CacheSize,
		"stage_timeout", cfg.StageTimeout.String(),
	)

	store := data.NewDataContainer()
	store.SetServerStartTime(time.Now())

	breakers := upstream.NewBreakerSet(upstream.DefaultBreakerSettings())
	vocab := upstream.NewRxNavClient(upstream.Options{
		BaseURL:   cfg.RxNavBaseURL,
		Timeout:   cfg.UpstreamTimeout,
		RateLimit: cfg.RxNavRateLimit,
		Breakers:  breakers,
	})
	labels := upstream.NewOpenFDAClient(upstream.Options{
		BaseURL:   cfg.OpenFDABaseURL,
		APIKey:    cfg.OpenFDAAPIKey,
		Timeout:   cfg.UpstreamTimeout,
		RateLimit: cfg.OpenFDARateLimit,
		Breakers:  breakers,
	})

	service := lookup.NewService(vocab, labels, store, cache.New(cfg.CacheSize, cfg.CacheTTL), lookup.Options{
		StageTimeout: cfg.StageTimeout,
		MaxRetries:   cfg.StageMaxRetries,
	})

	schedOpts := scheduler.Options{Cache: service}
	if parser := usagesparser.NewUsagesParser(cfg.FallbackUsesFile, cfg.FallbackUsesURL); parser.HasSource() {
		schedOpts.Parser = parser
	}
	if cfg.WarmupEnabled {
		schedOpts.Warmer = service
	}
	sched := scheduler.NewScheduler(store, schedOpts)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	var healthChecker interfaces.HealthChecker = health.NewHealthChecker(store, breakers, sched.ReloadsEnabled())
	handler := handlers.NewHTTPHandler(service, validation.NewQueryValidator(), healthChecker)
	srv := server.NewServer(cfg, handler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed", "error", err)
		}
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown failed", "error", err)
	}
}
