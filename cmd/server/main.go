package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/config"
	"github.com/inkwellhq/inkwell/internal/database"
	"github.com/inkwellhq/inkwell/internal/generation"
	"github.com/inkwellhq/inkwell/internal/jobs"
	"github.com/inkwellhq/inkwell/internal/llm"
	"github.com/inkwellhq/inkwell/internal/logging"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/platforms"
	"github.com/inkwellhq/inkwell/internal/scheduler"
	"github.com/inkwellhq/inkwell/internal/streams"
	"github.com/inkwellhq/inkwell/internal/telemetry"
	"github.com/inkwellhq/inkwell/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		log.Error("Failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	if cfg.TokenEncryptionKey != "" {
		if err := models.InitEncryption(cfg.TokenEncryptionKey); err != nil {
			log.Error("Failed to initialize token encryption", "error", err.Error())
			os.Exit(1)
		}
	} else {
		log.Warn("TOKEN_ENCRYPTION_KEY not set; OAuth tokens stored unencrypted")
	}

	registry, err := platforms.Init(db, cfg.PlatformDir)
	if err != nil {
		log.Error("Failed to load platform definitions", "error", err.Error())
		os.Exit(1)
	}

	client, err := newProviderClient(cfg, log)
	if err != nil {
		log.Error("Failed to create provider client", "error", err.Error())
		os.Exit(1)
	}

	dispatcher := telemetry.NewDispatcher(log, 256)
	dispatcher.Start()
	defer dispatcher.Stop()

	publisher, err := streams.NewPublisher(cfg.RedisURL, log)
	if err != nil {
		log.Warn("Event publishing disabled", "error", err.Error())
		publisher = nil
	} else {
		defer publisher.Close()
	}

	retry := llm.RetryConfig{AttemptTimeout: time.Duration(cfg.OpenAITimeoutSeconds) * time.Second}
	generator := generation.NewGenerator(db, client, retry, dispatcher, log)
	adapter := generation.NewAdapter(db, client, retry, dispatcher, log)
	limiter := generation.NewRateLimiter(db)
	orchestrator := generation.NewOrchestrator(db, generator, adapter, registry, limiter, publisher, log)

	jobService := jobs.NewService(db, orchestrator, log)
	evaluator := scheduler.NewEvaluator(db, jobService, log)

	if err := worker.InitClient(cfg.RedisURL); err != nil {
		log.Error("Failed to initialize task client", "error", err.Error())
		os.Exit(1)
	}
	defer worker.CloseClient()

	stopWorker, err := worker.Start(cfg, evaluator, jobService)
	if err != nil {
		log.Error("Failed to start worker", "error", err.Error())
		os.Exit(1)
	}
	defer stopWorker()

	if cfg.SchedulerEnabled {
		stopScheduler, err := worker.StartScheduler(cfg)
		if err != nil {
			log.Error("Failed to start scheduler", "error", err.Error())
			os.Exit(1)
		}
		defer stopScheduler()
	} else {
		log.Info("Internal scheduler disabled; external cron trigger expected")
	}

	auth.InitProviders(cfg)

	router := newRouter(cfg, db, registry, orchestrator, limiter, evaluator, jobService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Server listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", "error", err.Error())
	}
}

// newProviderClient picks the generation provider. Without an API key the
// stub keeps local development working end to end.
func newProviderClient(cfg *config.Config, log *slog.Logger) (llm.Client, error) {
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set; using the stub provider")
		return llm.NewStubClient(), nil
	}
	return llm.NewOpenAIClient(log, llm.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: time.Duration(cfg.OpenAITimeoutSeconds) * time.Second,
	})
}
