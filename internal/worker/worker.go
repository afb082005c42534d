// Package worker runs the background side of the engine on asynq: the
// periodic schedule-evaluation tick, pending-job processing, and the
// maintenance sweep.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkwellhq/inkwell/internal/config"
	"github.com/inkwellhq/inkwell/internal/jobs"
	"github.com/inkwellhq/inkwell/internal/logging"
	"github.com/inkwellhq/inkwell/internal/scheduler"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger.
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the worker server and blocks until a shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, evaluator *scheduler.Evaluator, jobService *jobs.Service) error {
	srv, mux, err := newServer(cfg, evaluator, jobService)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start starts the worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, evaluator *scheduler.Evaluator, jobService *jobs.Service) (stop func(), err error) {
	srv, mux, err := newServer(cfg, evaluator, jobService)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, evaluator *scheduler.Evaluator, jobService *jobs.Service) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskScheduleTick, handleScheduleTick(logger, evaluator))
	mux.HandleFunc(TaskProcessJobs, handleProcessJobs(logger, jobService))
	mux.HandleFunc(TaskMaintenance, handleMaintenance(logger, jobService))

	logger.Info("Worker starting", "concurrency", 5, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handleScheduleTick runs one schedule evaluation pass, then immediately
// processes whatever the pass enqueued so scheduled narratives land within
// one tick.
func handleScheduleTick(logger *slog.Logger, evaluator *scheduler.Evaluator) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		summary, err := evaluator.Tick(ctx)
		if err != nil {
			return fmt.Errorf("schedule tick failed: %w", err)
		}
		logger.Info("Schedule tick done",
			"schedules", summary.SchedulesChecked, "jobs_created", summary.JobsCreated)

		if summary.JobsCreated > 0 {
			if err := EnqueueProcessJobs(); err != nil {
				// Next periodic processing pass still picks the jobs up.
				logger.Warn("Failed to chain processing task", "error", err.Error())
			}
		}
		return nil
	}
}

// handleProcessJobs drains one batch of pending generation jobs.
func handleProcessJobs(logger *slog.Logger, jobService *jobs.Service) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		summary, err := jobService.ProcessPendingJobs(ctx)
		if err != nil {
			return fmt.Errorf("job processing failed: %w", err)
		}
		if summary.Processed > 0 {
			logger.Info("Processing pass done",
				"processed", summary.Processed,
				"completed", summary.Completed,
				"failed", summary.Failed)
		}
		return nil
	}
}

// handleMaintenance prunes old completed jobs and re-queues a bounded number
// of recent failures.
func handleMaintenance(logger *slog.Logger, jobService *jobs.Service) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		pruned, err := jobService.CleanupOldJobs(ctx)
		if err != nil {
			return fmt.Errorf("job cleanup failed: %w", err)
		}
		retried, err := jobService.RetryFailedJobs(ctx)
		if err != nil {
			return fmt.Errorf("failed-job retry sweep failed: %w", err)
		}
		logger.Info("Maintenance done", "pruned", pruned, "retried", retried)
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		if retried >= maxRetry {
			logger.Error(
				"Task moved to dead letter queue (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
