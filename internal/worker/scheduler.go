package worker

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkwellhq/inkwell/internal/config"
	"github.com/inkwellhq/inkwell/internal/logging"
)

// Periodic task cadences. The evaluation tick cron comes from config so
// deployments can align it with the match window; processing and maintenance
// cadences are fixed.
const (
	processJobsCron = "*/5 * * * *"
	maintenanceCron = "0 3 * * *"
)

// StartScheduler creates and starts an asynq Scheduler for the periodic
// tasks. Schedule timezones live per user in the database, so the scheduler
// itself always runs in UTC. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	asynqScheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	entries := []struct {
		cron string
		task *asynq.Task
	}{
		{
			cron: cfg.ScheduleTickCron,
			task: asynq.NewTask(
				TaskScheduleTick,
				nil,
				asynq.MaxRetry(3),
				asynq.Timeout(5*time.Minute),
				asynq.Retention(24*time.Hour),
				asynq.Unique(10*time.Minute), // collapse double-fires
			),
		},
		{
			cron: processJobsCron,
			task: asynq.NewTask(
				TaskProcessJobs,
				nil,
				asynq.MaxRetry(3),
				asynq.Timeout(10*time.Minute),
				asynq.Retention(24*time.Hour),
				asynq.Unique(4*time.Minute),
			),
		},
		{
			cron: maintenanceCron,
			task: asynq.NewTask(
				TaskMaintenance,
				nil,
				asynq.MaxRetry(1),
				asynq.Timeout(5*time.Minute),
				asynq.Retention(24*time.Hour),
				asynq.Unique(12*time.Hour),
			),
		},
	}

	for _, entry := range entries {
		entryID, err := asynqScheduler.Register(entry.cron, entry.task)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", entry.task.Type(), err)
		}
		logger.Info("Periodic task registered",
			"task", entry.task.Type(), "cron", entry.cron, "entry_id", entryID)
	}

	if err := asynqScheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	return func() { asynqScheduler.Shutdown() }, nil
}
