package worker

import (
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskScheduleTick = "generation:schedule_tick"
	TaskProcessJobs  = "generation:process_jobs"
	TaskMaintenance  = "generation:maintenance"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any Enqueue function.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}
	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// EnqueueProcessJobs enqueues an immediate job-processing pass. Unique over
// a minute so a burst of triggers collapses into one pass.
func EnqueueProcessJobs() error {
	task := asynq.NewTask(
		TaskProcessJobs,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Minute),
	)
	_, err := client.Enqueue(task)
	return err
}

// EnqueueScheduleTick enqueues an immediate schedule evaluation, used by the
// external-trigger surface when the internal scheduler is disabled.
func EnqueueScheduleTick() error {
	task := asynq.NewTask(
		TaskScheduleTick,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Minute),
	)
	_, err := client.Enqueue(task)
	return err
}
