// Package jobs owns the durable generation job queue: creation with
// active-job deduplication, batch processing with per-job isolation, and the
// maintenance sweeps (retention pruning, bounded failed-job retry).
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/generation"
	"github.com/inkwellhq/inkwell/internal/models"
)

const (
	// batchSize bounds one processing pass.
	batchSize = 50
	// workerConcurrency bounds parallel provider calls within a batch.
	workerConcurrency = 4
	// completedRetention is how long COMPLETED jobs stay queryable.
	completedRetention = 7 * 24 * time.Hour
	// retrySweepLimit bounds how many FAILED jobs one sweep resets.
	retrySweepLimit = 10
)

// Orchestrator is the slice of the generation pipeline the worker invokes
// per job.
type Orchestrator interface {
	Complete(ctx context.Context, userID uint, postType string, periodKey time.Time, generationType string) (*generation.Result, error)
}

// Service manages generation jobs. The database is the only coordination
// point; any number of instances may run Process concurrently.
type Service struct {
	db   *gorm.DB
	orch Orchestrator
	log  *slog.Logger
}

// NewService wires a job service.
func NewService(db *gorm.DB, orch Orchestrator, log *slog.Logger) *Service {
	return &Service{db: db, orch: orch, log: log.With("component", "jobs")}
}

// CreateJob enqueues a PENDING job unless one is already pending or
// processing for the same (user, type, period). Returns created = false on a
// duplicate. The existence check and insert share one transaction; the
// partial unique index backstops concurrent creators.
func (s *Service) CreateJob(ctx context.Context, userID uint, postType string, periodKey time.Time) (*models.GenerationJob, bool, error) {
	if !models.ValidPostType(postType) {
		return nil, false, apperr.Newf(apperr.KindValidation, "unknown post type %q", postType)
	}

	var job models.GenerationJob
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.GenerationJob{}).
			Where("user_id = ? AND type = ? AND period_start = ? AND status IN ?",
				userID, postType, periodKey,
				[]string{models.JobStatusPending, models.JobStatusProcessing}).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return nil
		}

		job = models.GenerationJob{
			PublicID:    uuid.New().String(),
			UserID:      userID,
			Type:        postType,
			PeriodStart: periodKey,
			Status:      models.JobStatusPending,
		}
		if err := tx.Create(&job).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindDatabase, "failed to create job", err)
	}
	if !created {
		return nil, false, nil
	}
	return &job, true, nil
}

// ProcessSummary reports one processing pass.
type ProcessSummary struct {
	Processed int `json:"processed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ProcessPendingJobs takes one bounded batch of PENDING jobs, oldest first,
// and runs each through the orchestrator with a bounded pool. One job's
// failure never aborts its siblings; it becomes a FAILED row with the error
// message recorded.
func (s *Service) ProcessPendingJobs(ctx context.Context) (ProcessSummary, error) {
	var pending []models.GenerationJob
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.JobStatusPending).
		Order("created_at asc").
		Limit(batchSize).
		Find(&pending).Error; err != nil {
		return ProcessSummary{}, apperr.Wrap(apperr.KindDatabase, "failed to load pending jobs", err)
	}
	if len(pending) == 0 {
		return ProcessSummary{}, nil
	}

	results := make([]jobOutcome, len(pending))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workerConcurrency)

	for i := range pending {
		i := i
		group.Go(func() error {
			results[i] = s.processJob(groupCtx, &pending[i])
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	_ = group.Wait()

	var summary ProcessSummary
	for _, outcome := range results {
		switch outcome {
		case outcomeCompleted:
			summary.Processed++
			summary.Completed++
		case outcomeFailed:
			summary.Processed++
			summary.Failed++
		}
	}
	s.log.Info("Job batch processed",
		"processed", summary.Processed, "completed", summary.Completed, "failed", summary.Failed)
	return summary, nil
}

type jobOutcome int

const (
	outcomeSkipped jobOutcome = iota // claimed by another instance
	outcomeCompleted
	outcomeFailed
)

// processJob runs one job through its full lifecycle.
func (s *Service) processJob(ctx context.Context, job *models.GenerationJob) jobOutcome {
	if !s.claim(ctx, job) {
		return outcomeSkipped
	}

	_, err := s.orch.Complete(ctx, job.UserID, job.Type, job.PeriodStart.UTC(), models.GenerationTypeAuto)
	if err != nil {
		s.finish(ctx, job, models.JobStatusFailed, err.Error())
		s.log.Warn("Job failed",
			"job_id", job.PublicID, "user_id", job.UserID, "type", job.Type, "error", err.Error())
		return outcomeFailed
	}

	s.finish(ctx, job, models.JobStatusCompleted, "")
	return outcomeCompleted
}

// claim transitions PENDING → PROCESSING. The guarded update makes the claim
// safe against sibling instances polling the same batch.
func (s *Service) claim(ctx context.Context, job *models.GenerationJob) bool {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ? AND status = ?", job.ID, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.JobStatusProcessing,
			"started_at": now,
		})
	if result.Error != nil {
		s.log.Error("Failed to claim job", "job_id", job.PublicID, "error", result.Error.Error())
		return false
	}
	return result.RowsAffected == 1
}

func (s *Service) finish(ctx context.Context, job *models.GenerationJob, status, errorMessage string) {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
			"completed_at":  now,
		}).Error
	if err != nil {
		s.log.Error("Failed to finalize job",
			"job_id", job.PublicID, "status", status, "error", err.Error())
	}
}

// CleanupOldJobs prunes COMPLETED jobs past the retention window. Returns
// the number of rows removed.
func (s *Service) CleanupOldJobs(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-completedRetention)
	result := s.db.WithContext(ctx).
		Where("status = ? AND completed_at < ?", models.JobStatusCompleted, cutoff).
		Delete(&models.GenerationJob{})
	if result.Error != nil {
		return 0, apperr.Wrap(apperr.KindDatabase, "failed to prune jobs", result.Error)
	}
	if result.RowsAffected > 0 {
		s.log.Info("Pruned completed jobs", "count", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// RetryFailedJobs resets a bounded number of the most recent FAILED jobs to
// PENDING so the next processing pass picks them up.
func (s *Service) RetryFailedJobs(ctx context.Context) (int64, error) {
	var failed []models.GenerationJob
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.JobStatusFailed).
		Order("created_at desc").
		Limit(retrySweepLimit).
		Find(&failed).Error; err != nil {
		return 0, apperr.Wrap(apperr.KindDatabase, "failed to load failed jobs", err)
	}

	var reset int64
	for i := range failed {
		err := s.db.WithContext(ctx).Model(&failed[i]).
			Updates(map[string]interface{}{
				"status":        models.JobStatusPending,
				"error_message": "",
				"started_at":    nil,
				"completed_at":  nil,
			}).Error
		if err != nil {
			return reset, apperr.Wrap(apperr.KindDatabase,
				fmt.Sprintf("failed to reset job %s", failed[i].PublicID), err)
		}
		reset++
	}
	if reset > 0 {
		s.log.Info("Reset failed jobs for retry", "count", reset)
	}
	return reset, nil
}
