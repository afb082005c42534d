package models

import (
	"time"

	"gorm.io/gorm"
)

// Generation job status constants
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// GenerationJob is the durable record of one unit of scheduled generation
// work. For a given (user, type, period start) at most one job may be pending
// or processing; the evaluator checks inside a transaction before creating,
// and a partial unique index backstops the invariant across instances.
type GenerationJob struct {
	gorm.Model
	PublicID     string    `gorm:"column:public_id;uniqueIndex;not null"`
	UserID       uint      `gorm:"not null;index;uniqueIndex:idx_jobs_active,where:status = 'pending' OR status = 'processing'"`
	User         User      `gorm:"constraint:OnDelete:CASCADE;"`
	Type         string    `gorm:"not null;index:idx_jobs_status_type;uniqueIndex:idx_jobs_active,where:status = 'pending' OR status = 'processing'"`
	PeriodStart  time.Time `gorm:"column:period_start;type:date;not null;uniqueIndex:idx_jobs_active,where:status = 'pending' OR status = 'processing'"`
	Status       string    `gorm:"not null;default:'pending';index:idx_jobs_status_type"`
	ErrorMessage string    `gorm:"column:error_message;type:text"`
	StartedAt    *time.Time `gorm:"column:started_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
}
