// Package scheduler decides when generation work is due. The evaluator
// compares each user's schedule against the clock and enqueues jobs; it never
// calls the provider itself.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/jobs"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/timeutil"
)

// matchWindow is the tolerance around a configured time-of-day. A tick at
// 21:10 matches a 21:00 schedule; a tick at 21:20 does not.
const matchWindow = 15 * time.Minute

// Evaluator scans schedules on each tick and enqueues due jobs through the
// job service. The clock is injectable so tests can pin the tick instant.
type Evaluator struct {
	db   *gorm.DB
	jobs *jobs.Service
	log  *slog.Logger
	now  func() time.Time
}

// NewEvaluator wires an evaluator using the real clock.
func NewEvaluator(db *gorm.DB, jobService *jobs.Service, log *slog.Logger) *Evaluator {
	return &Evaluator{
		db:   db,
		jobs: jobService,
		log:  log.With("component", "evaluator"),
		now:  time.Now,
	}
}

// WithClock returns a copy using fn as the time source. Test hook.
func (e *Evaluator) WithClock(fn func() time.Time) *Evaluator {
	clone := *e
	clone.now = fn
	return &clone
}

// TickSummary reports one evaluation pass.
type TickSummary struct {
	SchedulesChecked int `json:"schedules_checked"`
	JobsCreated      int `json:"jobs_created"`
}

// Tick evaluates every schedule once. Per-schedule failures are logged and
// skipped so one bad row cannot stall the rest of the fleet.
func (e *Evaluator) Tick(ctx context.Context) (TickSummary, error) {
	var schedules []models.GenerationSchedule
	if err := e.db.WithContext(ctx).
		Where("daily_enabled OR weekly_enabled OR monthly_enabled").
		Find(&schedules).Error; err != nil {
		return TickSummary{}, apperr.Wrap(apperr.KindDatabase, "failed to load schedules", err)
	}

	summary := TickSummary{SchedulesChecked: len(schedules)}
	now := e.now()

	for i := range schedules {
		created, err := e.evaluate(ctx, &schedules[i], now)
		if err != nil {
			e.log.Warn("Schedule evaluation failed",
				"user_id", schedules[i].UserID, "error", err.Error())
			continue
		}
		summary.JobsCreated += created
	}

	if summary.JobsCreated > 0 {
		e.log.Info("Evaluation tick complete",
			"schedules", summary.SchedulesChecked, "jobs_created", summary.JobsCreated)
	}
	return summary, nil
}

// evaluate checks one user's schedule for all three granularities.
func (e *Evaluator) evaluate(ctx context.Context, schedule *models.GenerationSchedule, now time.Time) (int, error) {
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		e.log.Warn("Invalid schedule timezone, using UTC",
			"user_id", schedule.UserID, "timezone", schedule.Timezone)
		loc = time.UTC
	}
	local := now.In(loc)

	created := 0

	if schedule.DailyEnabled && withinWindow(local, schedule.DailyTime) {
		ok, err := e.enqueueDaily(ctx, schedule.UserID, local, loc)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	if schedule.WeeklyEnabled &&
		int(local.Weekday()) == schedule.WeeklyDay &&
		withinWindow(local, schedule.WeeklyTime) {
		ok, err := e.enqueue(ctx, schedule.UserID, models.PostTypeWeekly, timeutil.WeekKey(now, loc))
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	if schedule.MonthlyEnabled &&
		local.Day() == schedule.MonthlyDay &&
		withinWindow(local, schedule.MonthlyTime) {
		ok, err := e.enqueue(ctx, schedule.UserID, models.PostTypeMonthly, timeutil.MonthKey(now, loc))
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	return created, nil
}

// enqueueDaily additionally requires at least one check-in in the day; a day
// with nothing written has nothing to narrate.
func (e *Evaluator) enqueueDaily(ctx context.Context, userID uint, local time.Time, loc *time.Location) (bool, error) {
	key := timeutil.DayKey(local, loc)
	from, to := timeutil.DayRange(key, loc)

	var checkIns int64
	if err := e.db.WithContext(ctx).Model(&models.CheckIn{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Count(&checkIns).Error; err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, "failed to count check-ins", err)
	}
	if checkIns == 0 {
		return false, nil
	}

	return e.enqueue(ctx, userID, models.PostTypeDaily, key)
}

// enqueue creates a PENDING job unless the period already has a latest
// artifact or an active job. The artifact check lives here; the active-job
// check lives in the job service's creation transaction.
func (e *Evaluator) enqueue(ctx context.Context, userID uint, postType string, periodKey time.Time) (bool, error) {
	var existing int64
	if err := e.db.WithContext(ctx).Model(&models.GeneratedPost{}).
		Where("user_id = ? AND type = ? AND period_start = ? AND is_latest", userID, postType, periodKey).
		Count(&existing).Error; err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, "failed to check existing artifacts", err)
	}
	if existing > 0 {
		return false, nil
	}

	job, created, err := e.jobs.CreateJob(ctx, userID, postType, periodKey)
	if err != nil {
		return false, err
	}
	if created {
		e.log.Info("Job enqueued",
			"job_id", job.PublicID, "user_id", userID, "type", postType,
			"period", periodKey.Format("2006-01-02"))
	}
	return created, nil
}

// withinWindow reports whether local is within the tolerance window of the
// "HH:MM" target on the same day.
func withinWindow(local time.Time, hhmm string) bool {
	hour, minute, err := parseHHMM(hhmm)
	if err != nil {
		return false
	}
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, local.Location())
	diff := local.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= matchWindow
}

func parseHHMM(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("malformed hour %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("malformed minute %q", s)
	}
	return hour, minute, nil
}
