package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwellhq/inkwell/internal/jobs"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/timeutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvaluator(t *testing.T) (*Evaluator, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.CheckIn{},
		&models.GeneratedPost{},
		&models.GenerationJob{},
		&models.GenerationSchedule{},
	))
	jobService := jobs.NewService(db, nil, testLogger())
	return NewEvaluator(db, jobService, testLogger()), db
}

func createUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{Email: uuid.New().String() + "@example.com", Timezone: "UTC"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createCheckIn(t *testing.T, db *gorm.DB, userID uint, at time.Time) {
	t.Helper()
	checkIn := models.CheckIn{PublicID: uuid.New().String(), UserID: userID, Content: "note"}
	require.NoError(t, db.Create(&checkIn).Error)
	require.NoError(t, db.Model(&checkIn).Update("created_at", at).Error)
}

func dailySchedule(t *testing.T, db *gorm.DB, userID uint, at string) {
	t.Helper()
	schedule := models.GenerationSchedule{
		UserID:       userID,
		DailyEnabled: true,
		DailyTime:    at,
		Timezone:     "UTC",
	}
	require.NoError(t, db.Create(&schedule).Error)
}

func jobCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.GenerationJob{}).Count(&count).Error)
	return count
}

func TestTickMatchesWithinWindow(t *testing.T) {
	evaluator, db := testEvaluator(t)
	user := createUser(t, db)
	dailySchedule(t, db, user.ID, "21:00")

	tick := time.Date(2026, 8, 20, 21, 10, 0, 0, time.UTC)
	createCheckIn(t, db, user.ID, tick.Add(-3*time.Hour))

	summary, err := evaluator.WithClock(func() time.Time { return tick }).Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SchedulesChecked)
	assert.Equal(t, 1, summary.JobsCreated)

	var job models.GenerationJob
	require.NoError(t, db.First(&job).Error)
	assert.Equal(t, models.PostTypeDaily, job.Type)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, timeutil.DayKey(tick, time.UTC), job.PeriodStart.UTC())
}

func TestTickMissesOutsideWindow(t *testing.T) {
	evaluator, db := testEvaluator(t)
	user := createUser(t, db)
	dailySchedule(t, db, user.ID, "21:00")

	tick := time.Date(2026, 8, 20, 21, 20, 0, 0, time.UTC)
	createCheckIn(t, db, user.ID, tick.Add(-3*time.Hour))

	summary, err := evaluator.WithClock(func() time.Time { return tick }).Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.JobsCreated)
	assert.Zero(t, jobCount(t, db))
}

func TestTickSkipsDayWithoutCheckIns(t *testing.T) {
	evaluator, db := testEvaluator(t)
	user := createUser(t, db)
	dailySchedule(t, db, user.ID, "21:00")

	tick := time.Date(2026, 8, 20, 21, 0, 0, 0, time.UTC)
	summary, err := evaluator.WithClock(func() time.Time { return tick }).Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.JobsCreated)
}

func TestTickDeduplicatesAgainstActiveJob(t *testing.T) {
	evaluator, db := testEvaluator(t)
	user := createUser(t, db)
	dailySchedule(t, db, user.ID, "21:00")

	tick := time.Date(2026, 8, 20, 21, 0, 0, 0, time.UTC)
	createCheckIn(t, db, user.ID, tick.Add(-3*time.Hour))
	pinned := evaluator.WithClock(func() time.Time { return tick })

	summary, err := pinned.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.JobsCreated)

	// A second tick in the same window must not enqueue again.
	summary, err = pinned.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.JobsCreated)
	assert.EqualValues(t, 1, jobCount(t, db))
}

func TestTickDeduplicatesAgainstExistingArtifact(t *testing.T) {
	evaluator, db := testEvaluator(t)
	user := createUser(t, db)
	dailySchedule(t, db, user.ID, "21:00")

	tick := time.Date(2026, 8, 20, 21, 0, 0, 0, time.UTC)
	createCheckIn(t, db, user.ID, tick.Add(-3*time.Hour))

	post := models.GeneratedPost{
		PublicID:    uuid.New().String(),
		UserID:      user.ID,
		Type:        models.PostTypeDaily,
		PeriodStart: timeutil.DayKey(tick, time.UTC),
		Content:     "already written",
		Version:     1,
		IsLatest:    true,
	}
	require.NoError(t, db.Create(&post).Error)

	summary, err := evaluator.WithClock(func() time.Time { return tick }).Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.JobsCreated)
}

func TestTickHonorsUserTimezone(t *testing.T) {
	evaluator, db := testEvaluator(t)
	user := createUser(t, db)
	schedule := models.GenerationSchedule{
		UserID:       user.ID,
		DailyEnabled: true,
		DailyTime:    "21:00",
		Timezone:     "America/New_York",
	}
	require.NoError(t, db.Create(&schedule).Error)

	// 01:00 UTC is 21:00 in New York (EDT).
	tick := time.Date(2026, 8, 21, 1, 0, 0, 0, time.UTC)
	createCheckIn(t, db, user.ID, tick.Add(-2*time.Hour))

	summary, err := evaluator.WithClock(func() time.Time { return tick }).Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.JobsCreated)

	var job models.GenerationJob
	require.NoError(t, db.First(&job).Error)
	loc, _ := time.LoadLocation("America/New_York")
	assert.Equal(t, timeutil.DayKey(tick, loc), job.PeriodStart.UTC(),
		"the period is the user-local date, Aug 20 in New York")
}

func TestTickWeeklyRequiresConfiguredDay(t *testing.T) {
	evaluator, db := testEvaluator(t)
	user := createUser(t, db)
	schedule := models.GenerationSchedule{
		UserID:        user.ID,
		WeeklyEnabled: true,
		WeeklyTime:    "18:00",
		WeeklyDay:     0, // Sunday
		Timezone:      "UTC",
	}
	require.NoError(t, db.Create(&schedule).Error)

	// Aug 20 2026 is a Thursday.
	thursday := time.Date(2026, 8, 20, 18, 0, 0, 0, time.UTC)
	summary, err := evaluator.WithClock(func() time.Time { return thursday }).Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.JobsCreated)

	// Aug 23 2026 is a Sunday.
	sunday := time.Date(2026, 8, 23, 18, 5, 0, 0, time.UTC)
	summary, err = evaluator.WithClock(func() time.Time { return sunday }).Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.JobsCreated)

	var job models.GenerationJob
	require.NoError(t, db.First(&job).Error)
	assert.Equal(t, models.PostTypeWeekly, job.Type)
	assert.Equal(t, timeutil.WeekKey(sunday, time.UTC), job.PeriodStart.UTC())
}

func TestTickMonthlyRequiresConfiguredDay(t *testing.T) {
	evaluator, db := testEvaluator(t)
	user := createUser(t, db)
	schedule := models.GenerationSchedule{
		UserID:         user.ID,
		MonthlyEnabled: true,
		MonthlyTime:    "18:00",
		MonthlyDay:     1,
		Timezone:       "UTC",
	}
	require.NoError(t, db.Create(&schedule).Error)

	mid := time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC)
	summary, err := evaluator.WithClock(func() time.Time { return mid }).Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.JobsCreated)

	first := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	summary, err = evaluator.WithClock(func() time.Time { return first }).Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.JobsCreated)

	var job models.GenerationJob
	require.NoError(t, db.First(&job).Error)
	assert.Equal(t, models.PostTypeMonthly, job.Type)
}

func TestTickIgnoresMalformedScheduleTime(t *testing.T) {
	evaluator, db := testEvaluator(t)
	user := createUser(t, db)
	dailySchedule(t, db, user.ID, "25:99")

	tick := time.Date(2026, 8, 20, 21, 0, 0, 0, time.UTC)
	createCheckIn(t, db, user.ID, tick.Add(-time.Hour))

	summary, err := evaluator.WithClock(func() time.Time { return tick }).Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.JobsCreated)
}
