package generation

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwellhq/inkwell/internal/llm"
	"github.com/inkwellhq/inkwell/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A second pooled connection would see its own empty in-memory database;
	// a single connection also serializes concurrent writers.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.CheckIn{},
		&models.GeneratedPost{},
		&models.PlatformPost{},
		&models.GenerationJob{},
		&models.GenerationSchedule{},
		&models.ToneProfile{},
		&models.TokenUsage{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, timezone string) *models.User {
	t.Helper()
	user := models.User{
		Email:    uuid.New().String() + "@example.com",
		Name:     "Test User",
		Timezone: timezone,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createCheckIn(t *testing.T, db *gorm.DB, userID uint, content string, at time.Time) *models.CheckIn {
	t.Helper()
	checkIn := models.CheckIn{
		PublicID: uuid.New().String(),
		UserID:   userID,
		Content:  content,
	}
	require.NoError(t, db.Create(&checkIn).Error)
	// gorm stamps CreatedAt itself; pin it so day-window queries are exact.
	require.NoError(t, db.Model(&checkIn).Update("created_at", at).Error)
	checkIn.CreatedAt = at
	return &checkIn
}

// fakeClient is a scriptable llm.Client for pipeline tests.
type fakeClient struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeClient) Provider() string { return "stub" }
func (f *fakeClient) Model() string    { return "fake-model" }

func (f *fakeClient) Generate(ctx context.Context, system, user string) (*llm.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Result{
		Text:  f.text,
		Model: "fake-model",
		Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fastRetry keeps failing tests from sleeping through real backoff.
func fastRetry() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:    2,
		BaseDelay:      time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}
