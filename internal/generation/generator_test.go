package generation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/llm"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/timeutil"
)

const dailyFakeText = "I kept my promises to myself today.\n\n" +
	"Themes: focus, rest\nHighlights: long walk, finished the draft\nMood: calm"

func TestGenerateDailyCreatesLatestArtifact(t *testing.T) {
	db := testDB(t)
	client := &fakeClient{text: dailyFakeText}
	gen := NewGenerator(db, client, fastRetry(), nil, testLogger())

	user := createUser(t, db, "UTC")
	now := time.Now().UTC()
	createCheckIn(t, db, user.ID, "shipped the feature", now.Add(-2*time.Hour))
	createCheckIn(t, db, user.ID, "went for a long walk", now.Add(-time.Hour))

	key := timeutil.DayKey(now, time.UTC)
	post, err := gen.GenerateDaily(context.Background(), user.ID, key, models.GenerationTypeAuto)
	require.NoError(t, err)

	assert.Equal(t, models.PostTypeDaily, post.Type)
	assert.Equal(t, 1, post.Version)
	assert.True(t, post.IsLatest)
	assert.Equal(t, models.GenerationTypeAuto, post.GenerationType)
	assert.Equal(t, "fake-model", post.ModelUsed)
	assert.NotEmpty(t, post.PublicID)

	assert.Equal(t, "I kept my promises to myself today.", post.Content,
		"label lines belong in metadata, not the body")

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(post.Metadata, &metadata))
	assert.Equal(t, []any{"focus", "rest"}, metadata["themes"])
	assert.Equal(t, "calm", metadata["mood"])
}

func TestGenerateDailyVersionsAreDense(t *testing.T) {
	db := testDB(t)
	client := &fakeClient{text: dailyFakeText}
	gen := NewGenerator(db, client, fastRetry(), nil, testLogger())

	user := createUser(t, db, "UTC")
	now := time.Now().UTC()
	createCheckIn(t, db, user.ID, "a full day", now.Add(-time.Hour))
	key := timeutil.DayKey(now, time.UTC)

	for want := 1; want <= 3; want++ {
		post, err := gen.GenerateDaily(context.Background(), user.ID, key, models.GenerationTypeManual)
		require.NoError(t, err)
		assert.Equal(t, want, post.Version)
		assert.True(t, post.IsLatest)
	}

	var latestCount int64
	require.NoError(t, db.Model(&models.GeneratedPost{}).
		Where("user_id = ? AND type = ? AND period_start = ? AND is_latest", user.ID, models.PostTypeDaily, key).
		Count(&latestCount).Error)
	assert.EqualValues(t, 1, latestCount, "exactly one latest version per period")

	var total int64
	require.NoError(t, db.Model(&models.GeneratedPost{}).
		Where("user_id = ?", user.ID).Count(&total).Error)
	assert.EqualValues(t, 3, total)
}

func TestGenerateDailyConcurrentWritersKeepOneLatest(t *testing.T) {
	db := testDB(t)
	client := &fakeClient{text: dailyFakeText}
	gen := NewGenerator(db, client, fastRetry(), nil, testLogger())

	user := createUser(t, db, "UTC")
	now := time.Now().UTC()
	createCheckIn(t, db, user.ID, "a contested day", now.Add(-time.Hour))
	key := timeutil.DayKey(now, time.UTC)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gen.GenerateDaily(context.Background(), user.ID, key, models.GenerationTypeManual)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var posts []models.GeneratedPost
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("version asc").Find(&posts).Error)
	require.Len(t, posts, 2)

	latest := 0
	for i := range posts {
		assert.Equal(t, i+1, posts[i].Version, "versions stay dense")
		if posts[i].IsLatest {
			latest++
		}
	}
	assert.Equal(t, 1, latest, "exactly one latest row survives")
	assert.True(t, posts[1].IsLatest, "the highest version is the latest")
}

func TestGenerateDailyWithoutCheckIns(t *testing.T) {
	db := testDB(t)
	client := &fakeClient{text: dailyFakeText}
	gen := NewGenerator(db, client, fastRetry(), nil, testLogger())

	user := createUser(t, db, "UTC")
	key := timeutil.DayKey(time.Now().UTC(), time.UTC)

	_, err := gen.GenerateDaily(context.Background(), user.ID, key, models.GenerationTypeAuto)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Zero(t, client.callCount(), "provider must not be called with no input")
}

func TestGenerateDailyHonorsUserTimezone(t *testing.T) {
	db := testDB(t)
	client := &fakeClient{text: dailyFakeText}
	gen := NewGenerator(db, client, fastRetry(), nil, testLogger())

	user := createUser(t, db, "America/New_York")
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 01:30 UTC is still the previous evening in New York.
	at := time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)
	createCheckIn(t, db, user.ID, "late night note", at)

	key := timeutil.DayKey(at, loc)
	assert.Equal(t, 9, key.Day())

	post, err := gen.GenerateDaily(context.Background(), user.ID, key, models.GenerationTypeAuto)
	require.NoError(t, err)
	assert.Equal(t, key, post.PeriodStart.UTC())
}

func TestGenerateWeeklyRequiresDailyArtifacts(t *testing.T) {
	db := testDB(t)
	client := &fakeClient{text: dailyFakeText}
	gen := NewGenerator(db, client, fastRetry(), nil, testLogger())

	user := createUser(t, db, "UTC")
	now := time.Now().UTC()
	weekKey := timeutil.WeekKey(now, time.UTC)

	_, err := gen.GenerateWeekly(context.Background(), user.ID, weekKey, models.GenerationTypeAuto)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	createCheckIn(t, db, user.ID, "a day worth writing about", now.Add(-time.Hour))
	_, err = gen.GenerateDaily(context.Background(), user.ID, timeutil.DayKey(now, time.UTC), models.GenerationTypeAuto)
	require.NoError(t, err)

	post, err := gen.GenerateWeekly(context.Background(), user.ID, weekKey, models.GenerationTypeAuto)
	require.NoError(t, err)
	assert.Equal(t, models.PostTypeWeekly, post.Type)
	assert.Equal(t, weekKey, post.PeriodStart.UTC())
}

func TestGenerateMonthlyRequiresWeeklyArtifacts(t *testing.T) {
	db := testDB(t)
	client := &fakeClient{text: dailyFakeText}
	gen := NewGenerator(db, client, fastRetry(), nil, testLogger())

	user := createUser(t, db, "UTC")
	monthKey := timeutil.MonthKey(time.Now().UTC(), time.UTC)

	_, err := gen.GenerateMonthly(context.Background(), user.ID, monthKey, models.GenerationTypeAuto)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGenerateRejectsUnknownType(t *testing.T) {
	db := testDB(t)
	gen := NewGenerator(db, &fakeClient{}, fastRetry(), nil, testLogger())
	user := createUser(t, db, "UTC")

	_, err := gen.Generate(context.Background(), user.ID, "hourly", time.Now().UTC(), models.GenerationTypeAuto)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGenerateDailyProviderFailureLeavesNoArtifact(t *testing.T) {
	db := testDB(t)
	client := &fakeClient{err: llm.ErrInvalidRequest}
	gen := NewGenerator(db, client, fastRetry(), nil, testLogger())

	user := createUser(t, db, "UTC")
	now := time.Now().UTC()
	createCheckIn(t, db, user.ID, "a note", now.Add(-time.Hour))

	_, err := gen.GenerateDaily(context.Background(), user.ID, timeutil.DayKey(now, time.UTC), models.GenerationTypeAuto)
	require.Error(t, err)
	assert.Equal(t, apperr.KindProvider, apperr.KindOf(err))
	assert.Equal(t, 1, client.callCount(), "invalid requests are not retried")

	var count int64
	require.NoError(t, db.Model(&models.GeneratedPost{}).Count(&count).Error)
	assert.Zero(t, count)
}
