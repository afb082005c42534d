package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKeyUsesLocalDate(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 23:30 UTC on Jan 5 is already Jan 6 in Tokyo.
	instant := time.Date(2025, 1, 5, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), DayKey(instant, time.UTC))
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), DayKey(instant, tokyo))
}

func TestWeekKeyStartsMonday(t *testing.T) {
	// 2025-01-08 is a Wednesday; its week starts Monday 2025-01-06.
	wed := time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), WeekKey(wed, time.UTC))

	// A Monday maps to itself.
	mon := time.Date(2025, 1, 6, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), WeekKey(mon, time.UTC))

	// A Sunday belongs to the preceding Monday's week.
	sun := time.Date(2025, 1, 12, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), WeekKey(sun, time.UTC))
}

func TestMonthKey(t *testing.T) {
	instant := time.Date(2025, 2, 17, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), MonthKey(instant, time.UTC))
}

func TestKeyForDispatch(t *testing.T) {
	instant := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, DayKey(instant, time.UTC), KeyFor("daily", instant, time.UTC))
	assert.Equal(t, WeekKey(instant, time.UTC), KeyFor("weekly", instant, time.UTC))
	assert.Equal(t, MonthKey(instant, time.UTC), KeyFor("monthly", instant, time.UTC))
}

func TestDayRangeCoversLocalDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	key := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	from, to := DayRange(key, ny)

	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, ny), from)
	assert.Equal(t, time.Date(2025, 1, 7, 0, 0, 0, 0, ny), to)
	assert.Equal(t, 24*time.Hour, to.Sub(from))
}

func TestMonthRangeHandlesYearRollover(t *testing.T) {
	key := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	from, to := MonthRange(key)

	assert.Equal(t, key, from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)
}
