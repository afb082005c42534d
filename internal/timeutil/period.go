// Package timeutil canonicalizes generation periods. A period key is the
// period's start date encoded as midnight UTC, which is what the store's DATE
// columns hold; range helpers convert a key back into the pair of instants
// bounding the period in the user's timezone.
package timeutil

import "time"

// DayKey returns the canonical date of t in loc as midnight UTC.
func DayKey(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekKey returns the canonical start (Monday) of the week containing t in loc.
func WeekKey(t time.Time, loc *time.Location) time.Time {
	day := DayKey(t, loc)
	// time.Weekday is Sunday = 0; shift so Monday = 0.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// MonthKey returns the canonical first day of the month containing t in loc.
func MonthKey(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// KeyFor returns the period key for the granularity named by postType
// ("daily", "weekly" or "monthly").
func KeyFor(postType string, t time.Time, loc *time.Location) time.Time {
	switch postType {
	case "weekly":
		return WeekKey(t, loc)
	case "monthly":
		return MonthKey(t, loc)
	default:
		return DayKey(t, loc)
	}
}

// DayRange returns the instants bounding the day key in loc, [from, to).
func DayRange(key time.Time, loc *time.Location) (time.Time, time.Time) {
	from := time.Date(key.Year(), key.Month(), key.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, 1)
}

// WeekRange returns the date keys bounding the week, [from, to). Both bounds
// are period keys (UTC midnights), suitable for comparing against stored
// period_start dates.
func WeekRange(key time.Time) (time.Time, time.Time) {
	return key, key.AddDate(0, 0, 7)
}

// MonthRange returns the date keys bounding the month, [from, to).
func MonthRange(key time.Time) (time.Time, time.Time) {
	return key, key.AddDate(0, 1, 0)
}
