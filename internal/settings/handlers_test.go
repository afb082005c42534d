package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellhq/inkwell/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestValidateScheduleRequest(t *testing.T) {
	require.NoError(t, validateScheduleRequest(&scheduleRequest{
		DailyTime:  strPtr("21:00"),
		WeeklyDay:  intPtr(6),
		MonthlyDay: intPtr(28),
		Timezone:   strPtr("America/New_York"),
	}))

	assert.Error(t, validateScheduleRequest(&scheduleRequest{DailyTime: strPtr("24:00")}))
	assert.Error(t, validateScheduleRequest(&scheduleRequest{DailyTime: strPtr("9:00")}), "hours are zero-padded")
	assert.Error(t, validateScheduleRequest(&scheduleRequest{WeeklyDay: intPtr(7)}))
	assert.Error(t, validateScheduleRequest(&scheduleRequest{MonthlyDay: intPtr(31)}), "days past 28 never fire in February")
	assert.Error(t, validateScheduleRequest(&scheduleRequest{Timezone: strPtr("Mars/Olympus")}))
}

func TestApplyScheduleRequestIsPartial(t *testing.T) {
	schedule := models.GenerationSchedule{
		DailyEnabled: true,
		DailyTime:    "21:00",
		WeeklyTime:   "18:00",
		Timezone:     "UTC",
	}

	applyScheduleRequest(&schedule, &scheduleRequest{
		DailyTime: strPtr("07:30"),
		Timezone:  strPtr("Europe/Berlin"),
	})

	assert.Equal(t, "07:30", schedule.DailyTime)
	assert.Equal(t, "Europe/Berlin", schedule.Timezone)
	assert.True(t, schedule.DailyEnabled, "omitted fields are untouched")
	assert.Equal(t, "18:00", schedule.WeeklyTime)
}

func TestApplyToneRequestIsPartial(t *testing.T) {
	profile := models.ToneProfile{
		UseHashtags:     true,
		PreferredLength: models.LengthMedium,
	}

	applyToneRequest(&profile, &toneRequest{
		OverrideVoice: strPtr("dry and direct"),
		UseEmojis:     boolPtr(true),
	})

	assert.Equal(t, "dry and direct", profile.OverrideVoice)
	assert.True(t, profile.UseEmojis)
	assert.True(t, profile.UseHashtags)
	assert.Equal(t, models.LengthMedium, profile.PreferredLength)
}

func TestApplyToneRequestEncodesPlatforms(t *testing.T) {
	var profile models.ToneProfile
	platforms := []string{"twitter", "linkedin"}

	applyToneRequest(&profile, &toneRequest{EnabledPlatforms: &platforms})

	assert.JSONEq(t, `["twitter","linkedin"]`, string(profile.EnabledPlatforms))
}
