// Package settings is the user-configuration surface: generation schedule,
// tone profile overrides, and platform selection.
package settings

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/httpapi"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/platforms"
)

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type scheduleRequest struct {
	DailyEnabled   *bool   `json:"daily_enabled"`
	DailyTime      *string `json:"daily_time"`
	WeeklyEnabled  *bool   `json:"weekly_enabled"`
	WeeklyTime     *string `json:"weekly_time"`
	WeeklyDay      *int    `json:"weekly_day"`
	MonthlyEnabled *bool   `json:"monthly_enabled"`
	MonthlyTime    *string `json:"monthly_time"`
	MonthlyDay     *int    `json:"monthly_day"`
	Timezone       *string `json:"timezone"`
}

type scheduleResponse struct {
	DailyEnabled   bool   `json:"daily_enabled"`
	DailyTime      string `json:"daily_time"`
	WeeklyEnabled  bool   `json:"weekly_enabled"`
	WeeklyTime     string `json:"weekly_time"`
	WeeklyDay      int    `json:"weekly_day"`
	MonthlyEnabled bool   `json:"monthly_enabled"`
	MonthlyTime    string `json:"monthly_time"`
	MonthlyDay     int    `json:"monthly_day"`
	Timezone       string `json:"timezone"`
}

func toScheduleResponse(s *models.GenerationSchedule) scheduleResponse {
	return scheduleResponse{
		DailyEnabled:   s.DailyEnabled,
		DailyTime:      s.DailyTime,
		WeeklyEnabled:  s.WeeklyEnabled,
		WeeklyTime:     s.WeeklyTime,
		WeeklyDay:      s.WeeklyDay,
		MonthlyEnabled: s.MonthlyEnabled,
		MonthlyTime:    s.MonthlyTime,
		MonthlyDay:     s.MonthlyDay,
		Timezone:       s.Timezone,
	}
}

// GetScheduleHandler returns the user's schedule, defaults included.
func GetScheduleHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		schedule := models.GenerationSchedule{UserID: userID}
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ?", userID).
			FirstOrInit(&schedule).Error
		if err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to load schedule", err))
			return
		}
		applyScheduleDefaults(&schedule)
		c.JSON(http.StatusOK, toScheduleResponse(&schedule))
	}
}

// UpdateScheduleHandler applies a partial schedule update, creating the row
// on first use.
func UpdateScheduleHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		var body scheduleRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			httpapi.Error(c, apperr.New(apperr.KindValidation, "malformed request body"))
			return
		}
		if err := validateScheduleRequest(&body); err != nil {
			httpapi.Error(c, err)
			return
		}

		var schedule models.GenerationSchedule
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			schedule = models.GenerationSchedule{UserID: userID}
			if err := tx.Where("user_id = ?", userID).FirstOrInit(&schedule).Error; err != nil {
				return err
			}
			applyScheduleDefaults(&schedule)
			applyScheduleRequest(&schedule, &body)
			if schedule.ID == 0 {
				return tx.Create(&schedule).Error
			}
			return tx.Save(&schedule).Error
		})
		if err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to save schedule", err))
			return
		}

		c.JSON(http.StatusOK, toScheduleResponse(&schedule))
	}
}

// applyScheduleDefaults fills zero values on a row that has never been
// persisted, mirroring the column defaults.
func applyScheduleDefaults(s *models.GenerationSchedule) {
	if s.DailyTime == "" {
		s.DailyTime = "21:00"
	}
	if s.WeeklyTime == "" {
		s.WeeklyTime = "18:00"
	}
	if s.MonthlyTime == "" {
		s.MonthlyTime = "18:00"
	}
	if s.MonthlyDay == 0 {
		s.MonthlyDay = 1
	}
	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
}

func validateScheduleRequest(body *scheduleRequest) error {
	for _, at := range []*string{body.DailyTime, body.WeeklyTime, body.MonthlyTime} {
		if at != nil && !hhmmPattern.MatchString(*at) {
			return apperr.New(apperr.KindValidation, "times must be HH:MM")
		}
	}
	if body.WeeklyDay != nil && (*body.WeeklyDay < 0 || *body.WeeklyDay > 6) {
		return apperr.New(apperr.KindValidation, "weekly_day must be 0-6 (Sunday = 0)")
	}
	if body.MonthlyDay != nil && (*body.MonthlyDay < 1 || *body.MonthlyDay > 28) {
		return apperr.New(apperr.KindValidation, "monthly_day must be 1-28")
	}
	if body.Timezone != nil {
		if _, err := time.LoadLocation(*body.Timezone); err != nil {
			return apperr.Newf(apperr.KindValidation, "unknown timezone %q", *body.Timezone)
		}
	}
	return nil
}

func applyScheduleRequest(s *models.GenerationSchedule, body *scheduleRequest) {
	if body.DailyEnabled != nil {
		s.DailyEnabled = *body.DailyEnabled
	}
	if body.DailyTime != nil {
		s.DailyTime = *body.DailyTime
	}
	if body.WeeklyEnabled != nil {
		s.WeeklyEnabled = *body.WeeklyEnabled
	}
	if body.WeeklyTime != nil {
		s.WeeklyTime = *body.WeeklyTime
	}
	if body.WeeklyDay != nil {
		s.WeeklyDay = *body.WeeklyDay
	}
	if body.MonthlyEnabled != nil {
		s.MonthlyEnabled = *body.MonthlyEnabled
	}
	if body.MonthlyTime != nil {
		s.MonthlyTime = *body.MonthlyTime
	}
	if body.MonthlyDay != nil {
		s.MonthlyDay = *body.MonthlyDay
	}
	if body.Timezone != nil {
		s.Timezone = *body.Timezone
	}
}

type toneRequest struct {
	OverrideVoice    *string   `json:"override_voice"`
	OverrideAudience *string   `json:"override_audience"`
	OverrideNotes    *string   `json:"override_notes"`
	UseEmojis        *bool     `json:"use_emojis"`
	UseHashtags      *bool     `json:"use_hashtags"`
	PreferredLength  *string   `json:"preferred_length"`
	EnabledPlatforms *[]string `json:"enabled_platforms"`
}

type toneResponse struct {
	OverrideVoice    string         `json:"override_voice"`
	OverrideAudience string         `json:"override_audience"`
	OverrideNotes    string         `json:"override_notes"`
	UseEmojis        bool           `json:"use_emojis"`
	UseHashtags      bool           `json:"use_hashtags"`
	PreferredLength  string         `json:"preferred_length"`
	EnabledPlatforms []string       `json:"enabled_platforms"`
	Extracted        map[string]any `json:"extracted,omitempty"`
}

func toToneResponse(p *models.ToneProfile) toneResponse {
	resp := toneResponse{
		OverrideVoice:    p.OverrideVoice,
		OverrideAudience: p.OverrideAudience,
		OverrideNotes:    p.OverrideNotes,
		UseEmojis:        p.UseEmojis,
		UseHashtags:      p.UseHashtags,
		PreferredLength:  p.PreferredLength,
		EnabledPlatforms: []string{},
	}
	if len(p.EnabledPlatforms) > 0 {
		_ = json.Unmarshal(p.EnabledPlatforms, &resp.EnabledPlatforms)
	}
	if len(p.Extracted) > 0 {
		_ = json.Unmarshal(p.Extracted, &resp.Extracted)
	}
	return resp
}

// GetToneHandler returns the user's tone profile.
func GetToneHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		profile := models.ToneProfile{UserID: userID, UseHashtags: true, PreferredLength: models.LengthMedium}
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ?", userID).
			FirstOrInit(&profile).Error
		if err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to load tone profile", err))
			return
		}
		c.JSON(http.StatusOK, toToneResponse(&profile))
	}
}

// UpdateToneHandler applies a partial tone-profile update. The extracted
// fields are not writable here; they belong to the extraction path.
func UpdateToneHandler(db *gorm.DB, registry *platforms.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		var body toneRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			httpapi.Error(c, apperr.New(apperr.KindValidation, "malformed request body"))
			return
		}
		if body.PreferredLength != nil {
			switch *body.PreferredLength {
			case models.LengthShort, models.LengthMedium, models.LengthLong:
			default:
				httpapi.Error(c, apperr.New(apperr.KindValidation,
					"preferred_length must be short, medium or long"))
				return
			}
		}
		if body.EnabledPlatforms != nil {
			for _, name := range *body.EnabledPlatforms {
				if _, ok := registry.Get(name); !ok {
					httpapi.Error(c, apperr.Newf(apperr.KindValidation, "unknown platform %q", name))
					return
				}
			}
		}

		var profile models.ToneProfile
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			profile = models.ToneProfile{UserID: userID, UseHashtags: true, PreferredLength: models.LengthMedium}
			if err := tx.Where("user_id = ?", userID).FirstOrInit(&profile).Error; err != nil {
				return err
			}
			applyToneRequest(&profile, &body)
			if profile.ID == 0 {
				return tx.Create(&profile).Error
			}
			return tx.Save(&profile).Error
		})
		if err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to save tone profile", err))
			return
		}

		c.JSON(http.StatusOK, toToneResponse(&profile))
	}
}

func applyToneRequest(profile *models.ToneProfile, body *toneRequest) {
	if body.OverrideVoice != nil {
		profile.OverrideVoice = *body.OverrideVoice
	}
	if body.OverrideAudience != nil {
		profile.OverrideAudience = *body.OverrideAudience
	}
	if body.OverrideNotes != nil {
		profile.OverrideNotes = *body.OverrideNotes
	}
	if body.UseEmojis != nil {
		profile.UseEmojis = *body.UseEmojis
	}
	if body.UseHashtags != nil {
		profile.UseHashtags = *body.UseHashtags
	}
	if body.PreferredLength != nil {
		profile.PreferredLength = *body.PreferredLength
	}
	if body.EnabledPlatforms != nil {
		encoded, err := json.Marshal(*body.EnabledPlatforms)
		if err == nil {
			profile.EnabledPlatforms = datatypes.JSON(encoded)
		}
	}
}

// ListPlatformsHandler returns the registered platform definitions so the
// client can render selection and constraints.
func ListPlatformsHandler(registry *platforms.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		type platformResponse struct {
			Name        string `json:"name"`
			DisplayName string `json:"display_name"`
			MaxLength   int    `json:"max_length"`
			MaxHashtags int    `json:"max_hashtags"`
			AllowEmojis bool   `json:"allow_emojis"`
		}

		defs := registry.List()
		out := make([]platformResponse, len(defs))
		for i, def := range defs {
			out[i] = platformResponse{
				Name:        def.Name,
				DisplayName: def.DisplayName,
				MaxLength:   def.MaxLength,
				MaxHashtags: def.MaxHashtags,
				AllowEmojis: def.AllowEmojis,
			}
		}
		c.JSON(http.StatusOK, gin.H{"platforms": out})
	}
}
