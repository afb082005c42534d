// Package checkins is the CRUD surface for check-in notes, the raw input of
// daily narrative generation. Check-ins are immutable once created.
package checkins

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/httpapi"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/timeutil"
)

const defaultPageSize = 50

type checkInResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(checkIn *models.CheckIn) checkInResponse {
	return checkInResponse{
		ID:        checkIn.PublicID,
		Content:   checkIn.Content,
		CreatedAt: checkIn.CreatedAt,
	}
}

// CreateHandler records a new check-in for the authenticated user.
func CreateHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		var body struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			httpapi.Error(c, apperr.New(apperr.KindValidation, "malformed request body"))
			return
		}

		content := strings.TrimSpace(body.Content)
		if content == "" {
			httpapi.Error(c, apperr.New(apperr.KindValidation, "content is required"))
			return
		}
		if len([]rune(content)) > models.MaxCheckInLength {
			httpapi.Error(c, apperr.Newf(apperr.KindValidation,
				"content exceeds %d characters", models.MaxCheckInLength))
			return
		}

		checkIn := models.CheckIn{
			PublicID: uuid.New().String(),
			UserID:   userID,
			Content:  content,
		}
		if err := db.WithContext(c.Request.Context()).Create(&checkIn).Error; err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to save check-in", err))
			return
		}

		c.JSON(http.StatusCreated, toResponse(&checkIn))
	}
}

// ListHandler returns the user's check-ins, newest first. An optional
// ?date=YYYY-MM-DD narrows to one user-local day; ?limit bounds the page.
func ListHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		query := db.WithContext(c.Request.Context()).Where("user_id = ?", userID)

		if date := c.Query("date"); date != "" {
			day, err := time.Parse("2006-01-02", date)
			if err != nil {
				httpapi.Error(c, apperr.New(apperr.KindValidation, "date must be YYYY-MM-DD"))
				return
			}
			loc := userLocation(db, c, userID)
			from, to := timeutil.DayRange(day, loc)
			query = query.Where("created_at >= ? AND created_at < ?", from, to)
		}

		limit := defaultPageSize
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 200 {
				httpapi.Error(c, apperr.New(apperr.KindValidation, "limit must be 1-200"))
				return
			}
			limit = parsed
		}

		var checkIns []models.CheckIn
		if err := query.Order("created_at desc").Limit(limit).Find(&checkIns).Error; err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to load check-ins", err))
			return
		}

		out := make([]checkInResponse, len(checkIns))
		for i := range checkIns {
			out[i] = toResponse(&checkIns[i])
		}
		c.JSON(http.StatusOK, gin.H{"check_ins": out})
	}
}

// DeleteHandler removes one of the user's check-ins. Already-generated
// narratives are not touched; the check-in just stops contributing to future
// generations.
func DeleteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		var checkIn models.CheckIn
		err := db.WithContext(c.Request.Context()).
			Where("public_id = ? AND user_id = ?", c.Param("id"), userID).
			First(&checkIn).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httpapi.Error(c, apperr.New(apperr.KindNotFound, "check-in not found"))
				return
			}
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to load check-in", err))
			return
		}

		if err := db.WithContext(c.Request.Context()).Delete(&checkIn).Error; err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to delete check-in", err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func userLocation(db *gorm.DB, c *gin.Context, userID uint) *time.Location {
	var user models.User
	if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
