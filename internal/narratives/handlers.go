// Package narratives is the read and manual-trigger surface over generated
// artifacts: listing, fetching with platform renditions, on-demand
// generation, and regeneration.
package narratives

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/generation"
	"github.com/inkwellhq/inkwell/internal/httpapi"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/timeutil"
)

type platformPostResponse struct {
	Platform string   `json:"platform"`
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

type narrativeResponse struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	PeriodStart    string                 `json:"period_start"`
	Content        string                 `json:"content"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
	Version        int                    `json:"version"`
	IsLatest       bool                   `json:"is_latest"`
	GenerationType string                 `json:"generation_type"`
	ModelUsed      string                 `json:"model_used,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	Platforms      []platformPostResponse `json:"platforms,omitempty"`
}

func toResponse(post *models.GeneratedPost, platformPosts []models.PlatformPost) narrativeResponse {
	resp := narrativeResponse{
		ID:             post.PublicID,
		Type:           post.Type,
		PeriodStart:    post.PeriodStart.UTC().Format("2006-01-02"),
		Content:        post.Content,
		Version:        post.Version,
		IsLatest:       post.IsLatest,
		GenerationType: post.GenerationType,
		ModelUsed:      post.ModelUsed,
		CreatedAt:      post.CreatedAt,
	}
	if len(post.Metadata) > 0 {
		// Unreadable metadata is omitted rather than failing the read.
		_ = json.Unmarshal(post.Metadata, &resp.Metadata)
	}
	for i := range platformPosts {
		entry := platformPostResponse{
			Platform: platformPosts[i].Platform,
			Content:  platformPosts[i].Content,
			Hashtags: []string{},
		}
		if len(platformPosts[i].Hashtags) > 0 {
			_ = json.Unmarshal(platformPosts[i].Hashtags, &entry.Hashtags)
		}
		resp.Platforms = append(resp.Platforms, entry)
	}
	return resp
}

// ListHandler returns the user's latest narratives, newest period first.
// Optional ?type filters by granularity.
func ListHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		query := db.WithContext(c.Request.Context()).
			Where("user_id = ? AND is_latest", userID)

		if postType := c.Query("type"); postType != "" {
			if !models.ValidPostType(postType) {
				httpapi.Error(c, apperr.Newf(apperr.KindValidation, "unknown type %q", postType))
				return
			}
			query = query.Where("type = ?", postType)
		}

		var posts []models.GeneratedPost
		if err := query.Order("period_start desc").Limit(100).Find(&posts).Error; err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to load narratives", err))
			return
		}

		out := make([]narrativeResponse, len(posts))
		for i := range posts {
			out[i] = toResponse(&posts[i], nil)
		}
		c.JSON(http.StatusOK, gin.H{"narratives": out})
	}
}

// GetHandler returns one narrative with its platform renditions.
func GetHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		var post models.GeneratedPost
		err := db.WithContext(c.Request.Context()).
			Where("public_id = ? AND user_id = ?", c.Param("id"), userID).
			First(&post).Error
		if err != nil {
			httpapi.Error(c, apperr.New(apperr.KindNotFound, "narrative not found"))
			return
		}

		var platformPosts []models.PlatformPost
		if err := db.WithContext(c.Request.Context()).
			Where("generated_post_id = ?", post.ID).
			Order("platform asc").
			Find(&platformPosts).Error; err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to load platform posts", err))
			return
		}

		c.JSON(http.StatusOK, toResponse(&post, platformPosts))
	}
}

// VersionsHandler returns the full version history of one narrative, oldest
// version first. The :id may reference any version of the artifact; history
// covers its whole (type, period) tuple.
func VersionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		var post models.GeneratedPost
		err := db.WithContext(c.Request.Context()).
			Where("public_id = ? AND user_id = ?", c.Param("id"), userID).
			First(&post).Error
		if err != nil {
			httpapi.Error(c, apperr.New(apperr.KindNotFound, "narrative not found"))
			return
		}

		var versions []models.GeneratedPost
		if err := db.WithContext(c.Request.Context()).
			Where("user_id = ? AND type = ? AND period_start = ?", userID, post.Type, post.PeriodStart).
			Order("version asc").
			Find(&versions).Error; err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to load versions", err))
			return
		}

		out := make([]narrativeResponse, len(versions))
		for i := range versions {
			out[i] = toResponse(&versions[i], nil)
		}
		c.JSON(http.StatusOK, gin.H{"versions": out})
	}
}

// GenerateHandler runs on-demand generation for an explicit period. Body:
// {"type": "daily", "date": "2026-08-20"}. Gated by the daily manual cap.
func GenerateHandler(db *gorm.DB, orch *generation.Orchestrator, limiter *generation.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		var body struct {
			Type string `json:"type"`
			Date string `json:"date"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			httpapi.Error(c, apperr.New(apperr.KindValidation, "malformed request body"))
			return
		}
		if !models.ValidPostType(body.Type) {
			httpapi.Error(c, apperr.Newf(apperr.KindValidation, "unknown type %q", body.Type))
			return
		}
		day, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			httpapi.Error(c, apperr.New(apperr.KindValidation, "date must be YYYY-MM-DD"))
			return
		}

		key := timeutil.KeyFor(body.Type, day, time.UTC)
		result, err := orch.GenerateManual(c.Request.Context(), userID, body.Type, key)
		if err != nil {
			respondGenerationError(c, limiter, userID, err)
			return
		}

		c.JSON(http.StatusCreated, generationResponse(result))
	}
}

// RegenerateHandler produces the next version of an existing narrative.
func RegenerateHandler(orch *generation.Orchestrator, limiter *generation.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		result, err := orch.Regenerate(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			respondGenerationError(c, limiter, userID, err)
			return
		}

		c.JSON(http.StatusCreated, generationResponse(result))
	}
}

// LimitsHandler reports today's manual-generation quota.
func LimitsHandler(limiter *generation.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		stats, err := limiter.Stats(c.Request.Context(), userID)
		if err != nil {
			httpapi.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// UsageHandler summarizes provider token usage over the last 30 days.
func UsageHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		since := time.Now().UTC().AddDate(0, 0, -30)

		type usageRow struct {
			Operation        string `json:"operation"`
			Calls            int64  `json:"calls"`
			PromptTokens     int64  `json:"prompt_tokens"`
			CompletionTokens int64  `json:"completion_tokens"`
			TotalTokens      int64  `json:"total_tokens"`
		}
		var rows []usageRow
		err := db.WithContext(c.Request.Context()).
			Model(&models.TokenUsage{}).
			Select("operation, COUNT(*) AS calls, SUM(prompt_tokens) AS prompt_tokens, "+
				"SUM(completion_tokens) AS completion_tokens, SUM(total_tokens) AS total_tokens").
			Where("user_id = ? AND created_at >= ?", userID, since).
			Group("operation").
			Scan(&rows).Error
		if err != nil {
			httpapi.Error(c, apperr.Wrap(apperr.KindDatabase, "failed to load usage", err))
			return
		}
		if rows == nil {
			rows = []usageRow{}
		}
		c.JSON(http.StatusOK, gin.H{"since": since.Format("2006-01-02"), "usage": rows})
	}
}

func generationResponse(result *generation.Result) gin.H {
	return gin.H{
		"narrative":           toResponse(result.Post, nil),
		"platforms_generated": result.PlatformsGenerated,
		"platforms_failed":    result.PlatformsFailed,
		"platform_errors":     result.PlatformErrors,
	}
}

// respondGenerationError augments rate-limit rejections with the quota stats
// the client needs to render a wait time.
func respondGenerationError(c *gin.Context, limiter *generation.RateLimiter, userID uint, err error) {
	if apperr.KindOf(err) == apperr.KindRateLimit {
		stats, statsErr := limiter.Stats(c.Request.Context(), userID)
		if statsErr == nil {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":     err.Error(),
				"kind":      string(apperr.KindRateLimit),
				"used":      stats.Used,
				"limit":     stats.Limit,
				"remaining": stats.Remaining,
			})
			return
		}
	}
	httpapi.Error(c, err)
}
