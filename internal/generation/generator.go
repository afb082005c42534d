// Package generation is the core of the narrative engine: base narrative
// generators for the three granularities, the platform adapter, the
// orchestrator sequencing them, and the regeneration rate limiter.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/llm"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/telemetry"
	"github.com/inkwellhq/inkwell/internal/timeutil"
	"github.com/inkwellhq/inkwell/internal/tone"
)

// Generator produces base narrative artifacts. One instance serves all three
// granularities; they share input gathering, tone merge, provider call,
// parsing, and the atomic latest-version persistence step.
type Generator struct {
	db        *gorm.DB
	client    llm.Client
	retry     llm.RetryConfig
	telemetry *telemetry.Dispatcher
	log       *slog.Logger
}

// NewGenerator wires a Generator. telemetry may be nil (usage recording is
// skipped); retry zero-values fall back to the default policy.
func NewGenerator(db *gorm.DB, client llm.Client, retry llm.RetryConfig, dispatcher *telemetry.Dispatcher, log *slog.Logger) *Generator {
	return &Generator{
		db:        db,
		client:    client,
		retry:     retry,
		telemetry: dispatcher,
		log:       log.With("component", "generator"),
	}
}

// GenerateDaily synthesizes the narrative for one day from that day's
// check-ins. periodKey is the canonical day (midnight UTC of the user-local
// date). Fails with NotFound when the day has no check-ins.
func (g *Generator) GenerateDaily(ctx context.Context, userID uint, periodKey time.Time, generationType string) (*models.GeneratedPost, error) {
	loc, err := g.userLocation(ctx, userID)
	if err != nil {
		return nil, err
	}

	from, to := timeutil.DayRange(periodKey, loc)
	var checkIns []models.CheckIn
	// Normalize bounds to UTC: sqlite stores timestamps as offset-suffixed
	// strings and compares them lexicographically, so mixed offsets misorder.
	if err := g.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from.UTC(), to.UTC()).
		Order("created_at asc").
		Find(&checkIns).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "failed to load check-ins", err)
	}
	if len(checkIns) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no check-ins for this day")
	}

	directive := g.toneDirective(ctx, userID)
	return g.generate(ctx, generateParams{
		userID:         userID,
		postType:       models.PostTypeDaily,
		periodKey:      periodKey,
		generationType: generationType,
		system:         buildDailySystem(directive),
		user:           buildDailyUser(checkIns),
		labels:         dailyLabels,
		operation:      "daily_narrative",
	})
}

// GenerateWeekly synthesizes the week's narrative from the week's latest
// daily artifacts. Fails with NotFound when none exist yet; the cascading
// dependency is enforced here, at generation time.
func (g *Generator) GenerateWeekly(ctx context.Context, userID uint, periodKey time.Time, generationType string) (*models.GeneratedPost, error) {
	from, to := timeutil.WeekRange(periodKey)
	posts, err := g.latestPostsInRange(ctx, userID, models.PostTypeDaily, from, to)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no daily narratives for this week yet")
	}

	directive := g.toneDirective(ctx, userID)
	return g.generate(ctx, generateParams{
		userID:         userID,
		postType:       models.PostTypeWeekly,
		periodKey:      periodKey,
		generationType: generationType,
		system:         buildWeeklySystem(directive),
		user:           buildWeeklyUser(posts),
		labels:         weeklyLabels,
		operation:      "weekly_narrative",
	})
}

// GenerateMonthly synthesizes the month's narrative from the month's latest
// weekly artifacts.
func (g *Generator) GenerateMonthly(ctx context.Context, userID uint, periodKey time.Time, generationType string) (*models.GeneratedPost, error) {
	from, to := timeutil.MonthRange(periodKey)
	posts, err := g.latestPostsInRange(ctx, userID, models.PostTypeWeekly, from, to)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no weekly narratives for this month yet")
	}

	directive := g.toneDirective(ctx, userID)
	return g.generate(ctx, generateParams{
		userID:         userID,
		postType:       models.PostTypeMonthly,
		periodKey:      periodKey,
		generationType: generationType,
		system:         buildMonthlySystem(directive),
		user:           buildMonthlyUser(posts),
		labels:         monthlyLabels,
		operation:      "monthly_narrative",
	})
}

// Generate dispatches on postType. Used by the worker, which only knows the
// job's type string.
func (g *Generator) Generate(ctx context.Context, userID uint, postType string, periodKey time.Time, generationType string) (*models.GeneratedPost, error) {
	switch postType {
	case models.PostTypeDaily:
		return g.GenerateDaily(ctx, userID, periodKey, generationType)
	case models.PostTypeWeekly:
		return g.GenerateWeekly(ctx, userID, periodKey, generationType)
	case models.PostTypeMonthly:
		return g.GenerateMonthly(ctx, userID, periodKey, generationType)
	default:
		return nil, apperr.Newf(apperr.KindValidation, "unknown post type %q", postType)
	}
}

type generateParams struct {
	userID         uint
	postType       string
	periodKey      time.Time
	generationType string
	system         string
	user           string
	labels         []string
	operation      string
}

func (g *Generator) generate(ctx context.Context, params generateParams) (*models.GeneratedPost, error) {
	result, err := llm.Do(ctx, g.retry, func(ctx context.Context) (*llm.Result, error) {
		return g.client.Generate(ctx, params.system, params.user)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "narrative generation failed", err)
	}

	parsed := ParseLabeled(result.Text, params.labels)
	body := NormalizeParagraphs(parsed.Body)
	if body == "" {
		// Provider ignored the format; keep the whole output as the body.
		body = NormalizeParagraphs(result.Text)
	}

	metadata, err := json.Marshal(parsed.MetadataMap())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "failed to encode metadata", err)
	}

	post, err := g.persistLatest(ctx, params, body, metadata, result.Model)
	if err != nil {
		return nil, err
	}

	g.recordUsage(params.userID, params.operation, result)

	g.log.Info("Narrative generated",
		"user_id", params.userID,
		"type", params.postType,
		"period", params.periodKey.Format("2006-01-02"),
		"version", post.Version,
	)
	return post, nil
}

// persistLatest creates the next version of the artifact inside one
// transaction: read the current version count, flip the previous latest row,
// insert the new row as latest. The transaction is the only concurrency
// control; a concurrent writer serializes on the same rows and the partial
// unique index backstops the single-latest invariant.
func (g *Generator) persistLatest(ctx context.Context, params generateParams, body string, metadata []byte, modelUsed string) (*models.GeneratedPost, error) {
	var post models.GeneratedPost

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.GeneratedPost{}).
			Where("user_id = ? AND type = ? AND period_start = ?", params.userID, params.postType, params.periodKey).
			Count(&count).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.GeneratedPost{}).
			Where("user_id = ? AND type = ? AND period_start = ? AND is_latest", params.userID, params.postType, params.periodKey).
			Update("is_latest", false).Error; err != nil {
			return err
		}

		post = models.GeneratedPost{
			PublicID:       uuid.New().String(),
			UserID:         params.userID,
			Type:           params.postType,
			PeriodStart:    params.periodKey,
			Content:        body,
			Metadata:       datatypes.JSON(metadata),
			Version:        int(count) + 1,
			IsLatest:       true,
			GenerationType: params.generationType,
			ModelUsed:      modelUsed,
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "failed to persist narrative", err)
	}

	return &post, nil
}

// latestPostsInRange loads is_latest artifacts of postType with period_start
// in [from, to), oldest first.
func (g *Generator) latestPostsInRange(ctx context.Context, userID uint, postType string, from, to time.Time) ([]models.GeneratedPost, error) {
	var posts []models.GeneratedPost
	if err := g.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND is_latest AND period_start >= ? AND period_start < ?",
			userID, postType, from, to).
		Order("period_start asc").
		Find(&posts).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "failed to load source narratives", err)
	}
	return posts, nil
}

func (g *Generator) userLocation(ctx context.Context, userID uint) (*time.Location, error) {
	var user models.User
	if err := g.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.KindDatabase, "failed to load user", err)
	}

	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		g.log.Warn("Invalid user timezone, using UTC", "user_id", userID, "timezone", user.Timezone)
		return time.UTC, nil
	}
	return loc, nil
}

// toneDirective loads and merges the user's tone profile. A missing profile
// is normal and yields the default directive.
func (g *Generator) toneDirective(ctx context.Context, userID uint) tone.Directive {
	var profile models.ToneProfile
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			g.log.Warn("Failed to load tone profile, using defaults", "user_id", userID, "error", err.Error())
		}
		return tone.Merge(nil)
	}
	return tone.Merge(&profile)
}

// recordUsage dispatches a best-effort token-usage write. Failure to record
// never affects the generation result.
func (g *Generator) recordUsage(userID uint, operation string, result *llm.Result) {
	if g.telemetry == nil {
		return
	}
	usage := models.TokenUsage{
		UserID:           userID,
		Provider:         g.client.Provider(),
		ModelName:        result.Model,
		Operation:        operation,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
	}
	g.telemetry.Dispatch("token_usage", func(ctx context.Context) error {
		return g.db.WithContext(ctx).Create(&usage).Error
	})
}
