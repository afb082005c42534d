package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/platforms"
	"github.com/inkwellhq/inkwell/internal/streams"
	"github.com/inkwellhq/inkwell/internal/tone"
)

// Result is the outcome of a complete generation: the base artifact plus a
// tally of platform adaptations. Platform failures are partial by design;
// the base narrative stands on its own.
type Result struct {
	Post               *models.GeneratedPost
	PlatformsGenerated int
	PlatformsFailed    int
	PlatformErrors     []string
}

// Orchestrator sequences the full pipeline for one artifact: base narrative,
// then one adaptation per enabled platform. It also owns the manual-trigger
// gates (ownership, rate limit).
type Orchestrator struct {
	db        *gorm.DB
	generator *Generator
	adapter   *Adapter
	registry  *platforms.Registry
	limiter   *RateLimiter
	publisher *streams.Publisher
	log       *slog.Logger
}

// NewOrchestrator wires the pipeline. publisher may be nil (events skipped).
func NewOrchestrator(db *gorm.DB, generator *Generator, adapter *Adapter, registry *platforms.Registry, limiter *RateLimiter, publisher *streams.Publisher, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		db:        db,
		generator: generator,
		adapter:   adapter,
		registry:  registry,
		limiter:   limiter,
		publisher: publisher,
		log:       log.With("component", "orchestrator"),
	}
}

// Complete runs the full pipeline: generate the base artifact for the period,
// then adapt it for each of the user's enabled platforms. Adaptation failures
// are collected per platform and never fail the call once the base artifact
// is persisted.
func (o *Orchestrator) Complete(ctx context.Context, userID uint, postType string, periodKey time.Time, generationType string) (*Result, error) {
	post, err := o.generator.Generate(ctx, userID, postType, periodKey, generationType)
	if err != nil {
		return nil, err
	}

	result := &Result{Post: post}
	directive := o.generator.toneDirective(ctx, userID)

	for _, def := range o.enabledPlatforms(ctx, userID) {
		platformPost, err := o.adapter.Adapt(ctx, post, def, directive)
		if err != nil {
			result.PlatformsFailed++
			result.PlatformErrors = append(result.PlatformErrors, fmt.Sprintf("%s: %v", def.Name, err))
			o.log.Warn("Platform adaptation failed",
				"user_id", userID, "platform", def.Name, "post_id", post.PublicID, "error", err.Error())
			continue
		}
		if err := o.replacePlatformPost(ctx, platformPost); err != nil {
			result.PlatformsFailed++
			result.PlatformErrors = append(result.PlatformErrors, fmt.Sprintf("%s: %v", def.Name, err))
			continue
		}
		result.PlatformsGenerated++
	}

	o.publishEvent(post, result)
	return result, nil
}

// GenerateManual runs Complete for an explicit period on behalf of the user,
// after the rate-limit gate. Used by the on-demand API.
func (o *Orchestrator) GenerateManual(ctx context.Context, userID uint, postType string, periodKey time.Time) (*Result, error) {
	if err := o.checkLimit(ctx, userID); err != nil {
		return nil, err
	}
	return o.Complete(ctx, userID, postType, periodKey, models.GenerationTypeManual)
}

// Regenerate re-runs the pipeline for an existing artifact, producing the
// next version. The caller must own the artifact.
func (o *Orchestrator) Regenerate(ctx context.Context, userID uint, postPublicID string) (*Result, error) {
	var post models.GeneratedPost
	err := o.db.WithContext(ctx).Where("public_id = ?", postPublicID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "narrative not found")
		}
		return nil, apperr.Wrap(apperr.KindDatabase, "failed to load narrative", err)
	}
	if post.UserID != userID {
		return nil, apperr.New(apperr.KindAuthorization, "narrative belongs to another user")
	}

	if err := o.checkLimit(ctx, userID); err != nil {
		return nil, err
	}
	return o.Complete(ctx, userID, post.Type, post.PeriodStart, models.GenerationTypeManual)
}

func (o *Orchestrator) checkLimit(ctx context.Context, userID uint) error {
	allowed, stats, err := o.limiter.Allow(ctx, userID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Newf(apperr.KindRateLimit,
			"daily regeneration limit reached (%d/%d)", stats.Used, stats.Limit)
	}
	return nil
}

// enabledPlatforms resolves the user's platform selection against the
// registry. No profile, or an empty selection, means every registered
// platform.
func (o *Orchestrator) enabledPlatforms(ctx context.Context, userID uint) []*platforms.Definition {
	names := o.registry.Names()

	var profile models.ToneProfile
	err := o.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err == nil && len(profile.EnabledPlatforms) > 0 {
		var selected []string
		if err := json.Unmarshal(profile.EnabledPlatforms, &selected); err != nil {
			o.log.Warn("Unreadable platform selection, using all platforms", "user_id", userID)
		} else if len(selected) > 0 {
			names = selected
		}
	}

	defs := make([]*platforms.Definition, 0, len(names))
	for _, name := range names {
		if def, ok := o.registry.Get(name); ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// replacePlatformPost swaps in the fresh rendition for its platform. Each
// generation creates a new base row, so stale renditions only exist on the
// regenerate-platforms-only path; delete-then-insert keeps both paths
// idempotent.
func (o *Orchestrator) replacePlatformPost(ctx context.Context, platformPost *models.PlatformPost) error {
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("generated_post_id = ? AND platform = ?",
			platformPost.GeneratedPostID, platformPost.Platform).
			Delete(&models.PlatformPost{}).Error; err != nil {
			return err
		}
		return tx.Create(platformPost).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.KindDatabase, "failed to store platform post", err)
	}
	return nil
}

func (o *Orchestrator) publishEvent(post *models.GeneratedPost, result *Result) {
	if o.publisher == nil {
		return
	}
	o.publisher.GenerationCompleted(streams.GenerationEvent{
		UserID:             post.UserID,
		PostID:             post.PublicID,
		Type:               post.Type,
		Period:             post.PeriodStart.Format("2006-01-02"),
		Version:            post.Version,
		GenerationType:     post.GenerationType,
		PlatformsGenerated: result.PlatformsGenerated,
		PlatformsFailed:    result.PlatformsFailed,
	})
}

// Directive exposes the merged tone directive for a user. Handlers use it to
// echo effective settings back to the client.
func (o *Orchestrator) Directive(ctx context.Context, userID uint) tone.Directive {
	return o.generator.toneDirective(ctx, userID)
}
