package generation

import (
	"context"
	"encoding/json"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/llm"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/platforms"
	"github.com/inkwellhq/inkwell/internal/telemetry"
	"github.com/inkwellhq/inkwell/internal/tone"
)

// Adapter reformats a base narrative for publishing targets. The provider
// does the rewriting; the adapter then applies the platform's constraints
// deterministically so the stored content never depends on the model obeying
// formatting instructions.
type Adapter struct {
	db        *gorm.DB
	client    llm.Client
	retry     llm.RetryConfig
	telemetry *telemetry.Dispatcher
	log       *slog.Logger
}

// NewAdapter wires a platform adapter.
func NewAdapter(db *gorm.DB, client llm.Client, retry llm.RetryConfig, dispatcher *telemetry.Dispatcher, log *slog.Logger) *Adapter {
	return &Adapter{
		db:        db,
		client:    client,
		retry:     retry,
		telemetry: dispatcher,
		log:       log.With("component", "platform_adapter"),
	}
}

// Adapt produces the platform rendition of post for one target. The returned
// row is not yet persisted.
func (a *Adapter) Adapt(ctx context.Context, post *models.GeneratedPost, def *platforms.Definition, directive tone.Directive) (*models.PlatformPost, error) {
	result, err := llm.Do(ctx, a.retry, func(ctx context.Context) (*llm.Result, error) {
		return a.client.Generate(ctx, buildAdaptSystem(def, directive), buildAdaptUser(post.Content))
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "platform adaptation failed", err)
	}

	content, hashtags := Finalize(result.Text, def, directive)

	tagsJSON, err := json.Marshal(hashtags)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "failed to encode hashtags", err)
	}

	a.recordUsage(post.UserID, result)

	return &models.PlatformPost{
		GeneratedPostID: post.ID,
		Platform:        def.Name,
		Content:         content,
		Hashtags:        datatypes.JSON(tagsJSON),
	}, nil
}

// Finalize applies the deterministic post-processing pass to raw provider
// output: paragraph normalization, hashtag extraction/stripping per the
// user's preference and the platform's allowance, emoji stripping, and the
// length cap. Hashtags are extracted in order of appearance before any are
// removed from the content.
func Finalize(raw string, def *platforms.Definition, directive tone.Directive) (string, []string) {
	content := NormalizeParagraphs(raw)

	var hashtags []string
	if directive.UseHashtags && def.MaxHashtags > 0 {
		hashtags = ExtractHashtags(content, def.MaxHashtags)
	}
	content = StripHashtags(content)

	if !directive.UseEmojis || !def.AllowEmojis {
		content = StripEmoji(content)
	}

	content = TruncateAtBoundary(content, def.MaxLength)
	if hashtags == nil {
		hashtags = []string{}
	}
	return content, hashtags
}

func (a *Adapter) recordUsage(userID uint, result *llm.Result) {
	if a.telemetry == nil {
		return
	}
	usage := models.TokenUsage{
		UserID:           userID,
		Provider:         a.client.Provider(),
		ModelName:        result.Model,
		Operation:        "platform_adapt",
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
	}
	a.telemetry.Dispatch("token_usage", func(ctx context.Context) error {
		return a.db.WithContext(ctx).Create(&usage).Error
	})
}
