package generation

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/apperr"
	"github.com/inkwellhq/inkwell/internal/models"
)

// DefaultManualLimit caps manually triggered regenerations per user per
// server-local calendar day.
const DefaultManualLimit = 3

// RateLimitStats is returned with every admission decision so callers can
// render remaining quota and wait time.
type RateLimitStats struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// RateLimiter counts MANUAL artifacts created since the start of the current
// server-local day. It holds no counter state of its own, so it is always
// consistent with the artifact table and needs no reset job.
type RateLimiter struct {
	db    *gorm.DB
	limit int
	now   func() time.Time
}

// NewRateLimiter creates a limiter with the default daily cap.
func NewRateLimiter(db *gorm.DB) *RateLimiter {
	return &RateLimiter{db: db, limit: DefaultManualLimit, now: time.Now}
}

// WithClock returns a copy using fn as the time source. Test hook.
func (l *RateLimiter) WithClock(fn func() time.Time) *RateLimiter {
	clone := *l
	clone.now = fn
	return &clone
}

// Stats returns the user's manual-generation usage for today.
func (l *RateLimiter) Stats(ctx context.Context, userID uint) (RateLimitStats, error) {
	now := l.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var used int64
	err := l.db.WithContext(ctx).Model(&models.GeneratedPost{}).
		Where("user_id = ? AND generation_type = ? AND created_at >= ?",
			userID, models.GenerationTypeManual, dayStart).
		Count(&used).Error
	if err != nil {
		return RateLimitStats{}, apperr.Wrap(apperr.KindDatabase, "failed to count manual generations", err)
	}

	remaining := l.limit - int(used)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitStats{Used: int(used), Limit: l.limit, Remaining: remaining}, nil
}

// Allow reports whether the user may trigger another manual generation today.
func (l *RateLimiter) Allow(ctx context.Context, userID uint) (bool, RateLimitStats, error) {
	stats, err := l.Stats(ctx, userID)
	if err != nil {
		return false, stats, err
	}
	return stats.Remaining > 0, stats, nil
}
