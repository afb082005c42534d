package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post type constants (generation granularity)
const (
	PostTypeDaily   = "daily"
	PostTypeWeekly  = "weekly"
	PostTypeMonthly = "monthly"
)

// Generation type constants
const (
	GenerationTypeAuto   = "auto"
	GenerationTypeManual = "manual"
)

// ValidPostType reports whether t is one of the three granularities.
func ValidPostType(t string) bool {
	return t == PostTypeDaily || t == PostTypeWeekly || t == PostTypeMonthly
}

// GeneratedPost is one version of a narrative for a (user, type, period start)
// tuple. Versions are dense starting at 1; at most one row per tuple carries
// is_latest = true, enforced by a partial unique index and by performing the
// latest-flip and insert inside one transaction.
type GeneratedPost struct {
	gorm.Model
	PublicID       string         `gorm:"column:public_id;uniqueIndex;not null"`
	UserID         uint           `gorm:"not null;index;uniqueIndex:idx_posts_latest,where:is_latest"`
	User           User           `gorm:"constraint:OnDelete:CASCADE;"`
	Type           string         `gorm:"not null;index;uniqueIndex:idx_posts_latest,where:is_latest"`
	PeriodStart    time.Time      `gorm:"column:period_start;type:date;not null;uniqueIndex:idx_posts_latest,where:is_latest"`
	Content        string         `gorm:"type:text;not null"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"`
	Version        int            `gorm:"not null;default:1"`
	IsLatest       bool           `gorm:"column:is_latest;not null;default:true;index"`
	GenerationType string         `gorm:"column:generation_type;not null;default:'auto';index"`
	ModelUsed      string         `gorm:"column:model_used"`

	PlatformPosts []PlatformPost `gorm:"constraint:OnDelete:CASCADE;"`
}

// PlatformPost holds a base narrative adapted for one publishing platform.
// Regeneration replaces all rows for the base post.
type PlatformPost struct {
	gorm.Model
	GeneratedPostID uint           `gorm:"not null;uniqueIndex:idx_platform_posts_post_platform"`
	Platform        string         `gorm:"not null;uniqueIndex:idx_platform_posts_post_platform"`
	Content         string         `gorm:"type:text;not null"`
	Hashtags        datatypes.JSON `gorm:"type:jsonb"`
}
