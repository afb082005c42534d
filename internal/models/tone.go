package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Length preference constants
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

// ToneProfile is the per-user style directive. Extracted holds the
// AI-extracted voice profile (JSONB, shape owned by the extraction path);
// the Override* columns are manual user edits that win over extracted values
// when the merger builds the generation directive.
type ToneProfile struct {
	gorm.Model
	UserID           uint           `gorm:"not null;uniqueIndex"`
	User             User           `gorm:"constraint:OnDelete:CASCADE;"`
	Extracted        datatypes.JSON `gorm:"type:jsonb"`
	OverrideVoice    string         `gorm:"column:override_voice"`
	OverrideAudience string         `gorm:"column:override_audience"`
	OverrideNotes    string         `gorm:"column:override_notes;type:text"`
	UseEmojis        bool           `gorm:"not null;default:false"`
	UseHashtags      bool           `gorm:"not null;default:true"`
	PreferredLength  string         `gorm:"not null;default:'medium'"`
	EnabledPlatforms datatypes.JSON `gorm:"type:jsonb"` // list of platform names
}
