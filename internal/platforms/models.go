package platforms

import (
	"gorm.io/gorm"
)

// PlatformDefinition is the persisted mirror of a discovered platform
// manifest, kept so operators can inspect and disable targets without a
// deploy.
type PlatformDefinition struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null"`
	DisplayName string `gorm:"not null;default:''"`
	Version     string `gorm:"not null"`
	MaxLength   int    `gorm:"not null;default:0"`
	MaxHashtags int    `gorm:"not null;default:0"`
	AllowEmojis bool   `gorm:"not null;default:true"`
	StyleHint   string
	Enabled     bool `gorm:"not null;default:true"`
}
