package models

import (
	"gorm.io/gorm"
)

// GenerationSchedule is per-user scheduling configuration. Times are "HH:MM"
// in the user's timezone. Mutated only through the settings surface; the
// scheduling engine treats it as read-only.
type GenerationSchedule struct {
	gorm.Model
	UserID         uint   `gorm:"not null;uniqueIndex"`
	User           User   `gorm:"constraint:OnDelete:CASCADE;"`
	DailyEnabled   bool   `gorm:"not null;default:false"`
	DailyTime      string `gorm:"not null;default:'21:00'"`
	WeeklyEnabled  bool   `gorm:"not null;default:false"`
	WeeklyTime     string `gorm:"not null;default:'18:00'"`
	WeeklyDay      int    `gorm:"not null;default:0"` // 0 = Sunday
	MonthlyEnabled bool   `gorm:"not null;default:false"`
	MonthlyTime    string `gorm:"not null;default:'18:00'"`
	MonthlyDay     int    `gorm:"not null;default:1"` // day of month, 1-28
	Timezone       string `gorm:"not null;default:'UTC'"`
}
