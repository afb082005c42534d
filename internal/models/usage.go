package models

import (
	"gorm.io/gorm"
)

// TokenUsage is one normalized provider usage record. Rows are written
// best-effort through the telemetry dispatcher; a failed write never fails
// the generation that produced it.
type TokenUsage struct {
	gorm.Model
	UserID           uint   `gorm:"not null;index"`
	Provider         string `gorm:"not null"`
	ModelName        string `gorm:"column:model_name;not null"`
	Operation        string `gorm:"not null"` // e.g. "daily_narrative", "platform_adapt"
	PromptTokens     int    `gorm:"not null;default:0"`
	CompletionTokens int    `gorm:"not null;default:0"`
	TotalTokens      int    `gorm:"not null;default:0"`
}
