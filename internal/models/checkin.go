package models

import (
	"gorm.io/gorm"
)

// MaxCheckInLength bounds check-in content at creation time.
const MaxCheckInLength = 2000

// CheckIn is an immutable timestamped note owned by one user. Check-ins are
// the raw input to daily narrative generation and are never mutated after
// creation.
type CheckIn struct {
	gorm.Model
	PublicID string `gorm:"column:public_id;uniqueIndex;not null"`
	UserID   uint   `gorm:"not null;index:idx_check_ins_user_created"`
	User     User   `gorm:"constraint:OnDelete:CASCADE;"`
	Content  string `gorm:"type:text;not null"`
}
