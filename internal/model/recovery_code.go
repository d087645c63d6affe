package model

import "time"

// RecoveryCode is a single-use fallback for users locked out of TOTP.
// The code itself is stored hashed.
type RecoveryCode struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	UserID   uint       `gorm:"not null;index" json:"user_id"`
	CodeHash string     `gorm:"size:255;not null" json:"-"`
	UsedAt   *time.Time `json:"used_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
