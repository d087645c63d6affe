package model

import "time"

const (
	RoleClient = "client"
	RoleLawyer = "lawyer"
)

type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Username         string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email            string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash     string    `gorm:"size:255;not null" json:"-"`
	Role             string    `gorm:"size:16;not null;default:client" json:"role"`
	TwoFactorEnabled bool      `gorm:"not null;default:false" json:"two_factor_enabled"`
	TOTPSecret       string    `gorm:"size:128" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
