package model

import "time"

// Template is a marketplace listing for a reusable legal document
// template. PriceCents of 0 means free to download for any user.
type Template struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SellerUserID uint      `gorm:"not null;index" json:"seller_user_id"`
	Title        string    `gorm:"size:256;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Category     string    `gorm:"size:64;not null;index" json:"category"`
	PriceCents   int64     `gorm:"not null;default:0" json:"price_cents"`
	StorageKey   string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Published    bool      `gorm:"not null;default:true;index" json:"published"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type TemplatePurchase struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TemplateID uint      `gorm:"not null;index;uniqueIndex:idx_template_buyer" json:"template_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_template_buyer" json:"user_id"`
	PriceCents int64     `gorm:"not null" json:"price_cents"`
	ChargeID   string    `gorm:"size:128" json:"charge_id"`
	CreatedAt  time.Time `json:"created_at"`
}
