package model

import "time"

// LawFirm is a directory entry. RatingAvg and RatingCount are
// aggregates recomputed from FirmRating rows on every rating write.
type LawFirm struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OwnerUserID  uint      `gorm:"not null;index" json:"owner_user_id"`
	Name         string    `gorm:"size:256;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	PracticeArea string    `gorm:"size:64;not null;index" json:"practice_area"`
	City         string    `gorm:"size:128;not null;index" json:"city"`
	Phone        string    `gorm:"size:32" json:"phone"`
	Website      string    `gorm:"size:256" json:"website"`
	RatingAvg    float64   `gorm:"not null;default:0" json:"rating_avg"`
	RatingCount  int       `gorm:"not null;default:0" json:"rating_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type FirmRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirmID    uint      `gorm:"not null;index;uniqueIndex:idx_firm_user" json:"firm_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_firm_user" json:"user_id"`
	Stars     int       `gorm:"not null" json:"stars"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
