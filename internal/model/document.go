package model

import "time"

const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"
)

// Document is an uploaded legal document and the result of its
// processing pipeline. Analysis fields are empty until status is ready.
type Document struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"not null;index" json:"user_id"`
	Name       string `gorm:"size:256;not null" json:"name"`
	StorageKey string `gorm:"size:64;not null;uniqueIndex" json:"storage_key"`
	SizeBytes  int64  `gorm:"not null" json:"size_bytes"`
	Status     string `gorm:"size:16;not null;index;default:pending" json:"status"`

	// Extracted and analyzed content.
	Text         string `gorm:"type:longtext" json:"-"`
	Summary      string `gorm:"type:text" json:"summary,omitempty"`
	DocumentType string `gorm:"size:64" json:"document_type,omitempty"`
	RiskNotes    string `gorm:"type:text" json:"risk_notes,omitempty"`

	ProcessError string     `gorm:"type:text" json:"process_error,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
