package model

import "time"

const (
	PlanFree = "free"
	PlanPro  = "pro"
	PlanFirm = "firm"

	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Subscription is a user's paid plan. A user has at most one active
// subscription; subscribing again replaces the previous one.
type Subscription struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Plan        string     `gorm:"size:16;not null" json:"plan"`
	Status      string     `gorm:"size:16;not null;index" json:"status"`
	ChargeID    string     `gorm:"size:128" json:"charge_id"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
