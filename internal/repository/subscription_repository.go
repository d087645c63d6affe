package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lexhub/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	if err := r.db.Create(sub).Error; err != nil {
		return fmt.Errorf("create subscription failed: %w", err)
	}
	return nil
}

// GetActiveByUserID returns the user's live subscription: active, or
// canceled but still inside its paid period.
func (r *SubscriptionRepository) GetActiveByUserID(userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	now := time.Now()
	err := r.db.Where(
		"user_id = ? AND ((status = ?) OR (status = ? AND period_end > ?))",
		userID, model.SubscriptionStatusActive, model.SubscriptionStatusCanceled, now,
	).Order("created_at DESC").First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query active subscription failed: %w", err)
	}
	if sub.Status == model.SubscriptionStatusActive && sub.PeriodEnd.Before(now) {
		return nil, nil
	}
	return &sub, nil
}

func (r *SubscriptionRepository) Update(sub *model.Subscription) error {
	if err := r.db.Save(sub).Error; err != nil {
		return fmt.Errorf("update subscription failed: %w", err)
	}
	return nil
}

// ExpireActiveByUserID closes out any currently active subscription so a
// new one can take its place.
func (r *SubscriptionRepository) ExpireActiveByUserID(userID uint) error {
	if err := r.db.Model(&model.Subscription{}).
		Where("user_id = ? AND status = ?", userID, model.SubscriptionStatusActive).
		Update("status", model.SubscriptionStatusExpired).Error; err != nil {
		return fmt.Errorf("expire subscriptions failed: %w", err)
	}
	return nil
}
