package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"lexhub/internal/model"
)

type RecoveryCodeRepository struct {
	db *gorm.DB
}

func NewRecoveryCodeRepository(db *gorm.DB) *RecoveryCodeRepository {
	return &RecoveryCodeRepository{db: db}
}

// ReplaceForUser drops any previous codes and stores a fresh set.
func (r *RecoveryCodeRepository) ReplaceForUser(userID uint, codes []model.RecoveryCode) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.RecoveryCode{}).Error; err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		return tx.Create(&codes).Error
	})
	if err != nil {
		return fmt.Errorf("replace recovery codes failed: %w", err)
	}
	return nil
}

func (r *RecoveryCodeRepository) ListUnusedByUserID(userID uint) ([]model.RecoveryCode, error) {
	var codes []model.RecoveryCode
	if err := r.db.Where("user_id = ? AND used_at IS NULL", userID).Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("list recovery codes failed: %w", err)
	}
	return codes, nil
}

func (r *RecoveryCodeRepository) MarkUsed(id uint) error {
	now := time.Now()
	if err := r.db.Model(&model.RecoveryCode{}).Where("id = ? AND used_at IS NULL", id).
		Update("used_at", &now).Error; err != nil {
		return fmt.Errorf("mark recovery code used failed: %w", err)
	}
	return nil
}

func (r *RecoveryCodeRepository) DeleteByUserID(userID uint) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&model.RecoveryCode{}).Error; err != nil {
		return fmt.Errorf("delete recovery codes failed: %w", err)
	}
	return nil
}
