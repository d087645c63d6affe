package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"lexhub/internal/model"
)

type FirmRepository struct {
	db *gorm.DB
}

// FirmSearchFilter narrows directory searches. Zero values mean "any".
type FirmSearchFilter struct {
	PracticeArea string
	City         string
	MinRating    float64
	Page         int
	PageSize     int
}

func NewFirmRepository(db *gorm.DB) *FirmRepository {
	return &FirmRepository{db: db}
}

func (r *FirmRepository) Create(firm *model.LawFirm) error {
	if err := r.db.Create(firm).Error; err != nil {
		return fmt.Errorf("create firm failed: %w", err)
	}
	return nil
}

func (r *FirmRepository) GetByID(id uint) (*model.LawFirm, error) {
	var firm model.LawFirm
	if err := r.db.First(&firm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query firm by id failed: %w", err)
	}
	return &firm, nil
}

func (r *FirmRepository) Search(filter FirmSearchFilter) ([]model.LawFirm, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.Model(&model.LawFirm{})
	if filter.PracticeArea != "" {
		query = query.Where("practice_area = ?", filter.PracticeArea)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.MinRating > 0 {
		query = query.Where("rating_avg >= ?", filter.MinRating)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count firms failed: %w", err)
	}

	var firms []model.LawFirm
	if err := query.Order("rating_avg DESC, rating_count DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&firms).Error; err != nil {
		return nil, 0, fmt.Errorf("search firms failed: %w", err)
	}
	return firms, total, nil
}

// UpsertRating writes the user's rating for a firm and recomputes the
// firm's aggregates inside one transaction.
func (r *FirmRepository) UpsertRating(rating *model.FirmRating) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.FirmRating
		err := tx.Where("firm_id = ? AND user_id = ?", rating.FirmID, rating.UserID).First(&existing).Error
		switch {
		case err == nil:
			existing.Stars = rating.Stars
			existing.Comment = rating.Comment
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*rating = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(rating).Error; err != nil {
				return err
			}
		default:
			return err
		}

		type agg struct {
			Avg   float64
			Count int
		}
		var a agg
		if err := tx.Model(&model.FirmRating{}).
			Select("COALESCE(AVG(stars), 0) AS avg, COUNT(*) AS count").
			Where("firm_id = ?", rating.FirmID).Scan(&a).Error; err != nil {
			return err
		}
		return tx.Model(&model.LawFirm{}).Where("id = ?", rating.FirmID).
			Updates(map[string]interface{}{"rating_avg": a.Avg, "rating_count": a.Count}).Error
	})
	if err != nil {
		return fmt.Errorf("upsert firm rating failed: %w", err)
	}
	return nil
}

func (r *FirmRepository) ListRatings(firmID uint, limit int) ([]model.FirmRating, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var ratings []model.FirmRating
	if err := r.db.Where("firm_id = ?", firmID).Order("updated_at DESC").Limit(limit).Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("list firm ratings failed: %w", err)
	}
	return ratings, nil
}
