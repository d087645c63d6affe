package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"lexhub/internal/model"
)

type TemplateRepository struct {
	db *gorm.DB
}

type TemplateListFilter struct {
	Category      string
	MaxPriceCents int64 // 0 = any price
	Page          int
	PageSize      int
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(tpl *model.Template) error {
	if err := r.db.Create(tpl).Error; err != nil {
		return fmt.Errorf("create template failed: %w", err)
	}
	return nil
}

func (r *TemplateRepository) GetByID(id uint) (*model.Template, error) {
	var tpl model.Template
	if err := r.db.First(&tpl, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query template by id failed: %w", err)
	}
	return &tpl, nil
}

func (r *TemplateRepository) List(filter TemplateListFilter) ([]model.Template, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.Model(&model.Template{}).Where("published = ?", true)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MaxPriceCents > 0 {
		query = query.Where("price_cents <= ?", filter.MaxPriceCents)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count templates failed: %w", err)
	}

	var templates []model.Template
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&templates).Error; err != nil {
		return nil, 0, fmt.Errorf("list templates failed: %w", err)
	}
	return templates, total, nil
}

func (r *TemplateRepository) CreatePurchase(purchase *model.TemplatePurchase) error {
	if err := r.db.Create(purchase).Error; err != nil {
		return fmt.Errorf("create template purchase failed: %w", err)
	}
	return nil
}

func (r *TemplateRepository) GetPurchase(templateID, userID uint) (*model.TemplatePurchase, error) {
	var purchase model.TemplatePurchase
	if err := r.db.Where("template_id = ? AND user_id = ?", templateID, userID).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query template purchase failed: %w", err)
	}
	return &purchase, nil
}

func (r *TemplateRepository) ListPurchasesByUserID(userID uint) ([]model.TemplatePurchase, error) {
	var purchases []model.TemplatePurchase
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("list template purchases failed: %w", err)
	}
	return purchases, nil
}
