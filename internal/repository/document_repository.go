package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lexhub/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query document by id failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByIDAndUserID(id, userID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByUserID(userID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) DeleteByIDAndUserID(id, userID uint) error {
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

// SetProcessing flips a pending document into processing state.
func (r *DocumentRepository) SetProcessing(id uint) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).
		Update("status", model.DocumentStatusProcessing).Error; err != nil {
		return fmt.Errorf("set document processing failed: %w", err)
	}
	return nil
}

// SetReady records analysis output and marks the document ready.
func (r *DocumentRepository) SetReady(id uint, text, summary, docType, riskNotes string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":        model.DocumentStatusReady,
		"text":          text,
		"summary":       summary,
		"document_type": docType,
		"risk_notes":    riskNotes,
		"process_error": "",
		"processed_at":  &now,
	}
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("set document ready failed: %w", err)
	}
	return nil
}

// SetFailed marks the document failed with the terminal error message.
func (r *DocumentRepository) SetFailed(id uint, processErr string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":        model.DocumentStatusFailed,
		"process_error": processErr,
		"processed_at":  &now,
	}
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("set document failed state failed: %w", err)
	}
	return nil
}
