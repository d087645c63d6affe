package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"lexhub/internal/model"
)

type QARepository struct {
	db *gorm.DB
}

func NewQARepository(db *gorm.DB) *QARepository {
	return &QARepository{db: db}
}

func (r *QARepository) CreateQuestion(q *model.Question) error {
	if err := r.db.Create(q).Error; err != nil {
		return fmt.Errorf("create question failed: %w", err)
	}
	return nil
}

func (r *QARepository) GetQuestionByID(id uint) (*model.Question, error) {
	var q model.Question
	if err := r.db.First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query question by id failed: %w", err)
	}
	return &q, nil
}

func (r *QARepository) ListQuestions(category string, page, pageSize int) ([]model.Question, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.Model(&model.Question{})
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count questions failed: %w", err)
	}

	var questions []model.Question
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("list questions failed: %w", err)
	}
	return questions, total, nil
}

func (r *QARepository) CreateAnswer(a *model.Answer) error {
	if err := r.db.Create(a).Error; err != nil {
		return fmt.Errorf("create answer failed: %w", err)
	}
	return nil
}

func (r *QARepository) GetAnswerByID(id uint) (*model.Answer, error) {
	var a model.Answer
	if err := r.db.First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query answer by id failed: %w", err)
	}
	return &a, nil
}

func (r *QARepository) ListAnswersByQuestionID(questionID uint) ([]model.Answer, error) {
	var answers []model.Answer
	if err := r.db.Where("question_id = ?", questionID).Order("created_at ASC").Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("list answers failed: %w", err)
	}
	return answers, nil
}

func (r *QARepository) SetAcceptedAnswer(questionID, answerID uint) error {
	if err := r.db.Model(&model.Question{}).Where("id = ?", questionID).
		Update("accepted_answer_id", answerID).Error; err != nil {
		return fmt.Errorf("set accepted answer failed: %w", err)
	}
	return nil
}
