package model

import "time"

// Question is a community Q&A post.
type Question struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Title            string    `gorm:"size:256;not null" json:"title"`
	Body             string    `gorm:"type:text;not null" json:"body"`
	Category         string    `gorm:"size:64;index" json:"category"`
	AcceptedAnswerID uint      `gorm:"index" json:"accepted_answer_id"` // 0 = none accepted
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Answer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	FromLawyer bool      `gorm:"not null;default:false" json:"from_lawyer"`
	CreatedAt  time.Time `json:"created_at"`
}
