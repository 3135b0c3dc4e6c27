package models

import (
	"time"
)

type Answer struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Content    string `gorm:"type:text;not null" json:"content"`
	AuthorID   uint   `gorm:"not null;index" json:"author_id"`
	Author     User   `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`

	// 必须恒等于 helpful_marks 表中本回答的记录数
	HelpfulCount int `gorm:"default:0" json:"helpful_count"`

	// 同一问题下至多一条回答为 true，且与问题的 best_answer_id 一致
	IsBestAnswer bool `gorm:"default:false" json:"is_best_answer"`

	IsReported bool `gorm:"default:false" json:"is_reported"`
	IsActive   bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 非数据库字段
	ContentHTML string `gorm:"-" json:"content_html,omitempty"`
}

// HelpfulMark 某用户对某回答的一次 helpful 标记，每人每回答至多一条
type HelpfulMark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AnswerID  uint      `gorm:"not null;uniqueIndex:idx_answer_user" json:"answer_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_answer_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
