package models

import (
	"time"
)

type College struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	EmailDomain string `gorm:"uniqueIndex;not null" json:"email_domain"` // 注册时按邮箱域名路由，如 "mit.edu"
	City        string `gorm:"not null" json:"city"`
	State       string `gorm:"not null" json:"state"`
	Country     string `gorm:"not null" json:"country"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	// 冗余计数器，由注册和提问流程维护
	TotalStudents  int `gorm:"default:0" json:"total_students"`
	TotalQuestions int `gorm:"default:0" json:"total_questions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
