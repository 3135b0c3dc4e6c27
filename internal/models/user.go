package models

import (
	"time"
)

// 用户角色
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

type User struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"size:50;not null" json:"name"`
	Email      string  `gorm:"uniqueIndex;not null" json:"email"` // 必须是学校邮箱
	Password   string  `gorm:"not null" json:"-"`                 // bcrypt hash
	CollegeID  uint    `gorm:"not null;index" json:"college_id"`
	College    College `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"college"`
	Role       string  `gorm:"size:20;default:'student';not null" json:"role"` // student, faculty, admin
	Department string  `gorm:"size:100;not null" json:"department"`
	Year       int     `json:"year"` // 学生在读年级 1-6，其他角色为 0
	Avatar     string  `gorm:"default:🎓" json:"avatar"`
	Bio        string  `gorm:"size:500" json:"bio"`

	// 活跃度计数器，由提问/回答/最佳回答流程维护
	QuestionsAsked   int `gorm:"default:0" json:"questions_asked"`
	AnswersGiven     int `gorm:"default:0" json:"answers_given"`
	BestAnswersCount int `gorm:"default:0" json:"best_answers_count"`

	IsActive  bool      `gorm:"default:true" json:"is_active"` // 软停用，正常流程不做物理删除
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsStudent 是否为学生角色
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}
