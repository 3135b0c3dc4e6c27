package services

import (
	"campuslink/internal/models"

	"gorm.io/gorm"
)

// 用户活跃度计数器列名
const (
	StatQuestionsAsked   = "questions_asked"
	StatAnswersGiven     = "answers_given"
	StatBestAnswersCount = "best_answers_count"
)

// BumpUserStat 在事务内增减用户活跃度计数器
// 计数器是冗余状态，必须和触发它的写操作放进同一个事务
func BumpUserStat(tx *gorm.DB, userID uint, column string, delta int) error {
	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).
		Error
}

// BumpCollegeQuestions 增减学校的问题总数
func BumpCollegeQuestions(tx *gorm.DB, collegeID uint, delta int) error {
	return tx.Model(&models.College{}).
		Where("id = ?", collegeID).
		UpdateColumn("total_questions", gorm.Expr("total_questions + ?", delta)).
		Error
}

// BumpCollegeStudents 增减学校的注册人数，注册流程调用
func BumpCollegeStudents(tx *gorm.DB, collegeID uint, delta int) error {
	return tx.Model(&models.College{}).
		Where("id = ?", collegeID).
		UpdateColumn("total_students", gorm.Expr("total_students + ?", delta)).
		Error
}
