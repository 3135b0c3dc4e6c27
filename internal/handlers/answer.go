package handlers

import (
	"campuslink/internal/db"
	"campuslink/internal/middleware"
	"campuslink/internal/models"
	"campuslink/internal/services"
	"campuslink/internal/utils"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AnswerHandler struct {
	resolution *services.ResolutionService
}

func NewAnswerHandler() *AnswerHandler {
	return &AnswerHandler{
		resolution: services.GetResolutionService(),
	}
}

type answerRequest struct {
	Content string `json:"content"`
}

// Create 回答某个问题
func (h *AnswerHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	questionID := utils.StringToUint(c.Param("questionId"))

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		Fail(c, http.StatusBadRequest, "Answer content is required")
		return
	}
	if len(req.Content) > 2000 {
		Fail(c, http.StatusBadRequest, "Answer cannot exceed 2000 characters")
		return
	}

	var question models.Question
	if err := db.DB.First(&question, questionID).Error; err != nil {
		Fail(c, http.StatusNotFound, "Question not found")
		return
	}
	if question.CollegeID != user.CollegeID {
		Fail(c, http.StatusForbidden, "Access denied. Question not from your college.")
		return
	}

	answer := models.Answer{
		Content:    req.Content,
		AuthorID:   user.ID,
		QuestionID: questionID,
		IsActive:   true,
	}

	// 回答和作者计数器同一事务
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&answer).Error; err != nil {
			return err
		}
		return services.BumpUserStat(tx, user.ID, services.StatAnswersGiven, 1)
	})
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Server error while creating answer")
		return
	}

	// 通知提问者，有新互动后热度分重算
	if question.AuthorID != user.ID {
		services.NotifyAsync(question.AuthorID, &user.ID, models.NotificationTypeAnswer,
			fmt.Sprintf("%s answered your question \"%s\"", user.Name, question.Title))
	}
	services.GetHotnessService().ScheduleUpdate(question.ID)

	answer.Author = *user
	answer.ContentHTML = utils.RenderMarkdown(answer.Content)

	OK(c, http.StatusCreated, gin.H{
		"message": "Answer created successfully",
		"answer":  answer,
	})
}

// ListForQuestion 某问题下的全部回答，最佳回答置顶
func (h *AnswerHandler) ListForQuestion(c *gin.Context) {
	user := middleware.CurrentUser(c)
	questionID := utils.StringToUint(c.Param("questionId"))
	page, limit, offset := ParsePagination(c, 10, 50)

	var question models.Question
	if err := db.DB.First(&question, questionID).Error; err != nil {
		Fail(c, http.StatusNotFound, "Question not found")
		return
	}
	if question.CollegeID != user.CollegeID {
		Fail(c, http.StatusForbidden, "Access denied. Question not from your college.")
		return
	}

	var total int64
	db.DB.Model(&models.Answer{}).
		Where("question_id = ? AND is_active = ?", questionID, true).
		Count(&total)

	var answers []models.Answer
	db.DB.Preload("Author").
		Where("question_id = ? AND is_active = ?", questionID, true).
		Order("is_best_answer DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&answers)

	for i := range answers {
		answers[i].ContentHTML = utils.RenderMarkdown(answers[i].Content)
	}

	OK(c, http.StatusOK, gin.H{
		"answers":    answers,
		"pagination": PageMeta(total, page, limit),
	})
}

// Update 作者编辑自己的回答
func (h *AnswerHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	var answer models.Answer
	if err := db.DB.First(&answer, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "Answer not found")
		return
	}
	if answer.AuthorID != user.ID {
		Fail(c, http.StatusForbidden, "Access denied. You can only update your own answers.")
		return
	}

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		Fail(c, http.StatusBadRequest, "Answer content is required")
		return
	}
	if len(req.Content) > 2000 {
		Fail(c, http.StatusBadRequest, "Answer cannot exceed 2000 characters")
		return
	}

	if err := db.DB.Model(&answer).Update("content", req.Content).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error while updating answer")
		return
	}
	answer.Content = req.Content
	answer.ContentHTML = utils.RenderMarkdown(answer.Content)

	OK(c, http.StatusOK, gin.H{
		"message": "Answer updated successfully",
		"answer":  answer,
	})
}

// Delete 作者删除自己的回答，后续清理交给工作流
func (h *AnswerHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	if err := h.resolution.DeleteAnswer(id, user); err != nil {
		FailWorkflow(c, err)
		return
	}

	OK(c, http.StatusOK, gin.H{"message": "Answer deleted successfully"})
}

// MarkHelpful 给回答加 helpful 标记
func (h *AnswerHandler) MarkHelpful(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	count, err := h.resolution.MarkHelpful(id, user)
	if err != nil {
		FailWorkflow(c, err)
		return
	}

	// 互动变化后异步重算所属问题热度
	var answer models.Answer
	if err := db.DB.First(&answer, id).Error; err == nil {
		services.GetHotnessService().ScheduleUpdate(answer.QuestionID)
	}

	OK(c, http.StatusOK, gin.H{
		"message":      "Marked as helpful",
		"helpfulCount": count,
	})
}

// RemoveHelpful 撤销 helpful 标记
func (h *AnswerHandler) RemoveHelpful(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	count, err := h.resolution.RemoveHelpful(id, user)
	if err != nil {
		FailWorkflow(c, err)
		return
	}

	var answer models.Answer
	if err := db.DB.First(&answer, id).Error; err == nil {
		services.GetHotnessService().ScheduleUpdate(answer.QuestionID)
	}

	OK(c, http.StatusOK, gin.H{
		"message":      "Helpful mark removed",
		"helpfulCount": count,
	})
}

// SetBest 提问者把某条回答设为最佳回答
func (h *AnswerHandler) SetBest(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	question, answer, err := h.resolution.SetBestAnswer(id, user)
	if err != nil {
		FailWorkflow(c, err)
		return
	}

	if answer.AuthorID != user.ID {
		services.NotifyAsync(answer.AuthorID, &user.ID, models.NotificationTypeBestAnswer,
			fmt.Sprintf("Your answer was selected as the best answer for \"%s\"", question.Title))
	}

	OK(c, http.StatusOK, gin.H{
		"message":  "Answer set as best answer successfully",
		"question": question,
		"answer":   answer,
	})
}

// Mine 当前用户写过的回答
func (h *AnswerHandler) Mine(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, limit, offset := ParsePagination(c, 10, 50)

	var total int64
	db.DB.Model(&models.Answer{}).
		Where("author_id = ? AND is_active = ?", user.ID, true).
		Count(&total)

	var answers []models.Answer
	db.DB.Where("author_id = ? AND is_active = ?", user.ID, true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&answers)

	// 带上所属问题的标题和状态
	type answerWithQuestion struct {
		models.Answer
		QuestionTitle    string `json:"question_title"`
		QuestionResolved bool   `json:"question_resolved"`
	}
	result := make([]answerWithQuestion, 0, len(answers))
	for _, a := range answers {
		item := answerWithQuestion{Answer: a}
		var q models.Question
		if err := db.DB.Select("title", "is_resolved").First(&q, a.QuestionID).Error; err == nil {
			item.QuestionTitle = q.Title
			item.QuestionResolved = q.IsResolved
		}
		result = append(result, item)
	}

	OK(c, http.StatusOK, gin.H{
		"answers":    result,
		"pagination": PageMeta(total, page, limit),
	})
}
