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

type QuestionHandler struct {
	resolution *services.ResolutionService
}

func NewQuestionHandler() *QuestionHandler {
	return &QuestionHandler{
		resolution: services.GetResolutionService(),
	}
}

// fillAnswerCounts 批量填充问题的回答数量
func fillAnswerCounts(questions []models.Question) {
	if len(questions) == 0 {
		return
	}

	questionIDs := make([]uint, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}

	type countResult struct {
		QuestionID uint
		Count      int
	}
	var results []countResult
	db.DB.Model(&models.Answer{}).
		Select("question_id, COUNT(*) as count").
		Where("question_id IN ?", questionIDs).
		Group("question_id").
		Scan(&results)

	countMap := make(map[uint]int)
	for _, r := range results {
		countMap[r.QuestionID] = r.Count
	}

	for i := range questions {
		questions[i].AnswerCount = countMap[questions[i].ID]
	}
}

type questionRequest struct {
	Title     string                   `json:"title"`
	Content   string                   `json:"content"`
	Category  string                   `json:"category"`
	Tags      []string                 `json:"tags"`
	LostFound *models.LostFoundDetails `json:"lost_found_details"`
	Roommate  *models.RoommateDetails  `json:"roommate_details"`
}

// Create 发布新问题，自动挂到作者所属学校
func (h *QuestionHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Title = utils.SanitizeText(strings.TrimSpace(req.Title))
	req.Content = strings.TrimSpace(req.Content)

	if req.Title == "" || req.Content == "" || req.Category == "" {
		Fail(c, http.StatusBadRequest, "Please provide title, content, and category")
		return
	}
	if len(req.Title) > 200 {
		Fail(c, http.StatusBadRequest, "Title cannot exceed 200 characters")
		return
	}
	if len(req.Content) > 2000 {
		Fail(c, http.StatusBadRequest, "Content cannot exceed 2000 characters")
		return
	}
	if !models.IsValidCategory(req.Category) {
		Fail(c, http.StatusBadRequest, "Invalid category provided")
		return
	}

	// tags 统一小写去空白
	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			tags = append(tags, t)
		}
	}

	question := models.Question{
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		Tags:      tags,
		AuthorID:  user.ID,
		CollegeID: user.CollegeID,
	}

	// 分类专属字段只在对应分类下生效
	if req.Category == "lost-and-found" && req.LostFound != nil {
		question.LostFound = *req.LostFound
	}
	if req.Category == "roommate" && req.Roommate != nil {
		question.Roommate = *req.Roommate
	}

	// 问题记录和两个计数器在同一事务里落库
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
		if err := services.BumpUserStat(tx, user.ID, services.StatQuestionsAsked, 1); err != nil {
			return err
		}
		return services.BumpCollegeQuestions(tx, user.CollegeID, 1)
	})
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Server error while creating question")
		return
	}

	question.Author = *user
	question.ContentHTML = utils.RenderMarkdown(question.Content)

	OK(c, http.StatusCreated, gin.H{
		"message":  "Question created successfully",
		"question": question,
	})
}

// List 本校问题列表，支持分类过滤、搜索、排序、分页
func (h *QuestionHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, limit, offset := ParsePagination(c, 10, 50)

	// 只看本校的问题
	query := db.DB.Model(&models.Question{}).Where("college_id = ?", user.CollegeID)

	if category := c.Query("category"); category != "" && category != "all" {
		query = query.Where("category = ?", category)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		// tags 是 JSON 序列化存储，LIKE 足够覆盖标签搜索
		query = query.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR LOWER(tags) LIKE ?", like, like, like)
	}

	switch c.Query("sort") {
	case "views":
		query = query.Order("is_pinned DESC, views DESC, created_at DESC")
	case "hot":
		query = query.Order("is_pinned DESC, hot_score DESC, created_at DESC")
	default:
		query = query.Order("is_pinned DESC, created_at DESC")
	}

	var total int64
	query.Count(&total)

	var questions []models.Question
	query.Preload("Author").Preload("College").
		Limit(limit).
		Offset(offset).
		Find(&questions)

	fillAnswerCounts(questions)

	OK(c, http.StatusOK, gin.H{
		"questions":  questions,
		"pagination": PageMeta(total, page, limit),
	})
}

// Detail 问题详情，带全部回答；非作者访问时浏览数 +1
func (h *QuestionHandler) Detail(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	var question models.Question
	if err := db.DB.Preload("Author").Preload("College").First(&question, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "Question not found")
		return
	}

	if question.CollegeID != user.CollegeID {
		Fail(c, http.StatusForbidden, "Access denied. Question not from your college.")
		return
	}

	if question.AuthorID != user.ID {
		db.DB.Model(&question).UpdateColumn("views", gorm.Expr("views + ?", 1))
		question.Views++
		// 浏览量变了，热度分异步重算
		services.GetHotnessService().ScheduleUpdate(question.ID)
	}

	// 最佳回答置顶，其余按时间倒序
	var answers []models.Answer
	db.DB.Preload("Author").
		Where("question_id = ? AND is_active = ?", question.ID, true).
		Order("is_best_answer DESC, created_at DESC").
		Find(&answers)

	for i := range answers {
		answers[i].ContentHTML = utils.RenderMarkdown(answers[i].Content)
	}
	question.Answers = answers
	question.AnswerCount = len(answers)
	question.ContentHTML = utils.RenderMarkdown(question.Content)

	OK(c, http.StatusOK, gin.H{"question": question})
}

// Update 作者编辑自己的问题
func (h *QuestionHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	var question models.Question
	if err := db.DB.First(&question, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "Question not found")
		return
	}
	if question.AuthorID != user.ID {
		Fail(c, http.StatusForbidden, "Access denied. You can only update your own questions.")
		return
	}

	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title != "" {
		title := utils.SanitizeText(strings.TrimSpace(req.Title))
		if len(title) > 200 {
			Fail(c, http.StatusBadRequest, "Title cannot exceed 200 characters")
			return
		}
		question.Title = title
	}
	if req.Content != "" {
		if len(req.Content) > 2000 {
			Fail(c, http.StatusBadRequest, "Content cannot exceed 2000 characters")
			return
		}
		question.Content = req.Content
	}
	if req.Tags != nil {
		tags := make([]string, 0, len(req.Tags))
		for _, t := range req.Tags {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				tags = append(tags, t)
			}
		}
		question.Tags = tags
	}
	// 分类不可改，分类专属字段只在原分类下允许更新
	if req.LostFound != nil && question.Category == "lost-and-found" {
		question.LostFound = *req.LostFound
	}
	if req.Roommate != nil && question.Category == "roommate" {
		question.Roommate = *req.Roommate
	}

	if err := db.DB.Save(&question).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error while updating question")
		return
	}

	question.ContentHTML = utils.RenderMarkdown(question.Content)
	OK(c, http.StatusOK, gin.H{
		"message":  "Question updated successfully",
		"question": question,
	})
}

// Delete 作者删除自己的问题，级联删除交给工作流
func (h *QuestionHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	if err := h.resolution.DeleteQuestion(id, user); err != nil {
		FailWorkflow(c, err)
		return
	}

	OK(c, http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

type resolveRequest struct {
	BestAnswerID *uint `json:"bestAnswerId"`
}

// Resolve 作者标记问题已解决，可同时指定最佳回答
func (h *QuestionHandler) Resolve(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	question, err := h.resolution.ResolveQuestion(id, user, req.BestAnswerID)
	if err != nil {
		FailWorkflow(c, err)
		return
	}

	// 回答被选为最佳时通知回答作者
	if req.BestAnswerID != nil {
		var best models.Answer
		if err := db.DB.First(&best, *req.BestAnswerID).Error; err == nil && best.AuthorID != user.ID {
			services.NotifyAsync(best.AuthorID, &user.ID, models.NotificationTypeBestAnswer,
				fmt.Sprintf("Your answer was selected as the best answer for \"%s\"", question.Title))
		}
	}

	OK(c, http.StatusOK, gin.H{
		"message":  "Question marked as resolved",
		"question": question,
	})
}

// Mine 当前用户提过的问题
func (h *QuestionHandler) Mine(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, limit, offset := ParsePagination(c, 10, 50)

	var total int64
	db.DB.Model(&models.Question{}).Where("author_id = ?", user.ID).Count(&total)

	var questions []models.Question
	db.DB.Preload("College").
		Where("author_id = ?", user.ID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&questions)

	fillAnswerCounts(questions)

	OK(c, http.StatusOK, gin.H{
		"questions":  questions,
		"pagination": PageMeta(total, page, limit),
	})
}
