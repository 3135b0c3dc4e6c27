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
)

type ReportHandler struct{}

func NewReportHandler() *ReportHandler {
	return &ReportHandler{}
}

type reportRequest struct {
	Reason string `json:"reason"`
}

// Report 举报问题或回答：打上 is_reported 标记、落一条举报记录并异步通知管理员
func (h *ReportHandler) Report(c *gin.Context) {
	user := middleware.CurrentUser(c)

	itemType := c.Param("type") // "question" or "answer"
	itemID := utils.StringToUint(c.Param("id"))

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		Fail(c, http.StatusBadRequest, "Report reason is required")
		return
	}

	var itemDesc string
	switch itemType {
	case "question":
		var question models.Question
		if err := db.DB.First(&question, itemID).Error; err != nil {
			Fail(c, http.StatusNotFound, "Question not found")
			return
		}
		if question.CollegeID != user.CollegeID {
			Fail(c, http.StatusForbidden, "Access denied. Question not from your college.")
			return
		}
		db.DB.Model(&question).UpdateColumn("is_reported", true)
		itemDesc = fmt.Sprintf("question \"%s\"", question.Title)
	case "answer":
		var answer models.Answer
		if err := db.DB.First(&answer, itemID).Error; err != nil {
			Fail(c, http.StatusNotFound, "Answer not found")
			return
		}
		// 回答本身不带学校，走所属问题做同校校验
		var question models.Question
		if err := db.DB.First(&question, answer.QuestionID).Error; err != nil {
			Fail(c, http.StatusNotFound, "Question not found")
			return
		}
		if question.CollegeID != user.CollegeID {
			Fail(c, http.StatusForbidden, "Access denied. Answer not from your college.")
			return
		}
		db.DB.Model(&answer).UpdateColumn("is_reported", true)
		itemDesc = fmt.Sprintf("an answer (id %d)", answer.ID)
	default:
		Fail(c, http.StatusBadRequest, "Invalid report type")
		return
	}

	report := models.Report{
		UserID:   user.ID,
		ItemType: itemType,
		ItemID:   itemID,
		Reason:   req.Reason,
	}
	if err := db.DB.Create(&report).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error while creating report")
		return
	}

	services.NotifyAdminsAsync(&user.ID,
		fmt.Sprintf("%s reported %s. Reason: %s", user.Name, itemDesc, req.Reason))

	OK(c, http.StatusOK, gin.H{"message": "Reported successfully"})
}
