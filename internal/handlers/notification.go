package handlers

import (
	"campuslink/internal/db"
	"campuslink/internal/middleware"
	"campuslink/internal/models"
	"campuslink/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

// List 当前用户的通知列表，未读在前
func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, limit, offset := ParsePagination(c, 20, 50)

	var total int64
	db.DB.Model(&models.Notification{}).Where("user_id = ?", user.ID).Count(&total)

	var notifications []models.Notification
	db.DB.Preload("Actor").
		Where("user_id = ?", user.ID).
		Order("is_read ASC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications)

	var unread int64
	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Count(&unread)

	OK(c, http.StatusOK, gin.H{
		"notifications": notifications,
		"unread":        unread,
		"pagination":    PageMeta(total, page, limit),
	})
}

// Read 标记单条通知为已读
func (h *NotificationHandler) Read(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	var notification models.Notification
	if err := db.DB.First(&notification, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "Notification not found")
		return
	}
	// 只能操作自己的通知
	if notification.UserID != user.ID {
		Fail(c, http.StatusForbidden, "Access denied")
		return
	}

	db.DB.Model(&notification).Update("is_read", true)
	OK(c, http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// ReadAll 全部标记为已读
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := middleware.CurrentUser(c)

	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true)

	OK(c, http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

// Delete 删除单条通知
func (h *NotificationHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	var notification models.Notification
	if err := db.DB.First(&notification, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "Notification not found")
		return
	}
	if notification.UserID != user.ID {
		Fail(c, http.StatusForbidden, "Access denied")
		return
	}

	db.DB.Delete(&notification)
	OK(c, http.StatusOK, gin.H{"message": "Notification deleted"})
}
