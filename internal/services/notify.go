package services

import (
	"campuslink/internal/db"
	"campuslink/internal/models"
	"log"
)

// NotifyAsync 异步写入一条站内通知，失败只记日志
func NotifyAsync(userID uint, actorID *uint, typ models.NotificationType, reason string) {
	go func() {
		notification := models.Notification{
			UserID:  userID,
			ActorID: actorID,
			Type:    typ,
			Reason:  reason,
		}
		if err := db.DB.Create(&notification).Error; err != nil {
			log.Printf("Failed to create notification for user %d: %v", userID, err)
		}
	}()
}

// NotifyAdminsAsync 异步向所有管理员发送通知（举报用）
func NotifyAdminsAsync(actorID *uint, reason string) {
	go func() {
		var admins []models.User
		if err := db.DB.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
			return
		}

		for _, admin := range admins {
			notification := models.Notification{
				UserID:  admin.ID,
				ActorID: actorID,
				Type:    models.NotificationTypeReport,
				Reason:  reason,
			}
			db.DB.Create(&notification)
		}
	}()
}
