package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeAnswer     NotificationType = "answer"      // 自己的问题有了新回答
	NotificationTypeBestAnswer NotificationType = "best_answer" // 自己的回答被选为最佳
	NotificationTypeSystem     NotificationType = "system"
	NotificationTypeReport     NotificationType = "report" // 举报通知（发给管理员）
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ActorID   *uint            `gorm:"index" json:"actor_id"` // Sender
	Actor     User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Reason    string           `gorm:"type:text" json:"reason"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
