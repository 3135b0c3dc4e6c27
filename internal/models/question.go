package models

import (
	"time"
)

// 固定的问题分类
var ValidCategories = []string{
	"lost-and-found",
	"roommate",
	"academic-help",
	"campus-info",
	"general",
	"events",
	"career",
	"hostel",
	"transport",
}

// IsValidCategory 校验分类是否在固定枚举中
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}

// LostFoundDetails 失物招领类问题的附加字段
type LostFoundDetails struct {
	ItemType    string     `json:"item_type"` // "Phone", "Books", "ID Card"...
	Location    string     `json:"location"`
	DateTime    *time.Time `json:"date_time"`
	ContactInfo string     `json:"contact_info"`
	IsFound     bool       `gorm:"default:false" json:"is_found"` // 物品是否已归还
}

// RoommateDetails 找室友类问题的附加字段
type RoommateDetails struct {
	RoomType    string `json:"room_type"` // "Single", "Double", "Triple"
	Preferences string `json:"preferences"`
	Budget      string `json:"budget"`
	Location    string `json:"location"`
}

type Question struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	Title     string   `gorm:"size:200;not null" json:"title"`
	Content   string   `gorm:"type:text;not null" json:"content"`
	Category  string   `gorm:"size:30;not null;index" json:"category"`
	Tags      []string `gorm:"serializer:json" json:"tags"`
	AuthorID  uint     `gorm:"not null;index" json:"author_id"`
	Author    User     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	CollegeID uint     `gorm:"not null;index" json:"college_id"`
	College   College  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"college"`

	// 作者选出的最佳回答；非空时 IsResolved 必为 true
	BestAnswerID *uint   `gorm:"index" json:"best_answer_id"`
	BestAnswer   *Answer `gorm:"foreignKey:BestAnswerID" json:"best_answer,omitempty"`

	Views      int  `gorm:"default:0" json:"views"`
	HotScore   int  `gorm:"default:0;index" json:"hot_score"` // 后台异步计算的热度分
	IsResolved bool `gorm:"default:false" json:"is_resolved"`
	IsPinned   bool `gorm:"default:false" json:"is_pinned"`
	IsReported bool `gorm:"default:false" json:"is_reported"`

	LostFound LostFoundDetails `gorm:"embedded;embeddedPrefix:lf_" json:"lost_found_details"`
	Roommate  RoommateDetails  `gorm:"embedded;embeddedPrefix:rm_" json:"roommate_details"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 非数据库字段，查询时填充
	Answers     []Answer `gorm:"-" json:"answers,omitempty"`
	AnswerCount int      `gorm:"-" json:"answer_count"`
	ContentHTML string   `gorm:"-" json:"content_html,omitempty"`
}
