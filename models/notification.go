package models

import "time"

type Notification struct {
	NotificationID int        `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	UserID         int        `gorm:"column:user_id;index" json:"user_id"`
	Title          string     `gorm:"column:title" json:"title"`
	Message        string     `gorm:"column:message;type:text" json:"message"`
	TriggeredBy    int        `gorm:"column:triggered_by" json:"triggered_by"`
	IsRead         bool       `gorm:"column:is_read;default:false" json:"is_read"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	ReadAt         *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
}

func (Notification) TableName() string { return "notifications" }
