package models

import "time"

// AuditLog is append-only. Rows are written inside the same transaction as the
// state change they describe and are never updated or deleted.
type AuditLog struct {
	AuditID     int       `gorm:"primaryKey;column:audit_id" json:"audit_id"`
	UserID      int       `gorm:"column:user_id;index" json:"user_id"`
	Action      string    `gorm:"column:action" json:"action"`
	TargetTable string    `gorm:"column:target_table" json:"target_table"`
	TargetID    int       `gorm:"column:target_id" json:"target_id"`
	Details     string    `gorm:"column:details;type:text" json:"details"`
	IPAddress   string    `gorm:"column:ip_address" json:"ip_address"`
	UserAgent   *string   `gorm:"column:user_agent" json:"user_agent,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;index" json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
