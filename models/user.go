package models

import (
	"time"
)

// Fixed role IDs seeded by config.Migrate. The authorization matrix in
// services/authz.go is keyed on these values.
const (
	RoleSuperAdmin      = 1
	RoleAdmin           = 2
	RoleCounsellor      = 3
	RoleUniversityStaff = 4
	RoleLogisticsStaff  = 5
	RoleStudent         = 6
)

type User struct {
	UserID    int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	FullName  string     `gorm:"column:full_name" json:"full_name"`
	Email     string     `gorm:"column:email;unique" json:"email"`
	Password  string     `gorm:"column:password" json:"-"`
	RoleID    int        `gorm:"column:role_id" json:"role_id"`
	Phone     *string    `gorm:"column:phone" json:"phone,omitempty"`
	IsActive  bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`

	// Relations
	Role Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

type Role struct {
	RoleID   int    `gorm:"primaryKey;column:role_id" json:"role_id"`
	RoleName string `gorm:"column:role_name" json:"role_name"`
}

// PasswordReset holds a single-use reset token emailed to the user.
type PasswordReset struct {
	ResetID   int        `gorm:"primaryKey;column:reset_id" json:"reset_id"`
	UserID    int        `gorm:"column:user_id" json:"user_id"`
	Token     string     `gorm:"column:token;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"column:expires_at" json:"expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at" json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

func (PasswordReset) TableName() string {
	return "password_resets"
}
