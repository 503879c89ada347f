package models

import "time"

type University struct {
	UniversityID int        `gorm:"primaryKey;column:university_id" json:"university_id"`
	Name         string     `gorm:"column:name" json:"name"`
	Country      string     `gorm:"column:country" json:"country"`
	Website      *string    `gorm:"column:website" json:"website,omitempty"`
	// PortalUserID binds the single UniversityStaff account allowed to act for
	// this university. The binding is exclusive per staff user.
	PortalUserID *int       `gorm:"column:portal_user_id;uniqueIndex" json:"portal_user_id,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`

	// Relations
	PortalUser *User    `gorm:"foreignKey:PortalUserID" json:"portal_user,omitempty"`
	Intakes    []Intake `gorm:"foreignKey:UniversityID" json:"intakes,omitempty"`
}

type Intake struct {
	IntakeID     int        `gorm:"primaryKey;column:intake_id" json:"intake_id"`
	UniversityID int        `gorm:"column:university_id" json:"university_id"`
	IntakeName   string     `gorm:"column:intake_name" json:"intake_name"`
	StartDate    *time.Time `gorm:"column:start_date" json:"start_date,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (University) TableName() string {
	return "universities"
}

func (Intake) TableName() string {
	return "intakes"
}
