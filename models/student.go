package models

import "time"

// Denormalized progress hints shown on the student record. Maintained by the
// assignment operations in services.ApplicationService.
const (
	StudentStatusIncompleteProfile  = "Incomplete Profile"
	StudentStatusAssignedCounsellor = "Assigned to Counsellor"
	StudentStatusAssignedBoth       = "Assigned to Counsellor and Logistics"
)

type Student struct {
	StudentID            int        `gorm:"primaryKey;column:student_id" json:"student_id"`
	UserID               int        `gorm:"column:user_id;uniqueIndex" json:"user_id"`
	DateOfBirth          *time.Time `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	Nationality          *string    `gorm:"column:nationality" json:"nationality,omitempty"`
	PassportNumber       *string    `gorm:"column:passport_number" json:"passport_number,omitempty"`
	AssignedCounsellorID *int       `gorm:"column:assigned_counsellor_id" json:"assigned_counsellor_id,omitempty"`
	AssignedLogisticsID  *int       `gorm:"column:assigned_logistics_id" json:"assigned_logistics_id,omitempty"`
	ApplicationStatus    string     `gorm:"column:application_status" json:"application_status"`
	CreatedAt            time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt            *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`

	// Relations
	User               User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AssignedCounsellor *User `gorm:"foreignKey:AssignedCounsellorID" json:"assigned_counsellor,omitempty"`
	AssignedLogistics  *User `gorm:"foreignKey:AssignedLogisticsID" json:"assigned_logistics,omitempty"`
}

func (Student) TableName() string {
	return "students"
}
