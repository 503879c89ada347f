package config

import (
	"log"

	"admissions-api/models"

	"gorm.io/gorm"
)

// Migrate brings the schema up to date and seeds the fixed role table. It runs
// once at process start; request handlers assume a stable schema and never
// issue DDL.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.PasswordReset{},
		&models.Student{},
		&models.University{},
		&models.Intake{},
		&models.Application{},
		&models.Document{},
		&models.DocumentStatus{},
		&models.AuditLog{},
		&models.Notification{},
	); err != nil {
		return err
	}

	return seedRoles(db)
}

var seedRoleNames = map[int]string{
	models.RoleSuperAdmin:      "SuperAdmin",
	models.RoleAdmin:           "Admin",
	models.RoleCounsellor:      "Counsellor",
	models.RoleUniversityStaff: "University Staff",
	models.RoleLogisticsStaff:  "Logistics Staff",
	models.RoleStudent:         "Student",
}

func seedRoles(db *gorm.DB) error {
	for id, name := range seedRoleNames {
		var existing models.Role
		err := db.Where("role_id = ?", id).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&models.Role{RoleID: id, RoleName: name}).Error; err != nil {
			return err
		}
		log.Printf("Seeded role %d (%s)", id, name)
	}
	return nil
}
