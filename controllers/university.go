package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"admissions-api/config"
	"admissions-api/models"
	"admissions-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetUniversities lists universities with their intakes.
func GetUniversities(c *gin.Context) {
	var universities []models.University
	if err := config.DB.Preload("Intakes").Order("name").Find(&universities).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch universities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"universities": universities,
		"total":        len(universities),
	})
}

// GetUniversity returns one university.
func GetUniversity(c *gin.Context) {
	uniID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid university ID"})
		return
	}

	var uni models.University
	if err := config.DB.Preload("Intakes").Preload("PortalUser").
		Where("university_id = ?", uniID).
		First(&uni).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "University not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"university": uni})
}

// CreateUniversity registers a partner university.
func CreateUniversity(c *gin.Context) {
	type createRequest struct {
		Name         string `json:"name" binding:"required"`
		Country      string `json:"country"`
		Website      string `json:"website"`
		PortalUserID *int   `json:"portal_user_id"`
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.PortalUserID != nil && !isUniversityStaff(*req.PortalUserID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Portal user must have the University Staff role"})
		return
	}

	uni := models.University{
		Name:         req.Name,
		Country:      req.Country,
		PortalUserID: req.PortalUserID,
	}
	if req.Website != "" {
		uni.Website = &req.Website
	}
	actor := currentActor(c)
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&uni).Error; err != nil {
			return err
		}
		detail := fmt.Sprintf("University: %s, Country: %s", uni.Name, uni.Country)
		return services.RecordAudit(tx, actor, "Create University", "universities", uni.UniversityID, detail)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create university"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "University created successfully",
		"university": uni,
	})
}

// UpdateUniversity updates university fields, including the portal user
// binding that scopes university staff access.
func UpdateUniversity(c *gin.Context) {
	type updateRequest struct {
		Name         *string `json:"name"`
		Country      *string `json:"country"`
		Website      *string `json:"website"`
		PortalUserID *int    `json:"portal_user_id"`
		ClearPortal  bool    `json:"clear_portal_user"`
	}

	uniID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid university ID"})
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.ClearPortal {
		updates["portal_user_id"] = nil
	} else if req.PortalUserID != nil {
		if !isUniversityStaff(*req.PortalUserID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Portal user must have the University Staff role"})
			return
		}
		updates["portal_user_id"] = *req.PortalUserID
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	updates["updated_at"] = time.Now()

	actor := currentActor(c)
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.University{}).
			Where("university_id = ?", uniID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		detail := fmt.Sprintf("Updated fields: %d", len(updates)-1)
		return services.RecordAudit(tx, actor, "Update University", "universities", uniID, detail)
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "University not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update university"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "University updated successfully"})
}

// CreateIntake adds an intake period to a university.
func CreateIntake(c *gin.Context) {
	type intakeRequest struct {
		IntakeName string `json:"intake_name" binding:"required"`
		StartDate  string `json:"start_date"`
	}

	uniID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid university ID"})
		return
	}

	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var uni models.University
	if err := config.DB.Where("university_id = ?", uniID).First(&uni).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "University not found"})
		return
	}

	actor := currentActor(c)
	if actor.RoleID == models.RoleUniversityStaff && !services.StaffBoundToUniversity(actor.UserID, &uni) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only manage intakes for your own university"})
		return
	}

	intake := models.Intake{
		UniversityID: uniID,
		IntakeName:   req.IntakeName,
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		intake.StartDate = &start
	}
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&intake).Error; err != nil {
			return err
		}
		detail := fmt.Sprintf("Intake: %s, University: %s", intake.IntakeName, uni.Name)
		return services.RecordAudit(tx, actor, "Create Intake", "intakes", intake.IntakeID, detail)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create intake"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Intake created successfully",
		"intake":  intake,
	})
}

// DeleteIntake removes an intake period.
func DeleteIntake(c *gin.Context) {
	intakeID, err := strconv.Atoi(c.Param("intakeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid intake ID"})
		return
	}

	var intake models.Intake
	if err := config.DB.Where("intake_id = ?", intakeID).First(&intake).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Intake not found"})
		return
	}

	actor := currentActor(c)
	if actor.RoleID == models.RoleUniversityStaff {
		var uni models.University
		if err := config.DB.Where("university_id = ?", intake.UniversityID).First(&uni).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "University not found"})
			return
		}
		if !services.StaffBoundToUniversity(actor.UserID, &uni) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only manage intakes for your own university"})
			return
		}
	}

	txErr := config.DB.Transaction(func(tx *gorm.DB) error {
		detail := fmt.Sprintf("DELETED Intake: %s, University ID: %d", intake.IntakeName, intake.UniversityID)
		if err := services.RecordAudit(tx, actor, "Delete Intake", "intakes", intakeID, detail); err != nil {
			return err
		}
		return tx.Where("intake_id = ?", intakeID).Delete(&models.Intake{}).Error
	})
	if txErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete intake"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Intake deleted successfully"})
}

func isUniversityStaff(userID int) bool {
	var user models.User
	if err := config.DB.Where("user_id = ?", userID).First(&user).Error; err != nil {
		return false
	}
	return user.RoleID == models.RoleUniversityStaff
}
