package controllers

import (
	"net/http"
	"strconv"
	"time"

	"admissions-api/config"
	"admissions-api/models"
	"admissions-api/services"

	"github.com/gin-gonic/gin"
)

// StudentController serves student profiles and assignment management.
type StudentController struct {
	apps *services.ApplicationService
}

func NewStudentController(apps *services.ApplicationService) *StudentController {
	return &StudentController{apps: apps}
}

// GetStudents lists student profiles visible to the acting role.
func (ctrl *StudentController) GetStudents(c *gin.Context) {
	actor := currentActor(c)

	query := config.DB.Preload("User").Preload("AssignedCounsellor").Preload("AssignedLogistics").
		Order("student_id DESC")

	switch actor.RoleID {
	case models.RoleSuperAdmin, models.RoleAdmin:
		// unrestricted
	case models.RoleCounsellor:
		query = query.Where("assigned_counsellor_id = ?", actor.UserID)
	case models.RoleLogisticsStaff:
		query = query.Where("assigned_logistics_id = ?", actor.UserID)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch students"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"students": students,
		"total":    len(students),
	})
}

// GetStudent returns one student profile.
func (ctrl *StudentController) GetStudent(c *gin.Context) {
	actor := currentActor(c)
	studentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student ID"})
		return
	}

	var student models.Student
	if err := config.DB.Preload("User").Preload("AssignedCounsellor").Preload("AssignedLogistics").
		Where("student_id = ?", studentID).
		First(&student).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	visible := services.IsElevated(actor.RoleID) ||
		services.StudentOwns(actor.UserID, &student) ||
		services.CounsellorAssignedToStudent(actor.UserID, &student) ||
		(student.AssignedLogisticsID != nil && *student.AssignedLogisticsID == actor.UserID)
	if !visible {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to view this student"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"student": student})
}

// GetMyProfile returns the acting student's own profile.
func (ctrl *StudentController) GetMyProfile(c *gin.Context) {
	actor := currentActor(c)

	var student models.Student
	if err := config.DB.Preload("User").Preload("AssignedCounsellor").Preload("AssignedLogistics").
		Where("user_id = ?", actor.UserID).
		First(&student).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student profile not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"student": student})
}

// UpdateMyProfile lets a student maintain their own profile fields.
func (ctrl *StudentController) UpdateMyProfile(c *gin.Context) {
	type profileRequest struct {
		DateOfBirth    *string `json:"date_of_birth"`
		Nationality    *string `json:"nationality"`
		PassportNumber *string `json:"passport_number"`
	}

	actor := currentActor(c)

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var student models.Student
	if err := config.DB.Where("user_id = ?", actor.UserID).First(&student).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student profile not found"})
		return
	}

	updates := map[string]interface{}{}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date_of_birth must be YYYY-MM-DD"})
			return
		}
		updates["date_of_birth"] = dob
	}
	if req.Nationality != nil {
		updates["nationality"] = *req.Nationality
	}
	if req.PassportNumber != nil {
		updates["passport_number"] = *req.PassportNumber
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No profile fields to update"})
		return
	}

	if err := config.DB.Model(&models.Student{}).
		Where("student_id = ?", student.StudentID).
		Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// AssignCounsellor sets or clears (counsellor_id null/absent) the counsellor.
func (ctrl *StudentController) AssignCounsellor(c *gin.Context) {
	type assignRequest struct {
		CounsellorID *int `json:"counsellor_id"`
	}

	studentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student ID"})
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.apps.AssignCounsellor(currentActor(c), studentID, req.CounsellorID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Counsellor assignment updated"})
}

// AssignLogistics sets or clears the logistics staff.
func (ctrl *StudentController) AssignLogistics(c *gin.Context) {
	type assignRequest struct {
		LogisticsID *int `json:"logistics_id"`
	}

	studentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student ID"})
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.apps.AssignLogistics(currentActor(c), studentID, req.LogisticsID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logistics assignment updated"})
}
