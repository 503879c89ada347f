package controllers

import (
	"net/http"
	"strconv"

	"admissions-api/config"
	"admissions-api/models"
	"admissions-api/services"

	"github.com/gin-gonic/gin"
)

// ApplicationController exposes the application lifecycle over HTTP. All
// mutations delegate to the service; listings are scoped per role here.
type ApplicationController struct {
	apps *services.ApplicationService
}

func NewApplicationController(apps *services.ApplicationService) *ApplicationController {
	return &ApplicationController{apps: apps}
}

// GetApplications lists applications visible to the acting role.
func (ctrl *ApplicationController) GetApplications(c *gin.Context) {
	actor := currentActor(c)

	query := config.DB.Preload("Student.User").Preload("University").Preload("Counsellor").
		Order("applications.created_at DESC")

	switch actor.RoleID {
	case models.RoleSuperAdmin, models.RoleAdmin:
		// unrestricted
	case models.RoleCounsellor:
		query = query.
			Select("applications.*").
			Joins("JOIN students ON students.student_id = applications.student_id").
			Where("applications.counsellor_id = ? OR students.assigned_counsellor_id = ?", actor.UserID, actor.UserID)
	case models.RoleUniversityStaff:
		var uni models.University
		if err := config.DB.Where("portal_user_id = ?", actor.UserID).First(&uni).Error; err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "No university portal is bound to your account"})
			return
		}
		query = query.Where("applications.university_id = ? AND applications.status IN ?",
			uni.UniversityID, []string{
				models.StatusForwarded,
				models.StatusDecisionAccepted,
				models.StatusDecisionRejected,
				models.StatusDecisionConditional,
			})
	case models.RoleStudent:
		var student models.Student
		if err := config.DB.Where("user_id = ?", actor.UserID).First(&student).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student profile not found"})
			return
		}
		query = query.Where("applications.student_id = ?", student.StudentID)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	var apps []models.Application
	if err := query.Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"total":        len(apps),
	})
}

// GetApplication returns one application if the actor may see it.
func (ctrl *ApplicationController) GetApplication(c *gin.Context) {
	actor := currentActor(c)
	appID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	var app models.Application
	if err := config.DB.Preload("Student.User").Preload("University").Preload("Counsellor").
		Where("application_id = ?", appID).
		First(&app).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	if !applicationVisible(actor, &app) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to view this application"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"application": app})
}

// CreateApplication opens a new application.
func (ctrl *ApplicationController) CreateApplication(c *gin.Context) {
	type createRequest struct {
		StudentID    int    `json:"student_id"`
		UniversityID int    `json:"university_id" binding:"required"`
		IntakeID     int    `json:"intake_id"`
		Intake       string `json:"intake"`
		ProgramName  string `json:"program_name" binding:"required"`
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := ctrl.apps.Create(currentActor(c), services.CreateApplicationInput{
		StudentID:    req.StudentID,
		UniversityID: req.UniversityID,
		IntakeID:     req.IntakeID,
		Intake:       req.Intake,
		ProgramName:  req.ProgramName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Application created successfully",
		"application": app,
	})
}

// ForwardApplication forwards (or re-forwards) an application to its
// university.
func (ctrl *ApplicationController) ForwardApplication(c *gin.Context) {
	appID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	if err := ctrl.apps.Forward(currentActor(c), appID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application forwarded to university"})
}

// DecideApplication records a university decision. Accepts multipart form data
// so accepted/conditional decisions can carry the offer letter PDF.
func (ctrl *ApplicationController) DecideApplication(c *gin.Context) {
	appID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	in := services.DecideInput{
		DecisionType: c.PostForm("decision_type"),
		Notes:        c.PostForm("notes"),
	}

	if file, err := c.FormFile("offer_letter"); err == nil {
		content, filename, err := readUpload(file)
		if err != nil {
			respondError(c, err)
			return
		}
		in.OfferLetter = content
		in.Filename = filename
	}

	if err := ctrl.apps.Decide(currentActor(c), appID, in); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Decision recorded successfully"})
}

// UpdateApplicationStatus is the administrative status override.
func (ctrl *ApplicationController) UpdateApplicationStatus(c *gin.Context) {
	type statusRequest struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}

	appID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.apps.OverrideStatus(currentActor(c), appID, req.Status, req.Notes); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application status updated"})
}

// DeleteApplication removes an application with its documents.
func (ctrl *ApplicationController) DeleteApplication(c *gin.Context) {
	appID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	if err := ctrl.apps.Delete(currentActor(c), appID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application deleted successfully"})
}

// DownloadOfferLetter streams the decrypted offer letter.
func (ctrl *ApplicationController) DownloadOfferLetter(c *gin.Context) {
	appID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	filename, content, err := ctrl.apps.DownloadOfferLetter(currentActor(c), appID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", content)
}

// applicationVisible mirrors the listing scope for single-record reads.
func applicationVisible(actor services.Actor, app *models.Application) bool {
	switch actor.RoleID {
	case models.RoleSuperAdmin, models.RoleAdmin:
		return true
	case models.RoleCounsellor:
		return services.CounsellorOwnsApplication(actor.UserID, app, &app.Student)
	case models.RoleUniversityStaff:
		return services.StaffBoundToUniversity(actor.UserID, &app.University) &&
			services.StaffMaySeeApplication(app)
	case models.RoleStudent:
		return services.StudentOwns(actor.UserID, &app.Student)
	}
	return false
}
