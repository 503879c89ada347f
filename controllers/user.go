package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"admissions-api/config"
	"admissions-api/models"
	"admissions-api/services"
	"admissions-api/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// GetUsers lists accounts, optionally filtered by role (?role_id=).
func GetUsers(c *gin.Context) {
	query := config.DB.Preload("Role").Order("user_id")

	if roleParam := c.Query("role_id"); roleParam != "" {
		roleID, err := strconv.Atoi(roleParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role_id"})
			return
		}
		query = query.Where("role_id = ?", roleID)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": len(users),
	})
}

// CreateUser provisions a staff or student account with an explicit role. A
// student account also gets an empty profile row. Audited.
func CreateUser(c *gin.Context) {
	type createUserRequest struct {
		FullName string `json:"full_name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		RoleID   int    `json:"role_id" binding:"required"`
		Phone    string `json:"phone"`
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = utils.SanitizeInput(req.Email)
	if !utils.ValidateEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}
	if ok, msg := utils.ValidatePassword(req.Password); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var role models.Role
	if err := config.DB.Where("role_id = ?", req.RoleID).First(&role).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	actor := currentActor(c)
	user := models.User{
		FullName: req.FullName,
		Email:    req.Email,
		Password: string(hashed),
		RoleID:   req.RoleID,
		IsActive: true,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return services.ErrConflict("an account with this email already exists")
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if req.RoleID == models.RoleStudent {
			if err := tx.Create(&models.Student{
				UserID:            user.UserID,
				ApplicationStatus: models.StudentStatusIncompleteProfile,
			}).Error; err != nil {
				return err
			}
		}
		detail := fmt.Sprintf("User ID: %d, Email: %s, Role: %s", user.UserID, user.Email, role.RoleName)
		return services.RecordAudit(tx, actor, "Create User", "users", user.UserID, detail)
	})
	if err != nil {
		if svcErr, ok := err.(*services.Error); ok {
			respondError(c, svcErr)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	services.SendWelcomeEmail(user.Email, user.FullName, role.RoleName)

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
	})
}

// UpdateUser changes the mutable account fields. Audited.
func UpdateUser(c *gin.Context) {
	type updateUserRequest struct {
		FullName *string `json:"full_name"`
		Phone    *string `json:"phone"`
		RoleID   *int    `json:"role_id"`
	}

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.RoleID != nil {
		var role models.Role
		if err := config.DB.Where("role_id = ?", *req.RoleID).First(&role).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
			return
		}
		updates["role_id"] = *req.RoleID
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	updates["updated_at"] = time.Now()

	actor := currentActor(c)
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("user_id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
			return err
		}
		detail := fmt.Sprintf("User ID: %d, Email: %s", userID, user.Email)
		if req.RoleID != nil && *req.RoleID != user.RoleID {
			detail += fmt.Sprintf(", Role: %d -> %d", user.RoleID, *req.RoleID)
		}
		return services.RecordAudit(tx, actor, "Update User", "users", userID, detail)
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

// SetUserActive activates or deactivates an account. Deactivated accounts
// fail authentication on their next request. Audited.
func SetUserActive(c *gin.Context) {
	type activeRequest struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := currentActor(c)
	if actor.UserID == userID && !*req.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot deactivate your own account"})
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("user_id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).
			Where("user_id = ?", userID).
			Update("is_active", *req.IsActive).Error; err != nil {
			return err
		}
		action := "Deactivate User"
		if *req.IsActive {
			action = "Activate User"
		}
		detail := fmt.Sprintf("User ID: %d, Email: %s", userID, user.Email)
		return services.RecordAudit(tx, actor, action, "users", userID, detail)
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

// DeleteUser removes an account. SuperAdmin only; the ledger entry is written
// before the row goes.
func DeleteUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	actor := currentActor(c)
	if actor.UserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account"})
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("user_id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		if user.RoleID == models.RoleStudent {
			var student models.Student
			if err := tx.Where("user_id = ?", userID).First(&student).Error; err == nil {
				var appCount int64
				if err := tx.Model(&models.Application{}).
					Where("student_id = ?", student.StudentID).
					Count(&appCount).Error; err != nil {
					return err
				}
				if appCount > 0 {
					return services.ErrConflict("student still has applications, delete those first")
				}
				if err := tx.Where("student_id = ?", student.StudentID).Delete(&models.Student{}).Error; err != nil {
					return err
				}
			}
		}
		detail := fmt.Sprintf("DELETED User - ID: %d, Email: %s, Role ID: %d", userID, user.Email, user.RoleID)
		if err := services.RecordAudit(tx, actor, "Delete User", "users", userID, detail); err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.User{}).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		var svcErr *services.Error
		if errors.As(err, &svcErr) {
			respondError(c, svcErr)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
