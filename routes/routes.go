package routes

import (
	"admissions-api/controllers"
	"admissions-api/middleware"
	"admissions-api/models"

	"github.com/gin-gonic/gin"
)

// Controllers bundles the handler sets that carry service dependencies.
type Controllers struct {
	Applications *controllers.ApplicationController
	Documents    *controllers.DocumentController
	Students     *controllers.StudentController
	Audit        *controllers.AuditController
}

func SetupRoutes(router *gin.Engine, ctrl Controllers) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)
			public.POST("/register", controllers.Register)
			public.POST("/forgot-password", controllers.ForgotPassword)
			public.POST("/reset-password", controllers.ResetPassword)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Admissions API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Notifications
			protected.GET("/notifications", controllers.GetNotifications)
			protected.PUT("/notifications/:id/read", controllers.MarkNotificationRead)
			protected.PUT("/notifications/read-all", controllers.MarkAllNotificationsRead)

			// Applications
			applications := protected.Group("/applications")
			{
				applications.GET("", ctrl.Applications.GetApplications)
				applications.GET("/:id", ctrl.Applications.GetApplication)
				applications.POST("",
					middleware.RequireRole(models.RoleCounsellor, models.RoleStudent),
					ctrl.Applications.CreateApplication)
				applications.POST("/:id/forward",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleCounsellor),
					ctrl.Applications.ForwardApplication)
				applications.POST("/:id/decision",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleUniversityStaff),
					ctrl.Applications.DecideApplication)
				applications.PUT("/:id/status",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleCounsellor),
					ctrl.Applications.UpdateApplicationStatus)
				applications.DELETE("/:id",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleStudent),
					ctrl.Applications.DeleteApplication)
				applications.GET("/:id/offer-letter", ctrl.Applications.DownloadOfferLetter)

				// Documents scoped to an application
				applications.POST("/:id/documents",
					middleware.RequireRole(models.RoleStudent),
					ctrl.Documents.UploadDocument)
				applications.GET("/:id/documents", ctrl.Documents.ListDocuments)
				applications.GET("/:id/documents/status", ctrl.Documents.GetDocumentStatus)
			}

			// Documents
			documents := protected.Group("/documents")
			{
				documents.POST("/:id/review",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin,
						models.RoleCounsellor, models.RoleUniversityStaff),
					ctrl.Documents.ReviewDocument)
				documents.GET("/:id/download", ctrl.Documents.DownloadDocument)
				documents.DELETE("/:id",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin,
						models.RoleCounsellor, models.RoleStudent),
					ctrl.Documents.DeleteDocument)
			}

			// Students
			students := protected.Group("/students")
			{
				students.GET("/me",
					middleware.RequireRole(models.RoleStudent),
					ctrl.Students.GetMyProfile)
				students.PUT("/me",
					middleware.RequireRole(models.RoleStudent),
					ctrl.Students.UpdateMyProfile)
				students.GET("",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin,
						models.RoleCounsellor, models.RoleLogisticsStaff),
					ctrl.Students.GetStudents)
				students.GET("/:id", ctrl.Students.GetStudent)
				students.PUT("/:id/counsellor",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin),
					ctrl.Students.AssignCounsellor)
				students.PUT("/:id/logistics",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin),
					ctrl.Students.AssignLogistics)
			}

			// Universities
			universities := protected.Group("/universities")
			{
				universities.GET("", controllers.GetUniversities)
				universities.GET("/:id", controllers.GetUniversity)
				universities.POST("",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin),
					controllers.CreateUniversity)
				universities.PUT("/:id",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin),
					controllers.UpdateUniversity)
				universities.POST("/:id/intakes",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleUniversityStaff),
					controllers.CreateIntake)
				universities.DELETE("/:id/intakes/:intakeId",
					middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleUniversityStaff),
					controllers.DeleteIntake)
			}

			// User administration
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin))
			{
				admin.GET("/users", controllers.GetUsers)
				admin.POST("/users", controllers.CreateUser)
				admin.PUT("/users/:id", controllers.UpdateUser)
				admin.PUT("/users/:id/active", controllers.SetUserActive)
				admin.DELETE("/users/:id",
					middleware.RequireRole(models.RoleSuperAdmin),
					controllers.DeleteUser)
			}

			// Audit ledger
			protected.GET("/audit-logs",
				middleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin),
				ctrl.Audit.GetAuditLogs)
		}
	}

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Endpoint not found"})
	})
}
