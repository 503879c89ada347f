package main

import (
	"log"
	"os"

	"admissions-api/config"
	"admissions-api/controllers"
	"admissions-api/middleware"
	"admissions-api/routes"
	"admissions-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize logging (stdout + file)
	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database and schema
	config.InitDB()
	if err := config.Migrate(config.DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize the document vault
	vault, err := services.NewVaultFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize vault: %v", err)
	}

	// Wire services and controllers
	apps := services.NewApplicationService(config.DB, vault)
	docs := services.NewDocumentService(config.DB, vault)
	audit := services.NewAuditService(config.DB)

	ctrl := routes.Controllers{
		Applications: controllers.NewApplicationController(apps),
		Documents:    controllers.NewDocumentController(docs),
		Students:     controllers.NewStudentController(apps),
		Audit:        controllers.NewAuditController(audit),
	}

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.LoggerWithWriter(config.LogWriter))

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Setup routes
	routes.SetupRoutes(router, ctrl)

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
