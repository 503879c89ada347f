// Command seed-admin bootstraps the first SuperAdmin account.
//
//	go run ./cmd/seed-admin -email admin@example.com -name "Portal Admin"
//
// The password is read from SEED_ADMIN_PASSWORD.
package main

import (
	"flag"
	"log"
	"os"

	"admissions-api/config"
	"admissions-api/models"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	email := flag.String("email", "", "email for the SuperAdmin account")
	name := flag.String("name", "Super Admin", "full name for the SuperAdmin account")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if len(password) < 8 {
		log.Fatal("SEED_ADMIN_PASSWORD must be set (min 8 characters)")
	}

	config.InitDB()
	if err := config.Migrate(config.DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var count int64
	if err := config.DB.Model(&models.User{}).Where("email = ?", *email).Count(&count).Error; err != nil {
		log.Fatalf("Failed to check existing users: %v", err)
	}
	if count > 0 {
		log.Fatalf("An account with email %s already exists", *email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := models.User{
		FullName: *name,
		Email:    *email,
		Password: string(hashed),
		RoleID:   models.RoleSuperAdmin,
		IsActive: true,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		log.Fatalf("Failed to create SuperAdmin: %v", err)
	}

	log.Printf("SuperAdmin created: user_id=%d email=%s", user.UserID, user.Email)
}
