package services

import (
	"fmt"
	"log"
	"time"

	"admissions-api/config"
	"admissions-api/models"

	"gorm.io/gorm"
)

// notify writes a notification request inside the caller's transaction. The
// external dispatcher owns delivery and the read lifecycle; the workflow only
// guarantees the request row commits together with the state change.
func notify(tx *gorm.DB, userID int, title, message string, triggeredBy int) error {
	n := models.Notification{
		UserID:      userID,
		Title:       title,
		Message:     message,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now(),
	}
	return tx.Create(&n).Error
}

// sendDecisionEmail mails the student after a decision commits. Best-effort:
// failures are logged, never surfaced to the workflow.
func sendDecisionEmail(to, studentName, universityName, decisionType string) {
	if to == "" {
		return
	}
	subject := fmt.Sprintf("Application Update: %s", universityName)
	body := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; line-height: 1.6;">
<h2>Application Status Update</h2>
<p>Dear %s,</p>
<p>Your application to <strong>%s</strong> has been updated.</p>
<p>Current Status: <strong>%s</strong></p>
<p>Please log in to your dashboard for more details.</p>
<p>Best regards,<br>The Admissions Team</p>
</body></html>`, studentName, universityName, decisionType)

	go func() {
		if err := config.SendMail([]string{to}, subject, body); err != nil {
			log.Printf("Failed to send decision email to %s: %v", to, err)
		}
	}()
}

// SendWelcomeEmail greets a freshly created account.
func SendWelcomeEmail(to, fullName, roleName string) {
	if to == "" {
		return
	}
	subject := "Welcome to the Admissions Portal"
	body := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; line-height: 1.6;">
<h2>Welcome!</h2>
<p>Dear %s,</p>
<p>Your account has been created with the role: <strong>%s</strong>.</p>
<p>You can now log in to the admissions portal.</p>
<p>Best regards,<br>The Admissions Team</p>
</body></html>`, fullName, roleName)

	go func() {
		if err := config.SendMail([]string{to}, subject, body); err != nil {
			log.Printf("Failed to send welcome email to %s: %v", to, err)
		}
	}()
}

// SendPasswordResetEmail mails the reset link for a requested token.
func SendPasswordResetEmail(to, fullName, resetURL string) {
	if to == "" {
		return
	}
	subject := "Password Reset Request"
	body := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; line-height: 1.6;">
<h2>Password Reset</h2>
<p>Dear %s,</p>
<p>A password reset was requested for your account. The link below is valid for one hour and can be used once:</p>
<p><a href="%s">%s</a></p>
<p>If you did not request this, you can ignore this email.</p>
<p>Best regards,<br>The Admissions Team</p>
</body></html>`, fullName, resetURL, resetURL)

	go func() {
		if err := config.SendMail([]string{to}, subject, body); err != nil {
			log.Printf("Failed to send password reset email to %s: %v", to, err)
		}
	}()
}
