package services

import (
	"time"

	"admissions-api/models"

	"gorm.io/gorm"
)

// AuditService writes the append-only ledger. Record runs inside the caller's
// transaction: if the ledger write fails the whole operation rolls back, so a
// state change can never outrun its audit entry.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

func recordAudit(tx *gorm.DB, actor Actor, action, targetTable string, targetID int, details string) error {
	entry := models.AuditLog{
		UserID:      actor.UserID,
		Action:      action,
		TargetTable: targetTable,
		TargetID:    targetID,
		Details:     details,
		IPAddress:   actor.IPAddress,
		CreatedAt:   time.Now(),
	}
	if actor.UserAgent != "" {
		ua := actor.UserAgent
		entry.UserAgent = &ua
	}
	return tx.Create(&entry).Error
}

// RecordAudit writes a ledger entry within the caller's transaction. Exposed
// for administrative operations that mutate state outside a workflow service.
func RecordAudit(tx *gorm.DB, actor Actor, action, targetTable string, targetID int, details string) error {
	return recordAudit(tx, actor, action, targetTable, targetID, details)
}

// List returns the most recent entries, newest first. Restricted to
// SuperAdmin and Admin by the matrix, enforced here so every caller path gets
// the same rule.
func (s *AuditService) List(actor Actor, limit int) ([]models.AuditLog, error) {
	if !Allowed(actor.RoleID, ActionAuditList) {
		return nil, ErrForbidden("insufficient permissions to read the audit log")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	var logs []models.AuditLog
	if err := s.db.Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, Internal("failed to load audit log", err)
	}
	return logs, nil
}
