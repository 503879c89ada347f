package services

import (
	"fmt"
	"strings"
	"time"

	"admissions-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentService owns the upload history, the two-stage review and the
// encrypted payloads. Uploads are append-only: a replacement upload shadows the
// previous one in the status index, the history keeps every row.
type DocumentService struct {
	db    *gorm.DB
	vault *Vault
}

func NewDocumentService(db *gorm.DB, vault *Vault) *DocumentService {
	return &DocumentService{db: db, vault: vault}
}

type UploadDocumentInput struct {
	ApplicationID int
	DocType       string
	Filename      string
	Content       []byte
}

type ReviewDocumentInput struct {
	DocumentID int
	Outcome    string // approved / rejected
	Notes      string
}

// Upload encrypts and stores a document for the student's own application. The
// new upload enters both stages pending and immediately becomes the row that
// counts for gating.
func (s *DocumentService) Upload(actor Actor, in UploadDocumentInput) (*models.Document, error) {
	if !Allowed(actor.RoleID, ActionDocumentUpload) {
		return nil, ErrForbidden("only students can upload documents")
	}
	if strings.TrimSpace(in.DocType) == "" {
		return nil, ErrValidation("document type is required")
	}
	if len(in.Content) == 0 {
		return nil, ErrValidation("document file is empty")
	}

	var created models.Document
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("application_id = ?", in.ApplicationID).
			First(&app).Error; err != nil {
			return wrapLookup(err, "application not found")
		}
		var student models.Student
		if err := tx.Where("student_id = ?", app.StudentID).First(&student).Error; err != nil {
			return wrapLookup(err, "student not found")
		}
		if !StudentOwns(actor.UserID, &student) {
			return ErrForbidden("you can only upload documents to your own applications")
		}

		blob, iv, err := s.vault.Encrypt(in.Content)
		if err != nil {
			return ErrCrypto("document encryption", err)
		}

		created = models.Document{
			ApplicationID: in.ApplicationID,
			StudentID:     student.StudentID,
			UploadedBy:    actor.UserID,
			DocType:       in.DocType,
			Filename:      in.Filename,
			EncryptedBlob: blob,
			IV:            iv,
			KeyVersion:    KeyVersion,
			Stage1Outcome: models.ReviewPending,
			Stage2Outcome: models.ReviewPending,
			UploadedAt:    time.Now(),
		}
		if err := tx.Create(&created).Error; err != nil {
			return Internal("failed to store document", err)
		}

		if err := s.rebuildIndex(tx, in.ApplicationID); err != nil {
			return err
		}

		if student.AssignedCounsellorID != nil {
			studentUser, err := fetchUser(tx, student.UserID)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Student %s uploaded a new %s document for application %d.",
				studentUser.FullName, in.DocType, in.ApplicationID)
			if err := notify(tx, *student.AssignedCounsellorID, "New Document Uploaded", msg, actor.UserID); err != nil {
				return Internal("failed to record notification", err)
			}
		}

		detail := fmt.Sprintf("Document ID: %d, Application ID: %d, Type: %s, Filename: %s",
			created.DocumentID, in.ApplicationID, in.DocType, in.Filename)
		return recordAudit(tx, actor, "Upload Document", "documents", created.DocumentID, detail)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Review records a verification outcome. The stage is inferred from the
// reviewer's role: counsellors (and admins) write stage one, university staff
// write stage two. Stage two is only reachable once stage one approved the
// document and the application has been forwarded.
func (s *DocumentService) Review(actor Actor, in ReviewDocumentInput) error {
	if !Allowed(actor.RoleID, ActionDocumentReview) {
		return ErrForbidden("insufficient permissions to review documents")
	}
	if in.Outcome != models.ReviewApproved && in.Outcome != models.ReviewRejected {
		return ErrValidation("invalid review outcome %q", in.Outcome)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("document_id = ?", in.DocumentID).
			First(&doc).Error; err != nil {
			return wrapLookup(err, "document not found")
		}
		var app models.Application
		if err := tx.Where("application_id = ?", doc.ApplicationID).First(&app).Error; err != nil {
			return wrapLookup(err, "application not found")
		}
		var student models.Student
		if err := tx.Where("student_id = ?", doc.StudentID).First(&student).Error; err != nil {
			return wrapLookup(err, "student not found")
		}

		stage := 1
		if actor.RoleID == models.RoleUniversityStaff {
			stage = 2
			var uni models.University
			if err := tx.Where("university_id = ?", app.UniversityID).First(&uni).Error; err != nil {
				return wrapLookup(err, "university not found")
			}
			if !StaffBoundToUniversity(actor.UserID, &uni) {
				return ErrForbidden("document belongs to another university's application")
			}
			if !StaffMaySeeApplication(&app) {
				return ErrForbidden("application has not been forwarded to the university")
			}
			if doc.Stage1Outcome != models.ReviewApproved {
				return ErrPrecondition("document must pass counsellor verification before university review")
			}
		} else if actor.RoleID == models.RoleCounsellor {
			if !CounsellorAssignedToStudent(actor.UserID, &student) {
				return ErrForbidden("document belongs to a student not assigned to you")
			}
		}

		now := time.Now()
		updates := map[string]interface{}{}
		if stage == 1 {
			updates["stage1_outcome"] = in.Outcome
			updates["stage1_reviewer_id"] = actor.UserID
			updates["stage1_notes"] = in.Notes
			updates["stage1_reviewed_at"] = now
			// A stage-one rejection or re-approval resets the university's view.
			if doc.Stage2Outcome != models.ReviewPending {
				updates["stage2_outcome"] = models.ReviewPending
				updates["stage2_reviewer_id"] = nil
				updates["stage2_notes"] = nil
				updates["stage2_reviewed_at"] = nil
			}
		} else {
			updates["stage2_outcome"] = in.Outcome
			updates["stage2_reviewer_id"] = actor.UserID
			updates["stage2_notes"] = in.Notes
			updates["stage2_reviewed_at"] = now
		}
		if err := tx.Model(&models.Document{}).
			Where("document_id = ?", in.DocumentID).
			Updates(updates).Error; err != nil {
			return Internal("failed to record review", err)
		}

		if err := s.rebuildIndex(tx, doc.ApplicationID); err != nil {
			return err
		}

		title := "Document Approved"
		if in.Outcome == models.ReviewRejected {
			title = "Document Rejected"
		}
		msg := fmt.Sprintf("Your %s document for application %d was %s.", doc.DocType, doc.ApplicationID, in.Outcome)
		if in.Notes != "" {
			msg += " Notes: " + in.Notes
		}
		if err := notify(tx, student.UserID, title, msg, actor.UserID); err != nil {
			return Internal("failed to record notification", err)
		}

		detail := fmt.Sprintf("Document ID: %d, Application ID: %d, Type: %s, Stage: %d, Outcome: %s",
			in.DocumentID, doc.ApplicationID, doc.DocType, stage, in.Outcome)
		return recordAudit(tx, actor, "Review Document", "documents", in.DocumentID, detail)
	})
}

// Download decrypts a document for an authorized viewer and ledgers the
// access. University staff only reach documents of applications forwarded to
// their university.
func (s *DocumentService) Download(actor Actor, documentID int) (string, []byte, error) {
	if !Allowed(actor.RoleID, ActionDocumentDownload) {
		return "", nil, ErrForbidden("insufficient permissions to download documents")
	}

	var filename string
	var content []byte
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Where("document_id = ?", documentID).First(&doc).Error; err != nil {
			return wrapLookup(err, "document not found")
		}
		var student models.Student
		if err := tx.Where("student_id = ?", doc.StudentID).First(&student).Error; err != nil {
			return wrapLookup(err, "student not found")
		}

		switch actor.RoleID {
		case models.RoleStudent:
			if !StudentOwns(actor.UserID, &student) {
				return ErrForbidden("you do not have permission to download this document")
			}
		case models.RoleCounsellor:
			if !CounsellorAssignedToStudent(actor.UserID, &student) {
				return ErrForbidden("you do not have permission to download this document")
			}
		case models.RoleUniversityStaff:
			var app models.Application
			if err := tx.Where("application_id = ?", doc.ApplicationID).First(&app).Error; err != nil {
				return wrapLookup(err, "application not found")
			}
			var uni models.University
			if err := tx.Where("university_id = ?", app.UniversityID).First(&uni).Error; err != nil {
				return wrapLookup(err, "university not found")
			}
			if !StaffBoundToUniversity(actor.UserID, &uni) || !StaffMaySeeApplication(&app) {
				return ErrForbidden("you do not have permission to download this document")
			}
		}

		plain, err := s.vault.Decrypt(doc.EncryptedBlob, doc.IV)
		if err != nil {
			return ErrCrypto("document decryption", err)
		}
		content = plain
		filename = doc.Filename

		detail := fmt.Sprintf("Document ID: %d, Application ID: %d, Type: %s, Filename: %s",
			documentID, doc.ApplicationID, doc.DocType, doc.Filename)
		return recordAudit(tx, actor, "Download Document", "documents", documentID, detail)
	})
	if err != nil {
		return "", nil, err
	}
	return filename, content, nil
}

// Delete removes an upload from the history and rebuilds the index, so an
// older upload of the same type (if any) becomes current again. Ledgered
// before the row goes.
func (s *DocumentService) Delete(actor Actor, documentID int) error {
	if !Allowed(actor.RoleID, ActionDocumentDelete) {
		return ErrForbidden("insufficient permissions to delete documents")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("document_id = ?", documentID).
			First(&doc).Error; err != nil {
			return wrapLookup(err, "document not found")
		}
		var student models.Student
		if err := tx.Where("student_id = ?", doc.StudentID).First(&student).Error; err != nil {
			return wrapLookup(err, "student not found")
		}

		switch actor.RoleID {
		case models.RoleStudent:
			if !StudentOwns(actor.UserID, &student) {
				return ErrForbidden("you can only delete your own documents")
			}
		case models.RoleCounsellor:
			if !CounsellorAssignedToStudent(actor.UserID, &student) {
				return ErrForbidden("document belongs to a student not assigned to you")
			}
		}

		detail := fmt.Sprintf("DELETED Document - ID: %d, Application ID: %d, Type: %s, Filename: %s",
			documentID, doc.ApplicationID, doc.DocType, doc.Filename)
		if err := recordAudit(tx, actor, "Delete Document", "documents", documentID, detail); err != nil {
			return err
		}

		if err := tx.Where("document_id = ?", documentID).Delete(&models.Document{}).Error; err != nil {
			return Internal("failed to delete document", err)
		}
		return s.rebuildIndex(tx, doc.ApplicationID)
	})
}

// ListForApplication returns the upload history an actor may see,
// newest first.
func (s *DocumentService) ListForApplication(actor Actor, appID int) ([]models.Document, error) {
	if !Allowed(actor.RoleID, ActionDocumentDownload) {
		return nil, ErrForbidden("insufficient permissions to list documents")
	}

	var docs []models.Document
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Where("application_id = ?", appID).First(&app).Error; err != nil {
			return wrapLookup(err, "application not found")
		}
		var student models.Student
		if err := tx.Where("student_id = ?", app.StudentID).First(&student).Error; err != nil {
			return wrapLookup(err, "student not found")
		}

		switch actor.RoleID {
		case models.RoleStudent:
			if !StudentOwns(actor.UserID, &student) {
				return ErrForbidden("you do not have permission to view these documents")
			}
		case models.RoleCounsellor:
			if !CounsellorAssignedToStudent(actor.UserID, &student) &&
				!CounsellorOwnsApplication(actor.UserID, &app, &student) {
				return ErrForbidden("you do not have permission to view these documents")
			}
		case models.RoleUniversityStaff:
			var uni models.University
			if err := tx.Where("university_id = ?", app.UniversityID).First(&uni).Error; err != nil {
				return wrapLookup(err, "university not found")
			}
			if !StaffBoundToUniversity(actor.UserID, &uni) || !StaffMaySeeApplication(&app) {
				return ErrForbidden("you do not have permission to view these documents")
			}
		}

		if err := tx.Where("application_id = ?", appID).
			Order("uploaded_at DESC, document_id DESC").
			Find(&docs).Error; err != nil {
			return Internal("failed to list documents", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// StatusIndex returns the current gating view of an application: one row per
// document type, reflecting the newest upload of each.
func (s *DocumentService) StatusIndex(actor Actor, appID int) ([]models.DocumentStatus, error) {
	if !Allowed(actor.RoleID, ActionDocumentDownload) {
		return nil, ErrForbidden("insufficient permissions to view document status")
	}
	var statuses []models.DocumentStatus
	if err := s.db.Where("application_id = ?", appID).
		Order("doc_type").
		Find(&statuses).Error; err != nil {
		return nil, Internal("failed to load document status index", err)
	}
	return statuses, nil
}

// rebuildIndex recomputes the per-type status rows from the surviving history
// and swaps them in atomically within the caller's transaction.
func (s *DocumentService) rebuildIndex(tx *gorm.DB, appID int) error {
	var docs []models.Document
	if err := tx.Where("application_id = ?", appID).Find(&docs).Error; err != nil {
		return Internal("failed to load documents for index rebuild", err)
	}
	if err := tx.Where("application_id = ?", appID).Delete(&models.DocumentStatus{}).Error; err != nil {
		return Internal("failed to clear document index", err)
	}
	statuses := RebuildStatusIndex(appID, docs)
	if len(statuses) == 0 {
		return nil
	}
	if err := tx.Create(&statuses).Error; err != nil {
		return Internal("failed to write document index", err)
	}
	return nil
}
