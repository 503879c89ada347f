package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"admissions-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplicationService owns the application lifecycle. Every operation runs as
// one transaction: authorization, gating, the state write, the ledger entry
// and the notification rows commit or roll back together. Emails go out only
// after the commit.
type ApplicationService struct {
	db    *gorm.DB
	vault *Vault
}

func NewApplicationService(db *gorm.DB, vault *Vault) *ApplicationService {
	return &ApplicationService{db: db, vault: vault}
}

type CreateApplicationInput struct {
	StudentID    int    // counsellor-created applications name the student
	UniversityID int
	IntakeID     int    // preferred: resolve the label from the intakes table
	Intake       string // legacy free-form label
	ProgramName  string
}

type DecideInput struct {
	DecisionType string
	Notes        string
	OfferLetter  []byte
	Filename     string
}

// Create opens a new application in "In Review" for the student (acting for
// themself) or for a counsellor's student.
func (s *ApplicationService) Create(actor Actor, in CreateApplicationInput) (*models.Application, error) {
	if !Allowed(actor.RoleID, ActionApplicationCreate) {
		return nil, ErrForbidden("insufficient permissions to create an application")
	}
	if strings.TrimSpace(in.ProgramName) == "" {
		return nil, ErrValidation("program name is required")
	}

	var created models.Application
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var student models.Student
		var counsellorID *int

		if actor.RoleID == models.RoleStudent {
			if err := tx.Where("user_id = ?", actor.UserID).First(&student).Error; err != nil {
				return wrapLookup(err, "student profile not found")
			}
			counsellorID = student.AssignedCounsellorID
		} else {
			if err := tx.Where("student_id = ?", in.StudentID).First(&student).Error; err != nil {
				return wrapLookup(err, "student not found")
			}
			id := actor.UserID
			counsellorID = &id
		}

		var university models.University
		if err := tx.Where("university_id = ?", in.UniversityID).First(&university).Error; err != nil {
			return wrapLookup(err, "university not found")
		}

		intake := strings.TrimSpace(in.Intake)
		if in.IntakeID != 0 {
			var row models.Intake
			if err := tx.Where("intake_id = ? AND university_id = ?", in.IntakeID, in.UniversityID).
				First(&row).Error; err != nil {
				return wrapLookup(err, "intake not found")
			}
			intake = row.IntakeName
		}
		if intake == "" {
			return ErrValidation("intake is required")
		}

		now := time.Now()
		created = models.Application{
			StudentID:    student.StudentID,
			UniversityID: in.UniversityID,
			CounsellorID: counsellorID,
			ProgramName:  in.ProgramName,
			Intake:       intake,
			Status:       models.StatusInReview,
			SubmittedAt:  &now,
			CreatedAt:    now,
		}
		if err := tx.Create(&created).Error; err != nil {
			return Internal("failed to create application", err)
		}

		detail := fmt.Sprintf("Application ID: %d, Student ID: %d, University: %s, Program: %s",
			created.ApplicationID, student.StudentID, university.Name, in.ProgramName)
		return recordAudit(tx, actor, "Create Application", "applications", created.ApplicationID, detail)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Forward moves an application to the university queue. Precondition: every
// required document type uploaded and every current document approved by the
// counsellor. Re-forwarding from a conditional offer or missing-documents
// review clears the prior decision.
func (s *ApplicationService) Forward(actor Actor, appID int) error {
	if !Allowed(actor.RoleID, ActionApplicationForward) {
		return ErrForbidden("insufficient permissions to forward an application")
	}

	var studentUserID int
	var portalUserID *int
	var universityName, studentName string
	reforward := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, student, err := s.loadForUpdate(tx, appID)
		if err != nil {
			return err
		}

		if actor.RoleID == models.RoleCounsellor && !CounsellorOwnsApplication(actor.UserID, app, student) {
			return ErrForbidden("application belongs to a student not assigned to you")
		}

		if app.HasFinalDecision() {
			return ErrPrecondition("application already has a final decision")
		}
		if app.Status == models.StatusForwarded {
			return ErrConflict("application is already forwarded to the university")
		}

		statuses, err := loadStatusIndex(tx, appID)
		if err != nil {
			return err
		}
		if missing := MissingRequired(statuses); len(missing) > 0 {
			return ErrPrecondition("cannot forward application, required documents missing", missing...)
		}
		if unverified := NotStage1Approved(statuses); len(unverified) > 0 {
			return ErrPrecondition("cannot forward application, documents pending counsellor verification", unverified...)
		}

		reforward = app.Status == models.StatusDecisionConditional || app.Status == models.StatusMissingDocsInReview

		actorUser, err := fetchUser(tx, actor.UserID)
		if err != nil {
			return err
		}

		now := time.Now()
		action := "Forwarded"
		if reforward {
			action = "Re-forwarded"
		}
		note := fmt.Sprintf(" [%s to University by %s on %s]",
			action, actorUser.FullName, now.Format("2006-01-02 15:04:05"))

		updates := map[string]interface{}{
			"status":           models.StatusForwarded,
			"counsellor_notes": appendNote(app.CounsellorNotes, note),
			"updated_at":       now,
		}
		if reforward {
			updates["decision_type"] = nil
			updates["decision_notes"] = nil
			updates["decision_date"] = nil
		}
		if err := tx.Model(&models.Application{}).
			Where("application_id = ?", appID).
			Updates(updates).Error; err != nil {
			return Internal("failed to forward application", err)
		}

		var university models.University
		if err := tx.Where("university_id = ?", app.UniversityID).First(&university).Error; err != nil {
			return wrapLookup(err, "university not found")
		}
		studentUser, err := fetchUser(tx, student.UserID)
		if err != nil {
			return err
		}
		studentUserID = student.UserID
		portalUserID = university.PortalUserID
		universityName = university.Name
		studentName = studentUser.FullName

		msg := fmt.Sprintf("Your application to %s has been %s to the university for review.",
			universityName, strings.ToLower(action))
		if err := notify(tx, studentUserID, "Application "+action, msg, actor.UserID); err != nil {
			return Internal("failed to record notification", err)
		}
		if portalUserID != nil {
			staffMsg := fmt.Sprintf("Application from %s for %s requires your review.", studentName, app.ProgramName)
			if reforward {
				staffMsg += " New documents have been added since the previous decision."
			}
			if err := notify(tx, *portalUserID, "Application "+action+" for Review", staffMsg, actor.UserID); err != nil {
				return Internal("failed to record notification", err)
			}
		}

		detail := fmt.Sprintf("Application ID: %d, Student: %s, University: %s, %s by: %s",
			appID, studentName, universityName, action, actorUser.FullName)
		return recordAudit(tx, actor, "Forward Application to University", "applications", appID, detail)
	})
	return err
}

// Decide records a university decision. Accepted and Conditional require a PDF
// offer letter, which is encrypted and stored with the application. University
// staff may only decide forwarded applications of their own university and
// only after reviewing every document; SuperAdmin and Admin bypass the state
// and binding checks.
func (s *ApplicationService) Decide(actor Actor, appID int, in DecideInput) error {
	if !Allowed(actor.RoleID, ActionApplicationDecide) {
		return ErrForbidden("insufficient permissions to decide an application")
	}

	switch in.DecisionType {
	case models.DecisionAccepted, models.DecisionRejected, models.DecisionConditional, models.DecisionMissingDocs:
	default:
		return ErrValidation("invalid decision type %q", in.DecisionType)
	}

	needsOffer := in.DecisionType == models.DecisionAccepted || in.DecisionType == models.DecisionConditional
	if needsOffer {
		if len(in.OfferLetter) == 0 {
			return ErrValidation("an offer letter PDF is required for %s decisions", strings.ToLower(in.DecisionType))
		}
		if in.Filename != "" && !strings.HasSuffix(strings.ToLower(in.Filename), ".pdf") {
			return ErrValidation("offer letter must be a PDF file")
		}
	}

	var studentEmail, studentName, universityName string
	var studentUserID int
	var counsellorID *int

	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, student, err := s.loadForUpdate(tx, appID)
		if err != nil {
			return err
		}

		var university models.University
		if err := tx.Where("university_id = ?", app.UniversityID).First(&university).Error; err != nil {
			return wrapLookup(err, "university not found")
		}

		if actor.RoleID == models.RoleUniversityStaff {
			if !StaffBoundToUniversity(actor.UserID, &university) {
				return ErrForbidden("application is not for your university")
			}
			if app.Status != models.StatusForwarded {
				return ErrPrecondition("decisions are only possible on applications forwarded to the university")
			}

			statuses, err := loadStatusIndex(tx, appID)
			if err != nil {
				return err
			}
			if missing := MissingRequired(statuses); len(missing) > 0 {
				return ErrPrecondition("cannot make a decision, required documents missing", missing...)
			}
			if needsOffer {
				if unverified := NotStage2Approved(statuses); len(unverified) > 0 {
					return ErrPrecondition("all documents must be verified by university staff before accepting", unverified...)
				}
			} else {
				if pending := Stage2Pending(statuses); len(pending) > 0 {
					return ErrPrecondition("all documents must be reviewed before making a decision", pending...)
				}
			}
		}

		newStatus := "Decision: " + in.DecisionType
		if in.DecisionType == models.DecisionMissingDocs {
			newStatus = models.StatusMissingDocsInReview
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":         newStatus,
			"decision_type":  in.DecisionType,
			"decision_notes": in.Notes,
			"decision_date":  now,
			"updated_at":     now,
		}
		if len(in.OfferLetter) > 0 {
			blob, iv, err := s.vault.Encrypt(in.OfferLetter)
			if err != nil {
				return ErrCrypto("offer letter encryption", err)
			}
			filename := in.Filename
			if filename == "" {
				filename = "offer_letter_" + uuid.New().String() + ".pdf"
			}
			updates["offer_letter_blob"] = blob
			updates["offer_letter_iv"] = iv
			updates["offer_letter_filename"] = filename
		}
		if err := tx.Model(&models.Application{}).
			Where("application_id = ?", appID).
			Updates(updates).Error; err != nil {
			return Internal("failed to record decision", err)
		}

		studentUser, err := fetchUser(tx, student.UserID)
		if err != nil {
			return err
		}
		studentUserID = student.UserID
		studentEmail = studentUser.Email
		studentName = studentUser.FullName
		universityName = university.Name
		counsellorID = student.AssignedCounsellorID

		msg := fmt.Sprintf("Your application to %s has been %s.", universityName, strings.ToLower(in.DecisionType))
		if in.Notes != "" {
			msg += "\n\nNotes from university: " + in.Notes
		}
		if err := notify(tx, studentUserID, "Application "+in.DecisionType, msg, actor.UserID); err != nil {
			return Internal("failed to record notification", err)
		}
		if counsellorID != nil {
			cMsg := fmt.Sprintf("Application decision for student %s to %s: %s.", studentName, universityName, in.DecisionType)
			if in.Notes != "" {
				cMsg += "\n\nUniversity notes: " + in.Notes
			}
			if err := notify(tx, *counsellorID, "Application Decision - "+in.DecisionType, cMsg, actor.UserID); err != nil {
				return Internal("failed to record notification", err)
			}
		}

		detail := fmt.Sprintf("Application ID: %d, Decision: %s, Student: %s, University: %s",
			appID, in.DecisionType, studentName, universityName)
		return recordAudit(tx, actor, "Decision: "+in.DecisionType, "applications", appID, detail)
	})
	if err != nil {
		return err
	}

	sendDecisionEmail(studentEmail, studentName, universityName, in.DecisionType)
	return nil
}

// OverrideStatus is the administrative escape hatch: it writes an arbitrary
// status label outside the enumerated transitions. Always ledgered under a
// distinct action so overrides are distinguishable from real transitions.
func (s *ApplicationService) OverrideStatus(actor Actor, appID int, status, notes string) error {
	if !Allowed(actor.RoleID, ActionApplicationOverride) {
		return ErrForbidden("insufficient permissions to update application status")
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return ErrValidation("status is required")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		app, student, err := s.loadForUpdate(tx, appID)
		if err != nil {
			return err
		}
		if actor.RoleID == models.RoleCounsellor && !CounsellorOwnsApplication(actor.UserID, app, student) {
			return ErrForbidden("application belongs to a student not assigned to you")
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     status,
			"updated_at": now,
		}
		if notes != "" {
			updates["counsellor_notes"] = appendNote(app.CounsellorNotes, " ["+notes+"]")
		}
		if err := tx.Model(&models.Application{}).
			Where("application_id = ?", appID).
			Updates(updates).Error; err != nil {
			return Internal("failed to update application status", err)
		}

		msg := fmt.Sprintf("Your application status changed to: %s.", status)
		if notes != "" {
			msg += " Notes: " + notes
		}
		if err := notify(tx, student.UserID, "Application Status Updated", msg, actor.UserID); err != nil {
			return Internal("failed to record notification", err)
		}

		detail := fmt.Sprintf("Application ID: %d, Previous Status: %s, New Status: %s", appID, app.Status, status)
		return recordAudit(tx, actor, "Override Application Status", "applications", appID, detail)
	})
}

// Delete removes an application and cascades to its documents and status
// index. Students may only delete their own application while still in review;
// the ledger entry is written in the same transaction, before the rows go.
func (s *ApplicationService) Delete(actor Actor, appID int) error {
	if !Allowed(actor.RoleID, ActionApplicationDelete) {
		return ErrForbidden("insufficient permissions to delete an application")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		app, student, err := s.loadForUpdate(tx, appID)
		if err != nil {
			return err
		}

		if actor.RoleID == models.RoleStudent {
			if !StudentOwns(actor.UserID, student) {
				return ErrForbidden("you can only delete your own applications")
			}
			if app.Status != models.StatusInReview {
				return ErrForbidden("applications can only be deleted while in review")
			}
		}

		detail := fmt.Sprintf("DELETED Application - ID: %d, Program: %s, Status: %s",
			appID, app.ProgramName, app.Status)
		if err := recordAudit(tx, actor, "Delete Application", "applications", appID, detail); err != nil {
			return err
		}

		if err := tx.Where("application_id = ?", appID).Delete(&models.DocumentStatus{}).Error; err != nil {
			return Internal("failed to delete document index", err)
		}
		if err := tx.Where("application_id = ?", appID).Delete(&models.Document{}).Error; err != nil {
			return Internal("failed to delete documents", err)
		}
		if err := tx.Where("application_id = ?", appID).Delete(&models.Application{}).Error; err != nil {
			return Internal("failed to delete application", err)
		}
		return nil
	})
}

// AssignCounsellor sets or clears (counsellorID nil) the student's counsellor.
// One ledger entry records the change including the previous assignee; the
// student, the new assignee and any previous assignee each get exactly one
// notification.
func (s *ApplicationService) AssignCounsellor(actor Actor, studentID int, counsellorID *int) error {
	return s.assign(actor, studentID, counsellorID, assigneeCounsellor)
}

// AssignLogistics sets or clears the student's logistics staff.
func (s *ApplicationService) AssignLogistics(actor Actor, studentID int, logisticsID *int) error {
	return s.assign(actor, studentID, logisticsID, assigneeLogistics)
}

type assigneeKind struct {
	label      string // "Counsellor" / "Logistics Staff"
	column     string
	roleID     int
	studentMsg string
}

var (
	assigneeCounsellor = assigneeKind{
		label:      "Counsellor",
		column:     "assigned_counsellor_id",
		roleID:     models.RoleCounsellor,
		studentMsg: "Counsellor %s has been assigned to your application.",
	}
	assigneeLogistics = assigneeKind{
		label:      "Logistics Staff",
		column:     "assigned_logistics_id",
		roleID:     models.RoleLogisticsStaff,
		studentMsg: "Logistics staff %s has been assigned to assist with your arrival.",
	}
)

func (s *ApplicationService) assign(actor Actor, studentID int, assigneeID *int, kind assigneeKind) error {
	if !Allowed(actor.RoleID, ActionStudentAssign) {
		return ErrForbidden("insufficient permissions to manage assignments")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var student models.Student
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ?", studentID).
			First(&student).Error; err != nil {
			return wrapLookup(err, "student not found")
		}
		studentUser, err := fetchUser(tx, student.UserID)
		if err != nil {
			return err
		}

		prevID := student.AssignedCounsellorID
		if kind.column == assigneeLogistics.column {
			prevID = student.AssignedLogisticsID
		}

		var assignee *models.User
		if assigneeID != nil {
			u, err := fetchUser(tx, *assigneeID)
			if err != nil {
				return err
			}
			if u.RoleID != kind.roleID {
				return ErrValidation("user %d does not have the %s role", *assigneeID, kind.label)
			}
			assignee = u
		}

		now := time.Now()
		updates := map[string]interface{}{
			kind.column:  assigneeID,
			"updated_at": now,
		}
		updates["application_status"] = studentHint(&student, kind, assigneeID != nil)
		if err := tx.Model(&models.Student{}).
			Where("student_id = ?", studentID).
			Updates(updates).Error; err != nil {
			return Internal("failed to update assignment", err)
		}

		// Notifications: student once, new assignee once, displaced assignee once.
		action := "Unassign " + kind.label
		detail := fmt.Sprintf("Student ID: %d, Student: %s", studentID, studentUser.FullName)
		if prevID != nil {
			prev, err := fetchUser(tx, *prevID)
			if err != nil {
				return err
			}
			detail += fmt.Sprintf(", Previous %s ID: %d, Previous %s Name: %s", kind.label, *prevID, kind.label, prev.FullName)
			if assignee == nil || prev.UserID != assignee.UserID {
				msg := fmt.Sprintf("You are no longer assigned to student %s.", studentUser.FullName)
				if err := notify(tx, prev.UserID, "Student Assignment Removed", msg, actor.UserID); err != nil {
					return Internal("failed to record notification", err)
				}
			}
		}
		if assignee != nil {
			action = "Assign " + kind.label
			if prevID != nil {
				action = "Reassign " + kind.label
			}
			detail += fmt.Sprintf(", %s ID: %d, %s Name: %s", kind.label, assignee.UserID, kind.label, assignee.FullName)
			msg := fmt.Sprintf("You have been assigned to student %s.", studentUser.FullName)
			if err := notify(tx, assignee.UserID, "New Student Assignment", msg, actor.UserID); err != nil {
				return Internal("failed to record notification", err)
			}
			if err := notify(tx, student.UserID, kind.label+" Assigned",
				fmt.Sprintf(kind.studentMsg, assignee.FullName), actor.UserID); err != nil {
				return Internal("failed to record notification", err)
			}
		} else {
			msg := fmt.Sprintf("Your %s has been unassigned.", strings.ToLower(kind.label))
			if err := notify(tx, student.UserID, kind.label+" Unassigned", msg, actor.UserID); err != nil {
				return Internal("failed to record notification", err)
			}
		}

		return recordAudit(tx, actor, action, "students", studentID, detail)
	})
}

// studentHint computes the denormalized progress label after an assignment
// change.
func studentHint(student *models.Student, kind assigneeKind, assigning bool) string {
	hasCounsellor := student.AssignedCounsellorID != nil
	hasLogistics := student.AssignedLogisticsID != nil
	if kind.column == assigneeCounsellor.column {
		hasCounsellor = assigning
	} else {
		hasLogistics = assigning
	}
	switch {
	case hasCounsellor && hasLogistics:
		return models.StudentStatusAssignedBoth
	case hasCounsellor:
		return models.StudentStatusAssignedCounsellor
	default:
		return models.StudentStatusIncompleteProfile
	}
}

// DownloadOfferLetter decrypts the stored offer letter for an authorized
// actor; every successful download is ledgered.
func (s *ApplicationService) DownloadOfferLetter(actor Actor, appID int) (string, []byte, error) {
	if !Allowed(actor.RoleID, ActionOfferLetterDownload) {
		return "", nil, ErrForbidden("insufficient permissions to download offer letters")
	}

	var filename string
	var content []byte
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Where("application_id = ?", appID).First(&app).Error; err != nil {
			return wrapLookup(err, "application not found")
		}
		if len(app.OfferLetterBlob) == 0 {
			return ErrNotFound("no offer letter found for this application")
		}

		var student models.Student
		if err := tx.Where("student_id = ?", app.StudentID).First(&student).Error; err != nil {
			return wrapLookup(err, "student not found")
		}

		switch actor.RoleID {
		case models.RoleStudent:
			if !StudentOwns(actor.UserID, &student) {
				return ErrForbidden("you do not have permission to view this offer letter")
			}
		case models.RoleCounsellor:
			if !CounsellorAssignedToStudent(actor.UserID, &student) {
				return ErrForbidden("you do not have permission to view this offer letter")
			}
		case models.RoleUniversityStaff:
			var uni models.University
			if err := tx.Where("university_id = ?", app.UniversityID).First(&uni).Error; err != nil {
				return wrapLookup(err, "university not found")
			}
			if !StaffBoundToUniversity(actor.UserID, &uni) {
				return ErrForbidden("you do not have permission to view this offer letter")
			}
		}

		plain, err := s.vault.Decrypt(app.OfferLetterBlob, app.OfferLetterIV)
		if err != nil {
			return ErrCrypto("offer letter decryption", err)
		}
		content = plain
		filename = "offer_letter.pdf"
		if app.OfferLetterFilename != nil {
			filename = *app.OfferLetterFilename
		}

		detail := fmt.Sprintf("Application ID: %d, Filename: %s", appID, filename)
		return recordAudit(tx, actor, "Download Offer Letter", "applications", appID, detail)
	})
	if err != nil {
		return "", nil, err
	}
	return filename, content, nil
}

// loadForUpdate locks the application row and loads its student. All
// state-mutating operations go through this, so concurrent mutations of the
// same application serialize at the store.
func (s *ApplicationService) loadForUpdate(tx *gorm.DB, appID int) (*models.Application, *models.Student, error) {
	var app models.Application
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ?", appID).
		First(&app).Error; err != nil {
		return nil, nil, wrapLookup(err, "application not found")
	}
	var student models.Student
	if err := tx.Where("student_id = ?", app.StudentID).First(&student).Error; err != nil {
		return nil, nil, wrapLookup(err, "student not found")
	}
	return &app, &student, nil
}

func loadStatusIndex(tx *gorm.DB, appID int) ([]models.DocumentStatus, error) {
	var statuses []models.DocumentStatus
	if err := tx.Where("application_id = ?", appID).Find(&statuses).Error; err != nil {
		return nil, Internal("failed to load document status index", err)
	}
	return statuses, nil
}

func fetchUser(tx *gorm.DB, userID int) (*models.User, error) {
	var u models.User
	if err := tx.Where("user_id = ?", userID).First(&u).Error; err != nil {
		return nil, wrapLookup(err, "user not found")
	}
	return &u, nil
}

func appendNote(existing *string, note string) string {
	if existing == nil {
		return strings.TrimSpace(note)
	}
	return *existing + note
}

func wrapLookup(err error, notFoundMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound("%s", notFoundMsg)
	}
	return Internal("storage error", err)
}
