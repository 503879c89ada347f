package services

import (
	"admissions-api/models"
)

// Actor is the authenticated identity resolved by the transport layer, plus
// the client origin carried into audit entries.
type Actor struct {
	UserID    int
	RoleID    int
	IPAddress string
	UserAgent string
}

// Action names every operation the workflow core can authorize. One table, one
// evaluation function; every service method consults Allowed before any
// business gating so the rules cannot drift between endpoints.
type Action string

const (
	ActionApplicationCreate   Action = "application.create"
	ActionApplicationForward  Action = "application.forward"
	ActionApplicationDecide   Action = "application.decide"
	ActionApplicationOverride Action = "application.override_status"
	ActionApplicationDelete   Action = "application.delete"

	ActionStudentAssign Action = "student.assign"

	ActionDocumentUpload   Action = "document.upload"
	ActionDocumentReview   Action = "document.review"
	ActionDocumentDownload Action = "document.download"
	ActionDocumentDelete   Action = "document.delete"

	ActionOfferLetterDownload Action = "offer_letter.download"

	ActionAuditList Action = "audit.list"
)

// roleActions is the static authorization matrix. Ownership constraints
// (counsellor assigned to the student, staff bound to the university, student
// owns the record) are layered on top by the predicates below; the matrix only
// answers whether the role may ever perform the action.
var roleActions = map[Action][]int{
	ActionApplicationCreate:   {models.RoleCounsellor, models.RoleStudent},
	ActionApplicationForward:  {models.RoleSuperAdmin, models.RoleAdmin, models.RoleCounsellor},
	ActionApplicationDecide:   {models.RoleSuperAdmin, models.RoleAdmin, models.RoleUniversityStaff},
	ActionApplicationOverride: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleCounsellor},
	ActionApplicationDelete:   {models.RoleSuperAdmin, models.RoleAdmin, models.RoleStudent},

	ActionStudentAssign: {models.RoleSuperAdmin, models.RoleAdmin},

	ActionDocumentUpload: {models.RoleStudent},
	ActionDocumentReview: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleCounsellor, models.RoleUniversityStaff},
	ActionDocumentDownload: {
		models.RoleSuperAdmin, models.RoleAdmin, models.RoleCounsellor,
		models.RoleUniversityStaff, models.RoleStudent,
	},
	ActionDocumentDelete: {models.RoleSuperAdmin, models.RoleAdmin, models.RoleCounsellor, models.RoleStudent},

	ActionOfferLetterDownload: {
		models.RoleSuperAdmin, models.RoleAdmin, models.RoleCounsellor,
		models.RoleUniversityStaff, models.RoleStudent,
	},

	ActionAuditList: {models.RoleSuperAdmin, models.RoleAdmin},
}

// Allowed reports whether the role may ever perform the action.
func Allowed(roleID int, action Action) bool {
	for _, id := range roleActions[action] {
		if id == roleID {
			return true
		}
	}
	return false
}

// Actions returns every action in the matrix, for enumeration in tests.
func Actions() []Action {
	out := make([]Action, 0, len(roleActions))
	for a := range roleActions {
		out = append(out, a)
	}
	return out
}

// IsElevated reports whether the role bypasses ownership and state gating
// (SuperAdmin and Admin).
func IsElevated(roleID int) bool {
	return roleID == models.RoleSuperAdmin || roleID == models.RoleAdmin
}

// CounsellorOwnsApplication: a counsellor may act on an application they
// created or one belonging to a student assigned to them. Used identically by
// forward, override and listing paths.
func CounsellorOwnsApplication(actorID int, app *models.Application, student *models.Student) bool {
	if app.CounsellorID != nil && *app.CounsellorID == actorID {
		return true
	}
	return student.AssignedCounsellorID != nil && *student.AssignedCounsellorID == actorID
}

// CounsellorAssignedToStudent: document review, download and delete only reach
// the assigned counsellor.
func CounsellorAssignedToStudent(actorID int, student *models.Student) bool {
	return student.AssignedCounsellorID != nil && *student.AssignedCounsellorID == actorID
}

// StudentOwns reports whether the acting user is the student behind the record.
func StudentOwns(actorID int, student *models.Student) bool {
	return student.UserID == actorID
}

// StaffBoundToUniversity reports whether the staff actor is the portal user of
// the given university.
func StaffBoundToUniversity(actorID int, uni *models.University) bool {
	return uni.PortalUserID != nil && *uni.PortalUserID == actorID
}

// StaffMaySeeApplication: university staff only see an application once it has
// been forwarded to them or carries a decision. Missing-documents re-review
// belongs to the counsellor side until the application is forwarded again.
func StaffMaySeeApplication(app *models.Application) bool {
	switch app.Status {
	case models.StatusForwarded,
		models.StatusDecisionAccepted,
		models.StatusDecisionRejected,
		models.StatusDecisionConditional:
		return true
	}
	return false
}
