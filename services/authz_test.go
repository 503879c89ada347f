package services

import (
	"testing"

	"admissions-api/models"
)

var allRoles = []int{
	models.RoleSuperAdmin,
	models.RoleAdmin,
	models.RoleCounsellor,
	models.RoleUniversityStaff,
	models.RoleLogisticsStaff,
	models.RoleStudent,
}

func TestAuthorizationMatrix(t *testing.T) {
	// The full expected matrix, spelled out so a change to roleActions is a
	// deliberate, reviewed decision.
	expected := map[Action]map[int]bool{
		ActionApplicationCreate: {
			models.RoleCounsellor: true,
			models.RoleStudent:    true,
		},
		ActionApplicationForward: {
			models.RoleSuperAdmin: true,
			models.RoleAdmin:      true,
			models.RoleCounsellor: true,
		},
		ActionApplicationDecide: {
			models.RoleSuperAdmin:      true,
			models.RoleAdmin:           true,
			models.RoleUniversityStaff: true,
		},
		ActionApplicationOverride: {
			models.RoleSuperAdmin: true,
			models.RoleAdmin:      true,
			models.RoleCounsellor: true,
		},
		ActionApplicationDelete: {
			models.RoleSuperAdmin: true,
			models.RoleAdmin:      true,
			models.RoleStudent:    true,
		},
		ActionStudentAssign: {
			models.RoleSuperAdmin: true,
			models.RoleAdmin:      true,
		},
		ActionDocumentUpload: {
			models.RoleStudent: true,
		},
		ActionDocumentReview: {
			models.RoleSuperAdmin:      true,
			models.RoleAdmin:           true,
			models.RoleCounsellor:      true,
			models.RoleUniversityStaff: true,
		},
		ActionDocumentDownload: {
			models.RoleSuperAdmin:      true,
			models.RoleAdmin:           true,
			models.RoleCounsellor:      true,
			models.RoleUniversityStaff: true,
			models.RoleStudent:         true,
		},
		ActionDocumentDelete: {
			models.RoleSuperAdmin: true,
			models.RoleAdmin:      true,
			models.RoleCounsellor: true,
			models.RoleStudent:    true,
		},
		ActionOfferLetterDownload: {
			models.RoleSuperAdmin:      true,
			models.RoleAdmin:           true,
			models.RoleCounsellor:      true,
			models.RoleUniversityStaff: true,
			models.RoleStudent:         true,
		},
		ActionAuditList: {
			models.RoleSuperAdmin: true,
			models.RoleAdmin:      true,
		},
	}

	if len(expected) != len(Actions()) {
		t.Fatalf("matrix size mismatch: expected %d actions, matrix has %d", len(expected), len(Actions()))
	}

	for action, roles := range expected {
		for _, roleID := range allRoles {
			if got, want := Allowed(roleID, action), roles[roleID]; got != want {
				t.Errorf("Allowed(%d, %s) = %v, want %v", roleID, action, got, want)
			}
		}
	}
}

func TestAllowedUnknownActionAndRole(t *testing.T) {
	if Allowed(models.RoleSuperAdmin, Action("no.such.action")) {
		t.Error("unknown action should never be allowed")
	}
	if Allowed(99, ActionApplicationForward) {
		t.Error("unknown role should never be allowed")
	}
}

func TestIsElevated(t *testing.T) {
	for _, roleID := range allRoles {
		want := roleID == models.RoleSuperAdmin || roleID == models.RoleAdmin
		if got := IsElevated(roleID); got != want {
			t.Errorf("IsElevated(%d) = %v, want %v", roleID, got, want)
		}
	}
}

func TestCounsellorOwnsApplication(t *testing.T) {
	counsellorID := 7
	otherID := 8

	cases := []struct {
		name          string
		appCounsellor *int
		assigned      *int
		want          bool
	}{
		{"created the application", &counsellorID, nil, true},
		{"assigned to the student", nil, &counsellorID, true},
		{"both", &counsellorID, &counsellorID, true},
		{"neither", &otherID, &otherID, false},
		{"unset", nil, nil, false},
	}
	for _, tc := range cases {
		app := &models.Application{CounsellorID: tc.appCounsellor}
		student := &models.Student{AssignedCounsellorID: tc.assigned}
		if got := CounsellorOwnsApplication(counsellorID, app, student); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestStaffPredicates(t *testing.T) {
	staffID := 12
	uni := &models.University{PortalUserID: &staffID}
	if !StaffBoundToUniversity(staffID, uni) {
		t.Error("bound staff should pass")
	}
	if StaffBoundToUniversity(13, uni) {
		t.Error("unbound staff should fail")
	}
	if StaffBoundToUniversity(staffID, &models.University{}) {
		t.Error("university without a portal user should fail")
	}

	visible := []string{
		models.StatusForwarded,
		models.StatusDecisionAccepted,
		models.StatusDecisionRejected,
		models.StatusDecisionConditional,
	}
	for _, status := range visible {
		if !StaffMaySeeApplication(&models.Application{Status: status}) {
			t.Errorf("staff should see applications in %q", status)
		}
	}
	for _, status := range []string{models.StatusInReview, models.StatusMissingDocsInReview} {
		if StaffMaySeeApplication(&models.Application{Status: status}) {
			t.Errorf("staff should not see applications in %q", status)
		}
	}
}

func TestStudentOwns(t *testing.T) {
	student := &models.Student{UserID: 31}
	if !StudentOwns(31, student) {
		t.Error("owner should pass")
	}
	if StudentOwns(32, student) {
		t.Error("non-owner should fail")
	}
}
