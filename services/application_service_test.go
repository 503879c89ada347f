package services

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"admissions-api/models"
)

var (
	appForUpdatePattern = regexp.MustCompile(`SELECT \* FROM .applications. WHERE application_id = \?.*FOR UPDATE`)
	studentPattern      = regexp.MustCompile(`SELECT \* FROM .students. WHERE student_id = \?`)
	statusIndexPattern  = regexp.MustCompile(`SELECT \* FROM .document_statuses. WHERE application_id = \?`)
	userPattern         = regexp.MustCompile(`SELECT \* FROM .users. WHERE user_id = \?`)
	universityPattern   = regexp.MustCompile(`SELECT \* FROM .universities. WHERE university_id = \?`)
	notificationInsert  = regexp.MustCompile(`INSERT INTO .notifications.`)
	auditInsert         = regexp.MustCompile(`INSERT INTO .audit_logs.`)
)

func newTestApplicationService(t *testing.T, steps []*queryStep) (*ApplicationService, *scriptedDB, func()) {
	t.Helper()
	db, state, cleanup := newScriptedGormDB(t, steps)
	vault, err := NewVault(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}
	return NewApplicationService(db, vault), state, cleanup
}

func appRow(appID, studentID, uniID int, counsellorID interface{}, status string) *queryStep {
	return &queryStep{
		kind:    kindQuery,
		pattern: appForUpdatePattern,
		columns: []string{"application_id", "student_id", "university_id", "counsellor_id", "status", "program_name"},
		rows: [][]driver.Value{
			{int64(appID), int64(studentID), int64(uniID), counsellorID, status, "MSc Computing"},
		},
	}
}

func studentRow(studentID, userID int, counsellorID interface{}) *queryStep {
	return &queryStep{
		kind:    kindQuery,
		pattern: studentPattern,
		columns: []string{"student_id", "user_id", "assigned_counsellor_id"},
		rows:    [][]driver.Value{{int64(studentID), int64(userID), counsellorID}},
	}
}

func statusIndexRows(rows ...[]driver.Value) *queryStep {
	return &queryStep{
		kind:    kindQuery,
		pattern: statusIndexPattern,
		columns: []string{"application_id", "doc_type", "stage1_outcome", "stage2_outcome"},
		rows:    rows,
	}
}

func allRequiredApproved(appID int, stage2 string) *queryStep {
	rows := make([][]driver.Value, 0, len(models.RequiredDocTypes))
	for _, docType := range models.RequiredDocTypes {
		rows = append(rows, []driver.Value{int64(appID), docType, models.ReviewApproved, stage2})
	}
	return statusIndexRows(rows...)
}

func userRow(userID int, name string, roleID int) *queryStep {
	return &queryStep{
		kind:    kindQuery,
		pattern: userPattern,
		columns: []string{"user_id", "full_name", "email", "role_id"},
		rows:    [][]driver.Value{{int64(userID), name, "user@example.com", int64(roleID)}},
	}
}

func universityRow(uniID int, portalUserID interface{}) *queryStep {
	return &queryStep{
		kind:    kindQuery,
		pattern: universityPattern,
		columns: []string{"university_id", "name", "portal_user_id"},
		rows:    [][]driver.Value{{int64(uniID), "Test University", portalUserID}},
	}
}

func assertKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *services.Error, got %T: %v", err, err)
	}
	if svcErr.Kind != kind {
		t.Fatalf("expected error kind %d, got %d (%v)", kind, svcErr.Kind, svcErr)
	}
	return svcErr
}

func TestForwardDeniedByRole(t *testing.T) {
	svc, state, cleanup := newTestApplicationService(t, nil)
	defer cleanup()

	for _, roleID := range []int{models.RoleUniversityStaff, models.RoleLogisticsStaff, models.RoleStudent} {
		err := svc.Forward(Actor{UserID: 1, RoleID: roleID}, 10)
		assertKind(t, err, KindForbidden)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestForwardDeniedForUnownedApplication(t *testing.T) {
	steps := []*queryStep{
		appRow(10, 3, 2, int64(99), models.StatusInReview),
		studentRow(3, 30, int64(99)),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Forward(Actor{UserID: 7, RoleID: models.RoleCounsellor}, 10)
	assertKind(t, err, KindForbidden)
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestForwardRefusedAfterFinalDecision(t *testing.T) {
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusDecisionAccepted),
		studentRow(3, 30, int64(7)),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Forward(Actor{UserID: 7, RoleID: models.RoleCounsellor}, 10)
	assertKind(t, err, KindPrecondition)
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestForwardConflictWhenAlreadyForwarded(t *testing.T) {
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusForwarded),
		studentRow(3, 30, int64(7)),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Forward(Actor{UserID: 7, RoleID: models.RoleCounsellor}, 10)
	assertKind(t, err, KindConflict)
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestForwardBlockedByMissingRequiredDocuments(t *testing.T) {
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusInReview),
		studentRow(3, 30, int64(7)),
		statusIndexRows(
			[]driver.Value{int64(10), "Passport", models.ReviewApproved, models.ReviewPending},
		),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Forward(Actor{UserID: 7, RoleID: models.RoleCounsellor}, 10)
	svcErr := assertKind(t, err, KindPrecondition)
	want := []string{"Transcript", "English Test", "Personal Photo"}
	if len(svcErr.Items) != len(want) {
		t.Fatalf("expected missing items %v, got %v", want, svcErr.Items)
	}
	for i, item := range want {
		if svcErr.Items[i] != item {
			t.Fatalf("expected missing items %v, got %v", want, svcErr.Items)
		}
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestForwardBlockedByUnverifiedDocuments(t *testing.T) {
	rows := make([][]driver.Value, 0, len(models.RequiredDocTypes))
	for _, docType := range models.RequiredDocTypes {
		rows = append(rows, []driver.Value{int64(10), docType, models.ReviewPending, models.ReviewPending})
	}
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusInReview),
		studentRow(3, 30, int64(7)),
		statusIndexRows(rows...),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Forward(Actor{UserID: 7, RoleID: models.RoleCounsellor}, 10)
	svcErr := assertKind(t, err, KindPrecondition)
	if len(svcErr.Items) != len(models.RequiredDocTypes) {
		t.Fatalf("expected every pending type listed, got %v", svcErr.Items)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestReforwardClearsDecisionAndNotifies(t *testing.T) {
	portalUserID := int64(50)
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusDecisionConditional),
		studentRow(3, 30, int64(7)),
		allRequiredApproved(10, models.ReviewApproved),
		userRow(7, "Counsellor One", models.RoleCounsellor),
		{
			kind:    kindExec,
			pattern: regexp.MustCompile(`UPDATE .applications. SET .*decision_type.*WHERE application_id = \?`),
		},
		universityRow(2, portalUserID),
		userRow(30, "Student One", models.RoleStudent),
		{kind: kindExec, pattern: notificationInsert}, // student
		{kind: kindExec, pattern: notificationInsert}, // portal staff
		{kind: kindExec, pattern: auditInsert},
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	if err := svc.Forward(Actor{UserID: 7, RoleID: models.RoleCounsellor}, 10); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestForwardRollsBackWhenLedgerWriteFails(t *testing.T) {
	boom := errors.New("ledger unavailable")
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusInReview),
		studentRow(3, 30, int64(7)),
		allRequiredApproved(10, models.ReviewPending),
		userRow(7, "Counsellor One", models.RoleCounsellor),
		{kind: kindExec, pattern: regexp.MustCompile(`UPDATE .applications. SET .*WHERE application_id = \?`)},
		universityRow(2, int64(50)),
		userRow(30, "Student One", models.RoleStudent),
		{kind: kindExec, pattern: notificationInsert},
		{kind: kindExec, pattern: notificationInsert},
		{kind: kindExec, pattern: auditInsert, err: boom},
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Forward(Actor{UserID: 7, RoleID: models.RoleCounsellor}, 10)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the ledger failure to surface, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
	commits, rollbacks := state.txCounts()
	if commits != 0 || rollbacks != 1 {
		t.Fatalf("expected the state change to roll back, got commits=%d rollbacks=%d", commits, rollbacks)
	}
}

func TestDecideAcceptedStoresEncryptedOfferAndNotifies(t *testing.T) {
	update := &queryStep{
		kind:    kindExec,
		pattern: regexp.MustCompile(`UPDATE .applications. SET .*offer_letter_blob.*offer_letter_iv.*status.*WHERE application_id = \?`),
	}
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusForwarded),
		studentRow(3, 30, int64(7)),
		universityRow(2, int64(50)),
		allRequiredApproved(10, models.ReviewApproved),
		update,
		userRow(30, "Student One", models.RoleStudent),
		{kind: kindExec, pattern: notificationInsert}, // student
		{kind: kindExec, pattern: notificationInsert}, // counsellor
		{kind: kindExec, pattern: auditInsert},
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	letter := []byte("%PDF-1.7 offer body")
	err := svc.Decide(Actor{UserID: 50, RoleID: models.RoleUniversityStaff}, 10, DecideInput{
		DecisionType: models.DecisionAccepted,
		Notes:        "Congratulations",
		OfferLetter:  letter,
		Filename:     "offer.pdf",
	})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
	commits, rollbacks := state.txCounts()
	if commits != 1 || rollbacks != 0 {
		t.Fatalf("expected a single commit, got commits=%d rollbacks=%d", commits, rollbacks)
	}

	// Map updates bind in column order: decision_date, decision_notes,
	// decision_type, offer_letter_blob, offer_letter_filename, offer_letter_iv,
	// status, updated_at, then the application_id condition.
	if len(update.seen) != 9 {
		t.Fatalf("expected 9 bound values, got %d: %v", len(update.seen), update.seen)
	}
	if got := update.seen[2]; got != models.DecisionAccepted {
		t.Fatalf("expected decision type %q, got %v", models.DecisionAccepted, got)
	}
	if got := update.seen[4]; got != "offer.pdf" {
		t.Fatalf("expected filename offer.pdf, got %v", got)
	}
	if got := update.seen[6]; got != models.StatusDecisionAccepted {
		t.Fatalf("expected status %q, got %v", models.StatusDecisionAccepted, got)
	}
	blob, ok := update.seen[3].([]byte)
	if !ok || len(blob) == 0 {
		t.Fatalf("expected an encrypted blob, got %v", update.seen[3])
	}
	iv, ok := update.seen[5].([]byte)
	if !ok || len(iv) == 0 {
		t.Fatalf("expected an IV, got %v", update.seen[5])
	}
	if bytes.Equal(blob, letter) {
		t.Fatal("offer letter stored in plaintext")
	}
	vault, err := NewVault(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}
	plain, err := vault.Decrypt(blob, iv)
	if err != nil {
		t.Fatalf("stored blob does not decrypt: %v", err)
	}
	if !bytes.Equal(plain, letter) {
		t.Fatalf("decrypted offer letter does not match: got %q", plain)
	}
}

func TestDecideValidation(t *testing.T) {
	svc, state, cleanup := newTestApplicationService(t, nil)
	defer cleanup()
	actor := Actor{UserID: 50, RoleID: models.RoleUniversityStaff}

	err := svc.Decide(actor, 10, DecideInput{DecisionType: "Maybe"})
	assertKind(t, err, KindValidation)

	err = svc.Decide(actor, 10, DecideInput{DecisionType: models.DecisionAccepted})
	assertKind(t, err, KindValidation)

	err = svc.Decide(actor, 10, DecideInput{
		DecisionType: models.DecisionConditional,
		OfferLetter:  []byte("%PDF"),
		Filename:     "offer.docx",
	})
	assertKind(t, err, KindValidation)

	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestDecideStaffRequiresForwardedStatus(t *testing.T) {
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusInReview),
		studentRow(3, 30, int64(7)),
		universityRow(2, int64(50)),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Decide(Actor{UserID: 50, RoleID: models.RoleUniversityStaff}, 10,
		DecideInput{DecisionType: models.DecisionRejected})
	assertKind(t, err, KindPrecondition)
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestDecideStaffOfOtherUniversityForbidden(t *testing.T) {
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusForwarded),
		studentRow(3, 30, int64(7)),
		universityRow(2, int64(99)),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Decide(Actor{UserID: 50, RoleID: models.RoleUniversityStaff}, 10,
		DecideInput{DecisionType: models.DecisionRejected})
	assertKind(t, err, KindForbidden)
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestDecideAcceptRequiresStage2Approval(t *testing.T) {
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusForwarded),
		studentRow(3, 30, int64(7)),
		universityRow(2, int64(50)),
		allRequiredApproved(10, models.ReviewPending),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Decide(Actor{UserID: 50, RoleID: models.RoleUniversityStaff}, 10, DecideInput{
		DecisionType: models.DecisionAccepted,
		OfferLetter:  []byte("%PDF-1.7"),
		Filename:     "offer.pdf",
	})
	svcErr := assertKind(t, err, KindPrecondition)
	if len(svcErr.Items) != len(models.RequiredDocTypes) {
		t.Fatalf("expected every unapproved type listed, got %v", svcErr.Items)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestDecideRejectBlockedByPendingStage2(t *testing.T) {
	rows := make([][]driver.Value, 0, len(models.RequiredDocTypes))
	for i, docType := range models.RequiredDocTypes {
		stage2 := models.ReviewRejected
		if i == 0 {
			stage2 = models.ReviewPending
		}
		rows = append(rows, []driver.Value{int64(10), docType, models.ReviewApproved, stage2})
	}
	steps := []*queryStep{
		appRow(10, 3, 2, int64(7), models.StatusForwarded),
		studentRow(3, 30, int64(7)),
		universityRow(2, int64(50)),
		statusIndexRows(rows...),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	err := svc.Decide(Actor{UserID: 50, RoleID: models.RoleUniversityStaff}, 10,
		DecideInput{DecisionType: models.DecisionRejected})
	svcErr := assertKind(t, err, KindPrecondition)
	if len(svcErr.Items) != 1 || svcErr.Items[0] != models.RequiredDocTypes[0] {
		t.Fatalf("expected only the pending type listed, got %v", svcErr.Items)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestAssignCounsellorDeniedByRole(t *testing.T) {
	svc, state, cleanup := newTestApplicationService(t, nil)
	defer cleanup()

	counsellorID := 7
	for _, roleID := range []int{models.RoleCounsellor, models.RoleUniversityStaff, models.RoleLogisticsStaff, models.RoleStudent} {
		err := svc.AssignCounsellor(Actor{UserID: 1, RoleID: roleID}, 3, &counsellorID)
		assertKind(t, err, KindForbidden)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestAssignCounsellorRejectsWrongRoleAssignee(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: studentPattern,
			columns: []string{"student_id", "user_id", "assigned_counsellor_id", "assigned_logistics_id"},
			rows:    [][]driver.Value{{int64(3), int64(30), nil, nil}},
		},
		userRow(30, "Student One", models.RoleStudent),
		userRow(8, "Logistics One", models.RoleLogisticsStaff),
	}
	svc, state, cleanup := newTestApplicationService(t, steps)
	defer cleanup()

	assigneeID := 8
	err := svc.AssignCounsellor(Actor{UserID: 1, RoleID: models.RoleAdmin}, 3, &assigneeID)
	assertKind(t, err, KindValidation)
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestStudentHint(t *testing.T) {
	counsellor := 7
	logistics := 8

	cases := []struct {
		name      string
		student   models.Student
		kind      assigneeKind
		assigning bool
		want      string
	}{
		{"assign counsellor", models.Student{}, assigneeCounsellor, true, models.StudentStatusAssignedCounsellor},
		{"assign both", models.Student{AssignedLogisticsID: &logistics}, assigneeCounsellor, true, models.StudentStatusAssignedBoth},
		{"assign logistics only", models.Student{}, assigneeLogistics, true, models.StudentStatusIncompleteProfile},
		{"unassign counsellor", models.Student{AssignedCounsellorID: &counsellor}, assigneeCounsellor, false, models.StudentStatusIncompleteProfile},
		{
			"unassign logistics keeps counsellor",
			models.Student{AssignedCounsellorID: &counsellor, AssignedLogisticsID: &logistics},
			assigneeLogistics, false, models.StudentStatusAssignedCounsellor,
		},
	}
	for _, tc := range cases {
		if got := studentHint(&tc.student, tc.kind, tc.assigning); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
