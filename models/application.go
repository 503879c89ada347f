package models

import "time"

// Application lifecycle states. Forward and Decide are the only enumerated
// transitions; OverrideStatus may write any label but is audited separately.
const (
	StatusInReview            = "In Review"
	StatusForwarded           = "Forwarded to University"
	StatusDecisionAccepted    = "Decision: Accepted"
	StatusDecisionRejected    = "Decision: Rejected"
	StatusDecisionConditional = "Decision: Conditional"
	StatusMissingDocsInReview = "Missing Documents - In Review"
)

// Decision types accepted by ApplicationService.Decide.
const (
	DecisionAccepted     = "Accepted"
	DecisionRejected     = "Rejected"
	DecisionConditional  = "Conditional"
	DecisionMissingDocs  = "Missing Documents"
)

type Application struct {
	ApplicationID int        `gorm:"primaryKey;column:application_id" json:"application_id"`
	StudentID     int        `gorm:"column:student_id;index" json:"student_id"`
	UniversityID  int        `gorm:"column:university_id;index" json:"university_id"`
	CounsellorID  *int       `gorm:"column:counsellor_id" json:"counsellor_id,omitempty"`
	ProgramName   string     `gorm:"column:program_name" json:"program_name"`
	Intake        string     `gorm:"column:intake" json:"intake"`
	Status        string     `gorm:"column:status;default:In Review" json:"status"`

	DecisionType  *string    `gorm:"column:decision_type" json:"decision_type,omitempty"`
	DecisionNotes *string    `gorm:"column:decision_notes" json:"decision_notes,omitempty"`
	DecisionDate  *time.Time `gorm:"column:decision_date" json:"decision_date,omitempty"`

	CounsellorNotes *string `gorm:"column:counsellor_notes" json:"counsellor_notes,omitempty"`

	// Encrypted offer letter artifact, written only by Decide.
	OfferLetterBlob     []byte  `gorm:"column:offer_letter_blob" json:"-"`
	OfferLetterIV       []byte  `gorm:"column:offer_letter_iv" json:"-"`
	OfferLetterFilename *string `gorm:"column:offer_letter_filename" json:"offer_letter_filename,omitempty"`

	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`

	// Relations
	Student    Student    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	University University `gorm:"foreignKey:UniversityID" json:"university,omitempty"`
	Counsellor *User      `gorm:"foreignKey:CounsellorID" json:"counsellor,omitempty"`
}

func (Application) TableName() string {
	return "applications"
}

// HasFinalDecision reports whether the application reached a terminal state.
// Accepted and Rejected are terminal; Conditional and Missing Documents loop
// back through forward.
func (a *Application) HasFinalDecision() bool {
	return a.Status == StatusDecisionAccepted || a.Status == StatusDecisionRejected
}

// IsDecided reports whether any decision state or the missing-documents
// re-review state is set.
func (a *Application) IsDecided() bool {
	switch a.Status {
	case StatusDecisionAccepted, StatusDecisionRejected, StatusDecisionConditional, StatusMissingDocsInReview:
		return true
	}
	return false
}
