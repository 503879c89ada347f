package models

import "time"

// Review outcomes for each verification stage.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Document types every application must carry before it can be forwarded.
// Free-form types ("Other", "Recommendation Letter", ...) may be uploaded in
// addition and are still subject to both review stages.
var RequiredDocTypes = []string{"Passport", "Transcript", "English Test", "Personal Photo"}

// Document is one row of the append-only upload history. The payload is stored
// encrypted; Stage1 is the counsellor/admin review, Stage2 the university
// review. Stage2 may only leave pending once Stage1 is approved.
type Document struct {
	DocumentID    int    `gorm:"primaryKey;column:document_id" json:"document_id"`
	ApplicationID int    `gorm:"column:application_id;index" json:"application_id"`
	StudentID     int    `gorm:"column:student_id;index" json:"student_id"`
	UploadedBy    int    `gorm:"column:uploaded_by" json:"uploaded_by"`
	DocType       string `gorm:"column:doc_type" json:"doc_type"`
	Filename      string `gorm:"column:filename" json:"filename"`

	EncryptedBlob []byte `gorm:"column:encrypted_blob" json:"-"`
	IV            []byte `gorm:"column:iv" json:"-"`
	KeyVersion    string `gorm:"column:key_version" json:"key_version"`

	Stage1Outcome    string     `gorm:"column:stage1_outcome;default:pending" json:"stage1_outcome"`
	Stage1ReviewerID *int       `gorm:"column:stage1_reviewer_id" json:"stage1_reviewer_id,omitempty"`
	Stage1Notes      *string    `gorm:"column:stage1_notes" json:"stage1_notes,omitempty"`
	Stage1ReviewedAt *time.Time `gorm:"column:stage1_reviewed_at" json:"stage1_reviewed_at,omitempty"`

	Stage2Outcome    string     `gorm:"column:stage2_outcome;default:pending" json:"stage2_outcome"`
	Stage2ReviewerID *int       `gorm:"column:stage2_reviewer_id" json:"stage2_reviewer_id,omitempty"`
	Stage2Notes      *string    `gorm:"column:stage2_notes" json:"stage2_notes,omitempty"`
	Stage2ReviewedAt *time.Time `gorm:"column:stage2_reviewed_at" json:"stage2_reviewed_at,omitempty"`

	UploadedAt time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`

	// Relations
	Application Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	Student     Student     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// DocumentStatus is the current-status index: exactly one row per
// (application, doc_type), pointing at the upload that currently counts for
// gating. Rebuilt from the history by services.RebuildStatusIndex whenever the
// history changes; review updates refresh it in place.
type DocumentStatus struct {
	StatusID      int    `gorm:"primaryKey;column:status_id" json:"status_id"`
	ApplicationID int    `gorm:"column:application_id;uniqueIndex:idx_app_doctype" json:"application_id"`
	DocType       string `gorm:"column:doc_type;uniqueIndex:idx_app_doctype" json:"doc_type"`
	DocumentID    int    `gorm:"column:document_id" json:"document_id"`
	Stage1Outcome string `gorm:"column:stage1_outcome" json:"stage1_outcome"`
	Stage2Outcome string `gorm:"column:stage2_outcome" json:"stage2_outcome"`

	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

func (DocumentStatus) TableName() string {
	return "document_statuses"
}
