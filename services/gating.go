package services

import (
	"sort"

	"admissions-api/models"
)

// RebuildStatusIndex folds the full upload history of an application into one
// current-status row per doc_type. Fold policy: the most recent upload of a
// type wins (ties broken by higher document_id). Every path that mutates the
// history (upload, delete) rebuilds through this function, so "current" has a
// single definition.
func RebuildStatusIndex(appID int, docs []models.Document) []models.DocumentStatus {
	current := make(map[string]models.Document)
	for _, d := range docs {
		prev, ok := current[d.DocType]
		if !ok || d.UploadedAt.After(prev.UploadedAt) ||
			(d.UploadedAt.Equal(prev.UploadedAt) && d.DocumentID > prev.DocumentID) {
			current[d.DocType] = d
		}
	}

	types := make([]string, 0, len(current))
	for t := range current {
		types = append(types, t)
	}
	sort.Strings(types)

	out := make([]models.DocumentStatus, 0, len(current))
	for _, t := range types {
		d := current[t]
		out = append(out, models.DocumentStatus{
			ApplicationID: appID,
			DocType:       t,
			DocumentID:    d.DocumentID,
			Stage1Outcome: d.Stage1Outcome,
			Stage2Outcome: d.Stage2Outcome,
		})
	}
	return out
}

// MissingRequired returns the required doc types with no upload at all.
func MissingRequired(statuses []models.DocumentStatus) []string {
	present := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		present[s.DocType] = true
	}
	var missing []string
	for _, t := range models.RequiredDocTypes {
		if !present[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

// NotStage1Approved returns the doc types (required and free-form) whose
// current upload lacks counsellor approval. Forwarding requires this to be
// empty.
func NotStage1Approved(statuses []models.DocumentStatus) []string {
	var out []string
	for _, s := range statuses {
		if s.Stage1Outcome != models.ReviewApproved {
			out = append(out, s.DocType)
		}
	}
	return out
}

// NotStage2Approved returns the doc types not approved by university staff.
// Accept/Conditional decisions require this to be empty.
func NotStage2Approved(statuses []models.DocumentStatus) []string {
	var out []string
	for _, s := range statuses {
		if s.Stage2Outcome != models.ReviewApproved {
			out = append(out, s.DocType)
		}
	}
	return out
}

// Stage2Pending returns the doc types university staff has not reviewed at
// all. Reject/Missing-Documents decisions require every document to have been
// looked at, approval not required.
func Stage2Pending(statuses []models.DocumentStatus) []string {
	var out []string
	for _, s := range statuses {
		if s.Stage2Outcome == models.ReviewPending {
			out = append(out, s.DocType)
		}
	}
	return out
}
