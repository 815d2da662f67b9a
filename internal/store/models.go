package store

import "time"

// Submission statuses. Transitions are pending→approved or
// pending→rejected only; both are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Submission is a user-proposed tool awaiting moderation. Rows are never
// deleted; reviewed_at is set iff status != pending.
type Submission struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	URL              string     `json:"url"`
	Description      string     `json:"description"`
	Icon             string     `json:"icon"`
	PhaseNumber      int        `json:"phase_number"`
	PhaseTitle       string     `json:"phase_title"`
	SectionTitle     string     `json:"section_title"`
	UseCase          string     `json:"use_case"`
	SubmittedByName  string     `json:"submitted_by_name"`
	SubmittedByEmail string     `json:"submitted_by_email"`
	Status           string     `json:"status"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason  *string    `json:"rejection_reason,omitempty"`
}

// ApprovedTool is a moderator-accepted tool persisted separately from the
// static taxonomy. SubmissionID is nil for tools added directly by an admin.
// Phase and section are referenced by denormalized number/title; rows whose
// reference no longer matches the static tree are dropped at merge time.
type ApprovedTool struct {
	ID           int64     `json:"id"`
	SubmissionID *int64    `json:"submission_id,omitempty"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	PhaseNumber  int       `json:"phase_number"`
	PhaseTitle   string    `json:"phase_title"`
	SectionTitle string    `json:"section_title"`
	UseCase      string    `json:"use_case"`
	PRURL        string    `json:"pr_url,omitempty"`
	PRNumber     int       `json:"pr_number,omitempty"`
	ApprovedBy   string    `json:"approved_by"`
	ApprovedAt   time.Time `json:"approved_at"`
	Visible      bool      `json:"visible"`
}

// ApprovedToolFields carries the admin-editable columns for add/edit.
type ApprovedToolFields struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Description  string `json:"description"`
	Icon         string `json:"icon"`
	PhaseNumber  int    `json:"phaseNumber"`
	PhaseTitle   string `json:"phaseTitle"`
	SectionTitle string `json:"sectionTitle"`
	UseCase      string `json:"useCase"`
}
