// Package ticket models the host service ticket: the one shared mutable
// resource of a session. The engine never creates or deletes tickets, only
// reads one and applies a single merge-style update at submission.
package ticket

import "time"

// Status is the ticket's lifecycle state.
type Status string

const (
	StatusScheduled        Status = "scheduled"
	StatusInProgress       Status = "in-progress"
	StatusCompleted        Status = "completed"
	StatusTechnicalPending Status = "technical-pending"
	StatusFinancialPending Status = "financial-pending"
)

// Fillable reports whether a technician may still submit against the ticket.
func (s Status) Fillable() bool {
	switch s {
	case StatusCompleted, StatusTechnicalPending, StatusFinancialPending:
		return false
	}
	return true
}

// SubmissionRecord is one questionnaire's completed submission. Appended to
// the ticket's history; never mutated after creation.
type SubmissionRecord struct {
	QuestionnaireID   string                 `json:"questionnaireId"`
	QuestionnaireName string                 `json:"questionnaireName"`
	Answers           map[string]interface{} `json:"answers"`
	Signatures        map[string]string      `json:"signatures,omitempty"`
	PhotoURLs         map[string][]string    `json:"photoUrls,omitempty"`
	CompletedAt       time.Time              `json:"completedAt"`
}

// PendingIssue is a structured, unresolved follow-up item attached to a
// ticket as a side effect of finalization.
type PendingIssue struct {
	Kind           string    `json:"kind"` // "technical", "charge" or "quote"
	Description    string    `json:"description"`
	EstimatedValue *float64  `json:"estimatedValue,omitempty"`
	PartsRemoved   bool      `json:"partsRemoved,omitempty"`
	PartsItems     string    `json:"partsItems,omitempty"`
	PartsLocation  string    `json:"partsLocation,omitempty"`
	Resolved       bool      `json:"resolved"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Ticket is the service ticket aggregate.
type Ticket struct {
	ID                   string             `json:"id"`
	TenantID             string             `json:"tenantId"`
	Status               Status             `json:"status"`
	Submissions          []SubmissionRecord `json:"submissions,omitempty"`
	TechnicalIssue       *PendingIssue      `json:"technicalIssue,omitempty"`
	FinancialIssue       *PendingIssue      `json:"financialIssue,omitempty"`
	CommerciallyRelevant bool               `json:"commerciallyRelevant,omitempty"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}
