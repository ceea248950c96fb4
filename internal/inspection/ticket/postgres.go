package ticket

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	stderrors "fieldservice-inspection/internal/common/errors"
	"fieldservice-inspection/internal/common/logger"
)

// PostgresStore persists tickets as JSONB documents in the back office's
// ticket table. Status is lifted into its own column so list screens can
// filter without unpacking the document.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: log}
}

// ticketDoc is the JSONB payload; id/tenant/status live in columns.
type ticketDoc struct {
	Submissions          []SubmissionRecord `json:"submissions,omitempty"`
	TechnicalIssue       *PendingIssue      `json:"technicalIssue,omitempty"`
	FinancialIssue       *PendingIssue      `json:"financialIssue,omitempty"`
	CommerciallyRelevant bool               `json:"commerciallyRelevant,omitempty"`
}

func (s *PostgresStore) Get(ctx context.Context, tenantID, id string) (*Ticket, error) {
	var (
		status    string
		rawDoc    []byte
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT status, doc, updated_at FROM tickets WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&status, &rawDoc, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, stderrors.NewTicketNotFoundError(id)
	}
	if err != nil {
		return nil, stderrors.NewTicketReadFailedError(id, err)
	}

	var doc ticketDoc
	if len(rawDoc) > 0 {
		if err := json.Unmarshal(rawDoc, &doc); err != nil {
			return nil, stderrors.NewTicketReadFailedError(id, fmt.Errorf("decode doc: %w", err))
		}
	}

	return &Ticket{
		ID:                   id,
		TenantID:             tenantID,
		Status:               Status(status),
		Submissions:          doc.Submissions,
		TechnicalIssue:       doc.TechnicalIssue,
		FinancialIssue:       doc.FinancialIssue,
		CommerciallyRelevant: doc.CommerciallyRelevant,
		UpdatedAt:            updatedAt,
	}, nil
}

// Update writes the new status and document in one statement.
func (s *PostgresStore) Update(ctx context.Context, t *Ticket) error {
	doc := ticketDoc{
		Submissions:          t.Submissions,
		TechnicalIssue:       t.TechnicalIssue,
		FinancialIssue:       t.FinancialIssue,
		CommerciallyRelevant: t.CommerciallyRelevant,
	}
	rawDoc, err := json.Marshal(doc)
	if err != nil {
		return stderrors.NewTicketWriteFailedError(t.ID, fmt.Errorf("encode doc: %w", err))
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET status = $1, doc = $2, updated_at = NOW() WHERE tenant_id = $3 AND id = $4`,
		string(t.Status), rawDoc, t.TenantID, t.ID,
	)
	if err != nil {
		return stderrors.NewTicketWriteFailedError(t.ID, err)
	}
	rows, err := res.RowsAffected()
	if err == nil && rows == 0 {
		return stderrors.NewTicketNotFoundError(t.ID)
	}

	s.logger.Info("Ticket updated", map[string]interface{}{
		"ticketId": t.ID,
		"status":   string(t.Status),
	})
	return nil
}
