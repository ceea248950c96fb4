package definition

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	stderrors "fieldservice-inspection/internal/common/errors"
	"fieldservice-inspection/internal/inspection/form"
)

// PostgresStore reads definition documents from the back office's
// questionnaire table. Rows failing schema validation are rejected rather
// than handed to the engine half-parsed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, tenantID, questionnaireID string) (*form.Questionnaire, error) {
	var rawDoc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM questionnaire_definitions WHERE tenant_id = $1 AND id = $2`,
		tenantID, questionnaireID,
	).Scan(&rawDoc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, stderrors.NewDefinitionFetchFailedError(questionnaireID, err)
	}

	if err := ValidateDocument(rawDoc); err != nil {
		return nil, stderrors.NewInvalidDefinitionError(questionnaireID, err.Error())
	}

	var q form.Questionnaire
	if err := json.Unmarshal(rawDoc, &q); err != nil {
		return nil, stderrors.NewDefinitionFetchFailedError(questionnaireID, fmt.Errorf("decode: %w", err))
	}
	return &q, nil
}
