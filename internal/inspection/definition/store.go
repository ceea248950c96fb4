// Package definition loads questionnaire definitions. Definitions are owned
// by the back office and read-only here; a missing definition for a requested
// id means "skip it", not a hard failure.
package definition

import (
	"context"
	"errors"

	"fieldservice-inspection/internal/inspection/form"
)

// ErrNotFound signals an absent definition; callers skip the questionnaire.
var ErrNotFound = errors.New("questionnaire definition not found")

// Store fetches one questionnaire definition by tenant and id.
type Store interface {
	Get(ctx context.Context, tenantID, questionnaireID string) (*form.Questionnaire, error)
}
