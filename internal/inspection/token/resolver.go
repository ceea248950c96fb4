// Package token resolves public inspection links. A token is an opaque string
// granting access to exactly one ticket's questionnaire session without
// authentication.
package token

import "context"

// Grant is what a valid token unlocks.
type Grant struct {
	TicketID         string   `json:"ticketId"`
	TenantID         string   `json:"tenantId"`
	QuestionnaireIDs []string `json:"questionnaireIds"`
}

// Resolver maps an opaque public token to its grant. An unknown token yields
// a TOKEN_NOT_FOUND access error; the caller renders a terminal invalid-link
// state in that case.
type Resolver interface {
	Resolve(ctx context.Context, tokenValue string) (*Grant, error)
}
