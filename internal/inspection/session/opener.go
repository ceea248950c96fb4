package session

import (
	"context"
	"errors"
	"fmt"

	stderrors "fieldservice-inspection/internal/common/errors"
	"fieldservice-inspection/internal/common/logger"
	"fieldservice-inspection/internal/common/metrics"
	"fieldservice-inspection/internal/inspection/answers"
	"fieldservice-inspection/internal/inspection/definition"
	"fieldservice-inspection/internal/inspection/form"
	"fieldservice-inspection/internal/inspection/ticket"
	"fieldservice-inspection/internal/inspection/token"
	"fieldservice-inspection/internal/inspection/validate"
)

// Opener resolves a public token into a live session: token grant, ticket
// fillability check, then definition load (skipping missing ids).
type Opener struct {
	Tokens      token.Resolver
	Definitions definition.Store
	Tickets     ticket.Store
	Validator   *validate.Engine
	Logger      logger.Logger
}

// Open builds the session for a public token. Access errors (unknown token,
// closed ticket, no definitions at all) are terminal for the link.
func (o *Opener) Open(ctx context.Context, tokenValue string) (*Session, error) {
	grant, err := o.Tokens.Resolve(ctx, tokenValue)
	if err != nil {
		return nil, err
	}

	t, err := o.Tickets.Get(ctx, grant.TenantID, grant.TicketID)
	if err != nil {
		return nil, err
	}
	if !t.Status.Fillable() {
		return nil, stderrors.NewTicketFinalizedError(t.ID, string(t.Status))
	}

	var loaded []*form.Questionnaire
	for _, id := range grant.QuestionnaireIDs {
		q, err := o.Definitions.Get(ctx, grant.TenantID, id)
		if errors.Is(err, definition.ErrNotFound) {
			o.Logger.Warn("Questionnaire definition missing, skipping", map[string]interface{}{
				"questionnaireId": id,
				"ticketId":        grant.TicketID,
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, q)
	}
	if len(loaded) == 0 {
		return nil, stderrors.NewNoDefinitionsError(
			fmt.Sprintf("ticketId: %s, requested: %d", grant.TicketID, len(grant.QuestionnaireIDs)))
	}

	o.Logger.Info("Session opened", map[string]interface{}{
		"ticketId":       grant.TicketID,
		"questionnaires": len(loaded),
	})
	metrics.SessionsOpened.Inc()

	sess := New(tokenValue, grant.TicketID, grant.TenantID, loaded, o.Validator)
	seedFromHistory(sess, t)
	return sess, nil
}

// seedFromHistory pre-populates the response store from the ticket's most
// recent prior submission of each loaded questionnaire, so a reopened link
// (e.g. after an interrupted visit) does not start from a blank form. Photo
// evidence is not reconstructed: staged photos were never persisted and
// uploaded ones already live on the earlier record.
func seedFromHistory(sess *Session, t *ticket.Ticket) {
	for _, q := range sess.questionnaires {
		var rec *ticket.SubmissionRecord
		for i := range t.Submissions {
			if t.Submissions[i].QuestionnaireID == q.ID {
				rec = &t.Submissions[i]
			}
		}
		if rec == nil {
			continue
		}

		values := make(map[string]answers.Answer, len(rec.Answers))
		for id, v := range rec.Answers {
			node, ok := q.QuestionByID(id)
			if !ok {
				continue
			}
			switch val := v.(type) {
			case bool:
				values[id] = answers.FlagAnswer(val)
			case string:
				values[id] = answers.TextAnswer(node.ResponseType, val)
			}
		}
		sess.responses.Seed(q.ID, values, rec.Signatures)
	}
}
