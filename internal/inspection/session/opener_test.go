package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "fieldservice-inspection/internal/common/errors"
	"fieldservice-inspection/internal/common/logger"
	"fieldservice-inspection/internal/inspection/definition"
	"fieldservice-inspection/internal/inspection/form"
	"fieldservice-inspection/internal/inspection/ticket"
	"fieldservice-inspection/internal/inspection/token"
	"fieldservice-inspection/internal/inspection/validate"
)

type stubResolver struct {
	grants map[string]*token.Grant
}

func (r *stubResolver) Resolve(_ context.Context, tokenValue string) (*token.Grant, error) {
	g, ok := r.grants[tokenValue]
	if !ok {
		return nil, stderrors.NewTokenNotFoundError(tokenValue)
	}
	return g, nil
}

type stubDefinitions struct {
	defs map[string]*form.Questionnaire
	err  error
}

func (s *stubDefinitions) Get(_ context.Context, _, questionnaireID string) (*form.Questionnaire, error) {
	if s.err != nil {
		return nil, s.err
	}
	q, ok := s.defs[questionnaireID]
	if !ok {
		return nil, definition.ErrNotFound
	}
	return q, nil
}

type stubTickets struct {
	ticket *ticket.Ticket
	err    error
}

func (s *stubTickets) Get(_ context.Context, _, id string) (*ticket.Ticket, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.ticket == nil || s.ticket.ID != id {
		return nil, stderrors.NewTicketNotFoundError(id)
	}
	return s.ticket, nil
}

func (s *stubTickets) Update(_ context.Context, t *ticket.Ticket) error {
	s.ticket = t
	return nil
}

func testOpener(t *testing.T) *Opener {
	return &Opener{
		Tokens: &stubResolver{grants: map[string]*token.Grant{
			"tok-1": {TicketID: "ticket-1", TenantID: "tenant-1", QuestionnaireIDs: []string{"qn1", "qn2"}},
		}},
		Definitions: &stubDefinitions{defs: map[string]*form.Questionnaire{
			"qn1": {ID: "qn1", Name: "First"},
			"qn2": {ID: "qn2", Name: "Second"},
		}},
		Tickets:   &stubTickets{ticket: &ticket.Ticket{ID: "ticket-1", TenantID: "tenant-1", Status: ticket.StatusScheduled}},
		Validator: &validate.Engine{},
		Logger:    logger.NewTestLogger(t),
	}
}

func TestOpener_Open(t *testing.T) {
	o := testOpener(t)

	sess, err := o.Open(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "ticket-1", sess.TicketID)
	assert.Equal(t, "tenant-1", sess.TenantID)
	require.Len(t, sess.Questionnaires(), 2)
	assert.Equal(t, "qn1", sess.Questionnaires()[0].ID)
	assert.False(t, sess.AtFinalization())
}

func TestOpener_Open_UnknownToken(t *testing.T) {
	o := testOpener(t)

	_, err := o.Open(context.Background(), "bogus")
	require.Error(t, err)
	assert.True(t, stderrors.IsAccessError(err))
}

func TestOpener_Open_FinalizedTicket(t *testing.T) {
	o := testOpener(t)
	o.Tickets = &stubTickets{ticket: &ticket.Ticket{ID: "ticket-1", Status: ticket.StatusCompleted}}

	_, err := o.Open(context.Background(), "tok-1")
	require.Error(t, err)
	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeTicketFinalized, se.Code)
}

func TestOpener_Open_SkipsMissingDefinitions(t *testing.T) {
	o := testOpener(t)
	o.Definitions = &stubDefinitions{defs: map[string]*form.Questionnaire{
		"qn2": {ID: "qn2", Name: "Second"},
	}}

	sess, err := o.Open(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Len(t, sess.Questionnaires(), 1)
	assert.Equal(t, "qn2", sess.Questionnaires()[0].ID)
}

func TestOpener_Open_NoDefinitionsAtAll(t *testing.T) {
	o := testOpener(t)
	o.Definitions = &stubDefinitions{defs: map[string]*form.Questionnaire{}}

	_, err := o.Open(context.Background(), "tok-1")
	require.Error(t, err)
	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeNoDefinitions, se.Code)
}

func TestOpener_Open_SeedsFromPriorSubmission(t *testing.T) {
	o := testOpener(t)
	o.Definitions = &stubDefinitions{defs: map[string]*form.Questionnaire{
		"qn1": {ID: "qn1", Name: "First", Questions: []form.Question{
			{ID: "powered", Title: "Unit powered on", ResponseType: form.TypeBoolean},
			{ID: "terms", Title: "Terms accepted", ResponseType: form.TypeFlag},
			{ID: "sig", Title: "Client signature", ResponseType: form.TypeSignature},
		}},
	}}
	o.Tickets = &stubTickets{ticket: &ticket.Ticket{
		ID:     "ticket-1",
		Status: ticket.StatusInProgress,
		Submissions: []ticket.SubmissionRecord{
			{
				QuestionnaireID: "qn1",
				Answers:         map[string]interface{}{"powered": "no"},
			},
			// The later record for the same questionnaire wins.
			{
				QuestionnaireID: "qn1",
				Answers: map[string]interface{}{
					"powered": "yes",
					"terms":   true,
					"ghost":   "dropped", // no matching question, skipped
				},
				Signatures: map[string]string{"sig": "data:image/png;base64,AAAA"},
			},
		},
	}}

	sess, err := o.Open(context.Background(), "tok-1")
	require.NoError(t, err)

	a, ok := sess.Responses().Get("qn1", "powered")
	require.True(t, ok)
	assert.Equal(t, form.TypeBoolean, a.Type)
	assert.Equal(t, "yes", a.Text)

	a, ok = sess.Responses().Get("qn1", "terms")
	require.True(t, ok)
	assert.True(t, a.Flag)

	_, ok = sess.Responses().Get("qn1", "ghost")
	assert.False(t, ok)

	sig, ok := sess.Responses().Signature("qn1", "sig")
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,AAAA", sig)
}

func TestOpener_Open_NoHistoryStartsBlank(t *testing.T) {
	o := testOpener(t)

	sess, err := o.Open(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Empty(t, sess.Responses().All("qn1"))
	assert.Empty(t, sess.Responses().Signatures("qn1"))
}

func TestOpener_Open_DefinitionFetchFailure(t *testing.T) {
	o := testOpener(t)
	o.Definitions = &stubDefinitions{err: fmt.Errorf("connection refused")}

	_, err := o.Open(context.Background(), "tok-1")
	require.Error(t, err)
	// A transport failure is retryable, not a terminal access error.
	assert.False(t, stderrors.IsAccessError(err))
}
