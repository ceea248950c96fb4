package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-inspection/internal/common/config"
	stderrors "fieldservice-inspection/internal/common/errors"
	"fieldservice-inspection/internal/common/logger"
	"fieldservice-inspection/internal/inspection/definition"
	"fieldservice-inspection/internal/inspection/form"
	"fieldservice-inspection/internal/inspection/session"
	"fieldservice-inspection/internal/inspection/submit"
	"fieldservice-inspection/internal/inspection/ticket"
	"fieldservice-inspection/internal/inspection/token"
	"fieldservice-inspection/internal/inspection/validate"
)

type fakeResolver struct {
	grants map[string]*token.Grant
}

func (r *fakeResolver) Resolve(_ context.Context, tokenValue string) (*token.Grant, error) {
	g, ok := r.grants[tokenValue]
	if !ok {
		return nil, stderrors.NewTokenNotFoundError(tokenValue)
	}
	return g, nil
}

type fakeDefinitions struct {
	defs map[string]*form.Questionnaire
}

func (s *fakeDefinitions) Get(_ context.Context, _, questionnaireID string) (*form.Questionnaire, error) {
	q, ok := s.defs[questionnaireID]
	if !ok {
		return nil, definition.ErrNotFound
	}
	return q, nil
}

type fakeTickets struct {
	ticket  *ticket.Ticket
	updates int
}

func (s *fakeTickets) Get(_ context.Context, _, id string) (*ticket.Ticket, error) {
	if s.ticket == nil || s.ticket.ID != id {
		return nil, stderrors.NewTicketNotFoundError(id)
	}
	copied := *s.ticket
	return &copied, nil
}

func (s *fakeTickets) Update(_ context.Context, t *ticket.Ticket) error {
	s.updates++
	s.ticket = t
	return nil
}

type fakeStorage struct{ puts int }

func (f *fakeStorage) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.puts++
	return "https://bucket.example.com/" + key, nil
}

func inspectionQuestionnaire() *form.Questionnaire {
	return &form.Questionnaire{
		ID:   "qn1",
		Name: "Preventive Maintenance",
		Questions: []form.Question{
			{ID: "powered", Title: "Unit powered on", ResponseType: form.TypeBoolean, Required: true},
			{ID: "terms", Title: "Terms accepted", ResponseType: form.TypeFlag, Required: true},
			{ID: "evidence", Title: "Unit photos", ResponseType: form.TypePhotoSet, Required: true},
			{ID: "sig", Title: "Client signature", ResponseType: form.TypeSignature, Required: true},
		},
	}
}

func newTestServer(t *testing.T) (http.Handler, *fakeTickets) {
	t.Helper()
	log := logger.NewTestLogger(t)
	validator := &validate.Engine{SignatureMinBytes: 10}

	tickets := &fakeTickets{ticket: &ticket.Ticket{
		ID: "ticket-1", TenantID: "tenant-1", Status: ticket.StatusInProgress,
	}}

	opener := &session.Opener{
		Tokens: &fakeResolver{grants: map[string]*token.Grant{
			"tok-1": {TicketID: "ticket-1", TenantID: "tenant-1", QuestionnaireIDs: []string{"qn1"}},
		}},
		Definitions: &fakeDefinitions{defs: map[string]*form.Questionnaire{
			"qn1": inspectionQuestionnaire(),
		}},
		Tickets:   tickets,
		Validator: validator,
		Logger:    log,
	}

	pipeline := &submit.Pipeline{
		Storage: &fakeStorage{},
		Tickets: tickets,
		Logger:  log,
	}

	srv := New(opener, pipeline, config.EngineConfig{ViolationDisplayLimit: 3}, log, nil)
	return srv.Handler(), tickets
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_OpenSession(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/session/tok-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "ticket-1", view.TicketID)
	require.Len(t, view.Questionnaires, 1)
	assert.Equal(t, 0, view.CurrentIndex)
	assert.False(t, view.AtFinalization)
	assert.False(t, view.Submitted)
}

func TestServer_UnknownTokenIsGone(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/session/bogus", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestServer_FinalizeBlockedThenSubmit(t *testing.T) {
	h, tickets := newTestServer(t)

	// Finalize with nothing answered: blocked, violations listed.
	rec := doJSON(t, h, http.MethodPost, "/session/tok-1/finalize", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var blocked finalizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blocked))
	assert.False(t, blocked.Proceeded)
	assert.Len(t, blocked.Violations, 4)
	assert.Contains(t, blocked.Summary, "and 1 more")

	// Fill everything.
	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/answers", answerRequest{
		QuestionnaireID: "qn1", QuestionID: "powered",
		ResponseType: form.TypeBoolean, Text: "yes",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/answers", answerRequest{
		QuestionnaireID: "qn1", QuestionID: "terms",
		ResponseType: form.TypeFlag, Flag: true,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/signature", signatureRequest{
		QuestionnaireID: "qn1", QuestionID: "sig",
		Image: "data:image/png;base64,AAAAAAAAAAAAAAAA",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/photos", []photoRequest{{
		QuestionnaireID: "qn1", QuestionID: "evidence",
		ContentType: "image/jpeg",
		Data:        base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8}),
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	// Finalize now succeeds.
	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/finalize", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok finalizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.True(t, ok.Proceeded)

	// Disposition, then submit.
	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/disposition", map[string]string{
		"kind": "no-pendency",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, ticket.StatusCompleted, tickets.ticket.Status)
	require.Len(t, tickets.ticket.Submissions, 1)
	assert.Equal(t, "yes", tickets.ticket.Submissions[0].Answers["powered"])

	// The session is terminal: further input is rejected.
	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/answers", answerRequest{
		QuestionnaireID: "qn1", QuestionID: "powered",
		ResponseType: form.TypeBoolean, Text: "no",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Staged photos can no longer be edited either.
	rec = doJSON(t, h, http.MethodDelete, "/session/tok-1/photos", photoRemoveRequest{
		QuestionnaireID: "qn1", QuestionID: "evidence", Index: 0,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A second submit fails fast.
	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/submit", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, tickets.updates)
}

func TestServer_SubmitWithoutDisposition(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/session/tok-1/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_ClearSignature(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/session/tok-1/signature", signatureRequest{
		QuestionnaireID: "qn1", QuestionID: "sig",
		Image: "data:image/png;base64,AAAAAAAAAAAAAAAA",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Empty image clears the slot; the gap reappears.
	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/signature", signatureRequest{
		QuestionnaireID: "qn1", QuestionID: "sig", Image: "",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/finalize", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var blocked finalizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blocked))
	found := false
	for _, v := range blocked.Violations {
		if v.QuestionID == "sig" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestServer_PhotoRemove(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/session/tok-1/photos", []photoRequest{
		{QuestionnaireID: "qn1", QuestionID: "evidence", ContentType: "image/jpeg",
			Data: base64.StdEncoding.EncodeToString([]byte("a"))},
		{QuestionnaireID: "qn1", QuestionID: "evidence", ContentType: "image/jpeg",
			Data: base64.StdEncoding.EncodeToString([]byte("b"))},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/session/tok-1/photos", photoRemoveRequest{
		QuestionnaireID: "qn1", QuestionID: "evidence", Index: 0,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/session/tok-1/photos", photoRemoveRequest{
		QuestionnaireID: "qn1", QuestionID: "evidence", Index: 5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_NavigationBounds(t *testing.T) {
	h, _ := newTestServer(t)

	// Single questionnaire: both moves hit the bounds.
	rec := doJSON(t, h, http.MethodPost, "/session/tok-1/next", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/session/tok-1/previous", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_InvalidPayload(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/session/tok-1/answers", bytes.NewBufferString("{{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Health(t *testing.T) {
	log := logger.NewTestLogger(t)
	srv := New(&session.Opener{}, &submit.Pipeline{}, config.EngineConfig{}, log, map[string]Pinger{
		"ok": pingFunc(func(context.Context) error { return nil }),
	})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	srv = New(&session.Opener{}, &submit.Pipeline{}, config.EngineConfig{}, log, map[string]Pinger{
		"down": pingFunc(func(context.Context) error { return fmt.Errorf("unreachable") }),
	})
	rec = doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
