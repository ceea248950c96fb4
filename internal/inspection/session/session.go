// Package session owns the state of one form session: which questionnaire is
// visible, the response store, the finalization disposition and the
// submission lifecycle guard. It replaces the original component-local UI
// state with an explicit object the caller holds for the session's lifetime.
package session

import (
	"fmt"
	"sync"

	stderrors "fieldservice-inspection/internal/common/errors"
	"fieldservice-inspection/internal/inspection/answers"
	"fieldservice-inspection/internal/inspection/finalize"
	"fieldservice-inspection/internal/inspection/form"
	"fieldservice-inspection/internal/inspection/staging"
	"fieldservice-inspection/internal/inspection/validate"
)

// Session is one technician's pass over the questionnaires assigned to one
// ticket. It is terminal after a successful submission: no further
// transitions are possible and a second attempt fails fast.
type Session struct {
	mu sync.Mutex

	Token    string
	TicketID string
	TenantID string

	questionnaires []*form.Questionnaire
	responses      *answers.Store
	photos         *staging.Store
	validator      *validate.Engine

	currentIndex   int
	atFinalization bool
	disposition    *finalize.Disposition
	submitting     bool
	submitted      bool
}

// New builds a session over the loaded questionnaires with empty (or
// pre-seeded) stores.
func New(tokenValue, ticketID, tenantID string, qs []*form.Questionnaire, validator *validate.Engine) *Session {
	if validator == nil {
		validator = &validate.Engine{}
	}
	return &Session{
		Token:          tokenValue,
		TicketID:       ticketID,
		TenantID:       tenantID,
		questionnaires: qs,
		responses:      answers.NewStore(),
		photos:         staging.NewStore(),
		validator:      validator,
	}
}

// Questionnaires returns the loaded questionnaires in session order.
func (s *Session) Questionnaires() []*form.Questionnaire {
	return s.questionnaires
}

// Responses exposes the response store for user-input mutation.
func (s *Session) Responses() *answers.Store {
	return s.responses
}

// Photos exposes the staging store for user-input mutation.
func (s *Session) Photos() *staging.Store {
	return s.photos
}

// Current returns the questionnaire currently displayed.
func (s *Session) Current() *form.Questionnaire {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionnaires[s.currentIndex]
}

// CurrentIndex returns the index of the displayed questionnaire.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

// AtFinalization reports whether the session is on the finalization step.
func (s *Session) AtFinalization() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atFinalization
}

// Next moves to the following questionnaire. Movement between questionnaires
// is always allowed without validation; gaps are checked only on the
// transition into finalization.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return stderrors.NewSessionClosedError()
	}
	if s.currentIndex >= len(s.questionnaires)-1 {
		return fmt.Errorf("already at last questionnaire")
	}
	s.currentIndex++
	return nil
}

// Previous moves to the preceding questionnaire.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return stderrors.NewSessionClosedError()
	}
	if s.currentIndex <= 0 {
		return fmt.Errorf("already at first questionnaire")
	}
	s.currentIndex--
	return nil
}

// ProceedToFinalization validates ALL loaded questionnaires, not just the
// displayed one. If any required answer is missing the transition is refused
// and the full violation list is returned.
func (s *Session) ProceedToFinalization() ([]validate.Violation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return nil, stderrors.NewSessionClosedError()
	}

	violations := s.validator.GapsAll(s.questionnaires, s.responses, s.photos)
	if len(violations) > 0 {
		return violations, nil
	}

	s.atFinalization = true
	return nil, nil
}

// ReturnFromFinalization goes back to the questionnaires without clearing any
// collected disposition data.
func (s *Session) ReturnFromFinalization() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atFinalization = false
}

// SetDisposition replaces the active disposition wholesale: selecting a new
// kind discards the previous kind's sub-fields.
func (s *Session) SetDisposition(d finalize.Disposition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return stderrors.NewSessionClosedError()
	}
	if s.submitting {
		return stderrors.NewSubmissionInFlightError()
	}
	s.disposition = &d
	return nil
}

// Disposition returns the currently selected disposition.
func (s *Session) Disposition() (finalize.Disposition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposition == nil {
		return finalize.Disposition{}, false
	}
	return *s.disposition, true
}

// BeginSubmit acquires the single in-flight submission slot. The disposition
// must validate before the pipeline may start.
func (s *Session) BeginSubmit() (finalize.Disposition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return finalize.Disposition{}, stderrors.NewSessionClosedError()
	}
	if s.submitting {
		return finalize.Disposition{}, stderrors.NewSubmissionInFlightError()
	}
	if s.disposition == nil {
		return finalize.Disposition{}, stderrors.NewInvalidDispositionError("no disposition selected")
	}
	if err := s.disposition.Validate(); err != nil {
		return finalize.Disposition{}, err
	}
	s.submitting = true
	return *s.disposition, nil
}

// FailSubmit releases the in-flight slot after a failed attempt; session
// state is preserved so the user can retry without re-entering answers.
func (s *Session) FailSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
}

// CompleteSubmit marks the session terminal after a successful submission.
func (s *Session) CompleteSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.submitted = true
}

// Submitted reports whether the session reached its terminal state.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}
