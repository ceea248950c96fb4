// Package errors provides standardized error handling for the inspection engine.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Access errors: terminal, never retried, rendered as a full-page state.
	ErrCodeTokenNotFound   ErrorCode = "TOKEN_NOT_FOUND"
	ErrCodeTicketNotFound  ErrorCode = "TICKET_NOT_FOUND"
	ErrCodeTicketFinalized ErrorCode = "TICKET_FINALIZED"
	ErrCodeNoDefinitions   ErrorCode = "NO_DEFINITIONS"

	// Transport/storage errors: retryable, the session keeps its state.
	ErrCodeTokenLookupFailed     ErrorCode = "TOKEN_LOOKUP_FAILED"
	ErrCodeDefinitionFetchFailed ErrorCode = "DEFINITION_FETCH_FAILED"
	ErrCodeUploadFailed          ErrorCode = "UPLOAD_FAILED"
	ErrCodeTicketReadFailed      ErrorCode = "TICKET_READ_FAILED"
	ErrCodeTicketWriteFailed     ErrorCode = "TICKET_WRITE_FAILED"

	// Local state errors.
	ErrCodeSubmissionInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeSessionClosed      ErrorCode = "SESSION_CLOSED"
	ErrCodeInvalidDefinition  ErrorCode = "INVALID_DEFINITION"
	ErrCodeInvalidDisposition ErrorCode = "INVALID_DISPOSITION"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsAccessError reports whether the error is terminal for the session.
func IsAccessError(err error) bool {
	se, ok := err.(*StandardError)
	if !ok {
		return false
	}
	switch se.Code {
	case ErrCodeTokenNotFound, ErrCodeTicketNotFound, ErrCodeTicketFinalized, ErrCodeNoDefinitions:
		return true
	}
	return false
}

// NewTokenNotFoundError creates a non-retryable access error for an unknown token.
func NewTokenNotFoundError(token string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenNotFound,
		Message:   "Inspection link is invalid or expired",
		Details:   fmt.Sprintf("token: %s", token),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketNotFoundError creates a non-retryable access error for a missing ticket.
func NewTicketNotFoundError(ticketID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTicketNotFound,
		Message:   "Service ticket not found",
		Details:   fmt.Sprintf("ticketId: %s", ticketID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketFinalizedError creates a non-retryable access error for a closed ticket.
func NewTicketFinalizedError(ticketID, status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTicketFinalized,
		Message:   "Service ticket is no longer fillable",
		Details:   fmt.Sprintf("ticketId: %s, status: %s", ticketID, status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoDefinitionsError creates a non-retryable access error when every
// assigned questionnaire definition is missing.
func NewNoDefinitionsError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoDefinitions,
		Message:   "No questionnaire definitions available for this session",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenLookupFailedError creates a retryable token resolver error.
func NewTokenLookupFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenLookupFailed,
		Message:   "Token lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDefinitionFetchFailedError creates a retryable definition store error.
func NewDefinitionFetchFailedError(questionnaireID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDefinitionFetchFailed,
		Message:   "Questionnaire definition fetch failed",
		Details:   fmt.Sprintf("questionnaireId: %s, error: %s", questionnaireID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadFailedError creates a retryable object storage error.
func NewUploadFailedError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadFailed,
		Message:   "Photo upload failed",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketReadFailedError creates a retryable ticket store read error.
func NewTicketReadFailedError(ticketID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTicketReadFailed,
		Message:   "Ticket read failed",
		Details:   fmt.Sprintf("ticketId: %s, error: %s", ticketID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketWriteFailedError creates a retryable ticket store write error.
func NewTicketWriteFailedError(ticketID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTicketWriteFailed,
		Message:   "Ticket update failed",
		Details:   fmt.Sprintf("ticketId: %s, error: %s", ticketID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionInFlightError rejects a second submission attempt while one is active.
func NewSubmissionInFlightError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInFlight,
		Message:   "A submission is already in progress",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionClosedError rejects interaction with a session that already submitted.
func NewSessionClosedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionClosed,
		Message:   "Session already submitted",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidDefinitionError creates a non-retryable error for a definition
// document that fails schema validation.
func NewInvalidDefinitionError(questionnaireID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidDefinition,
		Message:   "Questionnaire definition failed schema validation",
		Details:   fmt.Sprintf("questionnaireId: %s, %s", questionnaireID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidDispositionError creates a non-retryable error for an incomplete disposition.
func NewInvalidDispositionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidDisposition,
		Message:   "Finalization disposition is incomplete",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
