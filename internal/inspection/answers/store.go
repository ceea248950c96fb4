// Package answers holds the per-session response store: the mutable mapping
// from question to answer for each loaded questionnaire. It is owned by one
// form session, mutated only by direct user interaction, and discarded after
// a successful submission.
package answers

import (
	"sync"

	"fieldservice-inspection/internal/inspection/form"
)

// Answer is the tagged union of generic answer values, keyed by the owning
// question's response type. Photo evidence and signatures have their own
// capture mechanisms and live outside this union.
type Answer struct {
	Type form.ResponseType `json:"type"`
	// Text carries the value for boolean, trueFalse, freeText and numeric
	// questions. Choice answers are compared against "unset", not truthiness,
	// so a falsy-looking label still counts as answered.
	Text string `json:"text,omitempty"`
	// Flag carries the value for flag questions.
	Flag bool `json:"flag,omitempty"`
}

// TextAnswer builds an answer for the string-valued response types.
func TextAnswer(t form.ResponseType, value string) Answer {
	return Answer{Type: t, Text: value}
}

// FlagAnswer builds an answer for a flag question.
func FlagAnswer(value bool) Answer {
	return Answer{Type: form.TypeFlag, Flag: value}
}

// Store maps questionnaireID -> questionID -> answer, with a parallel map for
// signature rasters (produced by the drawing surface, stored as encoded data).
// Safe for concurrent use: mutations arrive from request goroutines while
// validation reads the same maps.
type Store struct {
	mu         sync.RWMutex
	values     map[string]map[string]Answer
	signatures map[string]map[string]string
}

func NewStore() *Store {
	return &Store{
		values:     make(map[string]map[string]Answer),
		signatures: make(map[string]map[string]string),
	}
}

// Set records an answer for a question. It replaces any previous answer.
func (s *Store) Set(questionnaireID, questionID string, a Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.values[questionnaireID]
	if !ok {
		m = make(map[string]Answer)
		s.values[questionnaireID] = m
	}
	m[questionID] = a
}

// Get returns the answer for a question, if one was recorded.
func (s *Store) Get(questionnaireID, questionID string) (Answer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.values[questionnaireID][questionID]
	return a, ok
}

// All returns the recorded answers for one questionnaire.
func (s *Store) All(questionnaireID string) map[string]Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Answer, len(s.values[questionnaireID]))
	for k, v := range s.values[questionnaireID] {
		out[k] = v
	}
	return out
}

// SetSignature records the encoded signature raster for a question.
func (s *Store) SetSignature(questionnaireID, questionID, encoded string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.signatures[questionnaireID]
	if !ok {
		m = make(map[string]string)
		s.signatures[questionnaireID] = m
	}
	m[questionID] = encoded
}

// Signature returns the encoded signature raster for a question.
func (s *Store) Signature(questionnaireID, questionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.signatures[questionnaireID][questionID]
	return v, ok
}

// ClearSignature invalidates the stored signature answer. Clearing the visible
// raster alone is not enough: a cleared-looking signature must not validate as
// answered.
func (s *Store) ClearSignature(questionnaireID, questionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.signatures[questionnaireID], questionID)
}

// Signatures returns the recorded signatures for one questionnaire.
func (s *Store) Signatures(questionnaireID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.signatures[questionnaireID]))
	for k, v := range s.signatures[questionnaireID] {
		out[k] = v
	}
	return out
}

// Seed pre-populates answers from a previously partially-submitted record.
func (s *Store) Seed(questionnaireID string, values map[string]Answer, signatures map[string]string) {
	for id, a := range values {
		s.Set(questionnaireID, id, a)
	}
	for id, sig := range signatures {
		s.SetSignature(questionnaireID, id, sig)
	}
}
