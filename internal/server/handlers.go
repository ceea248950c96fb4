package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	stderrors "fieldservice-inspection/internal/common/errors"
	"fieldservice-inspection/internal/inspection/answers"
	"fieldservice-inspection/internal/inspection/finalize"
	"fieldservice-inspection/internal/inspection/form"
	"fieldservice-inspection/internal/inspection/staging"
	"fieldservice-inspection/internal/inspection/validate"
)

type sessionView struct {
	TicketID       string                `json:"ticketId"`
	Questionnaires []*form.Questionnaire `json:"questionnaires"`
	CurrentIndex   int                   `json:"currentIndex"`
	AtFinalization bool                  `json:"atFinalization"`
	Submitted      bool                  `json:"submitted"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, sess.TicketID, r.PathValue("token"))
}

type answerRequest struct {
	QuestionnaireID string            `json:"questionnaireId"`
	QuestionID      string            `json:"questionId"`
	ResponseType    form.ResponseType `json:"responseType"`
	Text            string            `json:"text,omitempty"`
	Flag            bool              `json:"flag,omitempty"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if sess.Submitted() {
		s.writeError(w, stderrors.NewSessionClosedError())
		return
	}

	var a answers.Answer
	if req.ResponseType == form.TypeFlag {
		a = answers.FlagAnswer(req.Flag)
	} else {
		a = answers.TextAnswer(req.ResponseType, req.Text)
	}
	sess.Responses().Set(req.QuestionnaireID, req.QuestionID, a)
	w.WriteHeader(http.StatusNoContent)
}

type signatureRequest struct {
	QuestionnaireID string `json:"questionnaireId"`
	QuestionID      string `json:"questionId"`
	// Image is the committed raster as a PNG data URL; empty clears the slot.
	Image string `json:"image"`
}

func (s *Server) handleSignature(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req signatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if sess.Submitted() {
		s.writeError(w, stderrors.NewSessionClosedError())
		return
	}

	if req.Image == "" {
		sess.Responses().ClearSignature(req.QuestionnaireID, req.QuestionID)
	} else {
		sess.Responses().SetSignature(req.QuestionnaireID, req.QuestionID, req.Image)
	}
	w.WriteHeader(http.StatusNoContent)
}

type photoRequest struct {
	QuestionnaireID string `json:"questionnaireId"`
	QuestionID      string `json:"questionId"`
	ContentType     string `json:"contentType"`
	Data            string `json:"data"` // base64
}

func (s *Server) handleAddPhotos(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var reqs []photoRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if sess.Submitted() {
		s.writeError(w, stderrors.NewSessionClosedError())
		return
	}

	var previews []staging.Preview
	for _, req := range reqs {
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			http.Error(w, "invalid photo encoding", http.StatusBadRequest)
			return
		}
		previews = append(previews, sess.Photos().Add(
			req.QuestionnaireID, req.QuestionID,
			staging.Photo{Data: data, ContentType: req.ContentType},
		)...)
	}
	s.writeJSON(w, http.StatusOK, previews)
}

type photoRemoveRequest struct {
	QuestionnaireID string `json:"questionnaireId"`
	QuestionID      string `json:"questionId"`
	Index           int    `json:"index"`
}

func (s *Server) handleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req photoRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if sess.Submitted() {
		s.writeError(w, stderrors.NewSessionClosedError())
		return
	}
	if err := sess.Photos().Remove(req.QuestionnaireID, req.QuestionID, req.Index); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.Next(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, sess.TicketID, r.PathValue("token"))
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.Previous(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, sess.TicketID, r.PathValue("token"))
}

type finalizeResponse struct {
	Proceeded  bool                 `json:"proceeded"`
	Violations []validate.Violation `json:"violations,omitempty"`
	Summary    string               `json:"summary,omitempty"`
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	violations, err := sess.ProceedToFinalization()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(violations) > 0 {
		s.writeJSON(w, http.StatusConflict, finalizeResponse{
			Violations: violations,
			Summary:    validate.Summarize(violations, s.engCfg.ViolationDisplayLimit),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, finalizeResponse{Proceeded: true})
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess.ReturnFromFinalization()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDisposition(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var d finalize.Disposition
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := sess.SetDisposition(d); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.pipeline.Submit(r.Context(), sess); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"submitted": true})
}

func (s *Server) writeSession(w http.ResponseWriter, ticketID, tokenValue string) {
	s.mu.Lock()
	sess := s.sessions[tokenValue]
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, sessionView{
		TicketID:       ticketID,
		Questionnaires: sess.Questionnaires(),
		CurrentIndex:   sess.CurrentIndex(),
		AtFinalization: sess.AtFinalization(),
		Submitted:      sess.Submitted(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses: access errors are
// terminal (410), validation/state errors block a transition (409/422), and
// transport errors surface a retryable failure (502).
func (s *Server) writeError(w http.ResponseWriter, err error) {
	se, ok := err.(*stderrors.StandardError)
	if !ok {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	status := http.StatusBadGateway
	switch {
	case stderrors.IsAccessError(se):
		status = http.StatusGone
	case se.Code == stderrors.ErrCodeSubmissionInFlight, se.Code == stderrors.ErrCodeSessionClosed:
		status = http.StatusConflict
	case se.Code == stderrors.ErrCodeInvalidDisposition:
		status = http.StatusUnprocessableEntity
	}

	s.writeJSON(w, status, se)
}
