// Package validate computes the set of required-but-unanswered questions for
// a session. Validation never mutates the response store and never fails with
// an error; its output is a computed value the caller uses to gate the
// transition into finalization.
package validate

import (
	"fmt"
	"strings"

	"fieldservice-inspection/internal/inspection/answers"
	"fieldservice-inspection/internal/inspection/form"
	"fieldservice-inspection/internal/inspection/staging"
)

// DefaultSignatureMinBytes is the encoded-length floor below which a
// signature raster counts as unanswered. An all-white canvas still produces a
// short non-empty encoding, so a length floor, not exact emptiness, is the
// correct test. A blank 300x150 surface encodes to just under 700 bytes and a
// modest real stroke to well over 900; the floor sits between the two.
const DefaultSignatureMinBytes = 800

// Violation names one required question left unanswered.
type Violation struct {
	QuestionID        string `json:"questionId"`
	QuestionTitle     string `json:"questionTitle"`
	QuestionnaireID   string `json:"questionnaireId"`
	QuestionnaireName string `json:"questionnaireName"`
}

// Label renders the violation for display.
func (v Violation) Label() string {
	return fmt.Sprintf("%q in %q", v.QuestionTitle, v.QuestionnaireName)
}

// Engine evaluates required-answer gaps against a response store.
type Engine struct {
	// SignatureMinBytes overrides DefaultSignatureMinBytes when positive.
	SignatureMinBytes int
}

// Gaps returns the violations for one questionnaire in flattened (pre-order)
// question order. Running it twice on the same unmodified stores yields the
// identical list.
func (e *Engine) Gaps(q *form.Questionnaire, resp *answers.Store, photos *staging.Store) []Violation {
	var out []Violation
	for _, node := range q.Flatten() {
		if !node.Required {
			continue
		}
		if !e.answered(q.ID, node, resp, photos) {
			out = append(out, Violation{
				QuestionID:        node.ID,
				QuestionTitle:     node.Title,
				QuestionnaireID:   q.ID,
				QuestionnaireName: q.Name,
			})
		}
	}
	return out
}

// GapsAll evaluates every loaded questionnaire, in questionnaire order.
func (e *Engine) GapsAll(qs []*form.Questionnaire, resp *answers.Store, photos *staging.Store) []Violation {
	var out []Violation
	for _, q := range qs {
		out = append(out, e.Gaps(q, resp, photos)...)
	}
	return out
}

func (e *Engine) answered(questionnaireID string, node form.Question, resp *answers.Store, photos *staging.Store) bool {
	switch node.ResponseType {
	case form.TypeFreeText, form.TypeNumeric:
		a, ok := resp.Get(questionnaireID, node.ID)
		return ok && strings.TrimSpace(a.Text) != ""

	case form.TypeBoolean, form.TypeTrueFalse:
		// Answered iff a value was set. The chosen label may look falsy
		// ("no", "false"); presence, not truthiness, decides.
		a, ok := resp.Get(questionnaireID, node.ID)
		return ok && a.Text != ""

	case form.TypeFlag:
		// A mandatory checkbox must be checked: false counts as unanswered.
		a, ok := resp.Get(questionnaireID, node.ID)
		return ok && a.Flag

	case form.TypePhotoSet:
		return photos.Count(questionnaireID, node.ID) > 0

	case form.TypeSignature:
		sig, ok := resp.Signature(questionnaireID, node.ID)
		return ok && len(sig) >= e.signatureFloor()

	default:
		// Unknown response types never block; definitions are validated
		// against the schema before reaching the engine.
		return true
	}
}

func (e *Engine) signatureFloor() int {
	if e.SignatureMinBytes > 0 {
		return e.SignatureMinBytes
	}
	return DefaultSignatureMinBytes
}

// Summarize renders at most limit violation labels plus a remainder count.
// Truncation is presentation only; all violations are still computed.
func Summarize(violations []Violation, limit int) string {
	if len(violations) == 0 {
		return ""
	}
	if limit <= 0 || limit > len(violations) {
		limit = len(violations)
	}
	labels := make([]string, 0, limit)
	for _, v := range violations[:limit] {
		labels = append(labels, v.Label())
	}
	msg := "Required answers missing: " + strings.Join(labels, ", ")
	if rest := len(violations) - limit; rest > 0 {
		msg += fmt.Sprintf(" and %d more", rest)
	}
	return msg
}
