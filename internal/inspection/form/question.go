// Package form holds the questionnaire definition model: a named, ordered
// tree of typed questions. Definitions are immutable once loaded.
package form

// ResponseType identifies the kind of answer a question collects.
type ResponseType string

const (
	TypeBoolean   ResponseType = "boolean"
	TypeTrueFalse ResponseType = "trueFalse"
	TypeFreeText  ResponseType = "freeText"
	TypeNumeric   ResponseType = "numeric"
	TypeFlag      ResponseType = "flag"
	TypePhotoSet  ResponseType = "photoSet"
	TypeSignature ResponseType = "signature"
)

// Question is a node in the questionnaire tree. Nesting is unbounded; a
// parent's required-ness is independent of its children's. IDs must be unique
// across the flattened tree because answers are keyed by ID regardless of depth.
type Question struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	HelpText     string       `json:"helpText,omitempty"`
	ResponseType ResponseType `json:"responseType"`
	Required     bool         `json:"required"`
	Children     []Question   `json:"children,omitempty"`
}

// Questionnaire is a named, ordered tree of questions assigned to one
// inspection session.
type Questionnaire struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Flatten returns the pre-order flattening of the questionnaire: each parent
// strictly before all of its descendants, siblings in declared order. The
// flattened order is the evaluation order for validation and, implicitly, the
// order violations are reported in.
func (q *Questionnaire) Flatten() []Question {
	var out []Question
	for i := range q.Questions {
		out = appendFlattened(out, &q.Questions[i])
	}
	return out
}

func appendFlattened(out []Question, node *Question) []Question {
	out = append(out, *node)
	for i := range node.Children {
		out = appendFlattened(out, &node.Children[i])
	}
	return out
}

// QuestionByID returns the flattened question with the given ID.
func (q *Questionnaire) QuestionByID(id string) (Question, bool) {
	for _, node := range q.Flatten() {
		if node.ID == id {
			return node, true
		}
	}
	return Question{}, false
}
