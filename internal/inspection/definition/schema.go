package definition

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// questionnaireSchema validates a stored definition document before it is
// handed to the engine. The question node is recursive via $ref; depth is
// unbounded by design.
const questionnaireSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "questions"],
  "additionalProperties": false,
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "questions": {
      "type": "array",
      "items": {"$ref": "#/definitions/question"}
    }
  },
  "definitions": {
    "question": {
      "type": "object",
      "required": ["id", "title", "responseType"],
      "additionalProperties": false,
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "title": {"type": "string", "minLength": 1},
        "helpText": {"type": "string"},
        "responseType": {
          "type": "string",
          "enum": ["boolean", "trueFalse", "freeText", "numeric", "flag", "photoSet", "signature"]
        },
        "required": {"type": "boolean"},
        "children": {
          "type": "array",
          "items": {"$ref": "#/definitions/question"}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(questionnaireSchema)

// ValidateDocument checks a raw definition document against the schema and
// returns a readable description of every violation.
func ValidateDocument(doc []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("definition invalid: %s", strings.Join(msgs, "; "))
}
