package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Messages flattens the result into "field: message" strings.
func (r *ValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return out
}

// Validate checks document against a JSON schema held as a Go map. document
// may be a Go value or raw JSON bytes.
func Validate(schema map[string]interface{}, document interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewGoLoader(schema)

	var documentLoader gojsonschema.JSONLoader
	switch doc := document.(type) {
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(doc)
	case json.RawMessage:
		documentLoader = gojsonschema.NewBytesLoader(doc)
	default:
		documentLoader = gojsonschema.NewGoLoader(doc)
	}

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   re.Field(),
			Message: re.Description(),
			Code:    re.Type(),
		})
	}
	return out, nil
}

// Compile checks that schema is itself a valid JSON schema.
func Compile(schema map[string]interface{}) error {
	_, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	return err
}
