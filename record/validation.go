package record

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rowmap-io/rowmap/schema"
)

// ValidationErrors collects per-field validation failures for a record
type ValidationErrors struct {
	Fields map[string][]string `json:"fields"`
}

// NewValidationErrors creates an empty ValidationErrors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Fields: make(map[string][]string),
	}
}

// Add records a validation failure for a field
func (ve *ValidationErrors) Add(field, message string) {
	if ve.Fields == nil {
		ve.Fields = make(map[string][]string)
	}
	ve.Fields[field] = append(ve.Fields[field], message)
}

// HasErrors returns true if any field failed validation
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Fields) > 0
}

// Count returns the total number of failures across all fields
func (ve *ValidationErrors) Count() int {
	count := 0
	for _, messages := range ve.Fields {
		count += len(messages)
	}
	return count
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	if !ve.HasErrors() {
		return "validation failed"
	}

	var messages []string
	for field, errs := range ve.Fields {
		for _, msg := range errs {
			messages = append(messages, fmt.Sprintf("  - %s: %s", field, msg))
		}
	}

	if len(messages) == 1 {
		return fmt.Sprintf("validation failed: %s", strings.TrimPrefix(messages[0], "  - "))
	}
	return fmt.Sprintf("validation failed:\n%s", strings.Join(messages, "\n"))
}

// MarshalJSON implements json.Marshaler
func (ve *ValidationErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}{
		Error:  "validation_failed",
		Fields: ve.Fields,
	})
}

// Validate checks an attribute mapping against a record schema: required
// fields must be present and every present value must be assignable to
// its declared type. Attributes without a declared field are rejected.
func Validate(s *schema.RecordSchema, attributes map[string]interface{}) *ValidationErrors {
	errs := NewValidationErrors()

	for _, field := range s.Fields {
		value, present := attributes[field.Name]
		if field.Type.Required && (!present || value == nil) {
			errs.Add(field.Name, "is required")
			continue
		}
		if present && value != nil && !field.Type.Accepts(value) {
			errs.Add(field.Name, fmt.Sprintf("must be of type %s", field.Type.BaseType))
		}
	}

	for name := range attributes {
		if name == "id" {
			continue
		}
		if !s.HasField(name) {
			errs.Add(name, "is not a declared field")
		}
	}

	return errs
}
