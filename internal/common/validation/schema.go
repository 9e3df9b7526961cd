package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// leadSchema is the contract of a lead submission. Only name and phone are required.
const leadSchema = `{
	"type": "object",
	"properties": {
		"name":      {"type": "string", "minLength": 1},
		"phone":     {"type": "string", "minLength": 1},
		"service":   {"type": "string"},
		"preferred": {"type": "string"},
		"notes":     {"type": "string"}
	},
	"required": ["name", "phone"]
}`

// snapshotSchema is the shape a fixture must have to be listed by the catalog.
// Descriptive fields beyond these are allowed and passed through.
const snapshotSchema = `{
	"type": "object",
	"properties": {
		"id":   {"type": "string"},
		"name": {"type": "string"},
		"sampleLeads": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name":      {"type": "string"},
					"phone":     {"type": "string"},
					"service":   {"type": "string"},
					"preferred": {"type": "string"},
					"notes":     {"type": "string"}
				}
			}
		}
	}
}`

var (
	leadSchemaCompiled     = mustCompile(leadSchema)
	snapshotSchemaCompiled = mustCompile(snapshotSchema)
)

func mustCompile(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("validation: invalid built-in schema: %v", err))
	}
	return schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateLead checks a lead submission. The document may be any value
// gojsonschema can load, such as a LeadFields or a decoded map.
func ValidateLead(document interface{}) (*ValidationResult, error) {
	return validate(leadSchemaCompiled, gojsonschema.NewGoLoader(document))
}

// ValidateSnapshotJSON checks a raw snapshot fixture.
func ValidateSnapshotJSON(data []byte) (*ValidationResult, error) {
	return validate(snapshotSchemaCompiled, gojsonschema.NewBytesLoader(data))
}

func validate(schema *gojsonschema.Schema, document gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := schema.Validate(document)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldName(desc),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// fieldName resolves the offending property. For "required" errors gojsonschema
// reports the parent object, so the missing property is taken from the details.
func fieldName(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			return prop
		}
	}
	return desc.Field()
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Fields returns the sorted, de-duplicated names of the invalid fields.
func (vr *ValidationResult) Fields() []string {
	seen := make(map[string]bool, len(vr.Errors))
	var fields []string
	for _, err := range vr.Errors {
		if !seen[err.Field] {
			seen[err.Field] = true
			fields = append(fields, err.Field)
		}
	}
	sort.Strings(fields)
	return fields
}
