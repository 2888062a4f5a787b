package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
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

// Error joins the individual messages; it is only called on invalid results.
func (r *ValidationResult) Error() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// SchemaSet holds compiled JSON schemas addressed by name.
type SchemaSet struct {
	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
}

func NewSchemaSet() *SchemaSet {
	return &SchemaSet{schemas: make(map[string]*gojsonschema.Schema)}
}

// Register compiles a schema given as a Go value (usually map[string]interface{}) or a JSON string.
func (s *SchemaSet) Register(name string, schema interface{}) error {
	var loader gojsonschema.JSONLoader
	switch v := schema.(type) {
	case string:
		loader = gojsonschema.NewStringLoader(v)
	default:
		loader = gojsonschema.NewGoLoader(v)
	}

	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}

	s.mu.Lock()
	s.schemas[name] = compiled
	s.mu.Unlock()
	return nil
}

func (s *SchemaSet) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.schemas[name]
	return ok
}

// Validate checks a document against a registered schema. Unknown names validate trivially.
func (s *SchemaSet) Validate(name string, document interface{}) (*ValidationResult, error) {
	s.mu.RLock()
	schema, ok := s.schemas[name]
	s.mu.RUnlock()
	if !ok {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

// ValidateJSON validates raw JSON against an inline schema.
func ValidateJSON(schema interface{}, document []byte) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

func toResult(result *gojsonschema.Result) *ValidationResult {
	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func structs() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return structValidator
}

// ValidateStruct runs `validate` struct tags and converts failures into a ValidationResult.
func ValidateStruct(v interface{}) *ValidationResult {
	err := structs().Struct(v)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	out := &ValidationResult{}
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out.Errors = append(out.Errors, ValidationError{Field: "", Message: err.Error(), Code: "INVALID"})
		return out
	}
	for _, fe := range validationErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			Code:    strings.ToUpper(fe.Tag()),
		})
	}
	return out
}
