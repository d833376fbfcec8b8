package shape

import (
	"fmt"
	"strings"

	"ontodraft/internal/config"
	"ontodraft/internal/entity"
	"ontodraft/internal/store"
)

// Checker answers "does this document conform to the declared shape of its
// kind". Implementations must be pure; the validation engine calls them for
// every effective, non-deleted document.
type Checker interface {
	Check(kind entity.Kind, doc store.Document) []Violation
}

type Violation struct {
	Field   string
	Code    string
	Message string
}

const (
	codeMissingRequiredField = "missing_required_field"
	codeEnumValueInvalid     = "enum_value_invalid"
	codeFieldTypeInvalid     = "field_type_invalid"
)

// ConfigChecker enforces the field definitions from shapes.yaml.
type ConfigChecker struct {
	shapes *config.Shapes
}

func NewConfigChecker(shapes *config.Shapes) *ConfigChecker {
	return &ConfigChecker{shapes: shapes}
}

func (c *ConfigChecker) Check(kind entity.Kind, doc store.Document) []Violation {
	kindShape, ok := c.shapes.KindShapeByName(string(kind))
	if !ok {
		return nil
	}

	var violations []Violation
	for _, field := range kindShape.Fields {
		value, present := doc[field.Name]

		if field.Required {
			if !present || value == nil || isEmptyString(value) {
				violations = append(violations, Violation{
					Field:   field.Name,
					Code:    codeMissingRequiredField,
					Message: fmt.Sprintf("missing required field: %s", field.Name),
				})
				continue
			}
		}
		if !present || value == nil {
			continue
		}

		if strings.EqualFold(field.Type, "enum") {
			valueStr, ok := value.(string)
			if !ok || !containsString(field.Values, valueStr) {
				violations = append(violations, Violation{
					Field:   field.Name,
					Code:    codeEnumValueInvalid,
					Message: fmt.Sprintf("invalid value for %s: %v", field.Name, value),
				})
			}
			continue
		}

		if !matchesType(field.Type, value) {
			violations = append(violations, Violation{
				Field:   field.Name,
				Code:    codeFieldTypeInvalid,
				Message: fmt.Sprintf("field %s must be a %s", field.Name, field.Type),
			})
		}
	}

	return violations
}

func matchesType(fieldType string, value any) bool {
	switch strings.ToLower(fieldType) {
	case "string", "text":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "list":
		_, ok := value.([]any)
		return ok
	default:
		return true
	}
}

func isEmptyString(value any) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
