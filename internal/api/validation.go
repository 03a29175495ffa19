package api

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// sanitizeValidationError converts internal field names to JSON field
// names in validation error messages to avoid leaking Go-side struct
// field names.
func sanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}

	var messages []string
	for _, fe := range validationErrs {
		jsonFieldName := toSnakeCase(fe.Field())
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", jsonFieldName))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", jsonFieldName, fe.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", jsonFieldName, fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation (%s)", jsonFieldName, fe.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}

// toSnakeCase converts a PascalCase struct field name to snake_case.
func toSnakeCase(s string) string {
	fieldMappings := map[string]string{
		"Alias":     "alias",
		"ModelID":   "model_id",
		"Endpoint":  "endpoint",
		"SuiteName": "suite_name",
		"ModelIDs":  "model_ids",
		"Async":     "async",
	}
	if mapped, ok := fieldMappings[s]; ok {
		return mapped
	}
	re := regexp.MustCompile("([a-z0-9])([A-Z])")
	return strings.ToLower(re.ReplaceAllString(s, "${1}_${2}"))
}
