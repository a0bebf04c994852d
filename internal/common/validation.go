package common

import (
	"fmt"
	"strings"
)

// Validation error codes shared by pricing inputs and financial settings.
const (
	CodeRequired        = "required"
	CodeOutOfRange      = "out_of_range"
	CodeNegative        = "negative"
	CodeInvalidQuantity = "invalid_quantity"
	CodeConflict        = "conflict"
	CodeInvalid         = "invalid"
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every violation found in one pass so callers can
// surface all of them at once.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a violation.
func (v *ValidationErrors) Add(field, code, format string, args ...any) {
	*v = append(*v, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when no violation was recorded. Keeps a typed nil slice out of error returns.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// HasField reports whether a violation was recorded for field.
func (v ValidationErrors) HasField(field string) bool {
	for _, e := range v {
		if e.Field == field {
			return true
		}
	}
	return false
}
