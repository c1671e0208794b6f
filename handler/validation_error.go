package handler

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError collects per-field validation messages. It renders as a
// 422 with the field details in the error envelope.
type ValidationError url.Values

// NewValidationError creates an empty ValidationError.
func NewValidationError() ValidationError {
	return make(ValidationError)
}

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "Validation failed"
	}

	var parts []string
	for field, messages := range e {
		if len(messages) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, messages[0]))
		}
	}
	return fmt.Sprintf("validation error: %s", strings.Join(parts, ", "))
}

// Add appends a message for a field.
func (e ValidationError) Add(field, message string) {
	url.Values(e).Add(field, message)
}

// Get returns the first message for a field.
func (e ValidationError) Get(field string) string {
	return url.Values(e).Get(field)
}

// Has reports whether a field has any messages.
func (e ValidationError) Has(field string) bool {
	return len(e[field]) > 0
}

// IsEmpty reports whether no field has messages.
func (e ValidationError) IsEmpty() bool {
	return len(e) == 0
}
