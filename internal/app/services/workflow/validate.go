package workflow

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidationError rejects input before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// unsafeFragments are markup fragments rejected in user-supplied text. The
// dashboard renders these fields in the browser, so the screen runs here,
// before the value ever reaches the backing store.
var unsafeFragments = []string{"<script", "javascript:", "onerror=", "onload="}

func screenText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}

	lowered := strings.ToLower(value)
	for _, fragment := range unsafeFragments {
		if strings.Contains(lowered, fragment) {
			return &ValidationError{Field: field, Reason: "contains unsafe markup"}
		}
	}

	for _, r := range value {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return &ValidationError{Field: field, Reason: "contains control characters"}
		}
	}
	return nil
}
