package models

import "fmt"

// ValidationErrorKind identifies why an input was rejected.
type ValidationErrorKind string

const (
	// EmptyQuery is reported when a search string normalizes to nothing.
	EmptyQuery ValidationErrorKind = "empty-query"
)

// ValidationError is returned when user input cannot form a valid value.
type ValidationError struct {
	Kind    ValidationErrorKind
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("validation error: %s", e.Kind)
	}
	return fmt.Sprintf("validation error (%s): %s", e.Kind, e.Message)
}

// RuleApplicationError wraps a failure raised while a parsing rule was
// being applied. The parser skips the rule and keeps going.
type RuleApplicationError struct {
	Rule string
	Err  error
}

func (e *RuleApplicationError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *RuleApplicationError) Unwrap() error {
	return e.Err
}
