package utils

import (
	"errors"
	"strings"
)

var ErrorRecordNotFound = errors.New("record not found")

// BusinessRuleError is a rule violation detected in a validation pass before
// any mutation. Details carries per-item messages (e.g. one per payment with a
// bad routing number).
type BusinessRuleError struct {
	Reason  string
	Details []string
}

func (e *BusinessRuleError) Error() string {
	if len(e.Details) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.Details, "; ")
}

func NewBusinessRuleError(reason string, details ...string) *BusinessRuleError {
	return &BusinessRuleError{Reason: reason, Details: details}
}

// ParseError rejects a whole upload. Headers, when present, are echoed back so
// the caller can see what the file actually contained.
type ParseError struct {
	Message string
	Headers []string
}

func (e *ParseError) Error() string {
	return e.Message
}
