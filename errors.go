package main

import "fmt"

// errorKind is the machine-readable code sent alongside every error message.
type errorKind string

const (
	errInvalidChoice   errorKind = "invalid_choice"
	errInvalidInput    errorKind = "invalid_input"
	errUnknownCategory errorKind = "unknown_category"
	errInternalFailure errorKind = "internal_failure"
)

// requestError is a client-facing failure of a single /recommend call.
type requestError struct {
	Kind    errorKind
	Message string
	Err     error
}

func (e *requestError) Error() string {
	return e.Message
}

func (e *requestError) Unwrap() error {
	return e.Err
}

func invalidChoice(choice *string) error {
	if choice == nil {
		return &requestError{Kind: errInvalidChoice, Message: "Invalid choice. Must be 'meal' or 'exercise'"}
	}
	return &requestError{
		Kind:    errInvalidChoice,
		Message: fmt.Sprintf("Invalid choice %q. Must be 'meal' or 'exercise'", *choice),
	}
}

func invalidInput(format string, args ...any) error {
	return &requestError{Kind: errInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func unknownCategory(field, value string) error {
	return &requestError{
		Kind:    errUnknownCategory,
		Message: fmt.Sprintf("%s contains previously unseen label %q", field, value),
	}
}

func internalFailure(err error) error {
	return &requestError{Kind: errInternalFailure, Message: err.Error(), Err: err}
}
