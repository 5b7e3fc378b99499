package models

import "errors"

var (
	ErrNotFound           = errors.New("task not found")
	ErrValidation         = errors.New("invalid task")
	ErrBackendUnavailable = errors.New("remote backend unavailable")
)

// ValidationError reports which field broke a task invariant.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
