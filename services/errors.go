package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence error")
)

// Error carries a user-facing message alongside the error class it belongs
// to. errors.Is matches against Kind.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationErr(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func notFoundErr(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func persistenceErr(msg string, err error) error {
	return &Error{Kind: ErrPersistence, Message: msg, Err: err}
}

// UserMessage returns the message safe to show to callers for service
// errors, and an empty string for anything else.
func UserMessage(err error) string {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Message
	}
	return ""
}
