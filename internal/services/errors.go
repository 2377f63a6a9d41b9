package services

import (
	"errors"
	"fmt"
)

var (
	ErrLastAdmin = errors.New("cannot delete the last remaining admin")
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid input")
)

// ValidationError carries the reason a payload was rejected. It matches ErrInvalid.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid input: " + e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
