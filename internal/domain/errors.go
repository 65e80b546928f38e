package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("time slot conflicts with an existing booking")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyInState    = errors.New("already in requested state")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTransient         = errors.New("store unavailable")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

// ErrCodeNotFound is the single answer for unknown codes and codes owned by someone else.
var ErrCodeNotFound = Describe(ErrNotFound, "invalid code or booking not found")

// ErrAlreadyCheckedIn reports a repeated check-in.
var ErrAlreadyCheckedIn = Describe(ErrAlreadyInState, "already checked in")

type describedError struct {
	kind error
	msg  string
}

func (e *describedError) Error() string { return e.msg }
func (e *describedError) Unwrap() error { return e.kind }

// Describe attaches a user facing message to a sentinel kind.
func Describe(kind error, msg string) error {
	return &describedError{kind: kind, msg: msg}
}

// ValidationError collects field level problems with a request.
type ValidationError struct {
	FieldErrors map[string]string
}

// NewValidationError builds an error with a single field problem.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return ErrValidation.Error()
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for f := range v.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.FieldErrors[f])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error {
	return ErrValidation
}

func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; !exists {
		v.FieldErrors[field] = message
	}
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// OrNil returns v as an error only when it holds problems.
func (v *ValidationError) OrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// ErrorKind classifies errors for transport mapping.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAlreadyInState
	KindInvalidTransition
	KindTransient
	KindRateLimited
)

func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyInState):
		return KindAlreadyInState
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}

// Transient wraps a store failure so callers can retry.
func Transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
}
