package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every sentinel returned by a service wraps exactly one of
// these; anything else is an internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrIntegrity    = errors.New("integrity violation")
)

func kindError(kind error, msg string) error {
	return fmt.Errorf("%w: %s", kind, msg)
}

type Kind string

const (
	KindValidation   Kind = "validation_failed"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindIntegrity    Kind = "integrity_violation"
	KindInternal     Kind = "internal"
)

// KindOf classifies err into the error taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	default:
		return KindInternal
	}
}

// Message returns the caller-facing text of a taxonomy error, without the
// kind prefix.
func Message(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	msg := err.Error()
	for _, kind := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrForbidden, ErrUnauthorized, ErrIntegrity} {
		if prefix := kind.Error() + ": "; strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields []FieldError
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Field+": "+f.Message)
	}
	return out
}

func fieldError(field, msg string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}
