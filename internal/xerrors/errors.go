package xerrors

import (
	"errors"
	"strings"
)

// Kind is the stable category of a failure reported to API callers.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindUpstream   Kind = "upstream"
)

// Store level sentinels.
var (
	ErrNoDocument   = errors.New("no document")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Identity sentinels.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrExpiredToken       = errors.New("refresh token expired")
)

// Error is a typed failure carrying a human-readable message and optional details.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func Auth(err error) *Error {
	return &Error{Kind: KindAuth, Message: err.Error(), Err: err}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: ErrNoDocument}
}

// Upstream wraps a dependency failure; the upstream message is kept as a detail.
func Upstream(message string, err error) *Error {
	e := &Error{Kind: KindUpstream, Message: message, Err: err}
	if err != nil {
		e.Details = []string{err.Error()}
	}
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" for untyped errors.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return ""
}

// MissingFields builds a validation error naming every missing field.
func MissingFields(fields []string) *Error {
	details := make([]string, 0, len(fields))
	for _, f := range fields {
		details = append(details, f+" is required")
	}
	return Validation("missing required fields: "+strings.Join(fields, ", "), details...)
}
