package app_errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTooLarge        = errors.New("file too large")
	ErrTooMany         = errors.New("too many files")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrRateLimited     = errors.New("rate limited")
	ErrAlreadyExists   = errors.New("already exists")
	ErrStorage         = errors.New("storage failure")
)

// Kind classifies an error for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindRateLimited
	KindStorage
)

// Error carries a user-facing message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: ErrInvalidInput}
}

func ValidationWrap(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: ErrNotFound}
}

func Storage(msg string, err error) *Error {
	if err == nil {
		err = ErrStorage
	}
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// KindOf resolves the kind of err, falling back to the sentinel it wraps.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrTooLarge),
		errors.Is(err, ErrTooMany),
		errors.Is(err, ErrUnsupportedType):
		return KindValidation
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrStorage):
		return KindStorage
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
