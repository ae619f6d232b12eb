// Package apperr defines the classified errors handlers return to the
// terminal error writer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindDuplicateUser
	KindInvalidCredentials
	KindUnauthorized
	KindInvalidID
	KindNotFound
	KindInvalidInput
	KindUpload
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateUser:
		return "duplicate_user"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidID:
		return "invalid_id"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindUpload:
		return "upload"
	case KindPersistence:
		return "persistence"
	}
	return "unknown"
}

// Error is an application error with an explicit status and a message that
// is safe to show to clients. Details is also client safe; Err is the
// internal cause and only leaves the process in debug mode.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details string
	Err     error
	// Key overrides the JSON key Message is written under.
	Key string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithKey sets the JSON key Message is written under and returns e.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithErr attaches an internal cause and returns e.
func (e *Error) WithErr(err error) *Error {
	e.Err = err
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Message: message}
}

func DuplicateUser() *Error {
	return &Error{Kind: KindDuplicateUser, Status: http.StatusBadRequest, Message: "User already exists"}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Status: http.StatusBadRequest, Message: "Invalid credentials"}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

func InvalidID(message string) *Error {
	return &Error{Kind: KindInvalidID, Status: http.StatusBadRequest, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Status: http.StatusBadRequest, Message: message}
}

func Upload(message, details string) *Error {
	return &Error{Kind: KindUpload, Status: http.StatusBadRequest, Message: message, Details: details}
}

func Persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Status: http.StatusInternalServerError, Message: message, Err: err}
}
