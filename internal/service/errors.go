package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/instaclone/instaclone/internal/upload"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindFile:
		return "file"
	}
	return "unknown"
}

// Status is the HTTP status for the kind. Authorization failures stay at 400.
func (k Kind) Status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindAuthorization, KindFile:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the only error type the service layer returns for client mistakes.
// Anything else reaching the HTTP layer is an internal failure.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func FileRejected(err error) *Error {
	msg := "File upload rejected"
	switch {
	case errors.Is(err, upload.ErrType):
		msg = "This type of file is not acceptable."
	case errors.Is(err, upload.ErrTooLarge):
		msg = "Files must not exceed 10 MB in total."
	case errors.Is(err, upload.ErrTooMany):
		msg = "At most 10 files can be uploaded at once."
	case errors.Is(err, upload.ErrNoFiles):
		msg = "At least one image is required."
	}
	return &Error{Kind: KindFile, Message: msg, Err: err}
}

// KindOf reports the kind of a service error, or 0 for anything else.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
