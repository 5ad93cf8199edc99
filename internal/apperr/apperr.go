// Package apperr defines the error taxonomy shared by services and the HTTP
// error translator.  Services return *Error values; the translator maps the
// Kind to an HTTP status and a stable JSON body.  Anything that is not an
// *Error is treated as an unexpected failure.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindExternalService
	KindRateLimit
)

// String names k for logs.
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
	case KindConflict:
		return "conflict"
	case KindExternalService:
		return "external_service"
	case KindRateLimit:
		return "rate_limit"
	}
	return "internal"
}

// Status returns the HTTP status code for the kind.  External service
// failures surface as 500 because the client cannot act on them.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Error is a classified failure.  Message is safe to show to clients; Err
// carries the underlying cause for logs and errors.Is checks.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error returns the client message, followed by the cause if any.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string, cause []error) *Error {
	e := &Error{Kind: k, Message: msg}
	if len(cause) > 0 {
		e.Err = errors.Join(cause...)
	}
	return e
}

// Constructors, one per Kind.  Causes are joined and kept for logs only.
func Validation(msg string, cause ...error) *Error     { return newErr(KindValidation, msg, cause) }
func Authentication(msg string, cause ...error) *Error { return newErr(KindAuthentication, msg, cause) }
func Authorization(msg string, cause ...error) *Error  { return newErr(KindAuthorization, msg, cause) }
func NotFound(msg string, cause ...error) *Error       { return newErr(KindNotFound, msg, cause) }
func Conflict(msg string, cause ...error) *Error       { return newErr(KindConflict, msg, cause) }
func External(msg string, cause ...error) *Error       { return newErr(KindExternalService, msg, cause) }
func RateLimit(msg string, cause ...error) *Error      { return newErr(KindRateLimit, msg, cause) }
func Internal(msg string, cause ...error) *Error       { return newErr(KindInternal, msg, cause) }

// KindOf reports the kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
