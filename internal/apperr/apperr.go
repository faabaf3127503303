// Package apperr defines the stable error taxonomy returned across the
// service boundary. Every failure a handler can surface maps to one of
// these kinds; internal causes are carried for logging but never shown
// to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into a caller-visible outcome.
type Kind int

const (
	// KindInternal is an unexpected failure. The default for unclassified errors.
	KindInternal Kind = iota
	// KindNotFound means the requested entity does not exist for this caller.
	KindNotFound
	// KindConflict means a uniqueness constraint was violated.
	KindConflict
	// KindValidation means the input was well-formed HTTP but semantically invalid.
	KindValidation
	// KindQuotaExceeded means a tier limit was reached. Distinct from
	// validation so clients can render an upgrade prompt.
	KindQuotaExceeded
	// KindRateLimited means the daily request limit was exhausted.
	KindRateLimited
	// KindAuthentication means the credential was missing, invalid or expired.
	KindAuthentication
	// KindAuthorization means the credential was valid but the role is insufficient.
	KindAuthorization
	// KindUnavailable means a backing store (ledger or blob store) failed.
	KindUnavailable
)

// String returns a stable label for the kind, used in logs and metric
// label values.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified error with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a classified error with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted client-safe message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The message is what clients see;
// the cause is only ever logged.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf returns the classification of err, or KindInternal for
// unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the client-safe message for err. Unclassified errors
// get a generic message so internal detail never leaks.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindQuotaExceeded:
		return http.StatusPaymentRequired
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
