// Package apierr defines the error taxonomy shared by the transport and
// the higher-level flows. Every failure a caller can observe is an
// *Error with a Kind; errors.As/Is work across wrapping.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tecburger/storefront/internal/api"
)

// Kind classifies an error for handling decisions.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: bad local input, never sent to the server, or a 422.
	KindValidation
	// KindIdempotencyConflict: 409, same key reused with a different payload.
	KindIdempotencyConflict
	// KindNotFound: 404.
	KindNotFound
	// KindUnauthorized: 401. Local auth state is cleared by the transport.
	KindUnauthorized
	// KindNetwork: timeout or connection failure, after retries exhausted.
	KindNetwork
	// KindServer: 5xx, after retries exhausted.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindIdempotencyConflict:
		return "idempotency_conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error carries the classified kind plus the server's error body when
// one was received.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Status  int   // HTTP status, 0 when the request never completed
	Err     error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// FromStatus maps an HTTP status plus the decoded error body to the
// taxonomy. body may be nil when the response had no parseable envelope.
func FromStatus(status int, body *api.ErrorBody) *Error {
	e := &Error{Status: status}
	if body != nil {
		e.Code = body.Code
		e.Message = body.Message
		e.Details = body.Details
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusConflict:
		e.Kind = KindIdempotencyConflict
	case status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindUnknown
	}
	return e
}

// KindOf extracts the Kind from any error in the chain, KindUnknown if
// the error is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

func IsNotFound(err error) bool     { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool     { return IsKind(err, KindIdempotencyConflict) }
func IsValidation(err error) bool   { return IsKind(err, KindValidation) }
func IsUnauthorized(err error) bool { return IsKind(err, KindUnauthorized) }
