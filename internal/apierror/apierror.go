// Package apierror defines the typed error taxonomy for the HTTP and session
// path. Every failure the client core surfaces is an *Error carrying a Kind;
// the Kind drives retry eligibility and token-refresh side effects.
package apierror

import (
	"errors"
	"fmt"
)

// Kind identifies one class of failure.
type Kind string

const (
	KindInvalidURL      Kind = "INVALID_URL"
	KindInvalidRequest  Kind = "INVALID_REQUEST"
	KindInvalidResponse Kind = "INVALID_RESPONSE"
	KindNetwork         Kind = "NETWORK_ERROR"
	KindDecoding        Kind = "DECODING_ERROR"
	KindEncoding        Kind = "ENCODING_ERROR"
	KindServer          Kind = "SERVER_ERROR"
	KindClient          Kind = "CLIENT_ERROR"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindRateLimited     Kind = "RATE_LIMIT_EXCEEDED"
	KindTimeout         Kind = "TIMEOUT"
	KindNoConnection    Kind = "NO_INTERNET_CONNECTION"
	KindCancelled       Kind = "CANCELLED"
	KindUnknown         Kind = "UNKNOWN"
)

// Error is a structured client error. Status is the HTTP status code when the
// failure originated from a response, zero otherwise.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidURL reports an unbuildable request URL.
func InvalidURL(raw string, err error) *Error {
	return &Error{Kind: KindInvalidURL, Message: raw, Err: err}
}

// InvalidRequest reports a request that failed validation before any network call.
func InvalidRequest(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

// InvalidResponse reports a response the client could not interpret.
func InvalidResponse(message string) *Error {
	return &Error{Kind: KindInvalidResponse, Message: message}
}

// Network wraps a transport-level failure with no usable response.
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// Decoding wraps a response body decode failure.
func Decoding(err error) *Error {
	return &Error{Kind: KindDecoding, Err: err}
}

// Encoding wraps a request body encode failure.
func Encoding(err error) *Error {
	return &Error{Kind: KindEncoding, Err: err}
}

// Server reports a 5xx response.
func Server(status int, message string) *Error {
	return &Error{Kind: KindServer, Status: status, Message: message}
}

// Client reports a 4xx response not covered by a more specific kind.
func Client(status int, message string) *Error {
	return &Error{Kind: KindClient, Status: status, Message: message}
}

// Unauthorized reports a 401 response.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Status: 401, Message: message}
}

// Forbidden reports a 403 response.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Status: 403, Message: message}
}

// NotFound reports a 404 response.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: 404, Message: message}
}

// RateLimited reports a 429 response or a locally enforced limit.
func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Status: 429, Message: message}
}

// Timeout reports an elapsed request deadline.
func Timeout(err error) *Error {
	return &Error{Kind: KindTimeout, Err: err}
}

// NoConnection reports an unreachable network.
func NoConnection(err error) *Error {
	return &Error{Kind: KindNoConnection, Err: err}
}

// Cancelled reports a caller-cancelled request.
func Cancelled(err error) *Error {
	return &Error{Kind: KindCancelled, Err: err}
}

// Unknown wraps a failure that fits no other kind.
func Unknown(err error) *Error {
	return &Error{Kind: KindUnknown, Err: err}
}

// KindOf extracts the Kind from err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the failure class is worth re-issuing the same
// logical request for.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindNoConnection, KindServer:
		return true
	}
	return false
}

// ShouldRefreshToken reports whether observing err should schedule a session
// token refresh. Only Unauthorized qualifies.
func ShouldRefreshToken(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// Hint returns a short, stable recovery hint for the error's kind. The UI
// layer maps these to localized copy.
func (e *Error) Hint() string {
	switch e.Kind {
	case KindNetwork, KindNoConnection:
		return "check your connection and try again"
	case KindTimeout:
		return "the request took too long, try again"
	case KindUnauthorized:
		return "sign in again"
	case KindForbidden:
		return "you do not have access to this resource"
	case KindNotFound:
		return "the resource no longer exists"
	case KindRateLimited:
		return "slow down and retry shortly"
	case KindServer:
		return "the service is having trouble, retry later"
	case KindCancelled:
		return "the request was cancelled"
	default:
		return "try again or contact support"
	}
}
