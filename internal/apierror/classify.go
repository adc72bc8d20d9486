package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
)

// wireError mirrors the structured error body GeoTask services return.
type wireError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// messageFromBody extracts a human-readable message from an error response
// body, tolerating both the nested and the flat envelope shape. Falls back to
// the raw body.
func messageFromBody(body []byte) string {
	var wire wireError
	if json.Unmarshal(body, &wire) == nil {
		if wire.Error != nil && wire.Error.Message != "" {
			return wire.Error.Message
		}
		if wire.Message != "" {
			return wire.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// FromStatus classifies a non-2xx HTTP response into the taxonomy.
func FromStatus(status int, body []byte) *Error {
	message := messageFromBody(body)
	switch {
	case status == http.StatusUnauthorized:
		return Unauthorized(message)
	case status == http.StatusForbidden:
		return Forbidden(message)
	case status == http.StatusNotFound:
		return NotFound(message)
	case status == http.StatusTooManyRequests:
		return RateLimited(message)
	case status >= 500 && status <= 599:
		return Server(status, message)
	case status >= 400:
		return Client(status, message)
	}
	return &Error{Kind: KindUnknown, Status: status, Message: message}
}

// FromTransport classifies a transport-level failure (no response at all).
func FromTransport(err error) *Error {
	if err == nil {
		return nil
	}

	// Already typed: pass through unchanged.
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Cancelled(err)
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NoConnection(err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return NoConnection(err)
	}

	return Network(err)
}
