package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_StringForms(t *testing.T) {
	inner := fmt.Errorf("connection reset")

	withBoth := &Error{Kind: KindNetwork, Message: "fetch tasks", Err: inner}
	assert.Contains(t, withBoth.Error(), "NETWORK_ERROR")
	assert.Contains(t, withBoth.Error(), "fetch tasks")
	assert.Contains(t, withBoth.Error(), "connection reset")

	onlyMessage := NotFound("task gone")
	assert.Equal(t, "NOT_FOUND: task gone", onlyMessage.Error())

	bare := &Error{Kind: KindCancelled}
	assert.Equal(t, "CANCELLED", bare.Error())
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Network(inner)
	assert.True(t, errors.Is(err, inner))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(Timeout(errors.New("deadline"))))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))

	wrapped := fmt.Errorf("context: %w", Forbidden("nope"))
	assert.Equal(t, KindForbidden, KindOf(wrapped))
}

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		Network(errors.New("reset")),
		Timeout(errors.New("deadline")),
		NoConnection(errors.New("down")),
		Server(502, "bad gateway"),
	}
	for _, err := range retryable {
		assert.True(t, IsRetryable(err), "%v should be retryable", err)
	}

	notRetryable := []error{
		Unauthorized("expired"),
		Forbidden("no"),
		NotFound("gone"),
		RateLimited("slow down"),
		Client(409, "conflict"),
		Decoding(errors.New("bad json")),
		Encoding(errors.New("bad value")),
		Cancelled(context.Canceled),
		errors.New("untyped"),
	}
	for _, err := range notRetryable {
		assert.False(t, IsRetryable(err), "%v should not be retryable", err)
	}
}

func TestShouldRefreshToken(t *testing.T) {
	assert.True(t, ShouldRefreshToken(Unauthorized("expired token")))
	assert.False(t, ShouldRefreshToken(Forbidden("wrong role")))
	assert.False(t, ShouldRefreshToken(Server(500, "oops")))
}

func TestFromStatus_Mapping(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindUnauthorized},
		{403, KindForbidden},
		{404, KindNotFound},
		{429, KindRateLimited},
		{500, KindServer},
		{503, KindServer},
		{599, KindServer},
		{400, KindClient},
		{418, KindClient},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d", tc.status), func(t *testing.T) {
			err := FromStatus(tc.status, nil)
			assert.Equal(t, tc.want, err.Kind)
			assert.Equal(t, tc.status, err.Status)
		})
	}
}

func TestFromStatus_ParsesNestedErrorBody(t *testing.T) {
	body := []byte(`{"error":{"code":"TASK_NOT_FOUND","message":"task with id t1 not found"}}`)
	err := FromStatus(404, body)
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, "task with id t1 not found", err.Message)
}

func TestFromStatus_ParsesFlatErrorBody(t *testing.T) {
	body := []byte(`{"code":"UNAUTHORIZED","message":"token expired"}`)
	err := FromStatus(401, body)
	assert.Equal(t, "token expired", err.Message)
}

func TestFromStatus_FallsBackToRawBody(t *testing.T) {
	err := FromStatus(500, []byte("upstream exploded"))
	assert.Equal(t, "upstream exploded", err.Message)
}

func TestFromTransport_Classification(t *testing.T) {
	assert.Equal(t, KindCancelled, FromTransport(context.Canceled).Kind)
	assert.Equal(t, KindTimeout, FromTransport(context.DeadlineExceeded).Kind)
	assert.Equal(t, KindTimeout, FromTransport(&net.OpError{Op: "read", Err: timeoutErr{}}).Kind)
	assert.Equal(t, KindNoConnection, FromTransport(&net.DNSError{Err: "no such host"}).Kind)
	assert.Equal(t, KindNoConnection, FromTransport(&net.OpError{Op: "dial", Err: errors.New("refused")}).Kind)
	assert.Equal(t, KindNetwork, FromTransport(errors.New("mystery")).Kind)
}

func TestFromTransport_PassesThroughTypedErrors(t *testing.T) {
	original := Unauthorized("nope")
	got := FromTransport(fmt.Errorf("wrapped: %w", original))
	assert.Equal(t, KindUnauthorized, got.Kind)
}

func TestFromTransport_Nil(t *testing.T) {
	require.Nil(t, FromTransport(nil))
}

func TestHint_CoversEveryKind(t *testing.T) {
	kinds := []Kind{
		KindInvalidURL, KindInvalidRequest, KindInvalidResponse, KindNetwork,
		KindDecoding, KindEncoding, KindServer, KindClient, KindUnauthorized,
		KindForbidden, KindNotFound, KindRateLimited, KindTimeout,
		KindNoConnection, KindCancelled, KindUnknown,
	}
	for _, k := range kinds {
		e := &Error{Kind: k}
		assert.NotEmpty(t, e.Hint(), "kind %s needs a hint", k)
	}
}

// timeoutErr implements net.Error with Timeout() == true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
