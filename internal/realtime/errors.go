package realtime

import "fmt"

// ErrorKind identifies one class of realtime failure.
type ErrorKind string

const (
	KindConnectionFailed     ErrorKind = "CONNECTION_FAILED"
	KindConnectionLost       ErrorKind = "CONNECTION_LOST"
	KindMessageSendFailed    ErrorKind = "MESSAGE_SEND_FAILED"
	KindMessageReceiveFailed ErrorKind = "MESSAGE_RECEIVE_FAILED"
	KindInvalidMessage       ErrorKind = "INVALID_MESSAGE"
	KindAuthenticationFailed ErrorKind = "AUTHENTICATION_FAILED"
	KindRateLimited          ErrorKind = "RATE_LIMIT_EXCEEDED"
	KindServerError          ErrorKind = "SERVER_ERROR"
	KindNetworkError         ErrorKind = "NETWORK_ERROR"
)

// Error is a typed realtime failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("realtime %s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("realtime %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("realtime %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func connectionFailed(err error) *Error {
	return &Error{Kind: KindConnectionFailed, Err: err}
}

func connectionLost(err error) *Error {
	return &Error{Kind: KindConnectionLost, Err: err}
}

func sendFailed(err error) *Error {
	return &Error{Kind: KindMessageSendFailed, Err: err}
}

func invalidMessage(err error) *Error {
	return &Error{Kind: KindInvalidMessage, Err: err}
}
