package transport

import (
	"errors"
	"fmt"
)

// ErrStreamTimeout is reported when the push stream cannot be established
// within the configured open timeout. It is surfaced to the stream's caller
// exactly once.
var ErrStreamTimeout = errors.New("push stream failed to open within timeout")

// TransportError is a network or service-level failure on a request/response
// call: the bridge could not be reached or returned garbage.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConnectError is the bridge refusing a connect call, with its reason.
type ConnectError struct {
	Reason string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect rejected: %s", e.Reason)
}

// DisconnectError is the bridge refusing a disconnect call.
type DisconnectError struct {
	Reason string
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("disconnect rejected: %s", e.Reason)
}

// SendError is the bridge refusing a send call.
type SendError struct {
	Reason string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send rejected: %s", e.Reason)
}
