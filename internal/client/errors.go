package client

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrClosed             = errors.New("client: connection closed")
	ErrNotConnected       = errors.New("client: not connected")
	ErrLobbyMismatch      = errors.New("client: connection is bound to another lobby or user")
	ErrConnectInProgress  = errors.New("client: connect already in progress")
	ErrReconnectExhausted = errors.New("client: reconnect attempts exhausted")
	ErrInvalidTarget      = errors.New("client: lobby and user ids must be positive")
)

// NotConnectedError is returned by Send outside StateOpen.
type NotConnectedError struct {
	State State
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("client: not connected (state %s)", e.State)
}

func (e *NotConnectedError) Is(target error) bool { return target == ErrNotConnected }

// ConnectError is a failed manual Connect. No retry is scheduled for it.
type ConnectError struct {
	LobbyID int64
	UserID  int64
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("client: connect lobby %d as user %d: %v", e.LobbyID, e.UserID, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError is emitted to error listeners whenever the transport is
// lost or a reconnect attempt fails. Terminal errors mean the connection
// stays down until the caller connects again.
type TransportError struct {
	Err error
	// Attempt is the reconnect attempt that is scheduled (non-terminal) or
	// that failed last (terminal).
	Attempt   int
	Delay     time.Duration
	Terminal  bool
	Exhausted bool
}

func (e *TransportError) Error() string {
	switch {
	case e.Exhausted:
		return fmt.Sprintf("client: disconnected after %d reconnect attempts: %v", e.Attempt, e.Err)
	case e.Terminal:
		return fmt.Sprintf("client: disconnected: %v", e.Err)
	default:
		return fmt.Sprintf("client: transport lost, reconnect attempt %d in %s: %v", e.Attempt, e.Delay, e.Err)
	}
}

func (e *TransportError) Unwrap() []error {
	if e.Exhausted {
		return []error{ErrReconnectExhausted, e.Err}
	}
	return []error{e.Err}
}

// ServerError is an error frame sent by the gateway.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// CloseError reports the close frame the server sent.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed with %d %q", e.Code, e.Reason)
}
