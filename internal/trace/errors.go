package trace

import (
	"errors"
	"fmt"

	"github.com/desertthunder/ezpbars/internal/shared"
)

// ErrClosed is the outcome of a subscription disposed by [Subscription.Close] before it settled.
var ErrClosed = errors.New("subscription closed")

// AuthError is returned when the server rejects the handshake. Error returns the server's message verbatim.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return shared.ErrAuthFailed.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return shared.ErrAuthFailed }

// ProtocolError is returned when the server sends a message that cannot be understood.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v: %v", shared.ErrProtocol, e.Err)
}

func (e *ProtocolError) Unwrap() []error { return []error{shared.ErrProtocol, e.Err} }

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Err: fmt.Errorf(format, args...)}
}
