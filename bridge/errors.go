package bridge

import (
	"errors"
	"fmt"

	"github.com/identikit/authbridge/protocol"
)

// Caller errors. These are returned synchronously and never start a
// session, so no teardown accompanies them.
var (
	ErrInvalidConfig = errors.New("authbridge: invalid config")
	ErrSessionActive = errors.New("authbridge: session already active")
)

// Error is a protocol-level failure of an open session: transport
// failures, timeouts, and remote-reported ceremony errors. It is
// delivered through the error event and as Open's return value.
type Error struct {
	Code    protocol.ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("authbridge: %s: %s", e.Code, e.Message)
}
