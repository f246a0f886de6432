package logicclient

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrClientClosed = errors.New("logicclient: client closed")
	ErrTimeout      = errors.New("logicclient: command timed out")
	ErrDesync       = errors.New("logicclient: protocol desynchronized")
	ErrNilHandler   = errors.New("logicclient: nil handler")
)

// Error types for logic system operations. Each one reports whether the
// connection it happened on can still be used.

// ConnectionError wraps an I/O failure on the socket: refused dial, failed
// handshake, broken read or write.
//
// Connection handling: the connection is broken and has been closed.
type ConnectionError struct {
	Op   string // dial, handshake, read, write, submit
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("logicclient: %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("logicclient: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ProtocolError reports that responses can no longer be matched to commands:
// an OK or ERR arrived with nothing waiting, or a command received more
// payload than it declared.
//
// Connection handling: CLOSE, every queued command is failed.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "logicclient: protocol error: " + e.Message
}

func (e *ProtocolError) Unwrap() error {
	return ErrDesync
}

func (e *ProtocolError) ShouldCloseConnection() bool {
	return true
}

// CommandError is an ERR response from the server.
//
// Connection handling: the connection stays usable.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("logicclient: %s failed: %s", e.Command, e.Message)
}

func (e *CommandError) ShouldCloseConnection() bool {
	return false
}

// TimeoutError is returned when no response arrived within the command's
// wait budget. It matches ErrTimeout with errors.Is.
//
// Connection handling: the connection stays usable; a late response is
// consumed and discarded.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("logicclient: %s timed out after %s", e.Command, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

func (e *TimeoutError) ShouldCloseConnection() bool {
	return false
}

// UnsupportedTypeError is returned when converting a value of a type the
// client cannot represent.
type UnsupportedTypeError struct {
	Type ParamType
}

func (e *UnsupportedTypeError) Error() string {
	if e.Type == TypeData {
		return "logicclient: data type not supported"
	}
	return fmt.Sprintf("logicclient: unsupported data type: %q", string(e.Type))
}

func (e *UnsupportedTypeError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is implemented by errors that know whether the
// connection they occurred on should be discarded.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
// Unknown error types are treated as fatal.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}
