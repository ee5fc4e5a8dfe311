package cddb

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record or match does not exist.
	ErrNotFound = errors.New("cddb: entry not found")
	// ErrServerFault is returned when the server reports an internal failure.
	ErrServerFault = errors.New("cddb: server fault")
	// ErrHandshake is returned when the server refuses or requires a handshake.
	ErrHandshake = errors.New("cddb: handshake required")
	// ErrMalformed is returned for input that cannot be interpreted.
	ErrMalformed = errors.New("cddb: malformed input")
)

// StatusError carries a protocol status that ended an operation.
type StatusError struct {
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: status %d", e.Op, e.Code)
	if e.Message != "" {
		msg += " " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// ErrorForStatus classifies a failure status code.
func ErrorForStatus(code int) error {
	switch code {
	case StatusUnavailable, StatusServerError, StatusCorrupt, StatusCGIError:
		return ErrServerFault
	case StatusNoHandshake, StatusBadHandshake:
		return ErrHandshake
	case StatusSyntaxError, StatusIllegal:
		return ErrMalformed
	default:
		return ErrServerFault
	}
}
