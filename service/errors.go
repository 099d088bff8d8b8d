package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the coordinators. Lower components never
// swallow failures; coordinators translate raw errors into one of these
// before exposing them to callers.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrAborted        = errors.New("aborted")
	ErrNotFound       = errors.New("not found")
	ErrRemoteRejected = errors.New("remote rejected upload")
)

// ProcessError reports an external tool that failed to spawn or exited
// non-zero, carrying the tail of its stderr.
type ProcessError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// InvalidWindowError names the trim window that failed validation.
type InvalidWindowError struct {
	Index int
	Start float64
	End   float64
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid window %d: start=%g end=%g", e.Index, e.Start, e.End)
}

func (e *InvalidWindowError) Unwrap() error {
	return ErrInvalidInput
}

const maxStderrTail = 2048

func stderrTail(buf []byte) string {
	if len(buf) > maxStderrTail {
		buf = buf[len(buf)-maxStderrTail:]
	}
	return string(buf)
}
