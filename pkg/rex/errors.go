package rex

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTarget is returned for targets that are not part of the configured target list.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrNoTargets is returned when a broadcast is requested without any configured target.
	ErrNoTargets = errors.New("no remote targets configured")
)

// ExecError is returned when a remote command exits with a non-zero status.
type ExecError struct {
	Target   string
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command %q on %s failed (return code %d)", e.Command, e.Target, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
