package rex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Commander executes a single shell command on a single target and returns
// its trimmed standard output.
type Commander interface {
	Run(ctx context.Context, target string, cmd string) (string, error)
}

// runLocal executes a local program and converts non-zero exits into *ExecError.
func runLocal(ctx context.Context, target string, command string, name string, args ...string) (string, error) {
	c := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("executing %q on %s: %w", command, target, ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExecError{
				Target:   target,
				Command:  command,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
				Err:      err,
			}
		}

		return "", fmt.Errorf("executing %q on %s: %w", command, target, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
