// Package cmd holds the contract shared by the CLI subcommands.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"
)

// Command is implemented by every subcommand: flags are registered with
// AddFlags, then Complete, Validate and Run are invoked in that order.
type Command interface {
	AddFlags(fs *pflag.FlagSet)
	Complete() error
	Validate() error
	Run(ctx context.Context) error
}

// Execute runs the Complete, Validate and Run phases of c.
func Execute(ctx context.Context, c Command) error {
	if err := c.Complete(); err != nil {
		return err
	}

	if err := c.Validate(); err != nil {
		return err
	}

	return c.Run(ctx)
}

// ExitError asks main to terminate with Code without printing anything else;
// the command has already reported the outcome.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
