package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"k8s.io/cli-runtime/pkg/genericclioptions"

	"github.com/re-tools/re-healthcheck/cmd/check"
	"github.com/re-tools/re-healthcheck/cmd/list"
	"github.com/re-tools/re-healthcheck/cmd/version"
	"github.com/re-tools/re-healthcheck/pkg/cmd"
)

func main() {
	flags := genericclioptions.NewConfigFlags(true)

	root := &cobra.Command{
		Use:           "re-healthcheck",
		Short:         "Health checks for Redis Enterprise clusters",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add kubectl-style flags to the root command (inherited by subcommands).
	// They select the cluster and namespace of the k8s backend: --kubeconfig,
	// --context, --namespace, --token, etc.
	flags.AddFlags(root.PersistentFlags())

	version.AddCommand(root, flags)
	check.AddCommand(root, flags)
	list.AddCommand(root, flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := root.ExecuteContext(ctx)

	stop()

	if err == nil {
		return
	}

	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
