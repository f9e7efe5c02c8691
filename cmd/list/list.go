package list

import (
	"github.com/spf13/cobra"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/re-tools/re-healthcheck/pkg/cmd"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck"
)

const (
	cmdName  = "list"
	cmdShort = "List suites, checks and parameter maps"
)

const cmdExample = `
  # List every check
  re-healthcheck list

  # List the database checks and their parameter maps as JSON
  re-healthcheck list --suite databases -o json
`

// AddCommand adds the list subcommand to the root command.
func AddCommand(root *cobra.Command, flags *genericclioptions.ConfigFlags) {
	streams := genericiooptions.IOStreams{
		In:     root.InOrStdin(),
		Out:    root.OutOrStdout(),
		ErrOut: root.ErrOrStderr(),
	}

	command := healthcheck.NewListCommand(streams, flags)

	c := &cobra.Command{
		Use:           cmdName,
		Short:         cmdShort,
		Example:       cmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.Execute(c.Context(), command)
		},
	}

	command.AddFlags(c.Flags())
	root.AddCommand(c)
}
