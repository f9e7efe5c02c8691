package check

import (
	"github.com/spf13/cobra"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/re-tools/re-healthcheck/pkg/cmd"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck"
)

const (
	cmdName  = "check"
	cmdShort = "Run health checks against a Redis Enterprise cluster"
)

const cmdLong = `
Runs health checks against a Redis Enterprise cluster and renders one result
per check followed by a summary.

Checks read cluster state through the REST API and, when a remote backend is
configured, by running commands on the nodes over ssh, docker exec or
kubernetes pod exec. Checks whose requirements are not met are skipped.

Connection settings are read from ./config.yaml (or --config) and the
RE_API_FQDN, RE_API_USER and RE_API_PASSWORD environment variables.

The exit status is 1 when a check failed, otherwise 2 when a check errored,
and 0 when neither happened.
`

const cmdExample = `
  # Run every check and print the results to the console
  re-healthcheck check

  # Run the cluster suite only, as JSON lines
  re-healthcheck check --suite cluster -o json

  # Run the node checks NC-001 to NC-009 with the "prod" parameter map
  re-healthcheck check --checks 'NC-00*' --params prod

  # Write an HTML report with at most 4 checks running at the same time
  re-healthcheck check -o html --workers 4 > report.html

  # Run against a cluster deployed with the Redis Enterprise operator
  re-healthcheck check --namespace redis --context prod-cluster
`

// AddCommand adds the check subcommand to the root command.
func AddCommand(root *cobra.Command, flags *genericclioptions.ConfigFlags) {
	streams := genericiooptions.IOStreams{
		In:     root.InOrStdin(),
		Out:    root.OutOrStdout(),
		ErrOut: root.ErrOrStderr(),
	}

	command := healthcheck.NewCommand(streams, flags)

	c := &cobra.Command{
		Use:           cmdName,
		Short:         cmdShort,
		Long:          cmdLong,
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
