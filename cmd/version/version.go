package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"k8s.io/cli-runtime/pkg/genericclioptions"

	"github.com/re-tools/re-healthcheck/internal/version"
)

const (
	cmdName  = "version"
	cmdShort = "Show version information"
)

// AddCommand adds the version subcommand to the root command.
func AddCommand(root *cobra.Command, _ *genericclioptions.ConfigFlags) {
	var outputFormat string

	cmd := &cobra.Command{
		Use:          cmdName,
		Short:        cmdShort,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch outputFormat {
			case "json":
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")

				err := encoder.Encode(map[string]string{
					"version": version.GetVersion(),
					"commit":  version.GetCommit(),
					"date":    version.GetDate(),
				})
				if err != nil {
					return fmt.Errorf("encoding version information as JSON: %w", err)
				}

				return nil
			case "text":
				_, err := fmt.Fprintf(
					cmd.OutOrStdout(),
					"%s version %s (commit: %s, built: %s)\n",
					root.Name(),
					version.GetVersion(),
					version.GetCommit(),
					version.GetDate(),
				)
				if err != nil {
					return fmt.Errorf("writing version information: %w", err)
				}

				return nil
			default:
				return fmt.Errorf("unsupported output format: %s (supported: text, json)", outputFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text|json)")

	root.AddCommand(cmd)
}
