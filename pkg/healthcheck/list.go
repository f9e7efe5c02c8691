package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/re-tools/re-healthcheck/pkg/cmd"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/params"
	"github.com/re-tools/re-healthcheck/pkg/printer/table"
	"github.com/re-tools/re-healthcheck/pkg/suites"
)

var _ cmd.Command = (*ListCommand)(nil)

// ListedCheck describes a registered check and its parameter maps.
type ListedCheck struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Requires      string   `json:"requires"`
	ParameterMaps []string `json:"parameterMaps,omitempty"`
}

// ListedSuite groups the checks of a suite.
type ListedSuite struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Checks      []ListedCheck `json:"checks"`
}

// ListCommand prints suites, checks and the discovered parameter maps.
type ListCommand struct {
	*SharedOptions

	Suites       []string
	OutputFormat string
	ParamsDir    string
}

func NewListCommand(
	streams genericiooptions.IOStreams,
	configFlags *genericclioptions.ConfigFlags,
) *ListCommand {
	return &ListCommand{
		SharedOptions: NewSharedOptions(streams, configFlags),
		OutputFormat:  "table",
	}
}

func (c *ListCommand) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", "", flagDescConfig)
	fs.StringArrayVarP(&c.Suites, "suite", "s", nil, flagDescSuite)
	fs.StringVarP(&c.OutputFormat, "output", "o", c.OutputFormat, flagDescListOutput)
	fs.StringVar(&c.ParamsDir, "params-dir", "", flagDescParamsDir)
}

func (c *ListCommand) Complete() error {
	if err := c.SharedOptions.Complete(); err != nil {
		return fmt.Errorf("completing shared options: %w", err)
	}

	if c.ParamsDir == "" {
		c.ParamsDir = c.Config.ParameterMaps
	}

	if c.ParamsDir == "" {
		c.ParamsDir = params.DefaultRoot
	}

	return nil
}

func (c *ListCommand) Validate() error {
	switch c.OutputFormat {
	case "table", "json", "yaml":
		return c.SharedOptions.Validate()
	default:
		return fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", c.OutputFormat)
	}
}

func (c *ListCommand) Run(_ context.Context) error {
	listed, err := c.collect()
	if err != nil {
		return err
	}

	switch c.OutputFormat {
	case "json":
		encoder := json.NewEncoder(c.IO.Out())
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(listed); err != nil {
			return fmt.Errorf("encoding checks as JSON: %w", err)
		}

		return nil
	case "yaml":
		data, err := yaml.Marshal(listed)
		if err != nil {
			return fmt.Errorf("encoding checks as YAML: %w", err)
		}

		if _, err := c.IO.Out().Write(data); err != nil {
			return fmt.Errorf("writing checks: %w", err)
		}

		return nil
	default:
		return c.renderTable(listed)
	}
}

// collect lists the built-in suites; no collaborator is needed to describe them.
func (c *ListCommand) collect() ([]ListedSuite, error) {
	registry, err := suites.NewRegistry(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("registering suites: %w", err)
	}

	loader := params.NewLoader(c.ParamsDir)

	var listed []ListedSuite

	for _, s := range registry.ListSuites() {
		checks, err := registry.ListByPattern([]string{check.SelectorAll}, s.Name())
		if err != nil {
			return nil, fmt.Errorf("listing checks of %s: %w", s.Name(), err)
		}

		if len(c.Suites) > 0 && !containsFold(c.Suites, s.Name()) {
			continue
		}

		ls := ListedSuite{Name: s.Name(), Description: s.Description()}

		for _, chk := range checks {
			names, err := loader.Names(s.Name(), chk.ID())
			if err != nil {
				return nil, fmt.Errorf("listing parameter maps of %s: %w", chk.ID(), err)
			}

			ls.Checks = append(ls.Checks, ListedCheck{
				ID:            chk.ID(),
				Name:          chk.Name(),
				Description:   chk.Description(),
				Requires:      chk.Requires().String(),
				ParameterMaps: names,
			})
		}

		listed = append(listed, ls)
	}

	return listed, nil
}

func (c *ListCommand) renderTable(listed []ListedSuite) error {
	renderer := table.NewRenderer(
		table.WithWriter(c.IO.Out()),
		table.WithHeaders("SUITE", "CHECK", "DESCRIPTION", "REQUIRES", "PARAMETER MAPS"),
		table.WithFormatter("PARAMETER MAPS", func(value any) any {
			names, _ := value.([]string)

			return strings.Join(names, ", ")
		}),
		table.WithEmptyValue("-"),
	)

	for _, s := range listed {
		for _, chk := range s.Checks {
			err := renderer.Append([]any{s.Name, chk.ID, chk.Description, chk.Requires, chk.ParameterMaps})
			if err != nil {
				return err
			}
		}
	}

	return renderer.Render()
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}

	return false
}
