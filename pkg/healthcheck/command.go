// Package healthcheck implements the check and list subcommands.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/cmd"
	"github.com/re-tools/re-healthcheck/pkg/config"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/params"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/stats"
	"github.com/re-tools/re-healthcheck/pkg/metrics"
	"github.com/re-tools/re-healthcheck/pkg/printer"
	"github.com/re-tools/re-healthcheck/pkg/rex"
	"github.com/re-tools/re-healthcheck/pkg/suites"
	"github.com/re-tools/re-healthcheck/pkg/util/client"
)

// Verify Command implements cmd.Command interface at compile time.
var _ cmd.Command = (*Command)(nil)

// ErrNoChecks is returned when the selectors match no registered check.
var ErrNoChecks = errors.New("no checks matched, examine --suite and --checks")

//nolint:gochecknoglobals
var (
	connOK   = color.New(color.FgGreen).Sprint("succeeded")
	connFail = color.New(color.FgRed).Sprint("failed")
)

// Command runs the selected checks against a cluster.
type Command struct {
	*SharedOptions

	Suites               []string
	CheckSelectors       []string
	Params               string
	ParamsDir            string
	OutputFormat         printer.Format
	Workers              int
	Timeout              time.Duration
	CheckTimeout         time.Duration
	MetricsFile          string
	SkipConnectionChecks bool

	// Collaborators are built from the configuration unless injected with options.
	api     *api.Client
	rex     *rex.Runner
	metrics *metrics.Metrics
	params  *params.Loader

	clusterName string
	stats       stats.Stats
}

// CommandOption is a functional option for configuring a Command.
type CommandOption func(*Command)

// WithAPIClient injects the REST API client instead of building it from the config.
func WithAPIClient(c *api.Client) CommandOption {
	return func(cmd *Command) {
		cmd.api = c
	}
}

// WithRunner injects the remote command runner instead of building it from the config.
func WithRunner(r *rex.Runner) CommandOption {
	return func(cmd *Command) {
		cmd.rex = r
	}
}

// WithConfig skips loading the configuration file.
func WithConfig(cfg *config.Config) CommandOption {
	return func(cmd *Command) {
		cmd.Config = cfg
	}
}

// WithParamsLoader replaces the parameter map loader.
func WithParamsLoader(l *params.Loader) CommandOption {
	return func(cmd *Command) {
		cmd.params = l
	}
}

func NewCommand(
	streams genericiooptions.IOStreams,
	configFlags *genericclioptions.ConfigFlags,
	options ...CommandOption,
) *Command {
	c := &Command{
		SharedOptions:  NewSharedOptions(streams, configFlags),
		CheckSelectors: []string{check.SelectorAll},
		metrics:        metrics.New(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// AddFlags registers command-specific flags with the provided FlagSet.
func (c *Command) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", "", flagDescConfig)
	fs.StringArrayVarP(&c.Suites, "suite", "s", nil, flagDescSuite)
	fs.StringArrayVarP(&c.CheckSelectors, "checks", "c", c.CheckSelectors, flagDescChecks)
	fs.StringVarP(&c.Params, "params", "p", "", flagDescParams)
	fs.StringVar(&c.ParamsDir, "params-dir", "", flagDescParamsDir)
	fs.StringVarP((*string)(&c.OutputFormat), "output", "o", "", flagDescOutput)
	fs.IntVar(&c.Workers, "workers", 0, flagDescWorkers)
	fs.DurationVar(&c.Timeout, "timeout", 0, flagDescTimeout)
	fs.DurationVar(&c.CheckTimeout, "check-timeout", 0, flagDescCheckTO)
	fs.StringVar(&c.MetricsFile, "metrics-file", "", flagDescMetrics)
	fs.BoolVar(&c.SkipConnectionChecks, "skip-connection-checks", false, flagDescSkipConn)
	fs.BoolVarP(&c.Verbose, "verbose", "v", false, flagDescVerbose)
	fs.BoolVar(&c.Debug, "debug", false, flagDescDebug)
}

// Complete fills unset flags from the configuration and builds the API client.
// The remote runner is built in Run because pod discovery needs a context.
func (c *Command) Complete() error {
	if err := c.SharedOptions.Complete(); err != nil {
		return fmt.Errorf("completing shared options: %w", err)
	}

	cfg := c.Config

	if c.OutputFormat == "" {
		c.OutputFormat = printer.Format(cfg.Renderer.Module)
	}

	if c.OutputFormat == "" {
		c.OutputFormat = printer.FormatConsole
	}

	if c.Workers == 0 {
		c.Workers = cfg.Executor.Workers
	}

	if c.Timeout == 0 {
		c.Timeout = cfg.Executor.Timeout
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.CheckTimeout == 0 {
		c.CheckTimeout = cfg.Executor.CheckTimeout
	}

	if c.params == nil {
		dir := c.ParamsDir
		if dir == "" {
			dir = cfg.ParameterMaps
		}

		if dir == "" {
			dir = params.DefaultRoot
		}

		c.params = params.NewLoader(dir)
	}

	if c.api == nil {
		apiClient, err := c.newAPIClient(api.WithMetrics(c.metrics))
		if err != nil {
			return err
		}

		c.api = apiClient
	}

	c.clusterName = cfg.API.FQDN

	return nil
}

// Validate checks that all required options are valid.
func (c *Command) Validate() error {
	if err := c.SharedOptions.Validate(); err != nil {
		return fmt.Errorf("validating shared options: %w", err)
	}

	if err := c.OutputFormat.Validate(); err != nil {
		return err
	}

	if err := check.ValidateSelectors(c.CheckSelectors); err != nil {
		return err
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.Timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}

	if c.CheckTimeout < 0 {
		return errors.New("check timeout must not be negative")
	}

	if c.Params != "" && !params.IsFile(c.Params) && len(c.Suites) == 0 && c.selectsAll() {
		return errors.New("a named --params map requires --suite or --checks")
	}

	return nil
}

func (c *Command) selectsAll() bool {
	for _, s := range c.CheckSelectors {
		if s != check.SelectorAll {
			return false
		}
	}

	return true
}

// Stats returns the counters of the last run.
func (c *Command) Stats() stats.Stats {
	return c.stats
}

// Run executes the selected checks and renders their results.
// A run with failed or errored checks returns a *cmd.ExitError.
func (c *Command) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if c.rex == nil {
		runner, err := c.newRunner(ctx)
		if err != nil {
			return err
		}

		c.rex = runner
	}

	if c.api == nil && c.rex == nil {
		return errors.New("neither api nor a remote backend (ssh, docker, k8s) is configured")
	}

	if !c.SkipConnectionChecks {
		if err := c.checkConnections(ctx); err != nil {
			return err
		}
	}

	registry, err := suites.NewRegistry(c.api, c.rex)
	if err != nil {
		return fmt.Errorf("registering suites: %w", err)
	}

	checks, err := registry.ListByPattern(c.CheckSelectors, c.Suites...)
	if err != nil {
		return fmt.Errorf("selecting checks: %w", err)
	}

	if len(checks) == 0 {
		return ErrNoChecks
	}

	// parameter maps are resolved up front so a bad --params fails before any check runs
	resolved := make([]check.Params, len(checks))
	for i, chk := range checks {
		p, err := c.params.Resolve(c.Params, chk.Suite(), chk.ID())
		if err != nil {
			return fmt.Errorf("loading parameters of %s: %w", chk.ID(), err)
		}

		resolved[i] = p
	}

	renderer, err := printer.NewRenderer(printer.Options{
		OutputFormat: c.OutputFormat,
		IO:           c.IO,
		ClusterName:  c.clusterName,
	})
	if err != nil {
		return err
	}

	if err := c.execute(ctx, renderer, checks, resolved); err != nil {
		return err
	}

	if c.MetricsFile != "" {
		if err := c.metrics.WriteToTextfile(c.MetricsFile); err != nil {
			return err
		}
	}

	if code := c.stats.ExitCode(); code != stats.ExitOK {
		return &cmd.ExitError{Code: code}
	}

	return nil
}

func (c *Command) execute(ctx context.Context, renderer printer.Renderer, checks []check.Check, resolved []check.Params) error {
	collector := stats.NewCollector()

	var renderErr error

	executor := check.NewExecutor(
		func(r *check.Result) {
			collector.Collect(r.Verdict)

			if err := renderer.RenderResult(r); err != nil {
				renderErr = errors.Join(renderErr, err)
			}
		},
		check.WithWorkers(c.Workers),
		check.WithTimeout(c.CheckTimeout),
		check.WithCapabilities(capabilities(c.api, c.rex)),
		check.WithMetrics(c.metrics),
	)
	defer executor.Shutdown()

	c.IO.Errorf("running %d checks with %d workers", len(checks), c.Workers)

	for i, chk := range checks {
		if err := executor.Execute(ctx, chk, resolved[i]); err != nil {
			return fmt.Errorf("scheduling %s: %w", chk.ID(), err)
		}
	}

	executor.Wait()

	c.stats = collector.Stats()

	if err := renderer.RenderStats(c.stats); err != nil {
		renderErr = errors.Join(renderErr, err)
	}

	if renderErr != nil {
		return fmt.Errorf("rendering results: %w", renderErr)
	}

	return nil
}

func (c *Command) checkConnections(ctx context.Context) error {
	if c.api != nil {
		name, err := c.api.CheckConnection(ctx)
		if err != nil {
			c.IO.Errorf("api connection %s", connFail)

			return err
		}

		c.clusterName = name
		c.IO.Errorf("api connection to %s %s", name, connOK)
	}

	if c.rex != nil {
		if err := c.rex.CheckConnection(ctx); err != nil {
			c.IO.Errorf("remote connection %s", connFail)

			return err
		}

		c.IO.Errorf("remote connection to %d nodes %s", len(c.rex.Targets()), connOK)
	}

	return nil
}

// newRunner returns nil when no remote backend is configured.
func (c *Command) newRunner(ctx context.Context) (*rex.Runner, error) {
	opts := []rex.RunnerOption{rex.WithRunnerMetrics(c.metrics)}
	cfg := c.Config

	switch cfg.Backend() {
	case config.BackendSSH:
		return rex.NewRunner(cfg.SSHCommander(), cfg.SSH.Hosts, opts...), nil
	case config.BackendDocker:
		return rex.NewRunner(cfg.DockerCommander(), cfg.Docker.Containers, opts...), nil
	case config.BackendK8s:
		return c.newKubernetesRunner(ctx, opts)
	default:
		return nil, nil
	}
}

func (c *Command) newKubernetesRunner(ctx context.Context, opts []rex.RunnerOption) (*rex.Runner, error) {
	kc, err := newKubernetesClient(c.ConfigFlags)
	if err != nil {
		return nil, err
	}

	ns := c.Config.K8s.Namespace
	if ns == "" {
		ns, err = client.Namespace(c.ConfigFlags)
		if err != nil {
			return nil, err
		}
	}

	pods := c.Config.K8s.Pods
	if len(pods) == 0 {
		pods, err = rex.DiscoverPods(ctx, kc, ns, c.Config.K8s.Selector)
		if err != nil {
			return nil, client.WithAccessHint(err, ns)
		}
	}

	if len(pods) == 0 {
		return nil, fmt.Errorf("no running pods match %q in namespace %s", c.Config.K8s.Selector, ns)
	}

	c.IO.Errorf("using pods %v in namespace %s", pods, ns)

	commander := &rex.KubernetesCommander{
		Clientset: kc.Clientset,
		Config:    kc.RESTConfig,
		Namespace: ns,
		Container: c.Config.K8s.Container,
	}

	return rex.NewRunner(commander, pods, opts...), nil
}
