package healthcheck

import (
	"errors"
	"fmt"
	"os"
	"time"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/config"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/log"
	"github.com/re-tools/re-healthcheck/pkg/rex"
	"github.com/re-tools/re-healthcheck/pkg/util/client"
	"github.com/re-tools/re-healthcheck/pkg/util/iostreams"
)

// DefaultTimeout bounds a whole run unless the config or --timeout says otherwise.
const DefaultTimeout = 30 * time.Minute

const (
	flagDescConfig     = "path to the configuration file (default: ./config.yaml when present)"
	flagDescSuite      = "suite to run (repeatable): cluster, nodes, databases, statistics"
	flagDescChecks     = "check selector (repeatable): '*', a check ID, a glob such as 'NC-00*', or part of the check name"
	flagDescParams     = "parameter map name, or path to a .json/.yaml parameter file"
	flagDescParamsDir  = "root directory of the named parameter maps"
	flagDescOutput     = "output format: console, table, json, yaml, html, syslog"
	flagDescWorkers    = "number of checks running at the same time (default from config, 10)"
	flagDescTimeout    = "maximum duration of the whole run (default from config, 30m)"
	flagDescCheckTO    = "maximum duration of a single check, 0 disables it"
	flagDescMetrics    = "write prometheus metrics of the run to this file"
	flagDescSkipConn   = "do not verify api and remote connections before running checks"
	flagDescVerbose    = "print progress messages to stderr"
	flagDescDebug      = "enable debug logging"
	flagDescListOutput = "output format: table, json, yaml"
)

// SharedOptions contains options common to all health check subcommands.
type SharedOptions struct {
	IO iostreams.Interface

	// ConfigFlags provides access to kubeconfig and context for the k8s backend.
	ConfigFlags *genericclioptions.ConfigFlags

	ConfigFile string
	Verbose    bool
	Debug      bool

	// Config is populated during Complete.
	Config *config.Config
}

func NewSharedOptions(
	streams genericiooptions.IOStreams,
	configFlags *genericclioptions.ConfigFlags,
) *SharedOptions {
	return &SharedOptions{
		ConfigFlags: configFlags,
		IO:          iostreams.FromGeneric(streams),
	}
}

// Complete loads the configuration and initializes logging.
func (o *SharedOptions) Complete() error {
	if o.Config == nil {
		path := o.ConfigFile
		if path == "" {
			if _, err := os.Stat(config.DefaultFile); err == nil {
				path = config.DefaultFile
			}
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		o.Config = cfg
	}

	level, err := log.ParseLevel(o.Config.Log.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	if o.Debug {
		level = log.DebugLevel
	}

	log.Init(log.Config{
		Level:      level,
		JSONOutput: o.Config.Log.JSON,
		Output:     o.IO.ErrOut(),
	})

	if !o.Verbose && !o.Debug {
		o.IO = iostreams.NewQuietWrapper(o.IO)
	}

	return nil
}

// Validate checks that all required options are valid.
func (o *SharedOptions) Validate() error {
	if o.Config == nil {
		return errors.New("configuration not loaded")
	}

	return nil
}

// newAPIClient returns nil when no api section is configured.
func (o *SharedOptions) newAPIClient(opts ...api.Option) (*api.Client, error) {
	cfg, err := o.Config.APIConfig()
	if errors.Is(err, config.ErrNoAPI) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	c, err := api.NewClient(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating api client: %w", err)
	}

	return c, nil
}

// capabilities returns the requirement set satisfied by the given collaborators.
func capabilities(c *api.Client, r *rex.Runner) check.Requirement {
	var caps check.Requirement

	if c != nil {
		caps |= check.RequiresAPI
	}

	if r != nil {
		caps |= check.RequiresRemote
	}

	return caps
}

func newKubernetesClient(flags *genericclioptions.ConfigFlags) (*client.Client, error) {
	if flags == nil {
		return nil, errors.New("k8s backend requires kubeconfig flags")
	}

	restConfig, err := client.NewRESTConfig(flags, client.DefaultQPS, client.DefaultBurst)
	if err != nil {
		return nil, err
	}

	return client.NewClientWithConfig(restConfig)
}
