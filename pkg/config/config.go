// Package config loads the health check configuration file.
// It uses koanf to parse a YAML file and lets environment variables override
// the API credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/rex"
)

// DefaultFile is read when no --config flag is given.
const DefaultFile = "config.yaml"

// Environment variables overriding the api section.
const (
	EnvAPIFQDN     = "RE_API_FQDN"
	EnvAPIUser     = "RE_API_USER"
	EnvAPIPassword = "RE_API_PASSWORD"
)

var (
	// ErrNoAPI is returned by APIConfig when no api section is configured.
	ErrNoAPI = errors.New("no api section configured")

	// ErrIncompleteAPI is returned when the api section misses a required key.
	ErrIncompleteAPI = errors.New("incomplete api section")
)

// Backend names the remote command transport.
type Backend string

const (
	BackendNone   Backend = ""
	BackendSSH    Backend = "ssh"
	BackendDocker Backend = "docker"
	BackendK8s    Backend = "k8s"
)

type APIConfig struct {
	FQDN      string        `koanf:"fqdn"`
	Port      int           `koanf:"port"`
	User      string        `koanf:"user"`
	Password  string        `koanf:"password"`
	VerifyTLS bool          `koanf:"verify_tls"`
	Timeout   time.Duration `koanf:"timeout"`
}

type SSHConfig struct {
	User    string   `koanf:"user"`
	Key     string   `koanf:"key"`
	Hosts   []string `koanf:"hosts"`
	Options []string `koanf:"options"`
}

type DockerConfig struct {
	Containers []string `koanf:"containers"`
	Binary     string   `koanf:"binary"`
}

// K8sConfig selects the Redis Enterprise pods. Explicit Pods win over Selector.
type K8sConfig struct {
	Enabled   bool     `koanf:"enabled"`
	Namespace string   `koanf:"namespace"`
	Container string   `koanf:"container"`
	Pods      []string `koanf:"pods"`
	Selector  string   `koanf:"selector"`
}

type RendererConfig struct {
	Module string `koanf:"module"`
}

type ExecutorConfig struct {
	Workers      int           `koanf:"workers"`
	Timeout      time.Duration `koanf:"timeout"`
	CheckTimeout time.Duration `koanf:"check_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// Config is the parsed configuration file.
type Config struct {
	API      APIConfig      `koanf:"api"`
	SSH      SSHConfig      `koanf:"ssh"`
	Docker   DockerConfig   `koanf:"docker"`
	K8s      K8sConfig      `koanf:"k8s"`
	Renderer RendererConfig `koanf:"renderer"`
	Executor ExecutorConfig `koanf:"executor"`
	Log      LogConfig      `koanf:"log"`
	// ParameterMaps is the root directory of the named parameter maps.
	ParameterMaps string `koanf:"parameter_maps"`

	hasAPI bool
}

// Load reads the YAML file at path and applies environment overrides.
// An empty path loads only the defaults and the environment; a missing file is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	cfg := Default()

	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           cfg,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}

	cfg.hasAPI = k.Exists("api")

	if k.Exists("k8s") && !k.Exists("k8s.enabled") {
		cfg.K8s.Enabled = true
	}

	cfg.applyEnv(os.Getenv)
	cfg.normalize()

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Port:    api.DefaultPort,
			Timeout: api.DefaultTimeout,
		},
		K8s: K8sConfig{
			Selector: rex.DefaultPodSelector,
		},
		Executor: ExecutorConfig{
			Workers: check.DefaultWorkers,
		},
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	overrides := map[string]*string{
		EnvAPIFQDN:     &c.API.FQDN,
		EnvAPIUser:     &c.API.User,
		EnvAPIPassword: &c.API.Password,
	}

	for env, field := range overrides {
		if v := getenv(env); v != "" {
			*field = v
			c.hasAPI = true
		}
	}
}

func (c *Config) normalize() {
	c.SSH.Hosts = trimAll(c.SSH.Hosts)
	c.Docker.Containers = trimAll(c.Docker.Containers)
	c.K8s.Pods = trimAll(c.K8s.Pods)
	c.API.FQDN = strings.TrimSpace(c.API.FQDN)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

// HasAPI reports whether the REST API is configured.
func (c *Config) HasAPI() bool {
	return c.hasAPI
}

// APIConfig converts the api section into a client configuration.
func (c *Config) APIConfig() (api.Config, error) {
	if !c.hasAPI {
		return api.Config{}, ErrNoAPI
	}

	var missing []string

	if c.API.FQDN == "" {
		missing = append(missing, "fqdn")
	}

	if c.API.User == "" {
		missing = append(missing, "user")
	}

	if c.API.Password == "" {
		missing = append(missing, "password")
	}

	if len(missing) > 0 {
		return api.Config{}, fmt.Errorf("%w: missing %s", ErrIncompleteAPI, strings.Join(missing, ", "))
	}

	return api.Config{
		FQDN:     c.API.FQDN,
		Port:     c.API.Port,
		User:     c.API.User,
		Password: c.API.Password,
		Insecure: !c.API.VerifyTLS,
		Timeout:  c.API.Timeout,
	}, nil
}

// Backend returns the configured remote transport. When more than one is
// configured ssh wins over docker, and docker over k8s.
func (c *Config) Backend() Backend {
	switch {
	case len(c.SSH.Hosts) > 0:
		return BackendSSH
	case len(c.Docker.Containers) > 0:
		return BackendDocker
	case c.K8s.Enabled:
		return BackendK8s
	default:
		return BackendNone
	}
}

// SSHCommander builds the ssh transport from the ssh section.
func (c *Config) SSHCommander() *rex.SSHCommander {
	return &rex.SSHCommander{
		User:    c.SSH.User,
		KeyFile: c.SSH.Key,
		Options: c.SSH.Options,
	}
}

// DockerCommander builds the docker transport from the docker section.
func (c *Config) DockerCommander() *rex.DockerCommander {
	return &rex.DockerCommander{Binary: c.Docker.Binary}
}
