// Package testutil builds fake cluster collaborators for check suite tests.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/rex"
)

const (
	User     = "admin@cluster.local"
	Password = "secret"
)

// Topics maps API topics such as "nodes" or "bdbs/stats/1" to their JSON payloads.
type Topics map[string]any

// NewAPI starts a TLS server answering the given topics and returns a client for it.
// Payloads are JSON round-tripped so numbers reach the client as float64.
func NewAPI(t *testing.T, topics Topics) *api.Client {
	t.Helper()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != User || pass != Password {
			http.Error(w, `{"error_code":"unauthorized"}`, http.StatusUnauthorized)

			return
		}

		body, ok := topics[strings.TrimPrefix(r.URL.Path, "/v1/")]
		if !ok {
			http.Error(w, `{"error_code":"not_found"}`, http.StatusNotFound)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}

	c, err := api.NewClient(api.Config{
		FQDN:     u.Hostname(),
		Port:     port,
		User:     User,
		Password: Password,
		Insecure: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	return c
}

// Commander answers commands from a fixed table keyed by target and command.
// A command registered with target "*" answers on every target.
type Commander struct {
	mu      sync.Mutex
	outputs map[string]string
	errors  map[string]error
	calls   []rex.Request
}

func NewCommander() *Commander {
	return &Commander{
		outputs: make(map[string]string),
		errors:  make(map[string]error),
	}
}

// On registers the output of cmd on target.
func (c *Commander) On(target string, cmd string, output string) *Commander {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outputs[target+"|"+cmd] = output

	return c
}

// Fail registers an error for cmd on target.
func (c *Commander) Fail(target string, cmd string, err error) *Commander {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors[target+"|"+cmd] = err

	return c
}

// Calls returns the commands executed so far.
func (c *Commander) Calls() []rex.Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]rex.Request(nil), c.calls...)
}

func (c *Commander) Run(_ context.Context, target string, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, rex.Request{Command: cmd, Target: target})

	for _, key := range []string{target + "|" + cmd, "*|" + cmd} {
		if err, ok := c.errors[key]; ok {
			return "", err
		}

		if out, ok := c.outputs[key]; ok {
			return out, nil
		}
	}

	return "", &rex.ExecError{Target: target, Command: cmd, ExitCode: 127, Stderr: "command not found"}
}

// NewRunner returns a runner over targets whose `hostname -i` resolves to addrs.
func NewRunner(c *Commander, targets []string, addrs []string) *rex.Runner {
	for i, t := range targets {
		if i < len(addrs) {
			c.On(t, "hostname -i", addrs[i])
		}
	}

	return rex.NewRunner(c, targets)
}

// Nodes returns a three node payload for the "nodes" topic.
func Nodes() []any {
	nodes := make([]any, 0, 3)
	for i := 1; i <= 3; i++ {
		nodes = append(nodes, map[string]any{
			"uid":                     i,
			"addr":                    "10.0.0." + strconv.Itoa(i),
			"cores":                   8,
			"total_memory":            32 * 1024 * 1024 * 1024,
			"ephemeral_storage_size":  150 * 1024 * 1024 * 1024,
			"persistent_storage_size": 200 * 1024 * 1024 * 1024,
			"ephemeral_storage_path":  "/var/opt/redislabs/tmp",
			"persistent_storage_path": "/var/opt/redislabs/persist",
			"software_version":        "6.2.10-96",
			"status":                  "active",
		})
	}

	return nodes
}
