// Package suites wires the built-in check suites to their collaborators.
package suites

import (
	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/rex"
	"github.com/re-tools/re-healthcheck/pkg/suites/cluster"
	"github.com/re-tools/re-healthcheck/pkg/suites/databases"
	"github.com/re-tools/re-healthcheck/pkg/suites/nodes"
	"github.com/re-tools/re-healthcheck/pkg/suites/statistics"
)

// All returns the built-in suites. Either collaborator may be nil.
func All(c *api.Client, r *rex.Runner) []check.Suite {
	return []check.Suite{
		cluster.New(c, r),
		nodes.New(c, r),
		databases.New(c),
		statistics.New(c),
	}
}

// NewRegistry returns a registry holding every built-in suite.
func NewRegistry(c *api.Client, r *rex.Runner) (*check.CheckRegistry, error) {
	reg := check.NewRegistry()

	for _, s := range All(c, r) {
		if err := reg.RegisterSuite(s); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
