package check

import (
	"context"
	"strings"
)

// Requirement is a set of collaborators a check needs in order to run.
type Requirement uint8

const (
	// RequiresAPI marks checks that call the cluster REST API.
	RequiresAPI Requirement = 1 << iota
	// RequiresRemote marks checks that execute commands on cluster nodes.
	RequiresRemote

	RequiresNothing Requirement = 0
)

// Has reports whether every bit of other is set in r.
func (r Requirement) Has(other Requirement) bool {
	return r&other == other
}

func (r Requirement) String() string {
	var parts []string
	if r&RequiresAPI != 0 {
		parts = append(parts, "api")
	}
	if r&RequiresRemote != 0 {
		parts = append(parts, "remote")
	}
	if len(parts) == 0 {
		return "none"
	}

	return strings.Join(parts, ",")
}

// Params is the optional parameter map handed to a check.
type Params map[string]any

// Check is a single diagnostic.
type Check interface {
	ID() string
	Name() string
	Description() string
	Suite() string
	Remedy() string
	Requires() Requirement

	// Run executes the check. A returned error is reported as an ERROR verdict.
	Run(ctx context.Context, params Params) (*Result, error)
}

// Suite is a named group of checks sharing collaborators.
type Suite interface {
	Name() string
	Description() string
	Checks() []Check
}

// BaseCheck provides the metadata accessors of Check.
type BaseCheck struct {
	CheckSuite       string
	CheckID          string
	CheckName        string
	CheckDescription string
	CheckRemedy      string
	Requirements     Requirement
}

func (b BaseCheck) ID() string            { return b.CheckID }
func (b BaseCheck) Name() string          { return b.CheckName }
func (b BaseCheck) Description() string   { return b.CheckDescription }
func (b BaseCheck) Suite() string         { return b.CheckSuite }
func (b BaseCheck) Remedy() string        { return b.CheckRemedy }
func (b BaseCheck) Requires() Requirement { return b.Requirements }

// RunFunc is the body of a check built with New.
type RunFunc func(ctx context.Context, params Params) (*Result, error)

type funcCheck struct {
	BaseCheck

	run RunFunc
}

// New builds a Check from its metadata and body.
func New(base BaseCheck, run RunFunc) Check {
	return &funcCheck{
		BaseCheck: base,
		run:       run,
	}
}

func (c *funcCheck) Run(ctx context.Context, params Params) (*Result, error) {
	return c.run(ctx, params)
}

// BaseSuite implements Suite over a fixed list of checks.
type BaseSuite struct {
	SuiteName        string
	SuiteDescription string
	SuiteChecks      []Check
}

func (s *BaseSuite) Name() string        { return s.SuiteName }
func (s *BaseSuite) Description() string { return s.SuiteDescription }
func (s *BaseSuite) Checks() []Check     { return s.SuiteChecks }
