// Package cluster checks the cluster sizing, license and topology.
package cluster

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/rex"
	"github.com/re-tools/re-healthcheck/pkg/suites/shared"
	"github.com/re-tools/re-healthcheck/pkg/util/units"
	"github.com/re-tools/re-healthcheck/pkg/util/version"
)

const (
	Name = "cluster"

	MinNodes          = 3
	MinShards         = 2
	MinCores          = 24
	MinMemory         = 90 * units.GB
	MinEphemeralSize  = 360 * units.GB
	MinPersistentSize = 540 * units.GB

	licenseTimeLayout = "2006-01-02T15:04:05Z"
)

//nolint:gochecknoglobals
var (
	shardsLimitPattern = regexp.MustCompile(`Shards limit : (\d+)\n`)
	masterNodePattern  = regexp.MustCompile(`(node:\d+\s+master.*)`)
)

// Suite checks the cluster as a whole.
type Suite struct {
	check.BaseSuite

	api *api.Client
	rex *rex.Runner
	now func() time.Time
}

// Option configures the Suite.
type Option func(*Suite)

// WithClock replaces the clock used for license expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Suite) {
		s.now = now
	}
}

// New creates the cluster suite. Either collaborator may be nil; checks that
// need a missing one are skipped by the executor.
func New(c *api.Client, r *rex.Runner, opts ...Option) *Suite {
	s := &Suite{
		api: c,
		rex: r,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.BaseSuite = check.BaseSuite{
		SuiteName:        Name,
		SuiteDescription: "Check cluster sizing, license and topology",
		SuiteChecks: []check.Check{
			s.newCheck("CC-001", "Number of nodes", "Check if the cluster has enough nodes",
				"Add nodes to the cluster.", check.RequiresAPI, s.numberOfNodes),
			s.newCheck("CC-002", "Number of shards", "Check if the cluster has enough shards",
				"Add shards to the databases.", check.RequiresAPI, s.numberOfShards),
			s.newCheck("CC-003", "License shards limit", "Check if the shards limit of the license is respected",
				"Reduce the number of shards or extend the license.", check.RequiresAPI, s.licenseShardsLimit),
			s.newCheck("CC-004", "License expiration date", "Check if the license expiration date is in the future",
				"Renew the license.", check.RequiresAPI, s.licenseExpirationDate),
			s.newCheck("CC-005", "License expired", "Check if the license is expired",
				"Renew the license.", check.RequiresAPI, s.licenseExpired),
			s.newCheck("CC-006", "Number of cores", "Check if the cluster has enough cores",
				"Add nodes or cores to the cluster.", check.RequiresAPI, s.numberOfCores),
			s.newCheck("CC-007", "Total memory", "Check if the cluster has enough RAM",
				"Add nodes or RAM to the cluster.", check.RequiresAPI, s.totalMemory),
			s.newCheck("CC-008", "Ephemeral storage", "Check if the cluster has enough ephemeral storage",
				"Increase the ephemeral storage of the nodes.", check.RequiresAPI, s.ephemeralStorage),
			s.newCheck("CC-009", "Persistent storage", "Check if the cluster has enough persistent storage",
				"Increase the persistent storage of the nodes.", check.RequiresAPI, s.persistentStorage),
			s.newCheck("CC-010", "Alert settings", "Get cluster and node alert settings",
				"", check.RequiresAPI, s.alertSettings),
			s.newCheck("CS-001", "Master node", "Get the master node of the cluster",
				"", check.RequiresRemote, s.masterNode),
			s.newCheck("CS-002", "Software versions", "Check if all nodes run the same software version",
				"Upgrade the nodes running an older version.", check.RequiresAPI, s.softwareVersions),
			s.newCheck("CS-003", "Quorum only nodes", "Get the quorum only setting of each node",
				"", check.RequiresAPI|check.RequiresRemote, s.quorumOnly),
		},
	}

	return s
}

func (s *Suite) newCheck(id, name, desc, remedy string, req check.Requirement, run check.RunFunc) check.Check {
	return check.New(check.BaseCheck{
		CheckSuite:       Name,
		CheckID:          id,
		CheckName:        name,
		CheckDescription: desc,
		CheckRemedy:      remedy,
		Requirements:     req,
	}, run)
}

func atLeast(desc string, actual, minimum float64, actualKey, minKey string, format func(float64) any) *check.Result {
	return check.FromBool(actual >= minimum, desc, map[string]any{
		actualKey: format(actual),
		minKey:    format(minimum),
	})
}

func count(v float64) any { return int(v) }

func gb(v float64) any { return units.ToGB(v) + " GB" }

func (s *Suite) numberOfNodes(ctx context.Context, _ check.Params) (*check.Result, error) {
	n, err := s.api.GetNumberOfValues(ctx, "nodes")
	if err != nil {
		return nil, err
	}

	return atLeast("check if enough nodes", float64(n), MinNodes, "number of nodes", "min nodes", count), nil
}

func (s *Suite) numberOfShards(ctx context.Context, _ check.Params) (*check.Result, error) {
	n, err := s.api.GetNumberOfValues(ctx, "shards")
	if err != nil {
		return nil, err
	}

	return atLeast("check if enough shards", float64(n), MinShards, "number of shards", "min shards", count), nil
}

func (s *Suite) licenseShardsLimit(ctx context.Context, _ check.Params) (*check.Result, error) {
	shards, err := s.api.GetNumberOfValues(ctx, "shards")
	if err != nil {
		return nil, err
	}

	text, err := s.api.GetValue(ctx, "license", "license")
	if err != nil {
		return nil, err
	}

	m := shardsLimitPattern.FindStringSubmatch(fmt.Sprint(text))
	if m == nil {
		return nil, fmt.Errorf("%w: no shards limit in license", api.ErrNotFound)
	}

	var limit int
	if _, err := fmt.Sscan(m[1], &limit); err != nil {
		return nil, fmt.Errorf("parsing shards limit %q: %w", m[1], err)
	}

	return check.FromBool(limit >= shards, "check if shards limit in license is respected", map[string]any{
		"shards limit":     limit,
		"number of shards": shards,
	}), nil
}

func (s *Suite) licenseExpirationDate(ctx context.Context, _ check.Params) (*check.Result, error) {
	raw, err := s.api.GetValue(ctx, "license", "expiration_date")
	if err != nil {
		return nil, err
	}

	expires, err := time.Parse(licenseTimeLayout, fmt.Sprint(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing license expiration date: %w", err)
	}

	today := s.now().UTC()

	return check.FromBool(expires.After(today), "check if expiration date is in future", map[string]any{
		"license expiration date": expires.Format(time.DateTime),
		"today":                   today.Format(time.DateTime),
	}), nil
}

func (s *Suite) licenseExpired(ctx context.Context, _ check.Params) (*check.Result, error) {
	raw, err := s.api.GetValue(ctx, "license", "expired")
	if err != nil {
		return nil, err
	}

	expired, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: license expired is %T", api.ErrUnexpectedShape, raw)
	}

	return check.FromBool(!expired, "check if license is expired", map[string]any{
		"license expired": expired,
	}), nil
}

func (s *Suite) sumOfNodes(ctx context.Context, key string) (float64, error) {
	return s.api.GetSumOfValues(ctx, "nodes", key)
}

func (s *Suite) numberOfCores(ctx context.Context, _ check.Params) (*check.Result, error) {
	cores, err := s.sumOfNodes(ctx, "cores")
	if err != nil {
		return nil, err
	}

	return atLeast("check if enough cores", cores, MinCores, "number of cores", "min cores", count), nil
}

func (s *Suite) totalMemory(ctx context.Context, _ check.Params) (*check.Result, error) {
	mem, err := s.sumOfNodes(ctx, "total_memory")
	if err != nil {
		return nil, err
	}

	return atLeast("check if enough RAM", mem, MinMemory, "total memory", "min memory", gb), nil
}

func (s *Suite) ephemeralStorage(ctx context.Context, _ check.Params) (*check.Result, error) {
	size, err := s.sumOfNodes(ctx, "ephemeral_storage_size")
	if err != nil {
		return nil, err
	}

	return atLeast("check if enough ephemeral storage", size, MinEphemeralSize,
		"ephemeral storage size", "min ephemeral size", gb), nil
}

func (s *Suite) persistentStorage(ctx context.Context, _ check.Params) (*check.Result, error) {
	size, err := s.sumOfNodes(ctx, "persistent_storage_size")
	if err != nil {
		return nil, err
	}

	return atLeast("check if enough persistent storage", size, MinPersistentSize,
		"persistent storage size", "min persistent size", gb), nil
}

func (s *Suite) alertSettings(ctx context.Context, _ check.Params) (*check.Result, error) {
	alerts, err := s.api.GetValue(ctx, "cluster", "alert_settings")
	if err != nil {
		return nil, err
	}

	settings, ok := alerts.(map[string]any)
	if !ok {
		return check.NoResult("get cluster and node alert settings", map[string]any{"alerts": alerts}), nil
	}

	return check.NoResult("get cluster and node alert settings", settings), nil
}

func (s *Suite) masterNode(ctx context.Context, _ check.Params) (*check.Result, error) {
	targets := s.rex.Targets()
	if len(targets) == 0 {
		return nil, rex.ErrNoTargets
	}

	out, err := s.rex.ExecOne(ctx, shared.RLAdmin+" status", targets[0])
	if err != nil {
		return nil, err
	}

	m := masterNodePattern.FindStringSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("%w: no master node in rladmin status", api.ErrNotFound)
	}

	fields := strings.Fields(m[1])
	if len(fields) < 5 {
		return nil, fmt.Errorf("%w: short master node line %q", api.ErrUnexpectedShape, m[1])
	}

	return check.Succeeded("get master node", map[string]any{
		"node":       fields[0],
		"IP address": fields[3],
		"hostname":   fields[4],
	}), nil
}

func (s *Suite) softwareVersions(ctx context.Context, _ check.Params) (*check.Result, error) {
	nodes, err := s.api.List(ctx, "nodes")
	if err != nil {
		return nil, err
	}

	details := make(map[string]any, len(nodes)+1)
	versions := make([]string, 0, len(nodes))

	for _, n := range nodes {
		v := shared.String(n, "software_version")
		details[fmt.Sprintf("node:%v", n["uid"])] = v
		versions = append(versions, v)
	}

	latest, err := version.Latest(versions...)
	if err != nil {
		return nil, err
	}

	details["latest"] = latest.String()

	uniform := true
	for _, v := range versions {
		if v != versions[0] {
			uniform = false

			break
		}
	}

	return check.FromBool(uniform, "check if all nodes run the same software version", details), nil
}

func (s *Suite) quorumOnly(ctx context.Context, _ check.Params) (*check.Result, error) {
	q, err := shared.QuorumOnly(ctx, s.api, s.rex)
	if err != nil {
		return nil, err
	}

	details := make(map[string]any, len(q))
	for uid, enabled := range q {
		state := "disabled"
		if enabled {
			state = "enabled"
		}

		details["node:"+uid] = state
	}

	return check.NoResult("get quorum only nodes", details), nil
}
