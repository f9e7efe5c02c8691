// Package statistics reports throughput and memory peaks of the cluster and its parts.
package statistics

import (
	"context"
	"errors"
	"fmt"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/suites/shared"
	"github.com/re-tools/re-healthcheck/pkg/util/units"
)

const Name = "statistics"

// Suite reports statistics peaks read from the REST API.
type Suite struct {
	check.BaseSuite

	api *api.Client
}

// New creates the statistics suite.
func New(c *api.Client) *Suite {
	s := &Suite{api: c}

	s.BaseSuite = check.BaseSuite{
		SuiteName:        Name,
		SuiteDescription: "Get throughput and memory peaks of cluster, nodes, databases and shards",
		SuiteChecks: []check.Check{
			newCheck("ST-001", "Cluster statistics", "Get cluster statistics", s.cluster),
			newCheck("ST-002", "Node statistics", "Get node statistics", s.nodes),
			newCheck("ST-003", "Database statistics", "Get database statistics", s.bdbs),
			newCheck("ST-004", "Shard statistics", "Get shard statistics", s.shards),
		},
	}

	return s
}

func newCheck(id, name, desc string, run check.RunFunc) check.Check {
	return check.New(check.BaseCheck{
		CheckSuite:       Name,
		CheckID:          id,
		CheckName:        name,
		CheckDescription: desc,
		Requirements:     check.RequiresAPI,
	}, run)
}

// peak describes one figure extracted from interval samples.
type peak struct {
	label string
	key   string
	max   bool
}

func extract(ints []map[string]any, peaks []peak) (map[string]any, error) {
	out := make(map[string]any, len(peaks))

	for _, p := range peaks {
		u, err := units.CalcUsage(ints, p.key)
		if errors.Is(err, units.ErrNoValues) {
			out[p.label] = nil

			continue
		}

		if err != nil {
			return nil, err
		}

		if p.max {
			out[p.label] = u.Max
		} else {
			out[p.label] = u.Min
		}
	}

	return out, nil
}

func (s *Suite) cluster(ctx context.Context, _ check.Params) (*check.Result, error) {
	stats, err := s.api.Object(ctx, "cluster/stats")
	if err != nil {
		return nil, err
	}

	ints, err := shared.Intervals(stats)
	if err != nil {
		return nil, err
	}

	details, err := extract(ints, []peak{
		{label: "max throughput", key: "total_req", max: true},
		{label: "min free memory", key: "free_memory"},
	})
	if err != nil {
		return nil, err
	}

	return check.NoResult("get cluster statistics", details), nil
}

func (s *Suite) list(ctx context.Context, topic string, prefix string, peaks []peak) (map[string]any, error) {
	list, err := s.api.List(ctx, topic)
	if err != nil {
		return nil, err
	}

	details := make(map[string]any, len(list))

	for _, st := range list {
		ints, err := shared.Intervals(st)
		if err != nil {
			return nil, err
		}

		figures, err := extract(ints, peaks)
		if err != nil {
			return nil, err
		}

		details[fmt.Sprintf("%s:%v", prefix, st["uid"])] = figures
	}

	return details, nil
}

func (s *Suite) nodes(ctx context.Context, _ check.Params) (*check.Result, error) {
	details, err := s.list(ctx, "nodes/stats", "node", []peak{
		{label: "max throughput", key: "total_req", max: true},
		{label: "min free memory", key: "free_memory"},
	})
	if err != nil {
		return nil, err
	}

	return check.NoResult("get node statistics", details), nil
}

func (s *Suite) bdbs(ctx context.Context, _ check.Params) (*check.Result, error) {
	details, err := s.list(ctx, "bdbs/stats", "db", []peak{
		{label: "max throughput", key: "instantaneous_ops_per_sec", max: true},
		{label: "max memory usage", key: "used_memory", max: true},
	})
	if err != nil {
		return nil, err
	}

	return check.NoResult("get database statistics", details), nil
}

func (s *Suite) shards(ctx context.Context, _ check.Params) (*check.Result, error) {
	details, err := s.list(ctx, "shards/stats", "shard", []peak{
		{label: "max throughput", key: "total_req", max: true},
		{label: "max memory usage", key: "used_memory_peak", max: true},
	})
	if err != nil {
		return nil, err
	}

	return check.NoResult("get shard statistics", details), nil
}
