package nodes

import (
	"context"
	"fmt"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/suites/shared"
	"github.com/re-tools/re-healthcheck/pkg/util/units"
)

const (
	maxCPUUsage = 0.8
	maxRAMUsage = 2.0 / 3.0
)

type nodeStats struct {
	uid       string
	label     string
	intervals []map[string]any
}

// stats returns the interval samples of every node. Quorum-only nodes are
// marked in the label when remote execution is available.
func (s *Suite) stats(ctx context.Context) ([]nodeStats, error) {
	var quorumOnly map[string]bool

	if s.rex != nil && len(s.rex.Targets()) > 0 {
		q, err := shared.QuorumOnly(ctx, s.api, s.rex)
		if err != nil {
			return nil, err
		}

		quorumOnly = q
	}

	list, err := s.api.List(ctx, "nodes/stats")
	if err != nil {
		return nil, err
	}

	result := make([]nodeStats, 0, len(list))
	for _, st := range list {
		ints, err := shared.Intervals(st)
		if err != nil {
			return nil, err
		}

		uid := fmt.Sprint(st["uid"])
		result = append(result, nodeStats{
			uid:       uid,
			label:     shared.NodeName(uid, quorumOnly),
			intervals: ints,
		})
	}

	return result, nil
}

func percent(v float64) string {
	return units.ToPercent(v * 100)
}

func (s *Suite) cpuUsage(ctx context.Context, _ check.Params) (*check.Result, error) {
	stats, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}

	ok := true
	details := make(map[string]any, len(stats))

	for _, st := range stats {
		u, err := units.CalcUsageFunc(st.intervals, "cpu_idle", func(idle float64) float64 { return 1 - idle })
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", st.uid, err)
		}

		if u.Max > maxCPUUsage {
			ok = false
		}

		details[st.label] = u.Format(percent) + " %"
	}

	return check.FromBool(ok, "check CPU usage (min/avg/max/dev)", details), nil
}

// used converts the availability samples of key into used amounts of total.
// Min and Max swap because the lowest availability is the highest usage.
func used(avail units.Usage, total float64) units.Usage {
	return units.Usage{
		Min:    total - avail.Max,
		Avg:    total - avail.Avg,
		Max:    total - avail.Min,
		StdDev: avail.StdDev,
	}
}

func formatUsed(u units.Usage, total float64) string {
	pct := func(v float64) string { return units.ToPercent(100 / total * v) }

	return fmt.Sprintf("%s GB (%s %%)", u.Format(units.ToGB), u.Format(pct))
}

func (s *Suite) ramUsage(ctx context.Context, _ check.Params) (*check.Result, error) {
	stats, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}

	ok := true
	details := make(map[string]any, len(stats))

	for _, st := range stats {
		total, err := s.nodeValue(ctx, st.uid, "total_memory")
		if err != nil {
			return nil, err
		}

		free, err := units.CalcUsage(st.intervals, "free_memory")
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", st.uid, err)
		}

		u := used(free, total)
		if u.Max > total*maxRAMUsage {
			ok = false
		}

		details[st.label] = formatUsed(u, total)
	}

	return check.FromBool(ok, "check RAM usage (min/avg/max/dev)", details), nil
}

func (s *Suite) nodeValue(ctx context.Context, uid string, key string) (float64, error) {
	v, err := s.api.GetValue(ctx, "nodes/"+uid, key)
	if err != nil {
		return 0, err
	}

	n, ok := v.(float64)
	if !ok || n == 0 {
		return 0, fmt.Errorf("node %s has no %s", uid, key)
	}

	return n, nil
}

func (s *Suite) storageUsage(ctx context.Context, sizeKey, availKey, desc string) (*check.Result, error) {
	stats, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}

	details := make(map[string]any, len(stats))

	for _, st := range stats {
		total, err := s.nodeValue(ctx, st.uid, sizeKey)
		if err != nil {
			return nil, err
		}

		avail, err := units.CalcUsage(st.intervals, availKey)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", st.uid, err)
		}

		details[st.label] = formatUsed(used(avail, total), total)
	}

	return check.NoResult(desc, details), nil
}

func (s *Suite) ephemeralStorageUsage(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.storageUsage(ctx, "ephemeral_storage_size", "ephemeral_storage_avail",
		"get ephemeral storage usage (min/avg/max/dev)")
}

func (s *Suite) persistentStorageUsage(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.storageUsage(ctx, "persistent_storage_size", "persistent_storage_avail",
		"get persistent storage usage (min/avg/max/dev)")
}
