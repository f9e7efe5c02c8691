package databases

import (
	"context"
	"fmt"
	"strings"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/suites/shared"
	"github.com/re-tools/re-healthcheck/pkg/util/units"
)

const (
	MaxShardOps         = 25000
	MaxShardOpsCRDT     = 17500
	MaxShardOpsBigstore = 5000

	MaxShardMemory         = 25 * units.GB
	MaxShardMemoryBigstore = 50 * units.GB
)

func (s *Suite) intervals(ctx context.Context, topic string) (map[string]any, []map[string]any, error) {
	stats, err := s.api.Object(ctx, topic)
	if err != nil {
		return nil, nil, err
	}

	ints, err := shared.Intervals(stats)
	if err != nil {
		return nil, nil, err
	}

	return stats, ints, nil
}

// shardUsage summarizes key for the database and each of its shards and
// reports whether any shard exceeds limit.
func (s *Suite) shardUsage(
	ctx context.Context,
	b bdb,
	key string,
	limit float64,
	format func(units.Usage) string,
) (map[string]any, bool, error) {
	_, ints, err := s.intervals(ctx, "bdbs/stats/"+b.UID)
	if err != nil {
		return nil, false, err
	}

	total, err := units.CalcUsage(ints, key)
	if err != nil {
		return nil, false, fmt.Errorf("database %s: %w", b.Name, err)
	}

	info := map[string]any{"total": format(total)}
	ok := true

	for _, uid := range b.ShardList {
		stats, ints, err := s.intervals(ctx, "shards/stats/"+uid)
		if err != nil {
			return nil, false, err
		}

		u, err := units.CalcUsage(ints, key)
		if err != nil {
			return nil, false, fmt.Errorf("shard %s: %w", uid, err)
		}

		if u.Max > limit {
			ok = false
		}

		info[fmt.Sprintf("shard:%s (%s)", uid, shared.String(stats, "role"))] = format(u)
	}

	return info, ok, nil
}

func (s *Suite) throughput(ctx context.Context, _ check.Params) (*check.Result, error) {
	_, bdbs, err := s.bdbs(ctx)
	if err != nil {
		return nil, err
	}

	ok := true
	details := make(map[string]any, len(bdbs))

	for _, b := range bdbs {
		limit := float64(MaxShardOps)

		switch {
		case b.Bigstore:
			limit = MaxShardOpsBigstore
		case b.CRDTSync != "" && b.CRDTSync != "disabled":
			limit = MaxShardOpsCRDT
		}

		info, within, err := s.shardUsage(ctx, b, "total_req", limit, func(u units.Usage) string {
			return u.Format(units.ToKops) + " Kops"
		})
		if err != nil {
			return nil, err
		}

		details[b.Name] = info
		ok = ok && within
	}

	return check.FromBool(ok, "check throughput of databases (min/avg/max/dev)", details), nil
}

func gbUsage(u units.Usage) string {
	return u.Format(units.ToGB) + " GB"
}

func (s *Suite) memoryUsage(ctx context.Context, _ check.Params) (*check.Result, error) {
	_, bdbs, err := s.bdbs(ctx)
	if err != nil {
		return nil, err
	}

	ok := true
	details := make(map[string]any, len(bdbs))

	for _, b := range bdbs {
		limit := float64(MaxShardMemory)
		if b.Bigstore {
			limit = MaxShardMemoryBigstore
		}

		info, within, err := s.shardUsage(ctx, b, "used_memory", limit, gbUsage)
		if err != nil {
			return nil, err
		}

		details[b.Name] = info
		ok = ok && within
	}

	return check.FromBool(ok, "check memory usage of databases (min/avg/max/dev)", details), nil
}

func (s *Suite) networkTraffic(ctx context.Context, _ check.Params) (*check.Result, error) {
	_, bdbs, err := s.bdbs(ctx)
	if err != nil {
		return nil, err
	}

	details := make(map[string]any, len(bdbs))

	for _, b := range bdbs {
		_, ints, err := s.intervals(ctx, "bdbs/stats/"+b.UID)
		if err != nil {
			return nil, err
		}

		info := make(map[string]any, 2)

		for _, key := range []string{"ingress_bytes", "egress_bytes"} {
			u, err := units.CalcUsage(ints, key)
			if err != nil {
				return nil, fmt.Errorf("database %s: %w", b.Name, err)
			}

			info[strings.TrimSuffix(key, "_bytes")] = gbUsage(u)
		}

		details[b.Name] = info
	}

	return check.NoResult("get network traffic of databases (min/avg/max/dev)", details), nil
}
