package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/suites/databases"
	"github.com/re-tools/re-healthcheck/pkg/util/test/testutil"

	. "github.com/onsi/gomega"
)

const gb = 1024 * 1024 * 1024

func bdbs() []any {
	return []any{
		map[string]any{
			"uid": 1, "name": "cache", "memory_size": 2 * gb, "shards_count": 2,
			"replication": true, "oss_cluster": true, "crdt": false, "crdt_sync": "disabled",
			"bigstore": false, "shards_placement": "sparse", "proxy_policy": "all-master-shards",
			"shard_list": []any{1, 2},
			"endpoints": []any{
				map[string]any{"addr_type": "internal", "addr": []any{"10.0.0.1"}, "port": 12000, "dns_name": "redis-12000.internal"},
				map[string]any{"addr_type": "external", "addr": []any{"172.16.0.1"}, "port": 12000, "dns_name": "redis-12000.cluster.local"},
			},
			"module_list":     []any{map[string]any{"module_name": "search", "semantic_version": "2.6.9"}},
			"replica_sources": []any{},
			"crdt_sources":    []any{},
		},
		map[string]any{
			"uid": 2, "name": "sessions", "memory_size": 1 * gb, "shards_count": 1,
			"replication": false, "oss_cluster": false, "crdt": true, "crdt_sync": "enabled",
			"bigstore": false, "shards_placement": "dense", "proxy_policy": "single",
			"shard_list": []any{3},
			"endpoints": []any{
				map[string]any{"addr_type": "external", "addr": []any{"10.0.0.1"}, "port": 13000, "dns_name": "redis-13000.cluster.local"},
			},
			"module_list": nil,
			"replica_sources": []any{
				map[string]any{"uri": "redis://admin:pw@redis-14000.other:14000", "status": "syncing", "lag": 3, "compression": 0},
			},
			"crdt_sources": []any{
				map[string]any{"uri": "redis://admin:pw@crdb-eu:12000", "status": "in-sync", "lag": 0, "compression": 3},
			},
		},
	}
}

func stats(key string, values ...float64) map[string]any {
	ints := make([]any, 0, len(values))
	for _, v := range values {
		ints = append(ints, map[string]any{key: v, "used_memory": v, "ingress_bytes": v * gb, "egress_bytes": 2 * v * gb})
	}

	return map[string]any{"intervals": ints, "role": "master"}
}

func topics() testutil.Topics {
	return testutil.Topics{
		"nodes": testutil.Nodes(),
		"bdbs":  bdbs(),
		"shards": []any{
			map[string]any{"uid": 1, "bdb_uid": 1, "role": "master", "node_uid": 1},
			map[string]any{"uid": 2, "bdb_uid": 1, "role": "master", "node_uid": 2},
			map[string]any{"uid": 3, "bdb_uid": 2, "role": "master", "node_uid": 1},
			map[string]any{"uid": 4, "bdb_uid": 2, "role": "slave", "node_uid": 2},
		},
		"bdbs/alerts": map[string]any{
			"1": map[string]any{"bdb_size": map[string]any{"state": false}},
			"2": map[string]any{"bdb_size": map[string]any{"state": true}, "bdb_high_latency": map[string]any{"state": true}},
		},
		"bdbs/stats/1":   stats("total_req", 10000, 30000),
		"bdbs/stats/2":   stats("total_req", 1000, 2000),
		"shards/stats/1": stats("total_req", 5000, 15000),
		"shards/stats/2": stats("total_req", 5000, 15000),
		"shards/stats/3": stats("total_req", 1000, 20000),
	}
}

func okPinger(context.Context, string, int) error { return nil }

func newSuite(t *testing.T, opts ...databases.Option) *databases.Suite {
	t.Helper()

	return databases.New(testutil.NewAPI(t, topics()), append([]databases.Option{databases.WithPinger(okPinger)}, opts...)...)
}

func run(t *testing.T, s *databases.Suite, id string, params check.Params) *check.Result {
	t.Helper()

	for _, c := range s.Checks() {
		if c.ID() == id {
			r, err := c.Run(t.Context(), params)
			if err != nil {
				t.Fatalf("%s: %v", id, err)
			}

			return r
		}
	}

	t.Fatalf("check %s not found", id)

	return nil
}

func TestConfiguration_WithoutParams(t *testing.T) {
	g := NewWithT(t)

	r := run(t, newSuite(t), "DC-001", nil)
	g.Expect(r.Verdict).To(Equal(check.VerdictNoResult))
	g.Expect(r.Details).To(HaveKeyWithValue("cache", HaveKeyWithValue("memory limit", "2.0 GB")))
	g.Expect(r.Details).To(HaveKeyWithValue("sessions", HaveKeyWithValue("CRDB", true)))
}

func TestConfiguration_WithParams(t *testing.T) {
	tests := []struct {
		name    string
		params  check.Params
		verdict check.Verdict
		detail  string
	}{
		{
			name:    "defaults match",
			params:  check.Params{"__default__": map[string]any{"shards_placement": "sparse"}, "sessions": map[string]any{"shards_placement": "dense"}},
			verdict: check.VerdictSucceeded,
		},
		{
			name:    "replication mismatch",
			params:  check.Params{"__default__": map[string]any{"replication": true, "shards_count": 2.0}},
			verdict: check.VerdictFailed,
			detail:  "sessions",
		},
		{
			name:    "unknown key",
			params:  check.Params{"cache": map[string]any{"eviction_policy": "volatile-lru"}},
			verdict: check.VerdictFailed,
			detail:  "cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			r := run(t, newSuite(t), "DC-001", tt.params)
			g.Expect(r.Verdict).To(Equal(tt.verdict))

			if tt.detail != "" {
				g.Expect(r.Details).To(HaveKey(tt.detail))
			}
		})
	}
}

func TestEndpoints(t *testing.T) {
	g := NewWithT(t)

	var pinged []string

	pinger := func(_ context.Context, host string, _ int) error {
		pinged = append(pinged, host)
		if host == "10.0.0.1" {
			return errors.New("dial tcp 10.0.0.1:13000: connect: connection refused")
		}

		return nil
	}

	r := run(t, newSuite(t, databases.WithPinger(pinger)), "DC-002", nil)
	g.Expect(r.Verdict).To(Equal(check.VerdictFailed))
	g.Expect(pinged).To(Equal([]string{"172.16.0.1", "10.0.0.1"}))
	g.Expect(r.Details).To(HaveKeyWithValue("redis-12000.cluster.local", true))
	g.Expect(r.Details).To(HaveKeyWithValue("redis-13000.cluster.local", ContainSubstring("refused")))
}

func TestSuite_Checks(t *testing.T) {
	tests := []struct {
		id      string
		verdict check.Verdict
		details map[string]any
	}{
		{id: "DC-003", verdict: check.VerdictSucceeded, details: map[string]any{"cache": true}},
		{id: "DC-004", verdict: check.VerdictSucceeded},
		{id: "DC-005", verdict: check.VerdictNoResult, details: map[string]any{"cache": "search 2.6.9", "sessions": BeNil()}},
		{id: "DS-001", verdict: check.VerdictFailed},
		{id: "DS-002", verdict: check.VerdictSucceeded},
		{id: "DS-003", verdict: check.VerdictFailed, details: map[string]any{"db:2": []string{"bdb_high_latency", "bdb_size"}}},
		{id: "DU-001", verdict: check.VerdictFailed},
		{id: "DU-002", verdict: check.VerdictSucceeded},
		{id: "DU-003", verdict: check.VerdictNoResult},
	}

	s := newSuite(t)

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			g := NewWithT(t)

			r := run(t, s, tt.id, nil)
			g.Expect(r.Verdict).To(Equal(tt.verdict))

			for k, v := range tt.details {
				g.Expect(r.Details).To(HaveKeyWithValue(k, v))
			}
		})
	}
}

func TestThroughput_Details(t *testing.T) {
	g := NewWithT(t)

	r := run(t, newSuite(t), "DU-001", nil)
	g.Expect(r.Details).To(HaveKeyWithValue("cache", HaveKeyWithValue("total", "10.0/20.0/30.0/10.0 Kops")))
	g.Expect(r.Details).To(HaveKeyWithValue("cache", HaveKeyWithValue("shard:1 (master)", "5.0/10.0/15.0/5.0 Kops")))
	// 20 Kops exceeds the CRDB shard limit
	g.Expect(r.Details).To(HaveKeyWithValue("sessions", HaveKeyWithValue("shard:3 (master)", "1.0/10.5/20.0/9.5 Kops")))
}

func TestNetworkTraffic_Details(t *testing.T) {
	g := NewWithT(t)

	r := run(t, newSuite(t), "DU-003", nil)
	g.Expect(r.Details).To(HaveKeyWithValue("sessions", HaveKeyWithValue("ingress", "1000.0/1500.0/2000.0/500.0 GB")))
	g.Expect(r.Details).To(HaveKeyWithValue("sessions", HaveKeyWithValue("egress", "2000.0/3000.0/4000.0/1000.0 GB")))
}

func TestDensePlacement_MisplacedShard(t *testing.T) {
	g := NewWithT(t)

	tp := topics()
	tp["shards"] = []any{
		map[string]any{"uid": 3, "bdb_uid": 2, "role": "master", "node_uid": 2},
	}

	s := databases.New(testutil.NewAPI(t, tp), databases.WithPinger(okPinger))

	r := run(t, s, "DC-004", nil)
	g.Expect(r.Verdict).To(Equal(check.VerdictFailed))
	g.Expect(r.Details).To(HaveKeyWithValue("sessions", []string{"shard:3"}))
}
