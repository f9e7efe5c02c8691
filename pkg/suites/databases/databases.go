// Package databases checks configuration, status and usage of every database.
package databases

import (
	"context"
	"fmt"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
)

const Name = "databases"

// Suite checks every database of the cluster.
type Suite struct {
	check.BaseSuite

	api  *api.Client
	ping Pinger
}

type Option func(*Suite)

// WithPinger replaces the endpoint PING implementation.
func WithPinger(p Pinger) Option {
	return func(s *Suite) {
		s.ping = p
	}
}

// New creates the databases suite.
func New(c *api.Client, opts ...Option) *Suite {
	s := &Suite{
		api:  c,
		ping: RedisPing,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.BaseSuite = check.BaseSuite{
		SuiteName:        Name,
		SuiteDescription: "Check configuration, status and usage of all databases",
		SuiteChecks: []check.Check{
			newCheck("DC-001", "Database configuration", "Check database configuration against parameters",
				"Adapt your database configuration in the UI or with the REST API.", s.configuration),
			newCheck("DC-002", "Database endpoints", "Check if database endpoints answer PING",
				"Investigate the network connection to the endpoint.", s.endpoints),
			newCheck("DC-003", "OSS cluster API", "Check OSS cluster API settings of each database",
				"Adapt your database configuration with `rladmin`.", s.ossCluster),
			newCheck("DC-004", "Dense shards placement", "Check dense shards placement of each database",
				"Move all master shards to the node where the proxy runs.", s.densePlacement),
			newCheck("DC-005", "Database modules", "Get modules of each database",
				"", s.modules),
			newCheck("DS-001", "Replica sources", "Check if replica sources are in sync",
				"Investigate the network link between the failing databases.", s.replicaSources),
			newCheck("DS-002", "CRDB sources", "Check if CRDB sources are in sync",
				"Investigate the network link between the failing databases.", s.crdtSources),
			newCheck("DS-003", "Database alerts", "Check for triggered database alerts",
				"Investigate triggered alerts by checking log files.", s.alerts),
			newCheck("DU-001", "Throughput", "Check throughput of each database (min/avg/max/dev)",
				"Add more shards or investigate the key distribution.", s.throughput),
			newCheck("DU-002", "Memory usage", "Check memory usage of each database (min/avg/max/dev)",
				"Add more shards or investigate the key distribution.", s.memoryUsage),
			newCheck("DU-003", "Network traffic", "Get network traffic of each database (min/avg/max/dev)",
				"", s.networkTraffic),
		},
	}

	return s
}

func newCheck(id, name, desc, remedy string, run check.RunFunc) check.Check {
	return check.New(check.BaseCheck{
		CheckSuite:       Name,
		CheckID:          id,
		CheckName:        name,
		CheckDescription: desc,
		CheckRemedy:      remedy,
		Requirements:     check.RequiresAPI,
	}, run)
}

// bdb is the subset of /v1/bdbs the checks read.
type bdb struct {
	UID             string           `json:"uid"`
	Name            string           `json:"name"`
	MemorySize      float64          `json:"memory_size"`
	ShardsCount     int              `json:"shards_count"`
	Replication     bool             `json:"replication"`
	OSSCluster      bool             `json:"oss_cluster"`
	CRDT            bool             `json:"crdt"`
	CRDTSync        string           `json:"crdt_sync"`
	ReplicaSync     string           `json:"replica_sync"`
	Bigstore        bool             `json:"bigstore"`
	ShardsPlacement string           `json:"shards_placement"`
	ProxyPolicy     string           `json:"proxy_policy"`
	ShardList       []string         `json:"shard_list"`
	Endpoints       []endpoint       `json:"endpoints"`
	ModuleList      []map[string]any `json:"module_list"`
	ReplicaSources  []syncSource     `json:"replica_sources"`
	CRDTSources     []syncSource     `json:"crdt_sources"`
}

type endpoint struct {
	AddrType string   `json:"addr_type"`
	Addr     []string `json:"addr"`
	Port     int      `json:"port"`
	DNSName  string   `json:"dns_name"`
}

type syncSource struct {
	URI         string  `json:"uri"`
	Status      string  `json:"status"`
	Lag         float64 `json:"lag"`
	Compression float64 `json:"compression"`
}

func (s *Suite) bdbs(ctx context.Context) ([]map[string]any, []bdb, error) {
	raw, err := s.api.List(ctx, "bdbs")
	if err != nil {
		return nil, nil, err
	}

	typed := make([]bdb, len(raw))
	for i, r := range raw {
		if err := api.DecodeValue(r, &typed[i]); err != nil {
			return nil, nil, fmt.Errorf("decoding database %v: %w", r["name"], err)
		}
	}

	return raw, typed, nil
}
