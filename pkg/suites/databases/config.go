package databases

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/suites/shared"
	"github.com/re-tools/re-healthcheck/pkg/util/units"
)

// DefaultParams is the parameter map entry applied to every database;
// entries named after a database override it.
const DefaultParams = "__default__"

const missingValue = "<missing>"

func (s *Suite) configuration(ctx context.Context, params check.Params) (*check.Result, error) {
	raw, bdbs, err := s.bdbs(ctx)
	if err != nil {
		return nil, err
	}

	if len(params) == 0 {
		details := make(map[string]any, len(bdbs))
		for _, b := range bdbs {
			details[b.Name] = map[string]any{
				"uid":           b.UID,
				"memory limit":  units.ToGB(b.MemorySize) + " GB",
				"master shards": b.ShardsCount,
				"HA":            b.Replication,
				"OSS cluster":   b.OSSCluster,
				"CRDB":          b.CRDT,
			}
		}

		return check.NoResult("get configuration of databases", details), nil
	}

	ok := true
	details := make(map[string]any, len(bdbs))

	for i, b := range bdbs {
		expected, err := expectedValues(params, b.Name)
		if err != nil {
			return nil, err
		}

		diff := make(map[string]any)
		for k, want := range expected {
			got, found := raw[i][k]
			switch {
			case !found:
				diff[k] = missingValue
			case !reflect.DeepEqual(want, got):
				diff[k] = got
			}
		}

		if len(diff) > 0 {
			ok = false
			details[b.Name] = diff
		}
	}

	if ok {
		for _, b := range bdbs {
			details[b.Name] = "matches"
		}
	}

	return check.FromBool(ok, "check configuration of databases", details), nil
}

func expectedValues(params check.Params, name string) (map[string]any, error) {
	values := make(map[string]any)

	for _, key := range []string{DefaultParams, name} {
		entry, found := params[key]
		if !found {
			continue
		}

		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parameter entry %q is %T, not a map", key, entry)
		}

		for k, v := range m {
			values[k] = v
		}
	}

	return values, nil
}

// external returns the endpoint a client outside the cluster would use.
func (b bdb) external() (endpoint, bool) {
	if len(b.Endpoints) == 0 {
		return endpoint{}, false
	}

	if len(b.Endpoints) > 1 {
		for _, e := range b.Endpoints {
			if e.AddrType == "external" {
				return e, true
			}
		}
	}

	return b.Endpoints[0], true
}

func (s *Suite) endpoints(ctx context.Context, _ check.Params) (*check.Result, error) {
	_, bdbs, err := s.bdbs(ctx)
	if err != nil {
		return nil, err
	}

	ok := true
	details := make(map[string]any, len(bdbs))

	for _, b := range bdbs {
		e, found := b.external()
		if !found || len(e.Addr) == 0 {
			ok = false
			details[b.Name] = "no endpoint"

			continue
		}

		label := e.DNSName
		if label == "" {
			label = b.Name
		}

		if err := s.ping(ctx, e.Addr[0], e.Port); err != nil {
			ok = false
			details[label] = err.Error()

			continue
		}

		details[label] = true
	}

	if len(details) == 0 {
		return check.NoResult("check database endpoints", details), nil
	}

	return check.FromBool(ok, "check database endpoints", details), nil
}

func (s *Suite) ossCluster(ctx context.Context, _ check.Params) (*check.Result, error) {
	_, bdbs, err := s.bdbs(ctx)
	if err != nil {
		return nil, err
	}

	ok := true
	details := make(map[string]any)

	for _, b := range bdbs {
		if !b.OSSCluster {
			continue
		}

		valid := b.ShardsPlacement == "sparse" && b.ProxyPolicy == "all-master-shards"
		details[b.Name] = valid
		ok = ok && valid
	}

	if len(details) == 0 {
		return check.NoResult("check OSS cluster API of databases", details), nil
	}

	return check.FromBool(ok, "check OSS cluster API of databases", details), nil
}

func (s *Suite) densePlacement(ctx context.Context, _ check.Params) (*check.Result, error) {
	_, bdbs, err := s.bdbs(ctx)
	if err != nil {
		return nil, err
	}

	details := make(map[string]any)
	dense := 0

	for _, b := range bdbs {
		if b.ShardsPlacement != "dense" {
			continue
		}

		dense++

		if b.ProxyPolicy != "single" {
			details[b.Name] = fmt.Sprintf("proxy policy set to '%s' instead of 'single'", b.ProxyPolicy)

			continue
		}

		misplaced, err := s.shardsNotOnEndpoint(ctx, b)
		if err != nil {
			return nil, err
		}

		if misplaced != nil {
			details[b.Name] = misplaced
		}
	}

	if dense == 0 {
		return check.NoResult("check dense shards placement of databases", details), nil
	}

	return check.FromBool(len(details) == 0, "check dense shards placement of databases", details), nil
}

// shardsNotOnEndpoint lists the master shards of b living on another node than its proxy.
// A nil slice with a nil error means every master shard is co-located.
func (s *Suite) shardsNotOnEndpoint(ctx context.Context, b bdb) (any, error) {
	if len(b.Endpoints) == 0 || len(b.Endpoints[0].Addr) == 0 {
		return "no endpoint found", nil
	}

	nodes, err := s.api.GetWithValue(ctx, "nodes", "addr", b.Endpoints[0].Addr[0])
	if err != nil {
		return nil, err
	}

	if len(nodes) == 0 {
		return "no endpoint node found", nil
	}

	endpointNode := fmt.Sprint(nodes[0]["uid"])

	shards, err := s.api.List(ctx, "shards")
	if err != nil {
		return nil, err
	}

	var misplaced []string
	for _, sh := range shards {
		if fmt.Sprint(sh["bdb_uid"]) != b.UID || shared.String(sh, "role") != "master" {
			continue
		}

		if fmt.Sprint(sh["node_uid"]) != endpointNode {
			misplaced = append(misplaced, fmt.Sprintf("shard:%v", sh["uid"]))
		}
	}

	if len(misplaced) == 0 {
		return nil, nil
	}

	return misplaced, nil
}

func (s *Suite) modules(ctx context.Context, _ check.Params) (*check.Result, error) {
	_, bdbs, err := s.bdbs(ctx)
	if err != nil {
		return nil, err
	}

	details := make(map[string]any, len(bdbs))
	for _, b := range bdbs {
		if len(b.ModuleList) == 0 {
			details[b.Name] = nil

			continue
		}

		names := make([]string, 0, len(b.ModuleList))
		for _, m := range b.ModuleList {
			name := shared.String(m, "module_name")
			if v := shared.String(m, "semantic_version"); v != "" {
				name += " " + v
			}

			names = append(names, name)
		}

		details[b.Name] = strings.Join(names, ", ")
	}

	return check.NoResult("get database modules", details), nil
}
