package databases

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/suites/shared"
)

const inSync = "in-sync"

// sourceAddress strips the credentials from a sync source uri.
func sourceAddress(uri string) string {
	if _, after, found := strings.Cut(uri, "@"); found {
		return after
	}

	return uri
}

func syncDetails(state string, sources []syncSource) (map[string]any, bool) {
	info := map[string]any{"sync": state}
	ok := true

	for _, src := range sources {
		info[sourceAddress(src.URI)] = map[string]any{
			"status":      src.Status,
			"lag":         src.Lag,
			"compression": src.Compression,
		}

		if src.Status != inSync {
			ok = false
		}
	}

	return info, ok
}

func (s *Suite) sources(ctx context.Context, desc string, pick func(bdb) (string, []syncSource)) (*check.Result, error) {
	_, bdbs, err := s.bdbs(ctx)
	if err != nil {
		return nil, err
	}

	ok := true
	details := make(map[string]any)

	for _, b := range bdbs {
		state, sources := pick(b)
		if len(sources) == 0 {
			continue
		}

		info, synced := syncDetails(state, sources)
		details[b.Name] = info
		ok = ok && synced
	}

	if len(details) == 0 {
		return check.NoResult(desc, details), nil
	}

	return check.FromBool(ok, desc, details), nil
}

func (s *Suite) replicaSources(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.sources(ctx, "check replica sources of databases", func(b bdb) (string, []syncSource) {
		return b.ReplicaSync, b.ReplicaSources
	})
}

func (s *Suite) crdtSources(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.sources(ctx, "check CRDB sources of databases", func(b bdb) (string, []syncSource) {
		return b.CRDTSync, b.CRDTSources
	})
}

func (s *Suite) alerts(ctx context.Context, _ check.Params) (*check.Result, error) {
	alerts, err := s.api.Object(ctx, "bdbs/alerts")
	if err != nil {
		return nil, err
	}

	details := make(map[string]any)

	for uid, raw := range alerts {
		byName, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		var triggered []string
		for name, a := range byName {
			if m, ok := a.(map[string]any); ok && shared.Bool(m, "state") {
				triggered = append(triggered, name)
			}
		}

		if len(triggered) > 0 {
			sort.Strings(triggered)
			details[fmt.Sprintf("db:%s", uid)] = triggered
		}
	}

	return check.FromBool(len(details) == 0, "check database alerts", details), nil
}
