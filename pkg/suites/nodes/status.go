package nodes

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/rex"
	"github.com/re-tools/re-healthcheck/pkg/suites/shared"
	"github.com/re-tools/re-healthcheck/pkg/util/units"
)

const (
	installLog  = "/var/opt/redislabs/log/install.log"
	pingCount   = 4
	portTimeout = 3
)

// ClusterPorts are the TCP ports every node must reach on every other node.
//
//nolint:gochecknoglobals
var ClusterPorts = []int{3333, 3334, 3335, 3336, 3337, 3338, 3339, 8001, 8070, 8080, 8443, 9443, 36379}

//nolint:gochecknoglobals
var (
	prettyNamePattern = regexp.MustCompile(`(?m)^PRETTY_NAME="(.*)"$`)
	rttPattern        = regexp.MustCompile(`(rtt|round-trip) min/avg/max/(?:mdev|stddev) = ([\d.]+)/([\d.]+)/([\d.]+)/([\d.]+)`)
)

func (s *Suite) osVersion(ctx context.Context, _ check.Params) (*check.Result, error) {
	outputs, err := shared.Broadcast(ctx, s.api, s.rex, "cat /etc/os-release | grep PRETTY_NAME")
	if err != nil {
		return nil, err
	}

	details := make(map[string]any, len(outputs))
	for node, out := range outputs {
		m := prettyNamePattern.FindStringSubmatch(out)
		if m == nil {
			return nil, fmt.Errorf("%w: no PRETTY_NAME in os-release of %s", api.ErrNotFound, node)
		}

		details[node] = m[1]
	}

	return check.NoResult("get OS version of each node", details), nil
}

func (s *Suite) rsVersion(ctx context.Context, _ check.Params) (*check.Result, error) {
	nodes, err := s.api.List(ctx, "nodes")
	if err != nil {
		return nil, err
	}

	details := make(map[string]any, len(nodes))
	for _, n := range nodes {
		details[fmt.Sprintf("node:%v", n["uid"])] = shared.String(n, "software_version")
	}

	return check.NoResult("get RS version of each node", details), nil
}

// countLines runs cmd on every node and counts the output lines matching bad.
func (s *Suite) countLines(ctx context.Context, cmd string, bad func(line string) bool, desc string) (*check.Result, error) {
	outputs, err := shared.Broadcast(ctx, s.api, s.rex, cmd)
	if err != nil {
		return nil, err
	}

	total := 0
	details := make(map[string]any, len(outputs))

	for node, out := range outputs {
		n := 0
		for _, l := range shared.Lines(out) {
			if bad(l) {
				n++
			}
		}

		details[node] = n
		total += n
	}

	return check.FromBool(total == 0, desc, details), nil
}

func (s *Suite) rlcheck(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.countLines(ctx, "sudo "+shared.BinDir+"/rlcheck", func(l string) bool {
		return strings.Contains(l, "FAILED")
	}, "check if rlcheck has errors")
}

func (s *Suite) cnmStatus(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.countLines(ctx, "sudo "+shared.BinDir+"/cnm_ctl status", func(l string) bool {
		return !strings.Contains(l, "RUNNING")
	}, "check if cnm_ctl status has errors")
}

// One-shot programs report EXITED after they completed successfully.
func (s *Suite) supervisorStatus(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.countLines(ctx, "sudo "+shared.BinDir+"/supervisorctl status", func(l string) bool {
		return !strings.Contains(l, "RUNNING") && !strings.Contains(l, "EXITED")
	}, "check if supervisorctl status has errors")
}

func (s *Suite) installLog(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.countLines(ctx, "grep error "+installLog+` || echo ""`, func(string) bool {
		return true
	}, "check if install.log has errors")
}

func (s *Suite) networkLatency(ctx context.Context, _ check.Params) (*check.Result, error) {
	targets := s.rex.Targets()

	addrs, err := s.rex.Addrs(ctx)
	if err != nil {
		return nil, err
	}

	var reqs []rex.Request
	for _, source := range targets {
		for i, dest := range targets {
			if source == dest {
				continue
			}

			reqs = append(reqs, rex.Request{
				Command: fmt.Sprintf("ping -c %d %s", pingCount, addrs[i]),
				Target:  source,
			})
		}
	}

	if len(reqs) == 0 {
		return check.NoResult("get round trip times between nodes", map[string]any{
			"reason": "at least two nodes are required",
		}), nil
	}

	rsps, err := s.rex.ExecMultiple(ctx, reqs)
	if err != nil {
		return nil, err
	}

	var mins, avgs, maxs, mdevs []float64

	for _, rsp := range rsps {
		m := rttPattern.FindStringSubmatch(rsp.Output)
		if m == nil {
			return nil, fmt.Errorf("%w: no rtt summary in ping output of %s", api.ErrUnexpectedShape, rsp.Target)
		}

		values := make([]float64, 4)
		for i := range values {
			if values[i], err = strconv.ParseFloat(m[i+2], 64); err != nil {
				return nil, fmt.Errorf("parsing rtt %q: %w", m[i+2], err)
			}
		}

		mins = append(mins, values[0])
		avgs = append(avgs, values[1])
		maxs = append(maxs, values[2])
		mdevs = append(mdevs, values[3])
	}

	summaries := make([]units.Usage, 4)
	for i, values := range [][]float64{mins, avgs, maxs, mdevs} {
		if summaries[i], err = units.Summarize(values); err != nil {
			return nil, fmt.Errorf("summarizing round trip times: %w", err)
		}
	}

	return check.NoResult("get round trip times between nodes", map[string]any{
		"rtt min/avg/max/mdev": units.Usage{
			Min:    summaries[0].Min,
			Avg:    summaries[1].Avg,
			Max:    summaries[2].Max,
			StdDev: summaries[3].Avg,
		}.Format(units.ToMs) + " ms",
	}), nil
}

// PortCommand prints "<addr>:<port>" when the port cannot be connected to.
func PortCommand(addr string, port int) string {
	return fmt.Sprintf("timeout %d bash -c '</dev/tcp/%s/%d' 2>/dev/null || echo '%s:%d'",
		portTimeout, addr, port, addr, port)
}

// openPorts connects to ClusterPorts from every node to the internal address of every other node.
func (s *Suite) openPorts(ctx context.Context, _ check.Params) (*check.Result, error) {
	targets := s.rex.Targets()

	addrs, err := s.rex.Addrs(ctx)
	if err != nil {
		return nil, err
	}

	var reqs []rex.Request
	for _, port := range ClusterPorts {
		for _, source := range targets {
			for i, dest := range targets {
				if source == dest {
					continue
				}

				reqs = append(reqs, rex.Request{Command: PortCommand(addrs[i], port), Target: source})
			}
		}
	}

	if len(reqs) == 0 {
		return check.NoResult("check open TCP ports between nodes", map[string]any{
			"reason": "at least two nodes are required",
		}), nil
	}

	rsps, err := s.rex.ExecMultiple(ctx, reqs)
	if err != nil {
		return nil, err
	}

	closed := make(map[string][]string)
	for _, rsp := range rsps {
		endpoint := strings.TrimSpace(rsp.Output)
		if endpoint == "" {
			continue
		}

		label, err := shared.NodeLabel(ctx, s.api, s.rex, rsp.Target)
		if err != nil {
			return nil, err
		}

		closed[label] = append(closed[label], endpoint)
	}

	if len(closed) == 0 {
		return check.Succeeded("check open TCP ports between nodes", map[string]any{"open": "all"}), nil
	}

	details := make(map[string]any, len(closed))
	for label, endpoints := range closed {
		slices.Sort(endpoints)
		details[label] = endpoints
	}

	return check.Failed("check open TCP ports between nodes", details), nil
}
