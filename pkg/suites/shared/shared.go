// Package shared holds helpers used by several check suites.
package shared

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/rex"
)

const (
	// BinDir is where the cluster tooling is installed on every node.
	BinDir = "/opt/redislabs/bin"

	RLAdmin = "sudo " + BinDir + "/rladmin"
)

//nolint:gochecknoglobals
var quorumOnlyPattern = regexp.MustCompile(`quorum only: (\w+)`)

// NodeLabel returns "node:<uid>" for a remote target by resolving its internal
// address against the node list of the API.
func NodeLabel(ctx context.Context, c *api.Client, r *rex.Runner, target string) (string, error) {
	addr, err := r.Addr(ctx, target)
	if err != nil {
		return "", err
	}

	uid, err := c.UID(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("resolving node of %s: %w", target, err)
	}

	return "node:" + uid, nil
}

// Broadcast runs cmd on every target and returns the outputs keyed by node label.
func Broadcast(ctx context.Context, c *api.Client, r *rex.Runner, cmd string) (map[string]string, error) {
	rsps, err := r.ExecBroadcast(ctx, cmd)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rsps))
	for _, rsp := range rsps {
		label, err := NodeLabel(ctx, c, r, rsp.Target)
		if err != nil {
			return nil, err
		}

		out[label] = rsp.Output
	}

	return out, nil
}

// QuorumOnly reports which node uids are quorum-only nodes, as shown by
// `rladmin info node <uid>` on the first target.
func QuorumOnly(ctx context.Context, c *api.Client, r *rex.Runner) (map[string]bool, error) {
	targets := r.Targets()
	if len(targets) == 0 {
		return nil, rex.ErrNoTargets
	}

	uids, err := c.GetValues(ctx, "nodes", "uid")
	if err != nil {
		return nil, err
	}

	reqs := make([]rex.Request, 0, len(uids))
	for _, uid := range uids {
		reqs = append(reqs, rex.Request{
			Command: fmt.Sprintf("%s info node %v", RLAdmin, uid),
			Target:  targets[0],
		})
	}

	rsps, err := r.ExecMultiple(ctx, reqs)
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(uids))
	for i, rsp := range rsps {
		m := quorumOnlyPattern.FindStringSubmatch(rsp.Output)
		result[fmt.Sprint(uids[i])] = m != nil && m[1] == "enabled"
	}

	return result, nil
}

// NodeName returns the detail label of a node, marking quorum-only nodes.
func NodeName(uid string, quorumOnly map[string]bool) string {
	if quorumOnly[uid] {
		return "node:" + uid + " (quorum only)"
	}

	return "node:" + uid
}

// Intervals extracts the interval samples of a stats object.
func Intervals(stats map[string]any) ([]map[string]any, error) {
	raw, ok := stats["intervals"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: stats of %v have no intervals", api.ErrUnexpectedShape, stats["uid"])
	}

	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}

	return out, nil
}

// Lines splits command output into non-empty trimmed lines.
func Lines(output string) []string {
	var lines []string

	for l := range strings.SplitSeq(output, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	return lines
}

// String returns m[key] as a string, or "" if it is missing or not a string.
func String(m map[string]any, key string) string {
	s, _ := m[key].(string)

	return s
}

// Number returns m[key] as a float64, or 0 if it is missing or not a number.
func Number(m map[string]any, key string) float64 {
	n, _ := m[key].(float64)

	return n
}

// Bool returns m[key] as a bool, or false if it is missing or not a bool.
func Bool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)

	return b
}
