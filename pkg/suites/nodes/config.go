package nodes

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/suites/shared"
)

const (
	logPath    = "/var/opt/redislabs/log"
	rootDevice = "/dev/root"
	thpPath    = "/sys/kernel/mm/transparent_hugepage/enabled"
	thpNever   = "always madvise [never]"
)

//nolint:gochecknoglobals
var filesystemPattern = regexp.MustCompile(`^([\w+/]+)\s+`)

// filesystems returns the device each node mounts path from, keyed by node label.
func (s *Suite) filesystems(ctx context.Context, path string) (map[string]string, error) {
	outputs, err := shared.Broadcast(ctx, s.api, s.rex, "sudo df -h "+path)
	if err != nil {
		return nil, err
	}

	devices := make(map[string]string, len(outputs))
	for node, out := range outputs {
		lines := strings.Split(out, "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("%w: df output of %s has no filesystem line", api.ErrUnexpectedShape, node)
		}

		m := filesystemPattern.FindStringSubmatch(lines[1])
		if m == nil {
			return nil, fmt.Errorf("%w: cannot parse df output %q of %s", api.ErrUnexpectedShape, lines[1], node)
		}

		devices[node] = m[1]
	}

	return devices, nil
}

func (s *Suite) notOnRoot(ctx context.Context, path string, desc string) (*check.Result, error) {
	devices, err := s.filesystems(ctx, path)
	if err != nil {
		return nil, err
	}

	ok := true
	details := make(map[string]any, len(devices))

	for node, dev := range devices {
		details[node] = dev
		if dev == rootDevice {
			ok = false
		}
	}

	return check.FromBool(ok, desc, details), nil
}

func (s *Suite) logFilePath(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.notOnRoot(ctx, logPath, "check if log file path is not on root filesystem")
}

func (s *Suite) storagePath(ctx context.Context, key string, desc string) (*check.Result, error) {
	paths, err := s.api.GetValues(ctx, "nodes", key)
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no nodes", api.ErrNotFound)
	}

	return s.notOnRoot(ctx, fmt.Sprint(paths[0]), desc)
}

func (s *Suite) ephemeralStoragePath(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.storagePath(ctx, "ephemeral_storage_path", "check if ephemeral storage path is not on root filesystem")
}

func (s *Suite) persistentStoragePath(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.storagePath(ctx, "persistent_storage_path", "check if persistent storage path is not on root filesystem")
}

// expectOutput checks that cmd prints want on every node.
func (s *Suite) expectOutput(ctx context.Context, cmd string, want string, desc string) (*check.Result, error) {
	outputs, err := shared.Broadcast(ctx, s.api, s.rex, cmd)
	if err != nil {
		return nil, err
	}

	ok := true
	details := make(map[string]any, len(outputs))

	for node, out := range outputs {
		details[node] = out
		if out != want {
			ok = false
		}
	}

	return check.FromBool(ok, desc, details), nil
}

func (s *Suite) swappiness(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.expectOutput(ctx, "grep swap /etc/sysctl.conf || echo inactive", "inactive",
		"check if swapping is disabled")
}

func (s *Suite) transparentHugePages(ctx context.Context, _ check.Params) (*check.Result, error) {
	return s.expectOutput(ctx, "cat "+thpPath, thpNever, "check if THP is disabled")
}
