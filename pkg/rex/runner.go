package rex

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/re-tools/re-healthcheck/pkg/log"
	"github.com/re-tools/re-healthcheck/pkg/metrics"
)

const (
	addrCommand       = "hostname -i"
	connectionCommand = "sudo pwd"
)

// Request is one command addressed to one target.
type Request struct {
	Command string
	Target  string
}

// Response is the outcome of a Request.
type Response struct {
	Target  string
	Command string
	Output  string
	Err     error
}

type cacheKey struct {
	target  string
	command string
}

// Runner executes commands on a fixed set of targets through a Commander.
// Commands on the same target run one at a time; successful outputs are
// memoized per (target, command) for the lifetime of the Runner.
type Runner struct {
	commander Commander
	targets   []string
	known     map[string]struct{}

	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache map[cacheKey]string
}

type RunnerOption func(*Runner)

func WithRunnerMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithRunnerLogger(l zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner for targets. Duplicate targets are dropped.
func NewRunner(commander Commander, targets []string, opts ...RunnerOption) *Runner {
	r := &Runner{
		commander: commander,
		known:     make(map[string]struct{}, len(targets)),
		logger:    log.WithComponent("rex"),
		locks:     make(map[string]*sync.Mutex),
		cache:     make(map[cacheKey]string),
	}

	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}

		if _, ok := r.known[t]; ok {
			continue
		}

		r.known[t] = struct{}{}
		r.targets = append(r.targets, t)
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Targets returns the configured targets in configuration order.
func (r *Runner) Targets() []string {
	return slices.Clone(r.targets)
}

func (r *Runner) lockFor(target string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[target]
	if !ok {
		l = &sync.Mutex{}
		r.locks[target] = l
	}

	return l
}

func (r *Runner) cached(key cacheKey) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out, ok := r.cache[key]

	return out, ok
}

// ExecOne runs cmd on target and returns its trimmed output.
func (r *Runner) ExecOne(ctx context.Context, cmd string, target string) (string, error) {
	if _, ok := r.known[target]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}

	key := cacheKey{target: target, command: cmd}
	if out, ok := r.cached(key); ok {
		return out, nil
	}

	lock := r.lockFor(target)
	lock.Lock()
	defer lock.Unlock()

	// another caller may have run the same command while we waited
	if out, ok := r.cached(key); ok {
		return out, nil
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("executing %q on %s: %w", cmd, target, err)
	}

	r.logger.Debug().Str("target", target).Str("cmd", cmd).Msg("executing command")

	start := time.Now()
	out, err := r.commander.Run(ctx, target, cmd)
	r.metrics.ObserveRemoteCommand(target, time.Since(start), err)

	if err != nil {
		r.logger.Debug().Str("target", target).Str("cmd", cmd).Err(err).Msg("command failed")

		return "", err
	}

	r.mu.Lock()
	r.cache[key] = out
	r.mu.Unlock()

	return out, nil
}

// ExecBroadcast runs cmd on every target concurrently. Responses follow the
// order of Targets; the returned error joins every per-target error.
func (r *Runner) ExecBroadcast(ctx context.Context, cmd string) ([]Response, error) {
	if len(r.targets) == 0 {
		return nil, ErrNoTargets
	}

	reqs := make([]Request, 0, len(r.targets))
	for _, t := range r.targets {
		reqs = append(reqs, Request{Command: cmd, Target: t})
	}

	return r.ExecMultiple(ctx, reqs)
}

// ExecMultiple runs every request concurrently and returns when all have finished.
// Responses follow the order of reqs.
func (r *Runner) ExecMultiple(ctx context.Context, reqs []Request) ([]Response, error) {
	responses := make([]Response, len(reqs))
	if len(reqs) == 0 {
		return responses, nil
	}

	var g errgroup.Group
	g.SetLimit(len(reqs))

	for i, req := range reqs {
		g.Go(func() error {
			out, err := r.ExecOne(ctx, req.Command, req.Target)
			responses[i] = Response{
				Target:  req.Target,
				Command: req.Command,
				Output:  out,
				Err:     err,
			}

			return nil
		})
	}

	_ = g.Wait()

	errs := make([]error, 0, len(responses))
	for _, rsp := range responses {
		if rsp.Err != nil {
			errs = append(errs, rsp.Err)
		}
	}

	return responses, errors.Join(errs...)
}

// Outputs returns the outputs of responses in order.
func Outputs(responses []Response) []string {
	out := make([]string, 0, len(responses))
	for _, rsp := range responses {
		out = append(out, rsp.Output)
	}

	return out
}

// Addr returns the internal address of target, the first field of `hostname -i`.
func (r *Runner) Addr(ctx context.Context, target string) (string, error) {
	out, err := r.ExecOne(ctx, addrCommand, target)
	if err != nil {
		return "", fmt.Errorf("resolving address of %s: %w", target, err)
	}

	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", fmt.Errorf("resolving address of %s: empty output", target)
	}

	return fields[0], nil
}

// Addrs returns the internal address of every target, in the order of Targets.
func (r *Runner) Addrs(ctx context.Context) ([]string, error) {
	if _, err := r.ExecBroadcast(ctx, addrCommand); err != nil {
		return nil, fmt.Errorf("resolving target addresses: %w", err)
	}

	addrs := make([]string, 0, len(r.targets))
	for _, t := range r.targets {
		addr, err := r.Addr(ctx, t)
		if err != nil {
			return nil, err
		}

		addrs = append(addrs, addr)
	}

	return addrs, nil
}

// CheckConnection verifies that every target accepts commands with sudo.
func (r *Runner) CheckConnection(ctx context.Context) error {
	if _, err := r.ExecBroadcast(ctx, connectionCommand); err != nil {
		return fmt.Errorf("checking remote connection: %w", err)
	}

	return nil
}
