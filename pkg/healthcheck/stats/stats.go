package stats

import (
	"fmt"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
)

// Process exit codes derived from a run's stats.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitErrors = 2
)

// Stats is a snapshot of the collected verdict counters.
type Stats struct {
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed"    yaml:"failed"`
	NoResult  int `json:"no result" yaml:"no result"`
	Errors    int `json:"errors"    yaml:"errors"`
	Skipped   int `json:"skipped"   yaml:"skipped"`
	Total     int `json:"total"     yaml:"total"`
}

// Count returns the counter for a single verdict.
func (s Stats) Count(v check.Verdict) int {
	switch v {
	case check.VerdictSucceeded:
		return s.Succeeded
	case check.VerdictFailed:
		return s.Failed
	case check.VerdictNoResult:
		return s.NoResult
	case check.VerdictError:
		return s.Errors
	case check.VerdictSkipped:
		return s.Skipped
	default:
		return 0
	}
}

// ExitCode maps the stats onto a process exit code: failures take
// precedence over errors.
func (s Stats) ExitCode() int {
	switch {
	case s.Failed > 0:
		return ExitFailed
	case s.Errors > 0:
		return ExitErrors
	default:
		return ExitOK
	}
}

// Collector folds verdicts into counters.
// It is not safe for concurrent use; feed it from the goroutine calling Executor.Wait.
type Collector struct {
	stats Stats
}

func NewCollector() *Collector {
	return &Collector{}
}

// Collect increments the counter matching v. Unknown verdicts panic.
func (c *Collector) Collect(v check.Verdict) {
	switch v {
	case check.VerdictSucceeded:
		c.stats.Succeeded++
	case check.VerdictFailed:
		c.stats.Failed++
	case check.VerdictNoResult:
		c.stats.NoResult++
	case check.VerdictError:
		c.stats.Errors++
	case check.VerdictSkipped:
		c.stats.Skipped++
	default:
		panic(fmt.Sprintf("stats: unknown verdict %q", string(v)))
	}

	c.stats.Total++
}

// Stats returns a copy of the current counters.
func (c *Collector) Stats() Stats {
	return c.stats
}
