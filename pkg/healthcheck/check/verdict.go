package check

import (
	"fmt"
)

// Verdict is the outcome of a single check invocation.
type Verdict string

const (
	VerdictSucceeded Verdict = "SUCCEEDED"
	VerdictFailed    Verdict = "FAILED"
	VerdictNoResult  Verdict = "NO RESULT"
	VerdictError     Verdict = "ERROR"
	VerdictSkipped   Verdict = "SKIPPED"
)

// Verdicts lists every verdict in reporting order.
//
//nolint:gochecknoglobals
var Verdicts = []Verdict{
	VerdictSucceeded,
	VerdictFailed,
	VerdictNoResult,
	VerdictError,
	VerdictSkipped,
}

// Validate returns an error for values outside the known verdict set.
func (v Verdict) Validate() error {
	switch v {
	case VerdictSucceeded, VerdictFailed, VerdictNoResult, VerdictError, VerdictSkipped:
		return nil
	default:
		return fmt.Errorf("unknown verdict %q", string(v))
	}
}

// Tag returns the short console marker used for the verdict.
func (v Verdict) Tag() string {
	switch v {
	case VerdictSucceeded:
		return "[+]"
	case VerdictFailed:
		return "[-]"
	case VerdictNoResult:
		return "[~]"
	case VerdictError:
		return "[*]"
	case VerdictSkipped:
		return "[ ]"
	default:
		return "[?]"
	}
}

// IsProblem reports whether the verdict should be surfaced as a failure to the operator.
func (v Verdict) IsProblem() bool {
	return v == VerdictFailed || v == VerdictError
}

func (v Verdict) String() string {
	return string(v)
}
