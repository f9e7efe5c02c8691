package check

import (
	"errors"
	"fmt"
	"reflect"
	"time"
	"unicode"
)

// Result is the envelope produced by a single check invocation.
type Result struct {
	CheckID     string         `json:"checkId"            yaml:"checkId"`
	Suite       string         `json:"suite"              yaml:"suite"`
	Description string         `json:"description"        yaml:"description"`
	Verdict     Verdict        `json:"verdict"            yaml:"verdict"`
	Details     map[string]any `json:"details,omitempty"  yaml:"details,omitempty"`
	Remedy      string         `json:"remedy,omitempty"   yaml:"remedy,omitempty"`
	Duration    time.Duration  `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// NewResult creates a result with the given verdict and details.
// A nil details map is replaced by an empty one.
func NewResult(verdict Verdict, description string, details map[string]any) *Result {
	if details == nil {
		details = make(map[string]any)
	}

	return &Result{
		Description: description,
		Verdict:     verdict,
		Details:     details,
	}
}

func Succeeded(description string, details map[string]any) *Result {
	return NewResult(VerdictSucceeded, description, details)
}

func Failed(description string, details map[string]any) *Result {
	return NewResult(VerdictFailed, description, details)
}

func NoResult(description string, details map[string]any) *Result {
	return NewResult(VerdictNoResult, description, details)
}

func Skipped(description string, details map[string]any) *Result {
	return NewResult(VerdictSkipped, description, details)
}

// FromBool maps a pass/fail assertion onto SUCCEEDED or FAILED.
func FromBool(ok bool, description string, details map[string]any) *Result {
	if ok {
		return Succeeded(description, details)
	}

	return Failed(description, details)
}

// ErrorResult converts err into an ERROR result whose details map the
// error type name to the error message.
func ErrorResult(description string, err error) *Result {
	return NewResult(VerdictError, description, map[string]any{
		ErrorTypeName(err): err.Error(),
	})
}

// ErrorTypeName returns the name of the first exported error type in err's
// chain, so "doing x: %w" wrappers are skipped but typed errors such as
// *rex.ExecError are reported as themselves. Chains made only of unexported
// types, e.g. errors.New, report as "Error".
func ErrorTypeName(err error) string {
	for inner := err; inner != nil; inner = errors.Unwrap(inner) {
		if name := exportedTypeName(inner); name != "" {
			return name
		}
	}

	return "Error"
}

func exportedTypeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Name() == "" || !unicode.IsUpper(rune(t.Name()[0])) {
		return ""
	}

	return t.Name()
}

// PanicError wraps a value recovered from a panicking check.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("check panicked: %v", e.Value)
}
