package printer

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/stats"
	"github.com/re-tools/re-healthcheck/pkg/util/iostreams"
)

// Format names a renderer.
type Format string

const (
	FormatConsole Format = "console"
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatHTML    Format = "html"
	FormatSyslog  Format = "syslog"
)

// Formats lists every supported format; the first one is the default.
//
//nolint:gochecknoglobals
var Formats = []Format{
	FormatConsole,
	FormatTable,
	FormatJSON,
	FormatYAML,
	FormatHTML,
	FormatSyslog,
}

// Validate checks if the output format is valid.
func (f Format) Validate() error {
	if slices.Contains(Formats, f) {
		return nil
	}

	names := make([]string, 0, len(Formats))
	for _, v := range Formats {
		names = append(names, string(v))
	}

	return fmt.Errorf("invalid output format: %s (must be one of: %s)", f, strings.Join(names, ", "))
}

// Renderer writes check results as they arrive and the run summary at the end.
// Renderers are fed from the goroutine draining the executor and are not safe
// for concurrent use.
type Renderer interface {
	RenderResult(result *check.Result) error
	RenderStats(s stats.Stats) error
}

// Options configures a renderer.
type Options struct {
	OutputFormat Format
	IO           iostreams.Interface

	// ClusterName is shown in the html title.
	ClusterName string
	NoColor     bool

	// Now, Hostname and PID default to the process values and are only
	// overridden in tests.
	Now      func() time.Time
	Hostname string
	PID      int
}

func (o Options) out() io.Writer {
	if o.IO == nil || o.IO.Out() == nil {
		return io.Discard
	}

	return o.IO.Out()
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}

	return time.Now()
}

// NewRenderer returns the renderer for opts.OutputFormat.
// An empty format selects the console renderer.
func NewRenderer(opts Options) (Renderer, error) {
	if opts.OutputFormat == "" {
		opts.OutputFormat = FormatConsole
	}

	switch opts.OutputFormat {
	case FormatConsole:
		return newConsoleRenderer(opts), nil
	case FormatTable:
		return newTableRenderer(opts), nil
	case FormatJSON:
		return newJSONRenderer(opts), nil
	case FormatYAML:
		return newYAMLRenderer(opts), nil
	case FormatHTML:
		return newHTMLRenderer(opts)
	case FormatSyslog:
		return newSyslogRenderer(opts), nil
	default:
		return nil, opts.OutputFormat.Validate()
	}
}

// FormatDetails renders details as "k: v" pairs sorted by key.
func FormatDetails(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, details[k]))
	}

	return strings.Join(parts, ", ")
}

// describe returns the "CHECK-ID: description" label of a result.
func describe(r *check.Result) string {
	if r.CheckID == "" {
		return r.Description
	}

	return r.CheckID + ": " + r.Description
}

// summary is the serialized form of the run statistics.
type summary struct {
	Total     int `json:"total checks run"`
	Succeeded int `json:"succeeded"`
	NoResult  int `json:"no result"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
	Skipped   int `json:"skipped"`
}

func newSummary(s stats.Stats) summary {
	return summary{
		Total:     s.Total,
		Succeeded: s.Succeeded,
		NoResult:  s.NoResult,
		Failed:    s.Failed,
		Errors:    s.Errors,
		Skipped:   s.Skipped,
	}
}

func hostname(opts Options) string {
	if opts.Hostname != "" {
		return opts.Hostname
	}

	h, err := os.Hostname()
	if err != nil || h == "" {
		return "-"
	}

	return h
}

func pid(opts Options) int {
	if opts.PID != 0 {
		return opts.PID
	}

	return os.Getpid()
}
