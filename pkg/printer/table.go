package printer

import (
	"fmt"
	"io"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/stats"
	"github.com/re-tools/re-healthcheck/pkg/printer/table"
)

// TableRenderer buffers results and prints them as one table with the stats.
type TableRenderer struct {
	out     io.Writer
	palette palette
	rows    [][]any
}

func newTableRenderer(opts Options) *TableRenderer {
	return &TableRenderer{
		out:     opts.out(),
		palette: newPalette(opts.NoColor),
	}
}

func (r *TableRenderer) RenderResult(result *check.Result) error {
	details := FormatDetails(result.Details)
	if result.Verdict == check.VerdictFailed && result.Remedy != "" {
		details += "\nremedy: " + result.Remedy
	}

	r.rows = append(r.rows, []any{
		result.Verdict,
		result.CheckID,
		result.Suite,
		result.Description,
		details,
	})

	return nil
}

func (r *TableRenderer) RenderStats(s stats.Stats) error {
	renderer := table.NewRenderer(
		table.WithWriter(r.out),
		table.WithHeaders("STATUS", "CHECK", "SUITE", "DESCRIPTION", "DETAILS"),
		table.WithEmptyValue("-"),
		table.WithFormatter("STATUS", func(value any) any {
			v, ok := value.(check.Verdict)
			if !ok {
				return value
			}

			return r.palette.paint(v, v.Tag()+" "+v.String())
		}),
	)

	if err := renderer.AppendAll(r.rows); err != nil {
		return fmt.Errorf("appending rows: %w", err)
	}

	if err := renderer.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	_, err := fmt.Fprintf(r.out, "\ntotal: %d, succeeded: %d, failed: %d, no result: %d, errors: %d, skipped: %d\n",
		s.Total, s.Succeeded, s.Failed, s.NoResult, s.Errors, s.Skipped)
	if err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}

	return nil
}
