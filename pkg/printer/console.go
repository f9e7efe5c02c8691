package printer

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/stats"
)

type palette struct {
	colors map[check.Verdict]*color.Color
}

func newPalette(noColor bool) palette {
	p := palette{colors: map[check.Verdict]*color.Color{
		check.VerdictSucceeded: color.New(color.FgGreen),
		check.VerdictFailed:    color.New(color.FgRed),
		check.VerdictNoResult:  color.New(color.FgYellow),
		check.VerdictError:     color.New(color.FgMagenta),
		check.VerdictSkipped:   color.New(color.Reset),
	}}

	if noColor {
		for _, c := range p.colors {
			c.DisableColor()
		}
	}

	return p
}

func (p palette) paint(v check.Verdict, s string) string {
	c, ok := p.colors[v]
	if !ok {
		return s
	}

	return c.Sprint(s)
}

// ConsoleRenderer prints one line per result, prefixed with a verdict tag.
type ConsoleRenderer struct {
	out     io.Writer
	palette palette
}

func newConsoleRenderer(opts Options) *ConsoleRenderer {
	return &ConsoleRenderer{
		out:     opts.out(),
		palette: newPalette(opts.NoColor),
	}
}

func (r *ConsoleRenderer) RenderResult(result *check.Result) error {
	v := result.Verdict

	line := fmt.Sprintf("%s %s %s",
		r.palette.paint(v, v.Tag()),
		describe(result),
		r.palette.paint(v, "["+v.String()+"]"),
	)

	if details := FormatDetails(result.Details); details != "" {
		line += " " + details
	}

	if _, err := fmt.Fprintln(r.out, line); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	if v == check.VerdictFailed && result.Remedy != "" {
		if _, err := fmt.Fprintf(r.out, "    remedy: %s\n", result.Remedy); err != nil {
			return fmt.Errorf("writing remedy: %w", err)
		}
	}

	return nil
}

func (r *ConsoleRenderer) RenderStats(s stats.Stats) error {
	lines := []string{
		"",
		fmt.Sprintf("total checks run: %d", s.Total),
	}

	for _, v := range check.Verdicts {
		lines = append(lines, fmt.Sprintf("- %s: %d", r.palette.paint(v, label(v)), s.Count(v)))
	}

	for _, l := range lines {
		if _, err := fmt.Fprintln(r.out, l); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}

	return nil
}

func label(v check.Verdict) string {
	switch v {
	case check.VerdictSucceeded:
		return "succeeded"
	case check.VerdictFailed:
		return "failed"
	case check.VerdictNoResult:
		return "no result"
	case check.VerdictError:
		return "errors"
	case check.VerdictSkipped:
		return "skipped"
	default:
		return string(v)
	}
}
