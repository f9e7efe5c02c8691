package printer

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/stats"
)

const htmlTemplates = `
{{- define "header" -}}
<!DOCTYPE html>
<html><head><title>RE HealthCheck results for {{ .Cluster }}</title>
<meta http-equiv="Content-Type" content="text/html; charset=utf-8">
<style>
table { font-family: monospace }
table th { text-align: left }
table tr td { border-bottom: 1px solid #ddd }
</style>
</head>
<body>
<h1>RE HealthCheck results for {{ .Cluster }}</h1>
<p>{{ .Timestamp }}</p>
<table style="width:100%">
<tr><th>Code: Description</th><th>Result</th><th>Info</th></tr>
{{ end -}}

{{- define "row" -}}
<tr><td>{{ .Description }}</td>
<td{{ with .Color }} style="background-color:{{ . }}"{{ end }}>{{ .Status }}</td>
<td>{{ .Info }}{{ with .Remedy }}&nbsp;<i><b>Remedy:</b> {{ . }}</i>{{ end }}</td></tr>
{{ end -}}

{{- define "footer" -}}
</table>
<table style="width:200px">
<tr><td>Total checks run: {{ .Total }}</td></tr>
<tr><td style="background-color:green;text-align:right">succeeded:</td><td>{{ .Succeeded }}</td></tr>
<tr><td style="background-color:yellow;text-align:right">no result:</td><td>{{ .NoResult }}</td></tr>
<tr><td style="background-color:red;text-align:right">failed:</td><td>{{ .Failed }}</td></tr>
<tr><td style="background-color:magenta;text-align:right">errors:</td><td>{{ .Errors }}</td></tr>
<tr><td style="text-align:right">skipped:</td><td>{{ .Skipped }}</td></tr>
</table></body></html>
{{ end -}}
`

//nolint:gochecknoglobals
var htmlColors = map[check.Verdict]string{
	check.VerdictSucceeded: "green",
	check.VerdictFailed:    "red",
	check.VerdictNoResult:  "yellow",
	check.VerdictError:     "magenta",
}

type htmlRow struct {
	Description string
	Status      string
	Color       string
	Info        string
	Remedy      string
}

// HTMLRenderer writes a standalone html page; the header is emitted with
// the first result so that an empty run still produces a valid document.
type HTMLRenderer struct {
	out      io.Writer
	tmpl     *template.Template
	cluster  string
	now      func() time.Time
	preamble bool
}

func newHTMLRenderer(opts Options) (*HTMLRenderer, error) {
	tmpl, err := template.New("report").Parse(htmlTemplates)
	if err != nil {
		return nil, fmt.Errorf("parsing html templates: %w", err)
	}

	cluster := opts.ClusterName
	if cluster == "" {
		cluster = "unknown cluster"
	}

	return &HTMLRenderer{
		out:     opts.out(),
		tmpl:    tmpl,
		cluster: cluster,
		now:     opts.now,
	}, nil
}

func (r *HTMLRenderer) header() error {
	if r.preamble {
		return nil
	}

	r.preamble = true

	err := r.tmpl.ExecuteTemplate(r.out, "header", map[string]string{
		"Cluster":   r.cluster,
		"Timestamp": r.now().Format(time.DateTime),
	})
	if err != nil {
		return fmt.Errorf("writing html header: %w", err)
	}

	return nil
}

func (r *HTMLRenderer) RenderResult(result *check.Result) error {
	if err := r.header(); err != nil {
		return err
	}

	row := htmlRow{
		Description: describe(result),
		Status:      result.Verdict.String(),
		Color:       htmlColors[result.Verdict],
		Info:        FormatDetails(result.Details),
	}

	if result.Verdict == check.VerdictFailed {
		row.Remedy = result.Remedy
	}

	if err := r.tmpl.ExecuteTemplate(r.out, "row", row); err != nil {
		return fmt.Errorf("writing html row for %s: %w", result.CheckID, err)
	}

	return nil
}

func (r *HTMLRenderer) RenderStats(s stats.Stats) error {
	if err := r.header(); err != nil {
		return err
	}

	if err := r.tmpl.ExecuteTemplate(r.out, "footer", s); err != nil {
		return fmt.Errorf("writing html footer: %w", err)
	}

	return nil
}
