package table

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ColumnFormatter transforms a value for display in a specific column.
type ColumnFormatter func(value any) any

// Renderer wraps tablewriter with per-column formatters.
type Renderer struct {
	writer     io.Writer
	headers    []string
	formatters map[string]ColumnFormatter
	emptyValue string
	table      *tablewriter.Table
}

// NewRenderer creates a table without column separators.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		writer:     os.Stdout,
		formatters: make(map[string]ColumnFormatter),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.table = tablewriter.NewTable(r.writer, tablewriter.WithRendition(
		tw.Rendition{
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		}),
	)

	if len(r.headers) > 0 {
		r.table.Header(r.headers)
	}

	return r
}

// Append adds a row; values must line up with the headers.
func (r *Renderer) Append(values []any) error {
	if len(values) != len(r.headers) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(r.headers))
	}

	row := make([]any, 0, len(values))

	for i, v := range values {
		if formatter, ok := r.formatters[strings.ToUpper(r.headers[i])]; ok {
			v = formatter(v)
		}

		if v == nil || v == "" {
			v = r.emptyValue
		}

		row = append(row, v)
	}

	if err := r.table.Append(row); err != nil {
		return fmt.Errorf("appending row: %w", err)
	}

	return nil
}

func (r *Renderer) AppendAll(rows [][]any) error {
	for _, values := range rows {
		if err := r.Append(values); err != nil {
			return err
		}
	}

	return nil
}

func (r *Renderer) Render() error {
	if err := r.table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	return nil
}

func (r *Renderer) Headers() []string {
	return r.headers
}
