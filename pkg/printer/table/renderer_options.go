package table

import (
	"io"
	"strings"
)

type Option func(*Renderer)

func WithWriter(w io.Writer) Option {
	return func(r *Renderer) {
		r.writer = w
	}
}

// WithHeaders sets the column names; every appended row must match their count.
func WithHeaders(headers ...string) Option {
	return func(r *Renderer) {
		r.headers = headers
	}
}

// WithFormatter applies formatter to the cells of the named column.
// Column names are matched case-insensitively.
func WithFormatter(columnName string, formatter ColumnFormatter) Option {
	return func(r *Renderer) {
		r.formatters[strings.ToUpper(columnName)] = formatter
	}
}

// WithEmptyValue replaces nil and empty cells, after formatting, with placeholder.
func WithEmptyValue(placeholder string) Option {
	return func(r *Renderer) {
		r.emptyValue = placeholder
	}
}
