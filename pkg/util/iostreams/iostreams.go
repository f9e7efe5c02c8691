package iostreams

import (
	"fmt"
	"io"

	"k8s.io/cli-runtime/pkg/genericiooptions"
)

// Interface is the output surface handed to commands and renderers.
// Progress and diagnostics go to ErrOut so that Out only carries the report.
type Interface interface {
	// Fprintf writes to Out and appends a newline.
	Fprintf(format string, args ...any)
	Fprintln(args ...any)
	// Errorf writes to ErrOut and appends a newline.
	Errorf(format string, args ...any)
	Errorln(args ...any)
	Out() io.Writer
	In() io.Reader
	ErrOut() io.Writer
}

// IOStreams is the default Interface implementation. Nil writers are ignored.
type IOStreams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func NewIOStreams(in io.Reader, out io.Writer, errOut io.Writer) *IOStreams {
	return &IOStreams{
		in:     in,
		out:    out,
		errOut: errOut,
	}
}

// FromGeneric adapts the kubectl style streams built by cobra commands.
func FromGeneric(streams genericiooptions.IOStreams) *IOStreams {
	return NewIOStreams(streams.In, streams.Out, streams.ErrOut)
}

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}

	return fmt.Sprintf(format, args...)
}

func (s *IOStreams) Fprintf(format string, args ...any) {
	if s.out == nil {
		return
	}

	_, _ = fmt.Fprintln(s.out, sprintf(format, args))
}

func (s *IOStreams) Fprintln(args ...any) {
	if s.out == nil {
		return
	}

	_, _ = fmt.Fprintln(s.out, args...)
}

func (s *IOStreams) Errorf(format string, args ...any) {
	if s.errOut == nil {
		return
	}

	_, _ = fmt.Fprintln(s.errOut, sprintf(format, args))
}

func (s *IOStreams) Errorln(args ...any) {
	if s.errOut == nil {
		return
	}

	_, _ = fmt.Fprintln(s.errOut, args...)
}

func (s *IOStreams) Out() io.Writer {
	return s.out
}

func (s *IOStreams) In() io.Reader {
	return s.in
}

func (s *IOStreams) ErrOut() io.Writer {
	return s.errOut
}

// QuietWrapper drops progress messages written through Errorf and Errorln.
// The report written to Out is passed through unchanged.
type QuietWrapper struct {
	delegate Interface
}

func NewQuietWrapper(delegate Interface) *QuietWrapper {
	return &QuietWrapper{delegate: delegate}
}

func (q *QuietWrapper) Fprintf(format string, args ...any) {
	q.delegate.Fprintf(format, args...)
}

func (q *QuietWrapper) Fprintln(args ...any) {
	q.delegate.Fprintln(args...)
}

func (q *QuietWrapper) Errorf(string, ...any) {}

func (q *QuietWrapper) Errorln(...any) {}

func (q *QuietWrapper) Out() io.Writer {
	return q.delegate.Out()
}

func (q *QuietWrapper) In() io.Reader {
	return q.delegate.In()
}

func (q *QuietWrapper) ErrOut() io.Writer {
	return q.delegate.ErrOut()
}
