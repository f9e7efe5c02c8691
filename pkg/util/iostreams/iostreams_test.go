package iostreams_test

import (
	"bytes"
	"testing"

	"github.com/re-tools/re-healthcheck/pkg/util/iostreams"

	. "github.com/onsi/gomega"
)

func TestIOStreams(t *testing.T) {
	g := NewWithT(t)

	var out, errOut bytes.Buffer

	s := iostreams.NewIOStreams(nil, &out, &errOut)
	s.Fprintf("checks: %d", 3)
	s.Fprintf("100%")
	s.Errorf("connecting to %s", "cluster.local")
	s.Errorln("done")

	g.Expect(out.String()).To(Equal("checks: 3\n100%\n"))
	g.Expect(errOut.String()).To(Equal("connecting to cluster.local\ndone\n"))
}

func TestIOStreams_NilWriters(t *testing.T) {
	g := NewWithT(t)

	s := iostreams.NewIOStreams(nil, nil, nil)

	g.Expect(func() {
		s.Fprintf("x")
		s.Fprintln("x")
		s.Errorf("x")
		s.Errorln("x")
	}).ToNot(Panic())
}

func TestQuietWrapper(t *testing.T) {
	g := NewWithT(t)

	var out, errOut bytes.Buffer

	q := iostreams.NewQuietWrapper(iostreams.NewIOStreams(nil, &out, &errOut))
	q.Fprintln("report")
	q.Errorf("progress %d", 1)
	q.Errorln("progress")

	g.Expect(out.String()).To(Equal("report\n"))
	g.Expect(errOut.String()).To(BeEmpty())
	g.Expect(q.ErrOut()).To(BeIdenticalTo(&errOut))
}
