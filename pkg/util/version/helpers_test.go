package version_test

import (
	"testing"

	"github.com/re-tools/re-healthcheck/pkg/util/version"

	. "github.com/onsi/gomega"
)

func TestParseRS(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		build       uint64
		expectError bool
	}{
		{name: "regular release", input: "6.2.10-96", expected: "6.2.10", build: 96},
		{name: "old release", input: "5.6.0-20", expected: "5.6.0", build: 20},
		{name: "missing build", input: "6.2.10", expectError: true},
		{name: "garbage", input: "latest", expectError: true},
		{name: "trailing text", input: "6.2.10-96-rc1", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			v, err := version.ParseRS(tt.input)
			if tt.expectError {
				g.Expect(err).To(HaveOccurred())

				return
			}

			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(v.Version.String()).To(Equal(tt.expected))
			g.Expect(v.Build).To(Equal(tt.build))
			g.Expect(v.String()).To(Equal(tt.input))
		})
	}
}

func TestRSVersion_Compare(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{name: "equal", a: "6.2.10-96", b: "6.2.10-96", expected: 0},
		{name: "higher build", a: "6.2.10-100", b: "6.2.10-96", expected: 1},
		{name: "lower patch beats build", a: "6.2.8-200", b: "6.2.10-1", expected: -1},
		{name: "major wins", a: "7.2.4-52", b: "6.4.2-110", expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			a, err := version.ParseRS(tt.a)
			g.Expect(err).ToNot(HaveOccurred())

			b, err := version.ParseRS(tt.b)
			g.Expect(err).ToNot(HaveOccurred())

			g.Expect(a.Compare(b)).To(Equal(tt.expected))
		})
	}
}

func TestLatest(t *testing.T) {
	g := NewWithT(t)

	v, err := version.Latest("6.2.8-53", "6.2.10-96", "6.2.10-90")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(v.String()).To(Equal("6.2.10-96"))

	_, err = version.Latest()
	g.Expect(err).To(HaveOccurred())

	_, err = version.Latest("6.2.8-53", "bogus")
	g.Expect(err).To(HaveOccurred())
}
