package check_test

import (
	"testing"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	mocks "github.com/re-tools/re-healthcheck/pkg/util/test/mocks/check"

	. "github.com/onsi/gomega"
)

func newMockCheck(id string, name string, suite string) *mocks.MockCheck {
	m := mocks.NewMockCheck()
	m.On("ID").Return(id)
	m.On("Name").Return(name)
	m.On("Suite").Return(suite)
	m.On("Description").Return(name)

	return m
}

func newTestSuite(name string, checks ...check.Check) check.Suite {
	return &check.BaseSuite{
		SuiteName:        name,
		SuiteDescription: name + " checks",
		SuiteChecks:      checks,
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	g := NewWithT(t)

	registry := check.NewRegistry()
	mockCheck := newMockCheck("NC-001", "Log path not on root", "nodes")

	g.Expect(registry.Register(mockCheck)).To(Succeed())

	err := registry.Register(mockCheck)
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.Error()).To(ContainSubstring("already registered"))
	g.Expect(err.Error()).To(ContainSubstring("NC-001"))
}

func TestRegistry_MustRegister_Panics(t *testing.T) {
	g := NewWithT(t)

	registry := check.NewRegistry()
	mockCheck := newMockCheck("NC-001", "Log path not on root", "nodes")

	registry.MustRegister(mockCheck)
	g.Expect(func() { registry.MustRegister(mockCheck) }).To(Panic())
}

func TestRegistry_RegisterSuite(t *testing.T) {
	g := NewWithT(t)

	registry := check.NewRegistry()
	suite := newTestSuite("nodes",
		newMockCheck("NC-002", "Ephemeral path", "nodes"),
		newMockCheck("NC-001", "Log path", "nodes"),
	)

	g.Expect(registry.RegisterSuite(suite)).To(Succeed())

	s, ok := registry.Suite("nodes")
	g.Expect(ok).To(BeTrue())
	g.Expect(s.Name()).To(Equal("nodes"))

	c, ok := registry.Get("NC-002")
	g.Expect(ok).To(BeTrue())
	g.Expect(c.Name()).To(Equal("Ephemeral path"))

	all := registry.ListAll()
	g.Expect(all).To(HaveLen(2))
	g.Expect(all[0].ID()).To(Equal("NC-001"))
}

func TestRegistry_RegisterSuite_CollisionRegistersNothing(t *testing.T) {
	g := NewWithT(t)

	registry := check.NewRegistry()
	g.Expect(registry.Register(newMockCheck("DC-001", "Database config", "databases"))).To(Succeed())

	suite := newTestSuite("nodes",
		newMockCheck("NC-001", "Log path", "nodes"),
		newMockCheck("DC-001", "Clash", "nodes"),
	)

	err := registry.RegisterSuite(suite)
	g.Expect(err).To(HaveOccurred())

	_, ok := registry.Get("NC-001")
	g.Expect(ok).To(BeFalse())
	g.Expect(registry.ListSuites()).To(BeEmpty())
}

func TestRegistry_ListByPattern(t *testing.T) {
	g := NewWithT(t)

	registry := check.NewRegistry()
	g.Expect(registry.RegisterSuite(newTestSuite("nodes",
		newMockCheck("NC-001", "Check if log file path is not on root filesystem", "nodes"),
		newMockCheck("NC-004", "Check if swappiness is disabled", "nodes"),
		newMockCheck("NS-001", "Get OS version", "nodes"),
	))).To(Succeed())
	g.Expect(registry.RegisterSuite(newTestSuite("databases",
		newMockCheck("DC-001", "Check database configuration", "databases"),
		newMockCheck("DC-002", "Check database endpoints", "databases"),
	))).To(Succeed())

	tests := []struct {
		name     string
		patterns []string
		suites   []string
		wantIDs  []string
	}{
		{
			name:     "wildcard all checks",
			patterns: []string{"*"},
			wantIDs:  []string{"DC-001", "DC-002", "NC-001", "NC-004", "NS-001"},
		},
		{
			name:     "suite shortcut",
			patterns: []string{"databases"},
			wantIDs:  []string{"DC-001", "DC-002"},
		},
		{
			name:     "glob over IDs",
			patterns: []string{"NC-*"},
			wantIDs:  []string{"NC-001", "NC-004"},
		},
		{
			name:     "exact ID is case-insensitive",
			patterns: []string{"ns-001"},
			wantIDs:  []string{"NS-001"},
		},
		{
			name:     "name substring",
			patterns: []string{"Swappiness"},
			wantIDs:  []string{"NC-004"},
		},
		{
			name:     "several patterns are OR-ed",
			patterns: []string{"DC-002", "NS-*"},
			wantIDs:  []string{"DC-002", "NS-001"},
		},
		{
			name:     "suite restriction",
			patterns: []string{"*"},
			suites:   []string{"nodes"},
			wantIDs:  []string{"NC-001", "NC-004", "NS-001"},
		},
		{
			name:     "no matches",
			patterns: []string{"XX-*"},
			wantIDs:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			results, err := registry.ListByPattern(tt.patterns, tt.suites...)
			g.Expect(err).ToNot(HaveOccurred())

			gotIDs := make([]string, 0, len(results))
			for _, c := range results {
				gotIDs = append(gotIDs, c.ID())
			}

			g.Expect(gotIDs).To(Equal(tt.wantIDs))
		})
	}
}

func TestRegistry_ListByPattern_UnknownSuite(t *testing.T) {
	g := NewWithT(t)

	registry := check.NewRegistry()

	_, err := registry.ListByPattern([]string{"*"}, "bogus")
	g.Expect(err).To(MatchError(ContainSubstring(`unknown suite "bogus"`)))
}

func TestValidateSelectors(t *testing.T) {
	g := NewWithT(t)

	g.Expect(check.ValidateSelectors([]string{"*", "NC-00[1-3]", "swap"})).To(Succeed())
	g.Expect(check.ValidateSelectors(nil)).ToNot(Succeed())
	g.Expect(check.ValidateSelectors([]string{""})).ToNot(Succeed())
	g.Expect(check.ValidateSelectors([]string{"NC-[0"})).ToNot(Succeed())
}
