package check

import (
	"fmt"
	"sort"
	"sync"
)

// CheckRegistry manages the collection of available checks and suites.
type CheckRegistry struct {
	mu     sync.RWMutex
	checks map[string]Check
	suites map[string]Suite
}

// NewRegistry creates a new check registry.
func NewRegistry() *CheckRegistry {
	return &CheckRegistry{
		checks: make(map[string]Check),
		suites: make(map[string]Suite),
	}
}

// Register adds a check to the registry.
// Returns error if a check with the same ID already exists.
func (r *CheckRegistry) Register(check Check) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.register(check)
}

func (r *CheckRegistry) register(check Check) error {
	if check.ID() == "" {
		return fmt.Errorf("check %q has no ID", check.Name())
	}

	if _, exists := r.checks[check.ID()]; exists {
		return fmt.Errorf("check with ID %s already registered", check.ID())
	}

	r.checks[check.ID()] = check

	return nil
}

// MustRegister registers a check and panics if registration fails.
func (r *CheckRegistry) MustRegister(check Check) {
	if err := r.Register(check); err != nil {
		panic(fmt.Sprintf("failed to register check %s: %v", check.ID(), err))
	}
}

// RegisterSuite adds a suite and all of its checks.
// Nothing is registered if any check ID collides.
func (r *CheckRegistry) RegisterSuite(suite Suite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.suites[suite.Name()]; exists {
		return fmt.Errorf("suite %s already registered", suite.Name())
	}

	seen := make(map[string]struct{})
	for _, c := range suite.Checks() {
		if _, exists := r.checks[c.ID()]; exists {
			return fmt.Errorf("suite %s: check with ID %s already registered", suite.Name(), c.ID())
		}
		if _, dup := seen[c.ID()]; dup {
			return fmt.Errorf("suite %s: duplicate check ID %s", suite.Name(), c.ID())
		}
		seen[c.ID()] = struct{}{}
	}

	for _, c := range suite.Checks() {
		if err := r.register(c); err != nil {
			return fmt.Errorf("registering suite %s: %w", suite.Name(), err)
		}
	}

	r.suites[suite.Name()] = suite

	return nil
}

// MustRegisterSuite registers a suite and panics if registration fails.
func (r *CheckRegistry) MustRegisterSuite(suite Suite) {
	if err := r.RegisterSuite(suite); err != nil {
		panic(fmt.Sprintf("failed to register suite %s: %v", suite.Name(), err))
	}
}

// Get looks up a check by ID, returning the check and whether it exists.
func (r *CheckRegistry) Get(id string) (Check, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	check, exists := r.checks[id]

	return check, exists
}

// Suite looks up a suite by name.
func (r *CheckRegistry) Suite(name string) (Suite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	suite, exists := r.suites[name]

	return suite, exists
}

// ListSuites returns all registered suites sorted by name.
func (r *CheckRegistry) ListSuites() []Suite {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Suite, 0, len(r.suites))
	for _, s := range r.suites {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})

	return result
}

// ListAll returns all registered checks sorted by suite, then ID.
func (r *CheckRegistry) ListAll() []Check {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Check, 0, len(r.checks))
	for _, check := range r.checks {
		result = append(result, check)
	}

	sortChecks(result)

	return result
}

// ListByPattern returns checks matching any of the selector patterns,
// restricted to the given suites when suites is not empty.
// See matchesPattern for the accepted selector forms.
func (r *CheckRegistry) ListByPattern(patterns []string, suites ...string) ([]Check, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	allowed := make(map[string]struct{}, len(suites))
	for _, s := range suites {
		if _, ok := r.suites[s]; !ok {
			return nil, fmt.Errorf("unknown suite %q", s)
		}
		allowed[s] = struct{}{}
	}

	result := make([]Check, 0, len(r.checks))
	for _, check := range r.checks {
		if len(allowed) > 0 {
			if _, ok := allowed[check.Suite()]; !ok {
				continue
			}
		}

		for _, pattern := range patterns {
			matched, err := matchesPattern(check, pattern)
			if err != nil {
				return nil, fmt.Errorf("pattern matching for check %s: %w", check.ID(), err)
			}

			if matched {
				result = append(result, check)

				break
			}
		}
	}

	sortChecks(result)

	return result, nil
}

func sortChecks(checks []Check) {
	sort.Slice(checks, func(i, j int) bool {
		if checks[i].Suite() != checks[j].Suite() {
			return checks[i].Suite() < checks[j].Suite()
		}

		return checks[i].ID() < checks[j].ID()
	})
}
