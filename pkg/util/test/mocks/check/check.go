package check

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
)

// Verify MockCheck implements check.Check at compile time.
var _ check.Check = (*MockCheck)(nil)

// MockCheck is a testify mock of check.Check.
type MockCheck struct {
	mock.Mock
}

func NewMockCheck() *MockCheck {
	return &MockCheck{}
}

func (m *MockCheck) ID() string {
	return m.Called().String(0)
}

func (m *MockCheck) Name() string {
	return m.Called().String(0)
}

func (m *MockCheck) Description() string {
	return m.Called().String(0)
}

func (m *MockCheck) Suite() string {
	return m.Called().String(0)
}

func (m *MockCheck) Remedy() string {
	return m.Called().String(0)
}

func (m *MockCheck) Requires() check.Requirement {
	args := m.Called()

	r, _ := args.Get(0).(check.Requirement)

	return r
}

func (m *MockCheck) Run(ctx context.Context, params check.Params) (*check.Result, error) {
	args := m.Called(ctx, params)

	r, _ := args.Get(0).(*check.Result)

	return r, args.Error(1)
}
