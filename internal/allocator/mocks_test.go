package allocator

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSessionLister mocks the SessionLister interface.
type MockSessionLister struct {
	mock.Mock
}

func (m *MockSessionLister) RunningUsers(ctx context.Context) (map[string]struct{}, error) {
	args := m.Called(ctx)
	if running := args.Get(0); running != nil {
		return running.(map[string]struct{}), args.Error(1)
	}
	return nil, args.Error(1)
}
