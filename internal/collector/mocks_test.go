package collector

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/guestpool/internal/docker"
)

// MockCollectorEngine mocks the CollectorEngine interface.
type MockCollectorEngine struct {
	mock.Mock
}

func (m *MockCollectorEngine) ListVolumes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if names := args.Get(0); names != nil {
		return names.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCollectorEngine) ListRunningContainers(ctx context.Context) ([]docker.ContainerInfo, error) {
	args := m.Called(ctx)
	if containers := args.Get(0); containers != nil {
		return containers.([]docker.ContainerInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCollectorEngine) RemoveVolume(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockSweepRecorder mocks the SweepRecorder interface.
type MockSweepRecorder struct {
	mock.Mock
}

func (m *MockSweepRecorder) RecordSweep(removed []string, sweepErr error) {
	m.Called(removed, sweepErr)
}
