package spawn

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/guestpool/internal/docker"
)

// MockSpawnEngine mocks the SpawnEngine interface.
type MockSpawnEngine struct {
	mock.Mock
}

func (m *MockSpawnEngine) CreateGuestContainer(ctx context.Context, opts docker.GuestOpts) (string, error) {
	args := m.Called(ctx, opts)
	return args.String(0), args.Error(1)
}

func (m *MockSpawnEngine) RemoveContainer(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

func (m *MockSpawnEngine) IsContainerRunning(ctx context.Context, nameOrID string) (bool, error) {
	args := m.Called(ctx, nameOrID)
	return args.Bool(0), args.Error(1)
}

// MockNotebookSeeder mocks the NotebookSeeder interface.
type MockNotebookSeeder struct {
	mock.Mock
}

func (m *MockNotebookSeeder) SeedNotebook(ctx context.Context, identity, filename string) error {
	args := m.Called(ctx, identity, filename)
	return args.Error(0)
}
