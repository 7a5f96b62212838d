package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/guestpool/internal/store"
)

type MockSlotAllocator struct {
	mock.Mock
}

func (m *MockSlotAllocator) Allocate(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockSlotAllocator) Running(ctx context.Context) map[string]struct{} {
	args := m.Called(ctx)
	if running := args.Get(0); running != nil {
		return running.(map[string]struct{})
	}
	return nil
}

type MockVolumeSeeder struct {
	mock.Mock
}

func (m *MockVolumeSeeder) Seed(ctx context.Context, volumeName, sourcePath, targetDir string) error {
	args := m.Called(ctx, volumeName, sourcePath, targetDir)
	return args.Error(0)
}

type MockVolumeCollector struct {
	mock.Mock
}

func (m *MockVolumeCollector) Collect(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockEventRecorder struct {
	mock.Mock
}

func (m *MockEventRecorder) RecordEvent(ev *store.Event) error {
	args := m.Called(ev)
	return args.Error(0)
}
