package service

import (
	"context"

	"github.com/p-arndt/guestpool/internal/store"
)

// SlotAllocator picks free guest identities.
type SlotAllocator interface {
	Allocate(ctx context.Context) (string, bool, error)
	Running(ctx context.Context) map[string]struct{}
}

// VolumeSeeder writes one file into a volume.
type VolumeSeeder interface {
	Seed(ctx context.Context, volumeName, sourcePath, targetDir string) error
}

// VolumeCollector removes orphan guest volumes.
type VolumeCollector interface {
	Collect(ctx context.Context) (int, error)
}

// EventRecorder persists operation history. Optional.
type EventRecorder interface {
	RecordEvent(ev *store.Event) error
}
