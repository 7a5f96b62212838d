package collector

import (
	"context"

	"github.com/p-arndt/guestpool/internal/docker"
)

// CollectorEngine abstracts the engine operations needed by the collector.
type CollectorEngine interface {
	ListVolumes(ctx context.Context) ([]string, error)
	ListRunningContainers(ctx context.Context) ([]docker.ContainerInfo, error)
	RemoveVolume(ctx context.Context, name string) error
}

// SweepRecorder receives the outcome of each sweep. Optional.
type SweepRecorder interface {
	RecordSweep(removed []string, sweepErr error)
}
