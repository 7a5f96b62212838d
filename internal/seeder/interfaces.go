package seeder

import (
	"context"
	"io"

	"github.com/p-arndt/guestpool/internal/docker"
)

// SeederEngine abstracts the engine operations needed to seed a volume.
type SeederEngine interface {
	ImageExists(ctx context.Context, ref string) (bool, error)
	PullImage(ctx context.Context, ref string) error
	CreateHelper(ctx context.Context, opts docker.HelperOpts) (string, error)
	StartContainer(ctx context.Context, containerID string) error
	Exec(ctx context.Context, containerID string, cmd []string) (int, error)
	CopyToContainer(ctx context.Context, containerID, dstDir string, tarStream io.Reader) error
	RemoveContainer(ctx context.Context, containerID string) error
}
