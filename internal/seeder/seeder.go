package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/p-arndt/guestpool/internal/archive"
	"github.com/p-arndt/guestpool/internal/config"
	"github.com/p-arndt/guestpool/internal/docker"
)

var (
	ErrImagePullFailed      = errors.New("helper image pull failed")
	ErrContainerStartFailed = errors.New("helper container start failed")
	ErrArchiveWriteFailed   = errors.New("archive write failed")
)

// removeTimeout bounds helper removal, which runs even after the caller's
// context is cancelled.
const removeTimeout = 30 * time.Second

type Seeder struct {
	engine    SeederEngine
	image     string
	sleepSecs int
	logger    *slog.Logger
}

func New(engine SeederEngine, cfg config.Seeder, logger *slog.Logger) *Seeder {
	sleep := cfg.SleepSecs
	if sleep <= 0 {
		sleep = 120
	}
	return &Seeder{
		engine:    engine,
		image:     cfg.HelperImage,
		sleepSecs: sleep,
		logger:    logger,
	}
}

// Seed writes the file at sourcePath into targetDir of volumeName through a
// helper container. The helper never outlives the call.
func (s *Seeder) Seed(ctx context.Context, volumeName, sourcePath, targetDir string) error {
	if err := s.ensureImage(ctx); err != nil {
		return err
	}

	helperID, err := s.engine.CreateHelper(ctx, docker.HelperOpts{
		Name:   "guestpool-seed-" + uuid.New().String()[:8],
		Image:  s.image,
		Cmd:    []string{"sleep", strconv.Itoa(s.sleepSecs)},
		Volume: volumeName,
		Target: targetDir,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrContainerStartFailed, err)
	}
	defer s.removeHelper(helperID, volumeName)

	if err := s.engine.StartContainer(ctx, helperID); err != nil {
		return fmt.Errorf("%w: %w", ErrContainerStartFailed, err)
	}

	if code, err := s.engine.Exec(ctx, helperID, []string{"mkdir", "-p", targetDir}); err != nil || code != 0 {
		if err == nil {
			err = fmt.Errorf("mkdir exited with %d", code)
		}
		return fmt.Errorf("%w: ensure %s: %w", ErrArchiveWriteFailed, targetDir, err)
	}

	tarStream, err := archive.Build(sourcePath)
	if err != nil {
		return err
	}

	if err := s.engine.CopyToContainer(ctx, helperID, targetDir, tarStream); err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveWriteFailed, err)
	}

	s.logger.Info("seeder: copied file to volume",
		"file", filepath.Base(sourcePath), "volume", volumeName, "target", targetDir)
	return nil
}

func (s *Seeder) ensureImage(ctx context.Context) error {
	ok, err := s.engine.ImageExists(ctx, s.image)
	if err != nil {
		s.logger.Warn("seeder: image inspect failed, pulling", "image", s.image, "error", err)
	}
	if ok {
		return nil
	}

	s.logger.Info("seeder: pulling helper image", "image", s.image)
	if err := s.engine.PullImage(ctx, s.image); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrImagePullFailed, s.image, err)
	}
	return nil
}

func (s *Seeder) removeHelper(helperID, volumeName string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()

	if err := s.engine.RemoveContainer(ctx, helperID); err != nil {
		s.logger.Error("seeder: remove helper", "container", helperID, "volume", volumeName, "error", err)
	}
}
