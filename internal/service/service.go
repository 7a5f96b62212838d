// Package service exposes the guest lifecycle operations to the outer
// layers: allocation, notebook seeding and orphan volume collection.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/p-arndt/guestpool/internal/allocator"
	"github.com/p-arndt/guestpool/internal/config"
	"github.com/p-arndt/guestpool/internal/guest"
	"github.com/p-arndt/guestpool/internal/store"
)

var ErrInvalidFilename = errors.New("invalid notebook filename")

type Service struct {
	cfg       *config.Config
	allocator SlotAllocator
	seeder    VolumeSeeder
	collector VolumeCollector
	recorder  EventRecorder
	logger    *slog.Logger
}

func New(cfg *config.Config, a SlotAllocator, s VolumeSeeder, c VolumeCollector, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		allocator: a,
		seeder:    s,
		collector: c,
		logger:    logger,
	}
}

func (s *Service) SetRecorder(r EventRecorder) {
	s.recorder = r
}

// AllocateFreeGuest returns a guest identity with no live server, or false
// when the pool is exhausted.
func (s *Service) AllocateFreeGuest(ctx context.Context) (string, bool, error) {
	id, ok, err := s.allocator.Allocate(ctx)
	switch {
	case err != nil:
		s.record(&store.Event{Kind: store.KindAllocate, Detail: err.Error()})
	case ok:
		s.record(&store.Event{Kind: store.KindAllocate, Identity: id, OK: true})
	default:
		s.record(&store.Event{Kind: store.KindAllocate, Detail: "no free guest", OK: true})
	}
	return id, ok, err
}

// ListRunningIdentities returns the users with a live server, sorted.
func (s *Service) ListRunningIdentities(ctx context.Context) []string {
	return allocator.Sorted(s.allocator.Running(ctx))
}

// ValidateNotebookName rejects names that could address anything outside the
// notebook directory.
func ValidateNotebookName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// NotebookPath resolves a notebook file name under the storage root.
func (s *Service) NotebookPath(filename string) string {
	return filepath.Join(s.cfg.Storage.Root, s.cfg.Storage.NotebookDir, filename)
}

// SeedNotebook copies a stored notebook into the identity's volume.
func (s *Service) SeedNotebook(ctx context.Context, identity, filename string) error {
	if err := ValidateNotebookName(filename); err != nil {
		return err
	}
	if err := guest.CheckMember(identity, s.cfg.PoolSize); err != nil {
		return err
	}

	volume := guest.VolumeName(identity)
	err := s.seeder.Seed(ctx, volume, s.NotebookPath(filename), s.cfg.Guest.NotebookDir)

	ev := &store.Event{Kind: store.KindSeed, Identity: identity, Volume: volume, Detail: filename, OK: err == nil}
	if err != nil {
		ev.Detail = filename + ": " + err.Error()
		s.logger.Error("seed notebook", "guest", identity, "notebook", filename, "error", err)
	} else {
		s.logger.Info("notebook seeded", "guest", identity, "notebook", filename)
	}
	s.record(ev)
	return err
}

// CollectOrphanVolumes removes guest volumes no running container mounts.
// Sweeps are recorded by the collector itself.
func (s *Service) CollectOrphanVolumes(ctx context.Context) (int, error) {
	return s.collector.Collect(ctx)
}

func (s *Service) record(ev *store.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordEvent(ev); err != nil {
		s.logger.Warn("record event", "kind", ev.Kind, "error", err)
	}
}
