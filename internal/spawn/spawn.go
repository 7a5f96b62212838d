// Package spawn starts resource-limited guest notebook containers, seeding the
// guest's volume first when a notebook was requested.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/docker/go-units"

	"github.com/p-arndt/guestpool/internal/config"
	"github.com/p-arndt/guestpool/internal/docker"
	"github.com/p-arndt/guestpool/internal/guest"
	"github.com/p-arndt/guestpool/internal/store"
)

// ErrNotRunning is returned by Stop when the guest had no running container.
var ErrNotRunning = errors.New("guest container not running")

// CPUPeriod is the CFS period applied to every guest container, in microseconds.
const CPUPeriod = 100000

var (
	notebookPattern = regexp.MustCompile(`notebooks/([^/]+\.ipynb)`)
	userPattern     = regexp.MustCompile(`/user/([^/]+)/`)
)

// SpawnEngine abstracts the engine operations needed to run guest containers.
type SpawnEngine interface {
	CreateGuestContainer(ctx context.Context, opts docker.GuestOpts) (string, error)
	RemoveContainer(ctx context.Context, containerID string) error
	IsContainerRunning(ctx context.Context, nameOrID string) (bool, error)
}

// NotebookSeeder copies a stored notebook into a guest's volume.
type NotebookSeeder interface {
	SeedNotebook(ctx context.Context, identity, filename string) error
}

// EventRecorder persists spawn and stop history.
type EventRecorder interface {
	RecordEvent(ev *store.Event) error
}

// NotebookFromNext extracts the notebook file name from a hub "next" URL such
// as /hub/user/guest1/notebooks/abc.ipynb. Returns "" when there is none.
func NotebookFromNext(next string) string {
	if unescaped, err := url.QueryUnescape(next); err == nil {
		next = unescaped
	}
	m := notebookPattern.FindStringSubmatch(next)
	if m == nil {
		return ""
	}
	return m[1]
}

// IdentityFromNext extracts the user name from a hub "next" URL.
func IdentityFromNext(next string) string {
	if unescaped, err := url.QueryUnescape(next); err == nil {
		next = unescaped
	}
	m := userPattern.FindStringSubmatch(next)
	if m == nil {
		return ""
	}
	return m[1]
}

// Resources converts configured limits into engine values. An empty memory
// limit means unlimited.
func Resources(limits config.Limits) (memoryBytes, cpuPeriod, cpuQuota int64, err error) {
	if limits.Memory != "" {
		memoryBytes, err = units.RAMInBytes(limits.Memory)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("memory limit %q: %w", limits.Memory, guest.ErrInvalidConfiguration)
		}
	}
	if limits.CPUPercentage < 0 {
		return 0, 0, 0, fmt.Errorf("cpu percentage %d: %w", limits.CPUPercentage, guest.ErrInvalidConfiguration)
	}
	if limits.CPUPercentage > 0 {
		cpuPeriod = CPUPeriod
		cpuQuota = int64(limits.CPUPercentage) * 1000
	}
	return memoryBytes, cpuPeriod, cpuQuota, nil
}

// ContainerName is the engine name of a guest's notebook container.
func ContainerName(identity string) string {
	return "jupyter-" + identity
}

type Spawner struct {
	engine   SpawnEngine
	seeder   NotebookSeeder
	recorder EventRecorder
	cfg      *config.Config
	logger   *slog.Logger
}

func New(cfg *config.Config, engine SpawnEngine, seeder NotebookSeeder, logger *slog.Logger) *Spawner {
	return &Spawner{
		engine: engine,
		seeder: seeder,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Spawner) SetRecorder(r EventRecorder) {
	s.recorder = r
}

// Start seeds notebook (when non-empty) into the guest's volume and starts
// the guest container with the configured caps.
func (s *Spawner) Start(ctx context.Context, identity, notebook string) (string, error) {
	if err := guest.CheckMember(identity, s.cfg.PoolSize); err != nil {
		return "", err
	}

	mem, period, quota, err := Resources(s.cfg.Limits)
	if err != nil {
		return "", err
	}

	if notebook != "" {
		if err := s.seeder.SeedNotebook(ctx, identity, notebook); err != nil {
			return "", fmt.Errorf("seed %s: %w", notebook, err)
		}
	}

	volume := guest.VolumeName(identity)
	s.logger.Info("spawn: starting guest container", "guest", identity, "volume", volume)
	id, err := s.engine.CreateGuestContainer(ctx, docker.GuestOpts{
		Name:        ContainerName(identity),
		Image:       s.cfg.Guest.Image,
		Volume:      volume,
		Target:      s.cfg.Guest.NotebookDir,
		Network:     s.cfg.Guest.Network,
		MemoryBytes: mem,
		CPUPeriod:   period,
		CPUQuota:    quota,
		Env:         []string{"JUPYTERHUB_USER=" + identity},
		Labels:      map[string]string{"guestpool.guest": identity},
	})
	if err != nil {
		s.record(&store.Event{Kind: store.KindSpawn, Identity: identity, Volume: volume, Detail: err.Error()})
		return "", fmt.Errorf("start guest %s: %w", identity, err)
	}
	s.record(&store.Event{Kind: store.KindSpawn, Identity: identity, Volume: volume, Detail: notebook, OK: true})
	return id, nil
}

// Stop removes the guest's container. The volume stays behind for the
// collector. A container that was not running is still removed, and
// ErrNotRunning is returned.
func (s *Spawner) Stop(ctx context.Context, identity string) error {
	if err := guest.CheckMember(identity, s.cfg.PoolSize); err != nil {
		return err
	}
	name := ContainerName(identity)

	running, err := s.engine.IsContainerRunning(ctx, name)
	if err != nil {
		s.record(&store.Event{Kind: store.KindStop, Identity: identity, Detail: err.Error()})
		return fmt.Errorf("stop guest %s: %w", identity, err)
	}
	if err := s.engine.RemoveContainer(ctx, name); err != nil {
		s.record(&store.Event{Kind: store.KindStop, Identity: identity, Detail: err.Error()})
		return fmt.Errorf("stop guest %s: %w", identity, err)
	}
	if !running {
		s.logger.Info("spawn: guest container was not running", "guest", identity)
		s.record(&store.Event{Kind: store.KindStop, Identity: identity, Detail: "not running", OK: true})
		return fmt.Errorf("%s: %w", identity, ErrNotRunning)
	}
	s.logger.Info("spawn: guest container removed", "guest", identity)
	s.record(&store.Event{Kind: store.KindStop, Identity: identity, OK: true})
	return nil
}

func (s *Spawner) record(ev *store.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordEvent(ev); err != nil {
		s.logger.Warn("spawn: record event", "kind", ev.Kind, "error", err)
	}
}
