package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-arndt/guestpool/internal/guest"
)

const mountTypeVolume = "volume"

// Collector removes guest volumes that no running container mounts.
type Collector struct {
	engine   CollectorEngine
	poolSize int
	interval time.Duration
	recorder SweepRecorder
	logger   *slog.Logger
}

func New(engine CollectorEngine, poolSize int, interval time.Duration, logger *slog.Logger) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		engine:   engine,
		poolSize: poolSize,
		interval: interval,
		logger:   logger,
	}
}

func (c *Collector) SetRecorder(r SweepRecorder) {
	c.recorder = r
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (c *Collector) Run(ctx context.Context) {
	c.logger.Info("collector started", "interval", c.interval)

	c.sweep(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("collector stopped")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Collector) sweep(ctx context.Context) {
	if _, err := c.Collect(ctx); err != nil {
		c.logger.Error("collector: sweep", "error", err)
	}
}

// Collect removes orphan guest volumes and returns how many were removed.
// A failed removal is logged and skipped.
func (c *Collector) Collect(ctx context.Context) (int, error) {
	removed, err := c.collect(ctx)
	if c.recorder != nil {
		c.recorder.RecordSweep(removed, err)
	}
	if err != nil {
		return 0, err
	}
	return len(removed), nil
}

func (c *Collector) collect(ctx context.Context) ([]string, error) {
	volumes, err := c.engine.ListVolumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}

	universe, err := guest.Universe(c.poolSize)
	if err != nil {
		return nil, err
	}

	used, err := c.usedVolumes(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, name := range Orphans(volumes, universe, used) {
		c.logger.Info("collector: removing unused volume", "volume", name)
		if err := c.engine.RemoveVolume(ctx, name); err != nil {
			c.logger.Error("collector: remove volume", "volume", name, "error", err)
			continue
		}
		removed = append(removed, name)
	}

	c.logger.Info("collector: sweep complete", "removed", len(removed))
	return removed, nil
}

func (c *Collector) usedVolumes(ctx context.Context) (map[string]struct{}, error) {
	containers, err := c.engine.ListRunningContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	used := make(map[string]struct{})
	for _, ctr := range containers {
		for _, m := range ctr.Mounts {
			if m.Type == mountTypeVolume && m.Name != "" {
				used[m.Name] = struct{}{}
			}
		}
	}
	return used, nil
}

// Orphans returns the volumes that belong to a guest in universe and are not
// in used. Each decision depends only on the volume itself.
func Orphans(volumes []string, universe, used map[string]struct{}) []string {
	var out []string
	for _, name := range volumes {
		id, ok := guest.IdentityFromVolume(name)
		if !ok {
			continue
		}
		if _, inUniverse := universe[id]; !inUniverse {
			continue
		}
		if _, inUse := used[name]; inUse {
			continue
		}
		out = append(out, name)
	}
	return out
}
