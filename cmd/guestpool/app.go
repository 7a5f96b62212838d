package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-arndt/guestpool/internal/allocator"
	"github.com/p-arndt/guestpool/internal/collector"
	"github.com/p-arndt/guestpool/internal/config"
	"github.com/p-arndt/guestpool/internal/docker"
	"github.com/p-arndt/guestpool/internal/hub"
	"github.com/p-arndt/guestpool/internal/seeder"
	"github.com/p-arndt/guestpool/internal/service"
	"github.com/p-arndt/guestpool/internal/spawn"
	"github.com/p-arndt/guestpool/internal/store"
)

// app holds the wired components shared by all subcommands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	docker    *docker.Client
	collector *collector.Collector
	service   *service.Service
	spawner   *spawn.Spawner
}

func wireApp(configPath string, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.New(cfg.DBPath, 0)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	st.SetLogger(logger)

	dc, err := docker.New()
	if err != nil {
		st.Close()
		return nil, err
	}

	hc := hub.New(cfg.Hub)
	alloc := allocator.New(cfg.PoolSize, hc, logger)
	sd := seeder.New(dc, cfg.Seeder, logger)

	coll := collector.New(dc, cfg.PoolSize, collectInterval(cfg.Collector), logger)
	coll.SetRecorder(st)

	svc := service.New(cfg, alloc, sd, coll, logger)
	svc.SetRecorder(st)

	sp := spawn.New(cfg, dc, svc, logger)
	sp.SetRecorder(st)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		docker:    dc,
		collector: coll,
		service:   svc,
		spawner:   sp,
	}, nil
}

func collectInterval(c config.Collector) time.Duration {
	if c.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (a *app) Close() error {
	return errors.Join(a.docker.Close(), a.store.Close())
}
