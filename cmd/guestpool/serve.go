package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// historyRetention bounds how long events are kept by "serve".
const historyRetention = 30 * 24 * time.Hour

func newServeCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Collect orphan guest volumes periodically until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.docker.Ping(ctx); err != nil {
				a.logger.Error("docker ping failed, is Docker running?", "error", err)
				return err
			}
			a.logger.Info("docker connection OK")

			if n, err := a.store.PruneBefore(time.Now().Add(-historyRetention)); err != nil {
				a.logger.Warn("prune history", "error", err)
			} else if n > 0 {
				a.logger.Info("pruned history", "events", n)
			}

			a.logger.Info("collector running", "interval", collectInterval(a.cfg.Collector), "pool_size", a.cfg.PoolSize)
			a.collector.Run(ctx)
			a.logger.Info("shutting down...")
			return nil
		},
	}
}
