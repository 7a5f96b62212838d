package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// cli owns the app wired for one invocation. close must run after Execute,
// whether or not the command failed.
type cli struct {
	opts rootOptions
	app  *app
}

func (c *cli) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "guestpool",
		Short:         "Guest pool manager for a JupyterHub deployment",
		Long:          "guestpool hands out free guest identities, seeds stored notebooks into guest volumes, and removes guest volumes no running container uses.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := newLogger(c.opts.logLevel)
			if err != nil {
				return err
			}
			c.app, err = wireApp(c.opts.configPath, logger)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(&c.opts.configPath, "config", "", "path to guestpool.yaml")
	rootCmd.PersistentFlags().StringVar(&c.opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	get := func() *app { return c.app }
	rootCmd.AddCommand(
		newAllocateCmd(get),
		newRunningCmd(get),
		newSeedCmd(get),
		newCollectCmd(get),
		newSpawnCmd(get),
		newStopCmd(get),
		newHistoryCmd(get),
		newServeCmd(get),
	)
	return rootCmd
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}
