package testutil

import (
	"github.com/p-arndt/guestpool/internal/config"
)

// TestConfig returns a Config with sensible test defaults.
func TestConfig() *config.Config {
	return &config.Config{
		PoolSize: 3,
		DBPath:   ":memory:",
		Hub: config.Hub{
			URL:       "http://127.0.0.1:0/",
			APIToken:  "test-token",
			TimeoutMs: 2000,
		},
		Storage: config.Storage{
			Root:        "/var/lib/ckan",
			NotebookDir: "notebook",
		},
		Limits: config.Limits{
			Memory:        "512m",
			CPUPercentage: 50,
		},
		Guest: config.Guest{
			Image:       "jupyter/minimal-notebook:latest",
			NotebookDir: "/home/jovyan/work",
		},
		Seeder: config.Seeder{
			HelperImage: "busybox:1.36",
			SleepSecs:   120,
		},
		Collector: config.Collector{
			IntervalSeconds: 60,
		},
	}
}
