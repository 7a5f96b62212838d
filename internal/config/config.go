package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p-arndt/guestpool/internal/guest"
)

type Hub struct {
	URL         string `yaml:"url"`
	APIToken    string `yaml:"api_token"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
}

type Storage struct {
	Root        string `yaml:"root"`
	NotebookDir string `yaml:"notebook_subdir"` // relative to Root
}

// Limits are the caps the spawner applies to guest containers.
type Limits struct {
	Memory        string `yaml:"memory"` // human size, e.g. "2g"
	CPUPercentage int    `yaml:"cpu_percentage"`
}

type Guest struct {
	Image       string `yaml:"image"`
	Network     string `yaml:"network"`
	NotebookDir string `yaml:"notebook_dir"` // mount point inside guest and helper containers
}

type Seeder struct {
	HelperImage string `yaml:"helper_image"`
	SleepSecs   int    `yaml:"sleep_seconds"`
}

type Collector struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type Config struct {
	PoolSize  int       `yaml:"pool_size"`
	DBPath    string    `yaml:"db_path"`
	Hub       Hub       `yaml:"hub"`
	Storage   Storage   `yaml:"storage"`
	Limits    Limits    `yaml:"limits"`
	Guest     Guest     `yaml:"guest"`
	Seeder    Seeder    `yaml:"seeder"`
	Collector Collector `yaml:"collector"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		DBPath: "./guestpool.db",
		Hub: Hub{
			TimeoutMs: 10000,
		},
		Storage: Storage{
			Root:        "/var/lib/ckan",
			NotebookDir: "notebook",
		},
		Limits: Limits{
			CPUPercentage: 100,
		},
		Guest: Guest{
			Image:       "jupyter/datascience-notebook:latest",
			NotebookDir: "/home/jovyan/work",
		},
		Seeder: Seeder{
			HelperImage: "busybox:1.36",
			SleepSecs:   120,
		},
		Collector: Collector{
			IntervalSeconds: 60,
		},
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("GUEST_POOL_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GUEST_POOL_SIZE %q: %w", v, guest.ErrInvalidConfiguration)
		}
		cfg.PoolSize = n
	}
	if v := os.Getenv("NOTEBOOK_PLATFORM_URL"); v != "" {
		cfg.Hub.URL = v
	}
	if v := os.Getenv("PLATFORM_API_TOKEN"); v != "" {
		cfg.Hub.APIToken = v
	}
	if v := os.Getenv("STORAGE_ROOT"); v != "" {
		cfg.Storage.Root = v
	}
	if v := os.Getenv("MEMORY_LIMIT"); v != "" {
		cfg.Limits.Memory = v
	}
	if v := os.Getenv("CPU_PERCENTAGE"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("CPU_PERCENTAGE %q: %w", v, guest.ErrInvalidConfiguration)
		}
		cfg.Limits.CPUPercentage = n
	}
	if v := os.Getenv("GUESTPOOL_HELPER_IMAGE"); v != "" {
		cfg.Seeder.HelperImage = v
	}
	if v := os.Getenv("GUESTPOOL_NOTEBOOK_DIR"); v != "" {
		cfg.Guest.NotebookDir = v
	}
	if v := os.Getenv("GUESTPOOL_GUEST_IMAGE"); v != "" {
		cfg.Guest.Image = v
	}
	if v := os.Getenv("GUESTPOOL_NETWORK"); v != "" {
		cfg.Guest.Network = v
	}
	if v := os.Getenv("GUESTPOOL_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("GUESTPOOL_COLLECT_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("GUESTPOOL_COLLECT_INTERVAL_SECONDS %q: %w", v, guest.ErrInvalidConfiguration)
		}
		cfg.Collector.IntervalSeconds = n
	}
	if v := os.Getenv("GUESTPOOL_HUB_TLS_INSECURE"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("GUESTPOOL_HUB_TLS_INSECURE %q: %w", v, guest.ErrInvalidConfiguration)
		}
		cfg.Hub.TLSInsecure = b
	}
	return nil
}
