package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
)

// GuestOpts describes a guest notebook container.
type GuestOpts struct {
	Name        string
	Image       string
	Volume      string
	Target      string
	Network     string
	MemoryBytes int64
	CPUPeriod   int64
	CPUQuota    int64
	Env         []string
	Labels      map[string]string
}

func guestConfig(opts GuestOpts) (*container.Config, *container.HostConfig) {
	labels := map[string]string{
		labelPrefix + "managed": "true",
		labelPrefix + "role":    "guest",
		labelPrefix + "volume":  opts.Volume,
	}
	for k, v := range opts.Labels {
		labels[k] = v
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:    opts.MemoryBytes,
			CPUPeriod: opts.CPUPeriod,
			CPUQuota:  opts.CPUQuota,
		},
		SecurityOpt: []string{"no-new-privileges"},
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeVolume,
				Source: opts.Volume,
				Target: opts.Target,
			},
		},
	}
	if opts.Network != "" {
		hostCfg.NetworkMode = container.NetworkMode(opts.Network)
	}

	cfg := &container.Config{
		Image:      opts.Image,
		Env:        opts.Env,
		Labels:     labels,
		WorkingDir: opts.Target,
	}
	return cfg, hostCfg
}

// CreateGuestContainer creates and starts a guest container.
func (c *Client) CreateGuestContainer(ctx context.Context, opts GuestOpts) (string, error) {
	cfg, hostCfg := guestConfig(opts)

	resp, err := c.docker.ContainerCreate(ctx, cfg, hostCfg, nil, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("container create: %w", err)
	}

	if err := c.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Clean up on start failure.
		c.docker.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("container start: %w", err)
	}

	return resp.ID, nil
}
