package docker

import (
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperConfig(t *testing.T) {
	cfg, hostCfg := helperConfig(HelperOpts{
		Image:  "busybox:1.36",
		Cmd:    []string{"sleep", "120"},
		Volume: "jupyterhub-guest0",
		Target: "/home/jovyan/work",
		Labels: map[string]string{"extra": "1"},
	})

	assert.Equal(t, "busybox:1.36", cfg.Image)
	assert.Equal(t, []string{"sleep", "120"}, []string(cfg.Cmd))
	assert.Equal(t, "true", cfg.Labels["guestpool.managed"])
	assert.Equal(t, "helper", cfg.Labels["guestpool.role"])
	assert.Equal(t, "1", cfg.Labels["extra"])

	require.Len(t, hostCfg.Mounts, 1)
	assert.Equal(t, mount.TypeVolume, hostCfg.Mounts[0].Type)
	assert.Equal(t, "jupyterhub-guest0", hostCfg.Mounts[0].Source)
	assert.Equal(t, "/home/jovyan/work", hostCfg.Mounts[0].Target)
	assert.False(t, hostCfg.AutoRemove)
}

func TestGuestConfig(t *testing.T) {
	cfg, hostCfg := guestConfig(GuestOpts{
		Image:       "jupyter/datascience-notebook:latest",
		Volume:      "jupyterhub-guest3",
		Target:      "/home/jovyan/work",
		Network:     "ckan",
		MemoryBytes: 1 << 30,
		CPUPeriod:   100000,
		CPUQuota:    50000,
	})

	assert.Equal(t, "guest", cfg.Labels["guestpool.role"])
	assert.Equal(t, "jupyterhub-guest3", cfg.Labels["guestpool.volume"])
	assert.Equal(t, "/home/jovyan/work", cfg.WorkingDir)
	assert.Equal(t, int64(1<<30), hostCfg.Resources.Memory)
	assert.Equal(t, int64(100000), hostCfg.Resources.CPUPeriod)
	assert.Equal(t, int64(50000), hostCfg.Resources.CPUQuota)
	assert.Equal(t, container.NetworkMode("ckan"), hostCfg.NetworkMode)
	require.Len(t, hostCfg.Mounts, 1)
	assert.Equal(t, "jupyterhub-guest3", hostCfg.Mounts[0].Source)
}

func TestGuestConfig_DefaultNetwork(t *testing.T) {
	_, hostCfg := guestConfig(GuestOpts{Image: "img", Volume: "v", Target: "/w"})
	assert.Equal(t, container.NetworkMode(""), hostCfg.NetworkMode)
}

func TestToContainerInfo(t *testing.T) {
	info := toContainerInfo(container.Summary{
		ID:    "abc123",
		Names: []string{"/jupyter-guest0"},
		Mounts: []container.MountPoint{
			{Type: mount.TypeVolume, Name: "jupyterhub-guest0"},
			{Type: mount.TypeBind, Source: "/srv/data"},
		},
	})

	assert.Equal(t, "abc123", info.ID)
	assert.Equal(t, []string{"/jupyter-guest0"}, info.Names)
	assert.Equal(t, []MountInfo{
		{Type: "volume", Name: "jupyterhub-guest0"},
		{Type: "bind", Name: ""},
	}, info.Mounts)
}

func TestToContainerInfo_NoMounts(t *testing.T) {
	info := toContainerInfo(container.Summary{ID: "x"})
	assert.Empty(t, info.Mounts)
}
