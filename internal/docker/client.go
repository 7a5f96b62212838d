package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const labelPrefix = "guestpool."

type Client struct {
	docker *client.Client
}

func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Client{docker: cli}, nil
}

func (c *Client) Close() error {
	return c.docker.Close()
}

// Ping verifies the Docker daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.docker.Ping(ctx)
	return err
}

// ImageExists reports whether ref is present in the local image store.
func (c *Client) ImageExists(ctx context.Context, ref string) (bool, error) {
	if _, err := c.docker.ImageInspect(ctx, ref); err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("image inspect: %w", err)
	}
	return true, nil
}

// PullImage pulls ref and blocks until the pull stream is drained.
func (c *Client) PullImage(ctx context.Context, ref string) error {
	rc, err := c.docker.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("image pull: %w", err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("image pull stream: %w", err)
	}
	return nil
}

// HelperOpts describes a short-lived container that mounts one volume.
type HelperOpts struct {
	Name   string
	Image  string
	Cmd    []string
	Volume string
	Target string
	Labels map[string]string
}

func helperConfig(opts HelperOpts) (*container.Config, *container.HostConfig) {
	labels := map[string]string{
		labelPrefix + "managed": "true",
		labelPrefix + "role":    "helper",
		labelPrefix + "volume":  opts.Volume,
	}
	for k, v := range opts.Labels {
		labels[k] = v
	}

	cfg := &container.Config{
		Image:  opts.Image,
		Cmd:    opts.Cmd,
		Labels: labels,
	}
	hostCfg := &container.HostConfig{
		AutoRemove: false,
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeVolume,
				Source: opts.Volume,
				Target: opts.Target,
			},
		},
	}
	return cfg, hostCfg
}

// CreateHelper creates, but does not start, a helper container.
func (c *Client) CreateHelper(ctx context.Context, opts HelperOpts) (string, error) {
	cfg, hostCfg := helperConfig(opts)
	resp, err := c.docker.ContainerCreate(ctx, cfg, hostCfg, nil, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("container create: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) StartContainer(ctx context.Context, containerID string) error {
	if err := c.docker.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("container start: %w", err)
	}
	return nil
}

// Exec runs cmd inside a running container and returns its exit code.
func (c *Client) Exec(ctx context.Context, containerID string, cmd []string) (int, error) {
	execResp, err := c.docker.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return -1, fmt.Errorf("exec create: %w", err)
	}

	attachResp, err := c.docker.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return -1, fmt.Errorf("exec attach: %w", err)
	}
	defer attachResp.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, attachResp.Reader); err != nil {
		return -1, fmt.Errorf("exec read: %w", err)
	}

	info, err := c.docker.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return -1, fmt.Errorf("exec inspect: %w", err)
	}
	if info.ExitCode != 0 && stderrBuf.Len() > 0 {
		return info.ExitCode, fmt.Errorf("exec %v: %s", cmd, bytes.TrimSpace(stderrBuf.Bytes()))
	}
	return info.ExitCode, nil
}

// CopyToContainer extracts the tar stream into dstDir inside the container.
func (c *Client) CopyToContainer(ctx context.Context, containerID, dstDir string, tarStream io.Reader) error {
	err := c.docker.CopyToContainer(ctx, containerID, dstDir, tarStream, container.CopyToContainerOptions{
		AllowOverwriteDirWithFile: false,
	})
	if err != nil {
		return fmt.Errorf("copy to container: %w", err)
	}
	return nil
}

// RemoveContainer force-removes a container by ID or name. A container that
// is already gone is not an error.
func (c *Client) RemoveContainer(ctx context.Context, containerID string) error {
	err := c.docker.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("container remove: %w", err)
	}
	return nil
}

// ListVolumes returns the names of all volumes known to the engine.
func (c *Client) ListVolumes(ctx context.Context) ([]string, error) {
	resp, err := c.docker.VolumeList(ctx, volume.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("volume list: %w", err)
	}
	names := make([]string, 0, len(resp.Volumes))
	for _, v := range resp.Volumes {
		if v == nil {
			continue
		}
		names = append(names, v.Name)
	}
	return names, nil
}

// RemoveVolume force-removes a volume. Not-found errors are returned so the
// caller can tell a concurrent removal apart from a successful one.
func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	if err := c.docker.VolumeRemove(ctx, name, true); err != nil {
		return fmt.Errorf("volume remove: %w", err)
	}
	return nil
}

// MountInfo is one mount of a container.
type MountInfo struct {
	Type string
	Name string
}

// ContainerInfo holds basic info about a running container.
type ContainerInfo struct {
	ID     string
	Names  []string
	Mounts []MountInfo
}

func toContainerInfo(s container.Summary) ContainerInfo {
	info := ContainerInfo{
		ID:    s.ID,
		Names: s.Names,
	}
	for _, m := range s.Mounts {
		info.Mounts = append(info.Mounts, MountInfo{
			Type: string(m.Type),
			Name: m.Name,
		})
	}
	return info
}

// ListRunningContainers returns every running container with its mounts.
func (c *Client) ListRunningContainers(ctx context.Context) ([]ContainerInfo, error) {
	containers, err := c.docker.ContainerList(ctx, container.ListOptions{
		All:     false,
		Filters: filters.NewArgs(filters.Arg("status", "running")),
	})
	if err != nil {
		return nil, fmt.Errorf("container list: %w", err)
	}

	result := make([]ContainerInfo, 0, len(containers))
	for _, ctr := range containers {
		result = append(result, toContainerInfo(ctr))
	}
	return result, nil
}

// IsContainerRunning reports whether the named container exists and is
// running. A missing container is not running.
func (c *Client) IsContainerRunning(ctx context.Context, nameOrID string) (bool, error) {
	inspect, err := c.docker.ContainerInspect(ctx, nameOrID)
	switch {
	case client.IsErrNotFound(err):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("container inspect: %w", err)
	}
	return inspect.State != nil && inspect.State.Running, nil
}
