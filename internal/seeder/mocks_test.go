package seeder

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/guestpool/internal/docker"
)

// MockSeederEngine mocks the SeederEngine interface.
type MockSeederEngine struct {
	mock.Mock
}

func (m *MockSeederEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeederEngine) PullImage(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockSeederEngine) CreateHelper(ctx context.Context, opts docker.HelperOpts) (string, error) {
	args := m.Called(ctx, opts)
	return args.String(0), args.Error(1)
}

func (m *MockSeederEngine) StartContainer(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

func (m *MockSeederEngine) Exec(ctx context.Context, containerID string, cmd []string) (int, error) {
	args := m.Called(ctx, containerID, cmd)
	return args.Int(0), args.Error(1)
}

func (m *MockSeederEngine) CopyToContainer(ctx context.Context, containerID, dstDir string, tarStream io.Reader) error {
	args := m.Called(ctx, containerID, dstDir, tarStream)
	return args.Error(0)
}

func (m *MockSeederEngine) RemoveContainer(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

// fakeEngine keeps volume contents in memory so seeding results can be
// inspected after the helper is gone.
type fakeEngine struct {
	mu         sync.Mutex
	helpers    map[string]docker.HelperOpts
	running    map[string]bool
	volumes    map[string]map[string][]byte // volume -> path in volume -> content
	modes      map[string]int64
	nextID     int
	removed    []string
	hasImage   bool
	pullFailed error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		helpers:  make(map[string]docker.HelperOpts),
		running:  make(map[string]bool),
		volumes:  make(map[string]map[string][]byte),
		modes:    make(map[string]int64),
		hasImage: true,
	}
}

func (f *fakeEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	return f.hasImage, nil
}

func (f *fakeEngine) PullImage(ctx context.Context, ref string) error {
	if f.pullFailed != nil {
		return f.pullFailed
	}
	f.hasImage = true
	return nil
}

func (f *fakeEngine) CreateHelper(ctx context.Context, opts docker.HelperOpts) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("helper-%d", f.nextID)
	f.helpers[id] = opts
	if f.volumes[opts.Volume] == nil {
		f.volumes[opts.Volume] = make(map[string][]byte)
	}
	return id, nil
}

func (f *fakeEngine) StartContainer(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[containerID] = true
	return nil
}

func (f *fakeEngine) Exec(ctx context.Context, containerID string, cmd []string) (int, error) {
	return 0, nil
}

func (f *fakeEngine) CopyToContainer(ctx context.Context, containerID, dstDir string, tarStream io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	opts, ok := f.helpers[containerID]
	if !ok || !f.running[containerID] {
		return fmt.Errorf("no such running container %s", containerID)
	}
	rel := ""
	if dstDir != opts.Target {
		rel = dstDir
	}
	tr := tar.NewReader(tarStream)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		p := path.Join(rel, hdr.Name)
		f.volumes[opts.Volume][p] = data
		f.modes[opts.Volume+"/"+p] = hdr.Mode
	}
}

func (f *fakeEngine) RemoveContainer(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.helpers, containerID)
	delete(f.running, containerID)
	f.removed = append(f.removed, containerID)
	return nil
}

func (f *fakeEngine) liveHelpers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.helpers)
}
