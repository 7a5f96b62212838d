package allocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/guestpool/internal/guest"
	"github.com/p-arndt/guestpool/internal/hub"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func set(ids ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func TestAllocate_OneBusy(t *testing.T) {
	sl := &MockSessionLister{}
	sl.On("RunningUsers", mock.Anything).Return(set("guest1"), nil)
	a := New(3, sl, testLogger())

	for i := 0; i < 50; i++ {
		id, ok, err := a.Allocate(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, []string{"guest0", "guest2"}, id)
	}
}

func TestAllocate_AllBusy(t *testing.T) {
	sl := &MockSessionLister{}
	sl.On("RunningUsers", mock.Anything).Return(set("guest0", "guest1"), nil)
	a := New(2, sl, testLogger())

	id, ok, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestAllocate_NeverPicksBusy(t *testing.T) {
	const n = 6
	ids, err := guest.Enumerate(n)
	require.NoError(t, err)

	// Every subset of the universe as the busy set.
	for mask := 0; mask < 1<<n; mask++ {
		busy := set()
		for i, id := range ids {
			if mask&(1<<i) != 0 {
				busy[id] = struct{}{}
			}
		}
		t.Run(fmt.Sprintf("mask_%d", mask), func(t *testing.T) {
			sl := &MockSessionLister{}
			sl.On("RunningUsers", mock.Anything).Return(busy, nil)
			a := New(n, sl, testLogger())

			id, ok, err := a.Allocate(context.Background())
			require.NoError(t, err)
			if len(busy) == n {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.True(t, guest.InUniverse(id, n))
			assert.NotContains(t, busy, id)
		})
	}
}

func TestAllocate_IgnoresNonGuestSessions(t *testing.T) {
	sl := &MockSessionLister{}
	sl.On("RunningUsers", mock.Anything).Return(set("admin", "guest7"), nil)
	a := New(1, sl, testLogger())

	id, ok, err := a.Allocate(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "guest0", id)
}

func TestAllocate_QueryFailureTreatedAsNoneBusy(t *testing.T) {
	sl := &MockSessionLister{}
	sl.On("RunningUsers", mock.Anything).Return(nil, fmt.Errorf("get users: %w", hub.ErrUpstreamUnavailable))
	a := New(2, sl, testLogger())

	id, ok, err := a.Allocate(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, []string{"guest0", "guest1"}, id)
}

func TestAllocate_InvalidPoolSize(t *testing.T) {
	sl := &MockSessionLister{}
	a := New(0, sl, testLogger())

	_, ok, err := a.Allocate(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, guest.ErrInvalidConfiguration)
	sl.AssertNotCalled(t, "RunningUsers", mock.Anything)
}

func TestRunning_Degrades(t *testing.T) {
	sl := &MockSessionLister{}
	sl.On("RunningUsers", mock.Anything).Return(nil, errors.Join(hub.ErrMalformedResponse, errors.New("eof")))
	a := New(2, sl, testLogger())

	running := a.Running(context.Background())
	assert.NotNil(t, running)
	assert.Empty(t, running)
}

func TestFree_SlotOrder(t *testing.T) {
	sl := &MockSessionLister{}
	sl.On("RunningUsers", mock.Anything).Return(set("guest2"), nil)
	a := New(4, sl, testLogger())

	free, err := a.Free(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"guest0", "guest1", "guest3"}, free)
}

func TestSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Sorted(set("c", "a", "b")))
	assert.Empty(t, Sorted(nil))
}
