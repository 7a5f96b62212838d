package allocator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/p-arndt/guestpool/internal/guest"
)

// SessionLister reports which hub users currently have a live server.
type SessionLister interface {
	RunningUsers(ctx context.Context) (map[string]struct{}, error)
}

// Allocator picks a guest identity that has no live server. The result is
// advisory: two concurrent callers may pick the same identity, and the hub's
// one-session-per-user rule resolves that.
type Allocator struct {
	poolSize int
	sessions SessionLister
	logger   *slog.Logger
}

func New(poolSize int, sessions SessionLister, logger *slog.Logger) *Allocator {
	return &Allocator{
		poolSize: poolSize,
		sessions: sessions,
		logger:   logger,
	}
}

// Running returns the identities with a live server. A failed hub query is
// logged and reported as an empty set.
func (a *Allocator) Running(ctx context.Context) map[string]struct{} {
	running, err := a.sessions.RunningUsers(ctx)
	if err != nil {
		a.logger.Error("allocator: query running users", "error", err)
		return map[string]struct{}{}
	}
	return running
}

// Free returns the free identities in slot order.
func (a *Allocator) Free(ctx context.Context) ([]string, error) {
	ids, err := guest.Enumerate(a.poolSize)
	if err != nil {
		return nil, err
	}
	running := a.Running(ctx)

	free := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, busy := running[id]; !busy {
			free = append(free, id)
		}
	}
	a.logger.Debug("allocator: free guests", "free", len(free), "pool_size", a.poolSize)
	return free, nil
}

// Allocate returns a free identity, or false when every slot is busy.
func (a *Allocator) Allocate(ctx context.Context) (string, bool, error) {
	free, err := a.Free(ctx)
	if err != nil {
		return "", false, err
	}
	if len(free) == 0 {
		a.logger.Warn("allocator: no free guest", "pool_size", a.poolSize)
		return "", false, nil
	}
	id := free[rand.IntN(len(free))]
	a.logger.Info("allocator: picked guest", "guest", id)
	return id, true, nil
}

// Sorted returns the members of set in lexical order.
func Sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
