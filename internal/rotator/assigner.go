package rotator

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"kb-engine/internal/config"
	"kb-engine/internal/data/cache"
)

// KeyAssigner is the index-picking state behind Assign: a monotonic counter
// per pool and a session→index binding with its own lifetime. The cache-backed
// implementation shares state across instances; the local one is for
// single-instance deployments and for riding out cache outages.
type KeyAssigner interface {
	SessionIndex(ctx context.Context, sessionID, pool string) (int, bool, error)
	BindSession(ctx context.Context, sessionID, pool string, index int) error
	NextIndex(ctx context.Context, pool string, size int) (int, error)
	Invalidate(ctx context.Context) error
}

type cacheAssigner struct {
	store *cache.Store
}

func NewCacheAssigner(store *cache.Store) KeyAssigner {
	return &cacheAssigner{store: store}
}

func counterKey(pool string) string { return "llm_key_counter:" + pool }

func sessionKey(sessionID, pool string) string {
	return "llm_key_session:" + sessionID + ":" + pool
}

func (a *cacheAssigner) SessionIndex(ctx context.Context, sessionID, pool string) (int, bool, error) {
	val, err := a.store.Get(ctx, sessionKey(sessionID, pool))
	if a.store.IsNil(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	idx, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, nil
	}
	return idx, true, nil
}

func (a *cacheAssigner) BindSession(ctx context.Context, sessionID, pool string, index int) error {
	return a.store.Set(ctx, sessionKey(sessionID, pool), index, config.KeyAssignmentTTL)
}

func (a *cacheAssigner) NextIndex(ctx context.Context, pool string, size int) (int, error) {
	val, err := a.store.Incr(ctx, counterKey(pool), config.KeyCounterTTL)
	if err != nil {
		return 0, err
	}
	// INCR returns the post-increment value; subtracting one recovers the
	// read-then-increment counter the rotation order is defined over.
	return int((val - 1) % int64(size)), nil
}

func (a *cacheAssigner) Invalidate(ctx context.Context) error {
	return a.store.DelPattern(ctx, "llm_key_*")
}

type localAssigner struct {
	counters sync.Map // pool → *atomic.Int64
	mu       sync.RWMutex
	sessions map[string]int
}

func NewLocalAssigner() KeyAssigner {
	return &localAssigner{sessions: make(map[string]int)}
}

func (a *localAssigner) SessionIndex(_ context.Context, sessionID, pool string) (int, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	idx, ok := a.sessions[sessionID+"|"+pool]
	return idx, ok, nil
}

func (a *localAssigner) BindSession(_ context.Context, sessionID, pool string, index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[sessionID+"|"+pool] = index
	return nil
}

func (a *localAssigner) NextIndex(_ context.Context, pool string, size int) (int, error) {
	v, _ := a.counters.LoadOrStore(pool, new(atomic.Int64))
	counter := v.(*atomic.Int64)
	return int((counter.Add(1) - 1) % int64(size)), nil
}

func (a *localAssigner) Invalidate(_ context.Context) error {
	a.counters.Range(func(k, _ any) bool {
		a.counters.Delete(k)
		return true
	})
	a.mu.Lock()
	a.sessions = make(map[string]int)
	a.mu.Unlock()
	return nil
}
