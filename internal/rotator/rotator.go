package rotator

import (
	"context"
	"encoding/json"
	"fmt"

	"kb-engine/internal/config"
	"kb-engine/internal/data/cache"
	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/metrics"
	"kb-engine/pkg/logging"
)

// Rotator hands out provider API keys from (provider, purpose) pools using
// round-robin with session-sticky affinity: a conversation keeps its key for
// provider-side context and rate-limit locality, new conversations walk the
// pool evenly. Pools are read-mostly configuration cached with a TTL.
//
// A cache outage never blocks a caller: assignment degrades to an in-process
// counter with no cross-instance fairness, which is acceptable since keys are
// fungible.
type Rotator struct {
	cache  *cache.Store
	source kbmodel.KeyConfigSource
	shared KeyAssigner
	local  KeyAssigner
	logger *logging.Logger
}

// New builds a rotator backed by the shared cache store. cacheStore may be
// nil (cache offline at startup); everything then runs on process-local
// state.
func New(cacheStore *cache.Store, source kbmodel.KeyConfigSource) *Rotator {
	r := &Rotator{
		cache:  cacheStore,
		source: source,
		local:  NewLocalAssigner(),
		logger: logging.New("Credential Rotator"),
	}
	if cacheStore != nil {
		r.shared = NewCacheAssigner(cacheStore)
	}
	return r
}

// NewWithAssigner swaps the backing assigner without changing callers, for
// single-instance deployments that do not want cache round-trips.
func NewWithAssigner(source kbmodel.KeyConfigSource, assigner KeyAssigner) *Rotator {
	return &Rotator{
		source: source,
		shared: assigner,
		local:  NewLocalAssigner(),
		logger: logging.New("Credential Rotator"),
	}
}

func poolName(provider string, purpose kbmodel.KeyPurpose) string {
	return provider + ":" + string(purpose)
}

// Pool returns the configured keys for (provider, purpose), cache-first.
func (r *Rotator) Pool(ctx context.Context, provider string, purpose kbmodel.KeyPurpose) ([]kbmodel.APIKey, error) {
	name := poolName(provider, purpose)
	cacheKey := "llm_pool:" + name

	if r.cache != nil {
		raw, err := r.cache.Get(ctx, cacheKey)
		if err == nil {
			var keys []kbmodel.APIKey
			if jsonErr := json.Unmarshal([]byte(raw), &keys); jsonErr == nil {
				if len(keys) == 0 {
					return nil, fmt.Errorf("%w: %s", kbmodel.ErrNoKeysConfigured, name)
				}
				return keys, nil
			}
		} else if !r.cache.IsNil(err) {
			r.logger.Warn("pool cache unavailable, loading from source", "pool", name, "error", err)
		}
	}

	keys, err := r.source.Keys(ctx, provider, purpose)
	if err != nil {
		return nil, fmt.Errorf("loading key pool %s: %w", name, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", kbmodel.ErrNoKeysConfigured, name)
	}

	if r.cache != nil {
		if data, jsonErr := json.Marshal(keys); jsonErr == nil {
			if err := r.cache.Set(ctx, cacheKey, data, config.KeyPoolTTL); err != nil {
				r.logger.Warn("could not cache key pool", "pool", name, "error", err)
			}
		}
	}
	return keys, nil
}

// Assign picks the key for a session. An empty sessionID skips stickiness and
// just rotates.
func (r *Rotator) Assign(ctx context.Context, sessionID, provider string, purpose kbmodel.KeyPurpose) (kbmodel.APIKey, error) {
	pool, err := r.Pool(ctx, provider, purpose)
	if err != nil {
		return kbmodel.APIKey{}, err
	}

	name := poolName(provider, purpose)

	// one key means nothing to rotate, skip every cache round-trip
	if len(pool) == 1 {
		return pool[0], nil
	}

	assigner := r.shared
	mode := "rotated"
	if assigner == nil {
		assigner = r.local
		mode = "fallback"
	}

	if sessionID != "" {
		idx, ok, err := assigner.SessionIndex(ctx, sessionID, name)
		if err != nil {
			r.logger.Warn("session lookup failed, degrading to local assignment", "pool", name, "error", err)
			assigner, mode = r.local, "fallback"
			idx, ok, _ = assigner.SessionIndex(ctx, sessionID, name)
		}
		if ok && idx >= 0 && idx < len(pool) {
			metrics.CountKeyAssignment(name, "sticky")
			return pool[idx], nil
		}
	}

	idx, err := assigner.NextIndex(ctx, name, len(pool))
	if err != nil {
		r.logger.Warn("shared counter failed, degrading to local assignment", "pool", name, "error", err)
		assigner, mode = r.local, "fallback"
		idx, _ = assigner.NextIndex(ctx, name, len(pool))
	}

	if sessionID != "" {
		if err := assigner.BindSession(ctx, sessionID, name, idx); err != nil {
			// losing the binding only costs stickiness, never the key
			r.logger.Warn("could not persist session assignment", "pool", name, "error", err)
		}
	}

	metrics.CountKeyAssignment(name, mode)
	return pool[idx], nil
}

// Invalidate drops cached pools and assignment state. Empty provider/purpose
// widen the match. Safe to call while Assign runs: a momentarily stale index
// is acceptable.
func (r *Rotator) Invalidate(ctx context.Context, provider string, purpose kbmodel.KeyPurpose) error {
	if err := r.local.Invalidate(ctx); err != nil {
		return err
	}
	if r.cache == nil {
		return nil
	}

	providerGlob, purposeGlob := provider, string(purpose)
	if providerGlob == "" {
		providerGlob = "*"
	}
	if purposeGlob == "" {
		purposeGlob = "*"
	}
	suffix := providerGlob + ":" + purposeGlob

	for _, pattern := range []string{
		"llm_pool:" + suffix,
		"llm_key_counter:" + suffix,
		"llm_key_session:*:" + suffix,
	} {
		if err := r.cache.DelPattern(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}
