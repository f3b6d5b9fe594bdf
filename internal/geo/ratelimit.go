package geo

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// SessionKV is the session-scoped key/value surface the limiter persists its
// window into. Persistence is best effort: the limiter stays correct in
// memory when the surface fails.
type SessionKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

const windowStateKey = "custos_geo_rl"

// slidingWindowLimiter throttles remote lookups over a sliding time window.
// State survives for one session via SessionKV; it is advisory across
// instances, not a hard guarantee.
type slidingWindowLimiter struct {
	mu         sync.Mutex
	timestamps []time.Time
	limit      int
	window     time.Duration
	kv         SessionKV
	loaded     bool
	now        func() time.Time
}

func newSlidingWindowLimiter(limit int, window time.Duration, kv SessionKV) *slidingWindowLimiter {
	return &slidingWindowLimiter{
		limit:  limit,
		window: window,
		kv:     kv,
		now:    time.Now,
	}
}

// Allow reports whether another remote lookup may run now and, if so, records
// it against the window.
func (l *slidingWindowLimiter) Allow(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.restore(ctx)
	l.evictExpired(now)

	if len(l.timestamps) >= l.limit {
		return false
	}
	l.timestamps = append(l.timestamps, now)
	l.persist(ctx)
	return true
}

func (l *slidingWindowLimiter) evictExpired(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for ; i < len(l.timestamps); i++ {
		if l.timestamps[i].After(cutoff) {
			break
		}
	}
	l.timestamps = l.timestamps[i:]
}

// restore lazily loads the persisted window once per limiter lifetime.
// Unparseable state is discarded rather than trusted.
func (l *slidingWindowLimiter) restore(ctx context.Context) {
	if l.loaded || l.kv == nil {
		l.loaded = true
		return
	}
	l.loaded = true
	raw, err := l.kv.Get(ctx, windowStateKey)
	if err != nil || raw == "" {
		return
	}
	var stamps []time.Time
	if err := json.Unmarshal([]byte(raw), &stamps); err != nil {
		return
	}
	if len(stamps) > l.limit {
		stamps = stamps[len(stamps)-l.limit:]
	}
	l.timestamps = stamps
}

func (l *slidingWindowLimiter) persist(ctx context.Context) {
	if l.kv == nil {
		return
	}
	raw, err := json.Marshal(l.timestamps)
	if err != nil {
		return
	}
	// Best effort; a full or unavailable surface must not block resolution.
	_ = l.kv.Set(ctx, windowStateKey, string(raw))
}
