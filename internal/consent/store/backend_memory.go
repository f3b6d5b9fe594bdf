package store

import (
	"context"
	"sync"

	"custos/internal/sentinel"
)

// MemoryBackend is an in-process key/value surface. It stands in for the
// durable storage surface in single-process deployments and for the
// session-scoped surface everywhere (one instance per session lifetime).
// Multiple store instances sharing one MemoryBackend observe each other's
// writes through Watch, which is how cross-instance adoption is exercised.
type MemoryBackend struct {
	name string

	mu   sync.RWMutex
	data map[string]string
	subs []func(ChangeEvent)
}

// NewMemoryBackend constructs an empty memory backend.
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{name: name, data: make(map[string]string)}
}

// Name identifies the backend in logs.
func (b *MemoryBackend) Name() string { return b.name }

func (b *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.data[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return value, nil
}

func (b *MemoryBackend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	b.data[key] = value
	subs := make([]func(ChangeEvent), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	ev := ChangeEvent{Key: key, Origin: OriginFromContext(ctx)}
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	_, existed := b.data[key]
	delete(b.data, key)
	subs := make([]func(ChangeEvent), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	if existed {
		ev := ChangeEvent{Key: key, Origin: OriginFromContext(ctx)}
		for _, fn := range subs {
			fn(ev)
		}
	}
	return nil
}

// Watch registers a change subscriber. Notifications are delivered
// synchronously on the writer's goroutine; subscribers must be fast and must
// not write back into the backend.
func (b *MemoryBackend) Watch(fn func(ChangeEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

var (
	_ Backend = (*MemoryBackend)(nil)
	_ Watcher = (*MemoryBackend)(nil)
)
