// Package store persists consent records to one or more storage backends and
// re-validates everything it reads back. Loading is a trust boundary: a
// payload that fails sanitization is deleted, never partially accepted.
package store

import (
	"context"
	"errors"
	"log/slog"

	"custos/internal/consent/models"
	"custos/internal/sentinel"
	dErrors "custos/pkg/domain-errors"
)

// Error Contract:
// - Backend.Get returns sentinel.ErrNotFound when no entry exists
// - Decode returns sentinel.ErrInvalidPayload for rejected payloads
// - Store methods return domain errors with stable codes

// Backend is one storage surface for the compact payload.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// ChangeEvent describes a write to a watched backend. Origin identifies the
// writing store instance so readers can ignore their own writes.
type ChangeEvent struct {
	Key    string
	Origin string
}

// Watcher is implemented by backends that can deliver advisory change
// notifications (another instance wrote the same key).
type Watcher interface {
	Watch(fn func(ChangeEvent))
}

// Config carries explicit store parameters; there is no package-level state.
type Config struct {
	// Key is the entry name used on every backend.
	Key string
	// DisableSanitize skips payload sanitization on load. The zero value
	// sanitizes; only ever disable this in trusted test fixtures.
	DisableSanitize bool
}

// DefaultKey is the conventional entry name.
const DefaultKey = "custos_consent"

// Store writes a consent record through to all configured backends and loads
// from the first backend that has data.
type Store struct {
	cfg        Config
	backends   []Backend
	instanceID string
	logger     *slog.Logger
}

// New constructs a Store. instanceID tags writes so change notifications can
// distinguish this instance's writes from foreign ones.
func New(cfg Config, backends []Backend, instanceID string, logger *slog.Logger) *Store {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	return &Store{cfg: cfg, backends: backends, instanceID: instanceID, logger: logger}
}

// InstanceID returns the id this store stamps on its writes.
func (s *Store) InstanceID() string { return s.instanceID }

// Save serializes the record and writes it to every configured backend.
// Individual backend failures are warned and skipped; the call fails only
// when no backend accepted the write, in which case the caller's in-memory
// state stays authoritative for the session.
func (s *Store) Save(ctx context.Context, record *models.Record) error {
	raw, err := Encode(record)
	if err != nil {
		return err
	}
	wrote := false
	for _, b := range s.backends {
		if err := b.Set(withOrigin(ctx, s.instanceID), s.cfg.Key, raw); err != nil {
			s.logger.Warn("consent write failed", "backend", b.Name(), "error", err)
			continue
		}
		wrote = true
	}
	if !wrote && len(s.backends) > 0 {
		return dErrors.New(dErrors.CodeStorageFailure, "no backend accepted the consent write")
	}
	return nil
}

// Load reads from the first backend that has data, sanitizes the payload, and
// returns a valid record or nil. A rejected payload deletes the backend entry
// and yields nil: absent consent, never partially-trusted consent.
func (s *Store) Load(ctx context.Context) (*models.Record, error) {
	for _, b := range s.backends {
		raw, err := b.Get(ctx, s.cfg.Key)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("consent read failed", "backend", b.Name(), "error", err)
			continue
		}

		record, err := s.decode(raw)
		if err != nil {
			s.logger.Warn("rejecting invalid consent payload", "backend", b.Name())
			if delErr := b.Delete(ctx, s.cfg.Key); delErr != nil {
				s.logger.Warn("failed to delete invalid payload", "backend", b.Name(), "error", delErr)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidPayload, "stored consent rejected")
		}
		return record, nil
	}
	return nil, nil
}

// Clear removes the entry from all configured backends.
func (s *Store) Clear(ctx context.Context) error {
	var failed bool
	for _, b := range s.backends {
		if err := b.Delete(withOrigin(ctx, s.instanceID), s.cfg.Key); err != nil {
			s.logger.Warn("consent delete failed", "backend", b.Name(), "error", err)
			failed = true
		}
	}
	if failed {
		return dErrors.New(dErrors.CodeStorageFailure, "not all backends cleared")
	}
	return nil
}

// Subscribe registers fn on every backend that supports change notification.
// Events originating from this store instance are filtered out.
func (s *Store) Subscribe(fn func(ChangeEvent)) {
	for _, b := range s.backends {
		w, ok := b.(Watcher)
		if !ok {
			continue
		}
		w.Watch(func(ev ChangeEvent) {
			if ev.Origin == s.instanceID || ev.Key != s.cfg.Key {
				return
			}
			fn(ev)
		})
	}
}

func (s *Store) decode(raw string) (*models.Record, error) {
	if s.cfg.DisableSanitize {
		return decodeUnsanitized(raw)
	}
	return Decode(raw)
}

type originKey struct{}

// withOrigin threads the writer's instance id to backends that notify.
func withOrigin(ctx context.Context, instanceID string) context.Context {
	return context.WithValue(ctx, originKey{}, instanceID)
}

// OriginFromContext returns the writing instance id, if any.
func OriginFromContext(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}
