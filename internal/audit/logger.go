package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"custos/internal/consent/models"
	"custos/internal/digest"
)

// Capacity bounds the trail. When full, the oldest entry is evicted.
const Capacity = 50

// Logger is the bounded audit trail for one visitor session. Safe for
// concurrent use.
type Logger struct {
	mu        sync.RWMutex
	entries   []Entry
	capacity  int
	sessionID string
	hasher    digest.Hasher
	now       func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithHasher substitutes the integrity digest, typically a keyed one for
// deployments that need tamper evidence rather than corruption detection.
func WithHasher(h digest.Hasher) Option {
	return func(l *Logger) { l.hasher = h }
}

// WithCapacity overrides the default trail bound. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(l *Logger) {
		if n >= 1 {
			l.capacity = n
		}
	}
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// NewLogger creates an empty trail with a fresh session identifier.
func NewLogger(opts ...Option) *Logger {
	l := &Logger{
		capacity:  Capacity,
		sessionID: uuid.NewString(),
		hasher:    digest.Rolling{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SessionID returns the identifier stamped on every entry of this trail.
func (l *Logger) SessionID() string { return l.sessionID }

// Record appends an entry for the given mutation. The record is snapshotted;
// later mutations of it do not affect the stored entry.
func (l *Logger) Record(action Action, record *models.Record, clientSignature string) Entry {
	entry := Entry{
		Timestamp:       l.now().UTC(),
		Action:          action,
		SessionID:       l.sessionID,
		ClientSignature: clientSignature,
	}
	if record != nil {
		snapshot := record.Clone()
		entry.Categories = snapshot.Categories
		entry.Services = snapshot.Services
		entry.Region = snapshot.Region
		entry.Law = snapshot.Law
		entry.PolicyVersion = snapshot.PolicyVersion
	}
	entry.Hash = l.hasher.Sum(entry.canonical())

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.capacity {
		l.entries = append(l.entries[:0], l.entries[len(l.entries)-l.capacity+1:]...)
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Entries returns the trail oldest-first. The slice is a copy.
func (l *Logger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the current trail length.
func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// VerifyResult pairs an entry index with its integrity check outcome.
type VerifyResult struct {
	Index int
	Valid bool
}

// Verify recomputes every entry's digest. A mismatch marks that entry invalid
// and continues; verification never mutates or drops entries.
func (l *Logger) Verify() []VerifyResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	results := make([]VerifyResult, len(l.entries))
	for i, e := range l.entries {
		results[i] = VerifyResult{Index: i, Valid: l.hasher.Sum(e.canonical()) == e.Hash}
	}
	return results
}
