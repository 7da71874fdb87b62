// Package persistence saves and restores machine snapshots through a
// SnapshotStore. Writes to one key are serialised in process and, when a
// DistributedLocker is configured, across processes.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates snapshot access. Per-key locks are reference counted
// so unused keys do not accumulate.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	clock   clock.Clock
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the clock used to stamp saved records.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// NewManager creates a Manager persisting to store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		clock:   clock.New(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Load retrieves the record stored under key.
func (m *Manager) Load(ctx context.Context, key string) (*domain.Record, error) {
	var rec *domain.Record
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		rec, err = m.store.Load(ctx, key)
		return err
	})
	return rec, err
}

// Save persists the record under key.
func (m *Manager) Save(ctx context.Context, key string, rec *domain.Record) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Save(ctx, key, rec)
	})
}

// Delete removes the record stored under key.
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Delete(ctx, key)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock runs fn while holding the lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// LoadState is the best-effort typed read: any failure, including a missing
// record, reports ok=false. Failures other than a missing record are logged.
func LoadState[C any](ctx context.Context, m *Manager, key string) (state string, c C, ok bool) {
	rec, err := m.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			m.logger.Warn("Ignoring unreadable snapshot", "key", key, "err", err)
		}
		return "", c, false
	}
	if err := rec.DecodeContext(&c); err != nil {
		m.logger.Warn("Ignoring undecodable snapshot", "key", key, "err", err)
		var zero C
		return "", zero, false
	}
	return rec.State, c, true
}

// SaveState is the best-effort typed write. Failures are logged and reported
// as false.
func SaveState[C any](ctx context.Context, m *Manager, key, state string, c C) bool {
	rec, err := domain.NewRecord(key, state, c, m.clock.Now())
	if err == nil {
		err = m.Save(ctx, key, rec)
	}
	if err != nil {
		m.logger.Warn("Snapshot not saved", "key", key, "err", err)
		return false
	}
	return true
}
