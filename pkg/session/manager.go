package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/libris/internal/logging"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a chat's distributed lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring one in-flight event per chat.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
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

// WithClock replaces time.Now when stamping UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(chatID) after unlocking.
func (m *Manager) acquire(chatID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[chatID]
	if !exists {
		entry = &lockEntry{}
		m.locks[chatID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[chatID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, chatID)
	}
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, chatID string) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, chatID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, chatID)
		return err
	})
	return state, err
}

// Transact runs fn against the chat's session while holding its lock.
//
// A chat without a stored session starts from an idle state. fn mutates the
// state in place. When fn succeeds the state is saved, or deleted once it is
// idle again. An idle chat that had no session is never written.
// When fn fails nothing is persisted.
func (m *Manager) Transact(ctx context.Context, chatID string, fn func(context.Context, *domain.State) error) error {
	return m.WithLock(ctx, chatID, func(ctx context.Context) error {
		existed := true
		state, err := m.store.Load(ctx, chatID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			existed = false
			state = domain.NewState(chatID)
		} else if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}

		if err := fn(ctx, state); err != nil {
			return err
		}

		if state.Idle() {
			if !existed {
				return nil
			}
			if err := m.store.Delete(ctx, chatID); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			return nil
		}

		state.ChatID = chatID
		state.UpdatedAt = m.now().UTC()
		if err := m.store.Save(ctx, chatID, state); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// Save persists the session state.
func (m *Manager) Save(ctx context.Context, chatID string, state *domain.State) error {
	return m.WithLock(ctx, chatID, func(ctx context.Context) error {
		return m.store.Save(ctx, chatID, state)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, chatID string) error {
	return m.WithLock(ctx, chatID, func(ctx context.Context) error {
		return m.store.Delete(ctx, chatID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes a function while holding the lock for the chat.
// It is not reentrant: fn must not call back into the Manager for the same chat.
func (m *Manager) WithLock(ctx context.Context, chatID string, fn func(context.Context) error) error {
	entry := m.acquire(chatID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(chatID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, chatID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"chat_id", chatID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
