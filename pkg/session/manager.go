package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
)

const (
	// DefaultMaxMessages is the history length that triggers trimming.
	DefaultMaxMessages = 50
	// DefaultKeepMessages is how many recent messages survive a trim.
	DefaultKeepMessages = 30
	// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
	DefaultLockTTL = 30 * time.Second
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates conversation access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ConversationStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger

	maxMessages  int
	keepMessages int
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides the distributed lock expiry.
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

// WithHistoryLimit sets the trimming policy used by Append.
// A max of zero disables trimming.
func WithHistoryLimit(max, keep int) Option {
	return func(m *Manager) {
		m.maxMessages = max
		m.keepMessages = keep
	}
}

// NewManager creates a new session manager on top of the given store.
func NewManager(store ports.ConversationStore, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		locks:        make(map[string]*lockEntry),
		lockTTL:      DefaultLockTTL,
		logger:       logging.NewNop(),
		maxMessages:  DefaultMaxMessages,
		keepMessages: DefaultKeepMessages,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Load retrieves an existing conversation from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.store.Load(ctx, sessionID)
		return err
	})
	return conv, err
}

// LoadOrStart tries to load a conversation. If not found, it initializes a new one.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var (
			created bool
			err     error
		)
		conv, created, err = m.loadOrNew(ctx, sessionID)
		if err != nil || !created {
			return err
		}
		// Persist immediately to reserve the ID
		if err := m.store.Save(ctx, sessionID, conv); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return conv, err
}

// loadOrNew reports whether the conversation had to be created.
func (m *Manager) loadOrNew(ctx context.Context, sessionID string) (*domain.Conversation, bool, error) {
	conv, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return domain.NewConversation(sessionID), true, nil
}

// Append loads (or starts) the conversation, adds the messages, trims the
// history and saves it, all under the session lock.
func (m *Manager) Append(ctx context.Context, sessionID string, msgs ...domain.Message) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, _, err = m.loadOrNew(ctx, sessionID)
		if err != nil {
			return err
		}
		conv.Append(msgs...)
		m.trim(sessionID, conv)
		return m.store.Save(ctx, sessionID, conv)
	})
	return conv, err
}

// Update runs fn on the current conversation (a new one if the session is
// unknown), applies the history limit and saves the result.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(*domain.Conversation) error) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, _, err = m.loadOrNew(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(conv); err != nil {
			return err
		}
		m.trim(sessionID, conv)
		return m.store.Save(ctx, sessionID, conv)
	})
	return conv, err
}

func (m *Manager) trim(sessionID string, conv *domain.Conversation) {
	if conv.Trim(m.maxMessages, m.keepMessages) {
		m.logger.Debug("conversation trimmed",
			"session_id", sessionID,
			"kept", len(conv.Messages),
		)
	}
}

// Save persists the conversation.
func (m *Manager) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, conv)
	})
}

// Delete removes the conversation from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying conversation store.
func (m *Manager) Store() ports.ConversationStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
