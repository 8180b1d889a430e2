// Package memory keeps conversations in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
)

var _ ports.ConversationStore = (*Store)(nil)

// Store implements ports.ConversationStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Conversation
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Conversation),
	}
}

// Save stores a deep copy so later mutations by the caller do not leak in.
func (s *Store) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	cp := conv.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = cp
	return nil
}

// Load returns a copy of the stored conversation.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return conv.Snapshot(), nil
}

// Delete removes the conversation.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
