package ports

import (
	"context"

	"github.com/aretw0/eora/pkg/domain"
)

// ConversationStore defines the interface for persisting chat histories.
type ConversationStore interface {
	// Save persists the conversation for a given session ID.
	Save(ctx context.Context, sessionID string, conv *domain.Conversation) error

	// Load retrieves the conversation for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Conversation, error)

	// Delete removes the conversation for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of the stored sessions.
	List(ctx context.Context) ([]string, error)
}

// IndexStore keeps serialized vector index snapshots keyed by a content fingerprint.
type IndexStore interface {
	// SaveIndex stores the snapshot under the fingerprint.
	SaveIndex(ctx context.Context, fingerprint string, snapshot []byte) error

	// LoadIndex returns the snapshot and true, or (nil, false, nil) when nothing is stored.
	LoadIndex(ctx context.Context, fingerprint string) ([]byte, bool, error)
}
