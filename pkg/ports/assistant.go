package ports

import (
	"context"

	"github.com/aretw0/eora/pkg/domain"
)

// Assistant is the driving port used by the front ends (HTTP, MCP, CLI).
type Assistant interface {
	// Ask answers a question inside a session, recording both turns in its history.
	Ask(ctx context.Context, sessionID, question string, level domain.ComplexityLevel) (*domain.Reply, error)

	// History returns the conversation of a session.
	History(ctx context.Context, sessionID string) (*domain.Conversation, error)

	// Clear empties the conversation of a session.
	Clear(ctx context.Context, sessionID string) error

	// Sessions lists known session IDs.
	Sessions(ctx context.Context) ([]string, error)

	// Examples returns suggested questions.
	Examples() []string

	// Stats summarizes the session and the process.
	Stats(ctx context.Context, sessionID string) (domain.Stats, error)
}
