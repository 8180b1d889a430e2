package ports

import (
	"context"

	"github.com/aretw0/eora/pkg/domain"
)

// DocumentSource yields documents to be indexed.
type DocumentSource interface {
	// Name identifies the source in logs (e.g. "files", "web").
	Name() string

	// Documents loads every document the source currently holds.
	Documents(ctx context.Context) ([]domain.Document, error)
}

// Watchable is implemented by sources that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that receives the ID of each changed item.
	Watch(ctx context.Context) (<-chan string, error)
}
