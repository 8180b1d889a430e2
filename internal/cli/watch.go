package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/eora/pkg/ports"
)

// RunWatch logs every knowledge base change the watcher reports until ctx is
// done or the watcher stops. The watcher re-indexes before emitting.
func RunWatch(ctx context.Context, w ports.Watchable, logger *slog.Logger) error {
	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("Watching knowledge base for changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			logger.Info("Knowledge base reloaded", "note", id)
		}
	}
}
