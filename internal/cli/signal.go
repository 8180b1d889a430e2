package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// Interrupted is the cancellation cause of a command stopped by the user or
// the container runtime.
type Interrupted struct {
	Signal os.Signal
}

func (e *Interrupted) Error() string {
	return "interrupted by " + e.Signal.String()
}

// Interruptible returns a copy of parent that is cancelled on SIGINT or
// SIGTERM with an *Interrupted cause. stop releases the signal handler and
// cancels the context.
func Interruptible(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			cancel(&Interrupted{Signal: sig})
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(nil) }
}

// WasInterrupted reports whether ctx ended because of a shutdown signal.
func WasInterrupted(ctx context.Context) bool {
	var in *Interrupted
	return errors.As(context.Cause(ctx), &in)
}
