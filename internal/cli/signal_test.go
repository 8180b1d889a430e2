package cli

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterruptible_Signal(t *testing.T) {
	ctx, stop := Interruptible(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled by SIGTERM")
	}
	assert.True(t, WasInterrupted(ctx))
	assert.EqualError(t, context.Cause(ctx), "interrupted by terminated")
}

func TestInterruptible_Stop(t *testing.T) {
	ctx, stop := Interruptible(context.Background())
	stop()

	<-ctx.Done()
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
	assert.False(t, WasInterrupted(ctx))
	assert.False(t, WasInterrupted(context.Background()))
}
