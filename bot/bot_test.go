package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBot() *Bot {
	return &Bot{readyCh: make(chan struct{})}
}

// awaitInBackground starts AwaitReady in a goroutine and returns the channel
// its result arrives on.
func awaitInBackground(ctx context.Context, b *Bot) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- b.AwaitReady(ctx)
	}()
	return done
}

func requireBlocked(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("AwaitReady returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func requireUnblocked(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		t.Fatal("AwaitReady did not return")
		return nil
	}
}

func TestReadinessLifecycle(t *testing.T) {
	b := newTestBot()

	assert.False(t, b.IsReady(), "must start not ready")

	b.setReady(true)
	assert.True(t, b.IsReady())

	// Duplicate Ready events must not close the channel twice.
	b.setReady(true)
	assert.True(t, b.IsReady())

	b.setReady(false)
	assert.False(t, b.IsReady(), "disconnect flips readiness off")

	b.setReady(false)
	assert.False(t, b.IsReady())

	b.setReady(true)
	assert.True(t, b.IsReady(), "resume flips readiness back on")
}

func TestAwaitReadyWhenAlreadyReady(t *testing.T) {
	b := newTestBot()
	b.setReady(true)

	require.NoError(t, b.AwaitReady(context.Background()))
}

func TestAwaitReadyUnblocksOnReady(t *testing.T) {
	b := newTestBot()

	done := awaitInBackground(context.Background(), b)
	requireBlocked(t, done)

	b.setReady(true)
	require.NoError(t, requireUnblocked(t, done))
}

func TestAwaitReadyBlocksAcrossDisconnectCycle(t *testing.T) {
	b := newTestBot()
	b.setReady(true)
	b.setReady(false)

	// The waiter arrives after a disconnect and must wake on the fresh
	// channel created for the next ready, not the already-closed one.
	done := awaitInBackground(context.Background(), b)
	requireBlocked(t, done)

	b.setReady(true)
	require.NoError(t, requireUnblocked(t, done))
	assert.True(t, b.IsReady())
}

func TestAwaitReadyContextCancelled(t *testing.T) {
	b := newTestBot()

	ctx, cancel := context.WithCancel(context.Background())
	done := awaitInBackground(ctx, b)
	requireBlocked(t, done)

	cancel()
	require.ErrorIs(t, requireUnblocked(t, done), context.Canceled)
}

func TestAwaitReadyContextDeadline(t *testing.T) {
	b := newTestBot()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, b.AwaitReady(ctx), context.DeadlineExceeded)
}
