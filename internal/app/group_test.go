package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifyadapter/internal/engine"
)

func TestGroupFirstErrorCancelsSiblings(t *testing.T) {
	g := newGroup(context.Background(), zerolog.Nop())

	boom := errors.New("boom")
	g.Go("failing", func(ctx context.Context) error {
		return boom
	})
	g.Go("waiting", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("sibling was not canceled")
		}
	})

	err := g.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
}

func TestGroupCleanExitLeavesOthersRunning(t *testing.T) {
	g := newGroup(context.Background(), zerolog.Nop())

	g.Go("short", func(ctx context.Context) error {
		return nil
	})

	canceled := make(chan struct{})
	g.Go("long", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			close(canceled)
			return nil
		case <-time.After(100 * time.Millisecond):
			return nil
		}
	})

	require.NoError(t, g.Wait())
	select {
	case <-canceled:
		t.Fatal("clean exit must not cancel the group")
	default:
	}
}

func TestGroupRecoversPanic(t *testing.T) {
	g := newGroup(context.Background(), zerolog.Nop())

	g.Go("panicking", func(ctx context.Context) error {
		panic("oops")
	})

	err := g.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in panicking")
}

func TestGroupShutdownErrorSurfaces(t *testing.T) {
	g := newGroup(context.Background(), zerolog.Nop())

	g.Go("loop", func(ctx context.Context) error {
		return engine.ErrShutdownEvent
	})

	err := g.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrShutdownEvent)
}

func TestGroupParentCancelStopsTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := newGroup(ctx, zerolog.Nop())

	g.Go("task", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	cancel()
	require.NoError(t, g.Wait())
}
