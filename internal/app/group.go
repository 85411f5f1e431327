package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"notifyadapter/internal/engine"
)

// group runs named tasks tied to one context. The first task error (or
// panic) cancels the rest; tasks that finish cleanly, like a canceled
// start timer, leave the others running.
type group struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	firstErr error
}

func newGroup(parent context.Context, log zerolog.Logger) *group {
	ctx, cancel := context.WithCancel(parent)
	return &group{ctx: ctx, cancel: cancel, log: log}
}

func (g *group) Go(name string, fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.log.Error().
					Str("task", name).
					Any("panic", r).
					Str("stack", string(debug.Stack())).
					Msg("panic in task")
				g.fail(fmt.Errorf("panic in %s: %v", name, r))
			}
		}()
		if err := fn(g.ctx); err != nil {
			if errors.Is(err, engine.ErrShutdownEvent) {
				g.log.Info().Str("task", name).Msg("task requested shutdown")
			} else {
				g.log.Error().Str("task", name).Err(err).Msg("task failed")
			}
			g.fail(fmt.Errorf("%s: %w", name, err))
		}
	}()
}

func (g *group) fail(err error) {
	g.mu.Lock()
	if g.firstErr == nil {
		g.firstErr = err
	}
	g.mu.Unlock()
	g.cancel()
}

// Wait blocks until every task has returned and reports the first
// failure, if any.
func (g *group) Wait() error {
	g.wg.Wait()
	g.cancel()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.firstErr
}
