// Package engine contains the control loop: the single serialization
// point between the socket listener, the timer tasks, and the state
// machine.
package engine

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"notifyadapter/internal/notify"
	"notifyadapter/internal/state"
)

// ErrShutdownEvent reports that a configured shutdown event was applied.
// It is a deliberate termination path, not a failure; callers map it to
// a clean exit.
var ErrShutdownEvent = errors.New("shutdown event received")

// Batch is one unit of work for the control loop. Either a group of
// events mapped from a single datagram (applied together, before any
// later datagram), or the one-off socket-bound signal that flips
// healthz true outside the event policy.
type Batch struct {
	Events []notify.Event
	Bound  bool
}

// Loop is the sole consumer of the event channel and the sole writer of
// adapter state. Producers block when the channel is full: losing a
// ready or watchdog event would be worse than briefly delaying the next
// datagram read.
type Loop struct {
	machine *state.Machine
	pub     *state.Publisher
	log     zerolog.Logger
	ch      chan Batch

	// OnApply runs after each applied event with the resulting status.
	// OnPublish runs after each published snapshot. Both optional.
	OnApply   func(ev notify.Event, snap state.Snapshot)
	OnPublish func(snap state.Snapshot)
}

func NewLoop(capacity int, machine *state.Machine, pub *state.Publisher, log zerolog.Logger) *Loop {
	if capacity <= 0 {
		capacity = 32
	}
	return &Loop{
		machine: machine,
		pub:     pub,
		log:     log.With().Str("component", "loop").Logger(),
		ch:      make(chan Batch, capacity),
	}
}

// Submit enqueues a batch for processing, blocking until there is
// channel space or ctx is canceled.
func (l *Loop) Submit(ctx context.Context, b Batch) error {
	select {
	case l.ch <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes batches in strict arrival order until ctx is canceled or
// a shutdown event is applied. Events within a batch are applied in
// order; on a shutdown event the remaining events of the batch are
// discarded, healthz flips false, the final snapshot is published and
// Run returns ErrShutdownEvent.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Msg("control loop ready")
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("shutting down control loop")
			return nil
		case b := <-l.ch:
			if b.Bound {
				l.machine.MarkBound()
				l.publish()
				continue
			}
			for _, ev := range b.Events {
				shutdown := l.machine.Apply(ev)
				snap := l.machine.Snapshot()
				l.log.Info().
					Str("event", string(ev)).
					Bool("livez", snap.Livez).
					Bool("readyz", snap.Readyz).
					Msg("processing event")
				if l.OnApply != nil {
					l.OnApply(ev, snap)
				}
				if shutdown {
					l.log.Info().Str("event", string(ev)).Msg("event initiated shutdown")
					l.machine.MarkShutdown()
					l.publish()
					return ErrShutdownEvent
				}
			}
			l.publish()
		}
	}
}

func (l *Loop) publish() {
	snap := l.machine.Snapshot()
	l.pub.Publish(snap)
	if l.OnPublish != nil {
		l.OnPublish(snap)
	}
}
