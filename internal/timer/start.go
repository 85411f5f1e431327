// Package timer implements the two countdown timers that synthesize
// events the monitored service never sends itself: start_timeout and
// watchdog_timeout. Timer expiries go through the same control loop
// channel as socket events, so there is one total order and no locking
// between resets and firing.
package timer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"notifyadapter/internal/engine"
	"notifyadapter/internal/notify"
)

// StartTimer bounds the time the monitored service may take to report
// initial readiness. It is single-shot: it fires start_timeout once and
// disarms, or is canceled permanently by READY=1. A zero interval
// disables it outright.
type StartTimer struct {
	interval   time.Duration
	loop       *engine.Loop
	log        zerolog.Logger
	directives chan notify.Directive
	done       chan struct{}
}

func NewStart(interval time.Duration, loop *engine.Loop, log zerolog.Logger) *StartTimer {
	return &StartTimer{
		interval:   interval,
		loop:       loop,
		log:        log.With().Str("component", "start-timer").Logger(),
		directives: make(chan notify.Directive, 8),
		done:       make(chan struct{}),
	}
}

// Apply hands a directive to the timer task. Disabled, fired, and
// canceled timers silently ignore directives.
func (t *StartTimer) Apply(ctx context.Context, d notify.Directive) {
	if t.interval <= 0 {
		return
	}
	select {
	case t.directives <- d:
	case <-t.done:
	case <-ctx.Done():
	}
}

func (t *StartTimer) Run(ctx context.Context) error {
	defer close(t.done)
	if t.interval <= 0 {
		t.log.Debug().Msg("start timer disabled")
		return nil
	}

	deadline := time.Now().Add(t.interval)
	tm := time.NewTimer(t.interval)
	defer tm.Stop()
	t.log.Info().Dur("timeout", t.interval).Msg("start timer armed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-t.directives:
			switch d.Kind {
			case notify.DirectiveCancelStart:
				t.log.Info().Msg("start timer canceled")
				return nil
			case notify.DirectiveExtendStart:
				deadline = deadline.Add(d.Duration)
				resetTimer(tm, time.Until(deadline))
				t.log.Info().Dur("extension", d.Duration).Time("deadline", deadline).Msg("start timer extended")
			}
		case <-tm.C:
			// A cancel or extend already queued when the timer fired was
			// enqueued before the expiry and must win the race.
			if t.consumePending(&deadline) {
				t.log.Info().Msg("start timer canceled")
				return nil
			}
			if wait := time.Until(deadline); wait > 0 {
				tm.Reset(wait)
				t.log.Info().Time("deadline", deadline).Msg("start timer extended")
				continue
			}
			t.log.Warn().Msg("start timeout elapsed")
			if err := t.loop.Submit(ctx, engine.Batch{Events: []notify.Event{notify.EventStartTimeout}}); err != nil {
				return nil
			}
			return nil
		}
	}
}

// consumePending drains directives that were already queued when an
// expiry was observed, applying extends to the deadline. Reports
// whether a cancel was among them.
func (t *StartTimer) consumePending(deadline *time.Time) bool {
	for {
		select {
		case d := <-t.directives:
			switch d.Kind {
			case notify.DirectiveCancelStart:
				return true
			case notify.DirectiveExtendStart:
				*deadline = deadline.Add(d.Duration)
			}
		default:
			return false
		}
	}
}

// resetTimer stops, drains and rearms a timer. A non-positive duration
// fires it immediately.
func resetTimer(tm *time.Timer, d time.Duration) {
	if !tm.Stop() {
		select {
		case <-tm.C:
		default:
		}
	}
	if d <= 0 {
		d = time.Nanosecond
	}
	tm.Reset(d)
}
