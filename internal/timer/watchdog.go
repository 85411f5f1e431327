package timer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"notifyadapter/internal/engine"
	"notifyadapter/internal/notify"
)

// WatchdogTimer is the keep-alive countdown. WATCHDOG=1 resets the
// deadline to now+interval; WATCHDOG_USEC replaces the interval and
// recomputes the deadline from now. On expiry it emits watchdog_timeout
// and rearms with the current interval, so a service that stays silent
// keeps being reported as dead. A zero interval disables it outright.
type WatchdogTimer struct {
	interval   time.Duration
	loop       *engine.Loop
	log        zerolog.Logger
	directives chan notify.Directive
	done       chan struct{}
}

func NewWatchdog(interval time.Duration, loop *engine.Loop, log zerolog.Logger) *WatchdogTimer {
	return &WatchdogTimer{
		interval:   interval,
		loop:       loop,
		log:        log.With().Str("component", "watchdog-timer").Logger(),
		directives: make(chan notify.Directive, 8),
		done:       make(chan struct{}),
	}
}

// Apply hands a directive to the timer task. A disabled timer silently
// ignores all directives, including interval replacements.
func (t *WatchdogTimer) Apply(ctx context.Context, d notify.Directive) {
	if t.interval <= 0 {
		return
	}
	select {
	case t.directives <- d:
	case <-t.done:
	case <-ctx.Done():
	}
}

func (t *WatchdogTimer) Run(ctx context.Context) error {
	defer close(t.done)
	if t.interval <= 0 {
		t.log.Debug().Msg("watchdog timer disabled")
		return nil
	}

	// Interval replacements stay local to this goroutine; t.interval
	// itself is read concurrently by Apply and never changes after New.
	interval := t.interval
	tm := time.NewTimer(interval)
	defer tm.Stop()
	t.log.Info().Dur("interval", interval).Msg("watchdog timer armed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-t.directives:
			switch d.Kind {
			case notify.DirectiveResetWatchdog:
				resetTimer(tm, interval)
				t.log.Debug().Msg("watchdog keep-alive")
			case notify.DirectiveSetWatchdogInterval:
				if d.Duration <= 0 {
					t.log.Warn().Dur("interval", d.Duration).Msg("ignoring non-positive watchdog interval")
					continue
				}
				interval = d.Duration
				resetTimer(tm, interval)
				t.log.Info().Dur("interval", interval).Msg("watchdog interval replaced")
			}
		case <-tm.C:
			// A keep-alive or interval replacement already queued when the
			// timer fired arrived before the expiry; honor it instead of
			// reporting a timeout.
			if t.consumePending(&interval) {
				tm.Reset(interval)
				t.log.Debug().Msg("watchdog keep-alive")
				continue
			}
			t.log.Warn().Dur("interval", interval).Msg("watchdog timeout elapsed")
			if err := t.loop.Submit(ctx, engine.Batch{Events: []notify.Event{notify.EventWatchdogTimeout}}); err != nil {
				return nil
			}
			tm.Reset(interval)
		}
	}
}

// consumePending drains directives that were already queued when an
// expiry was observed. Reports whether any of them moved the deadline,
// meaning the service did speak up in time.
func (t *WatchdogTimer) consumePending(interval *time.Duration) bool {
	alive := false
	for {
		select {
		case d := <-t.directives:
			switch d.Kind {
			case notify.DirectiveResetWatchdog:
				alive = true
			case notify.DirectiveSetWatchdogInterval:
				if d.Duration > 0 {
					*interval = d.Duration
					alive = true
				}
			}
		default:
			return alive
		}
	}
}

// Set bundles both timers so the socket listener can route mapper
// directives without knowing which timer they address.
type Set struct {
	Start    *StartTimer
	Watchdog *WatchdogTimer
}

func (s *Set) Apply(ctx context.Context, d notify.Directive) {
	switch d.Kind {
	case notify.DirectiveCancelStart, notify.DirectiveExtendStart:
		s.Start.Apply(ctx, d)
	case notify.DirectiveResetWatchdog, notify.DirectiveSetWatchdogInterval:
		s.Watchdog.Apply(ctx, d)
	}
}
