package notify

import (
	"strconv"
	"time"
)

// DirectiveKind selects the timer a directive is addressed to and what
// it should do.
type DirectiveKind int

const (
	// DirectiveCancelStart permanently disarms the start timer (READY=1).
	DirectiveCancelStart DirectiveKind = iota
	// DirectiveExtendStart pushes the start timer deadline forward
	// (EXTEND_TIMEOUT_USEC).
	DirectiveExtendStart
	// DirectiveResetWatchdog resets the watchdog deadline to now+interval
	// (WATCHDOG=1).
	DirectiveResetWatchdog
	// DirectiveSetWatchdogInterval replaces the watchdog interval and
	// recomputes the deadline from now (WATCHDOG_USEC).
	DirectiveSetWatchdogInterval
)

// Directive is a timer instruction derived from a message field. It is
// applied by the timer subsystem, never by the state machine.
type Directive struct {
	Kind     DirectiveKind
	Duration time.Duration
}

// Mapper classifies parsed messages into events and timer directives.
// The two Allow flags gate the control fields that let the monitored
// service reconfigure the adapter's timers.
type Mapper struct {
	AllowWatchdogUsec      bool
	AllowExtendTimeoutUsec bool
}

// Map walks the message fields in wire order and returns the events to
// enqueue plus the timer directives to apply. Fields that are parsed
// but not acted on (STATUS, MAINPID, ...) contribute nothing here.
// Disallowed WATCHDOG_USEC / EXTEND_TIMEOUT_USEC fields are ignored
// outright per configuration.
func (m Mapper) Map(msg Message) ([]Event, []Directive) {
	var (
		events     []Event
		directives []Directive
	)
	for _, f := range msg.Fields {
		switch f.Key {
		case KeyReady:
			events = append(events, EventReady)
			directives = append(directives, Directive{Kind: DirectiveCancelStart})
		case KeyReloading:
			events = append(events, EventReloading)
		case KeyStopping:
			events = append(events, EventStopping)
		case KeyErrno:
			events = append(events, EventErrno)
		case KeyBusError:
			events = append(events, EventBusError)
		case KeyWatchdog:
			if f.Value == "trigger" {
				events = append(events, EventWatchdogTrigger)
			} else {
				events = append(events, EventWatchdog)
				directives = append(directives, Directive{Kind: DirectiveResetWatchdog})
			}
		case KeyWatchdogUsec:
			if m.AllowWatchdogUsec {
				directives = append(directives, Directive{
					Kind:     DirectiveSetWatchdogInterval,
					Duration: microseconds(f.Value),
				})
			}
		case KeyExtendTimeoutUsec:
			if m.AllowExtendTimeoutUsec {
				directives = append(directives, Directive{
					Kind:     DirectiveExtendStart,
					Duration: microseconds(f.Value),
				})
			}
		}
	}
	return events, directives
}

// microseconds converts an already-validated usec field value. sd_notify
// transmits fractional microseconds as floats, so parse accordingly.
func microseconds(v string) time.Duration {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Microsecond))
}
