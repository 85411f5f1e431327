package notify

import (
	"fmt"
	"strings"
)

// Event is one occurrence the state machine reacts to. Socket-derived
// events come from Mapper.Map; the two *_timeout events are synthesized
// by the timer tasks.
type Event string

const (
	EventReady           Event = "ready"
	EventReloading       Event = "reloading"
	EventStopping        Event = "stopping"
	EventErrno           Event = "errno"
	EventBusError        Event = "buserror"
	EventWatchdog        Event = "watchdog"
	EventWatchdogTrigger Event = "watchdog_trigger"
	EventWatchdogTimeout Event = "watchdog_timeout"
	EventStartTimeout    Event = "start_timeout"
)

var knownEvents = map[Event]bool{
	EventReady:           true,
	EventReloading:       true,
	EventStopping:        true,
	EventErrno:           true,
	EventBusError:        true,
	EventWatchdog:        true,
	EventWatchdogTrigger: true,
	EventWatchdogTimeout: true,
	EventStartTimeout:    true,
}

// ParseEvent validates a single event name from configuration.
func ParseEvent(s string) (Event, error) {
	ev := Event(strings.TrimSpace(s))
	if !knownEvents[ev] {
		return "", fmt.Errorf("unrecognized event %q", s)
	}
	return ev, nil
}

// ParseEventList parses a comma-separated event list. An empty string is
// an empty list, not an error.
func ParseEventList(s string) ([]Event, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	events := make([]Event, 0, len(parts))
	for _, p := range parts {
		ev, err := ParseEvent(p)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
