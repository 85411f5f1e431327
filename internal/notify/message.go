// Package notify implements the sd_notify wire protocol side of the
// adapter: datagram parsing and the mapping from parsed messages to
// adapter events and timer directives.
package notify

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Well-known sd_notify assignment keys. Only a subset produces events
// (see mapper.go); the rest is parsed and echoed so operators can see
// everything the monitored service reports.
const (
	KeyReady             = "READY"
	KeyReloading         = "RELOADING"
	KeyStopping          = "STOPPING"
	KeyMonotonicUsec     = "MONOTONIC_USEC"
	KeyStatus            = "STATUS"
	KeyNotifyAccess      = "NOTIFYACCESS"
	KeyErrno             = "ERRNO"
	KeyBusError          = "BUSERROR"
	KeyExitStatus        = "EXIT_STATUS"
	KeyMainPID           = "MAINPID"
	KeyWatchdog          = "WATCHDOG"
	KeyWatchdogUsec      = "WATCHDOG_USEC"
	KeyExtendTimeoutUsec = "EXTEND_TIMEOUT_USEC"
	KeyFDStore           = "FDSTORE"
	KeyFDStoreRemove     = "FDSTOREREMOVE"
	KeyFDName            = "FDNAME"
	KeyFDPoll            = "FDPOLL"
	KeyBarrier           = "BARRIER"
)

var (
	ErrNotUTF8       = errors.New("datagram is not valid UTF-8")
	ErrMalformedLine = errors.New("line is not a KEY=VALUE assignment")
)

// Field is a single KEY=VALUE assignment from a datagram.
type Field struct {
	Key   string
	Value string
}

func (f Field) String() string { return f.Key + "=" + f.Value }

// Known reports whether the key belongs to the well-known sd_notify
// vocabulary (acted on or not).
func (f Field) Known() bool {
	_, ok := fieldChecks[f.Key]
	return ok
}

// Message is one parsed datagram. Field order is preserved as received;
// a datagram may legitimately set the same key more than once.
type Message struct {
	Fields []Field
}

// Get returns the value of the first occurrence of key.
func (m Message) Get(key string) (string, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Warning records a well-known field that carried a malformed value and
// was dropped from the message.
type Warning struct {
	Field  Field
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("dropped field %s: %s", w.Field, w.Reason)
}

// fieldChecks validates values of well-known keys. A nil check accepts
// any value.
var fieldChecks = map[string]func(string) error{
	KeyReady:             expectLiteral("1"),
	KeyReloading:         expectLiteral("1"),
	KeyStopping:          expectLiteral("1"),
	KeyMonotonicUsec:     expectMicroseconds,
	KeyStatus:            nil,
	KeyNotifyAccess:      expectOneOf("none", "main", "exec", "all"),
	KeyErrno:             expectInteger,
	KeyBusError:          nil,
	KeyExitStatus:        expectInteger,
	KeyMainPID:           expectInteger,
	KeyWatchdog:          expectOneOf("1", "trigger"),
	KeyWatchdogUsec:      expectMicroseconds,
	KeyExtendTimeoutUsec: expectMicroseconds,
	KeyFDStore:           expectLiteral("1"),
	KeyFDStoreRemove:     expectLiteral("1"),
	KeyFDName:            nil,
	KeyFDPoll:            expectLiteral("0"),
	KeyBarrier:           expectLiteral("1"),
}

func expectLiteral(want string) func(string) error {
	return func(v string) error {
		if v != want {
			return fmt.Errorf("expected %q, got %q", want, v)
		}
		return nil
	}
}

func expectOneOf(want ...string) func(string) error {
	return func(v string) error {
		for _, w := range want {
			if v == w {
				return nil
			}
		}
		return fmt.Errorf("expected one of %s, got %q", strings.Join(want, "|"), v)
	}
}

func expectInteger(v string) error {
	if _, err := strconv.Atoi(v); err != nil {
		return fmt.Errorf("not an integer: %q", v)
	}
	return nil
}

// maxMicroseconds is the largest usec value representable as a
// nanosecond duration without overflowing.
const maxMicroseconds = float64(math.MaxInt64 / 1000)

func expectMicroseconds(v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", v)
	}
	if f < 0 {
		return fmt.Errorf("negative microseconds: %q", v)
	}
	if f > maxMicroseconds {
		return fmt.Errorf("microseconds out of range: %q", v)
	}
	return nil
}

// Parse decodes one datagram payload. Parsing is line oriented: the
// payload splits on newline, each non-empty line on the first '='.
//
// A payload that is not UTF-8, or that contains a line without '=',
// fails as a whole. A well-known key with a malformed value only drops
// that field and reports it as a Warning; unknown keys are kept as-is
// for echo and logging but never produce events.
func Parse(payload []byte) (Message, []Warning, error) {
	if !utf8.Valid(payload) {
		return Message{}, nil, ErrNotUTF8
	}

	var (
		msg      Message
		warnings []Warning
	)
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			return Message{}, nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
		}
		f := Field{Key: key, Value: value}
		if check, known := fieldChecks[key]; known && check != nil {
			if err := check(value); err != nil {
				warnings = append(warnings, Warning{Field: f, Reason: err.Error()})
				continue
			}
		}
		msg.Fields = append(msg.Fields, f)
	}
	return msg, warnings, nil
}
