// Package state owns the adapter's health status: the event policy, the
// state machine that consumes events, and the snapshot publisher that
// hands immutable copies to HTTP readers.
package state

import (
	"sync/atomic"
	"time"

	"notifyadapter/internal/notify"
)

// Snapshot is an immutable copy of the adapter status at one point in
// time. Readers only ever see whole snapshots, never partial updates.
type Snapshot struct {
	Timestamp time.Time
	Healthz   bool
	Livez     bool
	Readyz    bool
}

// EventSet is a membership set over adapter events.
type EventSet map[notify.Event]bool

func NewEventSet(events []notify.Event) EventSet {
	s := make(EventSet, len(events))
	for _, ev := range events {
		s[ev] = true
	}
	return s
}

// Policy is the configured event-to-status mapping. An event may appear
// in several sets at once; conflicts are resolved by the machine.
type Policy struct {
	LivezTrue   EventSet
	LivezFalse  EventSet
	ReadyzTrue  EventSet
	ReadyzFalse EventSet
	Shutdown    EventSet
}

// Machine is the single authority over adapter status. It is not safe
// for concurrent use: the control loop is its only caller.
type Machine struct {
	policy Policy
	now    func() time.Time

	healthz bool
	livez   bool
	readyz  bool
	ts      time.Time
}

func NewMachine(policy Policy, initialLivez, initialReadyz bool, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{
		policy: policy,
		now:    now,
		livez:  initialLivez,
		readyz: initialReadyz,
		ts:     now(),
	}
}

// Apply consumes one event and reports whether it requests adapter
// shutdown. The false sets are evaluated after the true sets, so a
// false mapping always overrides a true mapping from the same pass.
// The timestamp moves on every applied event, value change or not.
func (m *Machine) Apply(ev notify.Event) (shutdown bool) {
	if m.policy.LivezTrue[ev] {
		m.livez = true
	}
	if m.policy.LivezFalse[ev] {
		m.livez = false
	}
	if m.policy.ReadyzTrue[ev] {
		m.readyz = true
	}
	if m.policy.ReadyzFalse[ev] {
		m.readyz = false
	}
	m.ts = m.now()
	return m.policy.Shutdown[ev]
}

// MarkBound flips healthz true. Called once, when the notify socket is
// successfully bound; healthz has no configurable policy.
func (m *Machine) MarkBound() {
	m.healthz = true
	m.ts = m.now()
}

// MarkShutdown flips healthz false as part of graceful termination.
func (m *Machine) MarkShutdown() {
	m.healthz = false
	m.ts = m.now()
}

// Snapshot copies the current status.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		Timestamp: m.ts,
		Healthz:   m.healthz,
		Livez:     m.livez,
		Readyz:    m.readyz,
	}
}

// Publisher is the single-slot, overwrite-on-publish handoff between
// the control loop and HTTP readers. Load never blocks.
type Publisher struct {
	cur atomic.Pointer[Snapshot]
}

func NewPublisher(initial Snapshot) *Publisher {
	p := &Publisher{}
	p.Publish(initial)
	return p
}

func (p *Publisher) Publish(s Snapshot) {
	p.cur.Store(&s)
}

func (p *Publisher) Load() Snapshot {
	return *p.cur.Load()
}
