package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifyadapter/internal/notify"
)

func defaultPolicy() Policy {
	return Policy{
		LivezTrue:   NewEventSet([]notify.Event{notify.EventReady, notify.EventWatchdog}),
		LivezFalse:  NewEventSet([]notify.Event{notify.EventErrno, notify.EventBusError, notify.EventWatchdogTrigger, notify.EventWatchdogTimeout, notify.EventStartTimeout}),
		ReadyzTrue:  NewEventSet([]notify.Event{notify.EventReady, notify.EventWatchdog}),
		ReadyzFalse: NewEventSet([]notify.Event{notify.EventReloading, notify.EventStopping, notify.EventErrno, notify.EventBusError, notify.EventWatchdogTrigger, notify.EventWatchdogTimeout, notify.EventStartTimeout}),
		Shutdown:    NewEventSet(nil),
	}
}

func TestMachineInitialState(t *testing.T) {
	m := NewMachine(defaultPolicy(), false, false, nil)
	snap := m.Snapshot()
	assert.False(t, snap.Healthz)
	assert.False(t, snap.Livez)
	assert.False(t, snap.Readyz)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestMachineReadyFlipsBothStatuses(t *testing.T) {
	m := NewMachine(defaultPolicy(), false, false, nil)
	shutdown := m.Apply(notify.EventReady)
	require.False(t, shutdown)

	snap := m.Snapshot()
	assert.True(t, snap.Livez)
	assert.True(t, snap.Readyz)
}

func TestMachineErrnoFlipsBothStatusesFalse(t *testing.T) {
	m := NewMachine(defaultPolicy(), true, true, nil)
	m.Apply(notify.EventErrno)

	snap := m.Snapshot()
	assert.False(t, snap.Livez)
	assert.False(t, snap.Readyz)
}

func TestMachineFalseWinsOverTrue(t *testing.T) {
	// The same event in both the true-set and the false-set of one
	// dimension must resolve to false.
	p := defaultPolicy()
	p.LivezTrue[notify.EventErrno] = true
	p.ReadyzTrue[notify.EventErrno] = true

	m := NewMachine(p, true, true, nil)
	m.Apply(notify.EventErrno)

	snap := m.Snapshot()
	assert.False(t, snap.Livez)
	assert.False(t, snap.Readyz)
}

func TestMachineReloadingOnlyAffectsReadyz(t *testing.T) {
	m := NewMachine(defaultPolicy(), true, true, nil)
	m.Apply(notify.EventReloading)

	snap := m.Snapshot()
	assert.True(t, snap.Livez)
	assert.False(t, snap.Readyz)
}

func TestMachineTimestampAdvancesOnNoOp(t *testing.T) {
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	m := NewMachine(defaultPolicy(), true, true, now)

	before := m.Snapshot().Timestamp
	// ready is a no-op here (both already true) but still touches state.
	m.Apply(notify.EventReady)
	after := m.Snapshot().Timestamp
	assert.True(t, after.After(before))
}

func TestMachineShutdownMembership(t *testing.T) {
	p := defaultPolicy()
	p.Shutdown = NewEventSet([]notify.Event{notify.EventStopping})
	m := NewMachine(p, true, true, nil)

	assert.False(t, m.Apply(notify.EventReady))
	assert.True(t, m.Apply(notify.EventStopping))
	// The stopping event still applies its readyz mapping.
	assert.False(t, m.Snapshot().Readyz)
}

func TestMachineBoundAndShutdownOwnHealthz(t *testing.T) {
	m := NewMachine(defaultPolicy(), false, false, nil)
	assert.False(t, m.Snapshot().Healthz)

	m.MarkBound()
	assert.True(t, m.Snapshot().Healthz)

	// Events never touch healthz.
	m.Apply(notify.EventErrno)
	assert.True(t, m.Snapshot().Healthz)

	m.MarkShutdown()
	assert.False(t, m.Snapshot().Healthz)
}

func TestPublisherOverwriteOnPublish(t *testing.T) {
	pub := NewPublisher(Snapshot{Livez: false})
	assert.False(t, pub.Load().Livez)

	pub.Publish(Snapshot{Livez: true, Readyz: true})
	pub.Publish(Snapshot{Livez: true, Readyz: false})

	snap := pub.Load()
	assert.True(t, snap.Livez)
	assert.False(t, snap.Readyz, "readers see only the latest snapshot")
}
