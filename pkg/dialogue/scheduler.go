package dialogue

import (
	"sync"
	"time"
)

// Scheduler runs a single deferred callback. Before fn is invoked, guard is
// evaluated; fn only runs when guard returns true, so conditions that changed
// during the delay window (stop, termination, a busy lock) are re-verified at
// fire time. The returned cancel func prevents a callback that has not fired
// yet from running.
type Scheduler interface {
	Schedule(delay time.Duration, guard func() bool, fn func()) (cancel func())
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, guard func() bool, fn func()) func() {
	t := time.AfterFunc(delay, func() {
		if guard() {
			fn()
		}
	})
	return func() {
		t.Stop()
	}
}

var _ Scheduler = TimerScheduler{}

// ManualScheduler queues callbacks until Fire is called. It lets tests and
// step-through hosts drive automation one round at a time.
type ManualScheduler struct {
	mu      sync.Mutex
	entries []*manualEntry
}

type manualEntry struct {
	delay     time.Duration
	guard     func() bool
	fn        func()
	cancelled bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) Schedule(delay time.Duration, guard func() bool, fn func()) func() {
	e := &manualEntry{delay: delay, guard: guard, fn: fn}
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		e.cancelled = true
		m.mu.Unlock()
	}
}

// Fire runs the oldest live entry, as if its delay had elapsed. It returns
// false when nothing was pending; otherwise it reports whether the guard let
// the callback run.
func (m *ManualScheduler) Fire() (fired bool, ran bool) {
	m.mu.Lock()
	var next *manualEntry
	for len(m.entries) > 0 {
		e := m.entries[0]
		m.entries = m.entries[1:]
		if !e.cancelled {
			next = e
			break
		}
	}
	m.mu.Unlock()

	if next == nil {
		return false, false
	}
	if !next.guard() {
		return true, false
	}
	next.fn()
	return true, true
}

// Pending returns the number of scheduled, not cancelled entries.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if !e.cancelled {
			n++
		}
	}
	return n
}

// Delays returns the delays of the pending entries in scheduling order.
func (m *ManualScheduler) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := []time.Duration{}
	for _, e := range m.entries {
		if !e.cancelled {
			ret = append(ret, e.delay)
		}
	}
	return ret
}

var _ Scheduler = (*ManualScheduler)(nil)
