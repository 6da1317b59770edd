package dialogue

import "sync/atomic"

// CycleLock guarantees that at most one round, automatic or manual, runs at
// a time. Acquisition is a single compare-and-swap, so there is no window
// between checking and taking the lock; it never blocks and never queues.
type CycleLock struct {
	held atomic.Bool
}

// TryAcquire takes the lock if it is free and reports whether it did.
func (l *CycleLock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

func (l *CycleLock) Release() {
	l.held.Store(false)
}

func (l *CycleLock) IsHeld() bool {
	return l.held.Load()
}

// ActivityFlag is the operator's "automation wanted" switch. It is advisory:
// rounds consult it at checkpoints but an issued remote call always completes.
type ActivityFlag struct {
	active atomic.Bool
}

func (f *ActivityFlag) Set(active bool) {
	f.active.Store(active)
}

func (f *ActivityFlag) IsActive() bool {
	return f.active.Load()
}
