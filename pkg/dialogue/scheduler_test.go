package dialogue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualSchedulerFiresInOrder(t *testing.T) {
	s := NewManualScheduler()
	var order []int
	s.Schedule(time.Second, func() bool { return true }, func() { order = append(order, 1) })
	s.Schedule(2*time.Second, func() bool { return true }, func() { order = append(order, 2) })

	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.Delays())

	fired, ran := s.Fire()
	assert.True(t, fired)
	assert.True(t, ran)
	fired, ran = s.Fire()
	assert.True(t, fired)
	assert.True(t, ran)
	fired, _ = s.Fire()
	assert.False(t, fired)

	assert.Equal(t, []int{1, 2}, order)
}

func TestManualSchedulerCancelAndGuard(t *testing.T) {
	s := NewManualScheduler()
	ran := false
	cancel := s.Schedule(0, func() bool { return true }, func() { ran = true })
	cancel()
	assert.Equal(t, 0, s.Pending())
	fired, _ := s.Fire()
	assert.False(t, fired)

	s.Schedule(0, func() bool { return false }, func() { ran = true })
	fired, didRun := s.Fire()
	assert.True(t, fired)
	assert.False(t, didRun)
	assert.False(t, ran)
}

func TestTimerSchedulerRespectsGuardAndCancel(t *testing.T) {
	var s TimerScheduler
	done := make(chan struct{})
	s.Schedule(time.Millisecond, func() bool { return true }, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "timer callback did not run")
	}

	var calls atomic.Int32
	cancel := s.Schedule(50*time.Millisecond, func() bool { return true }, func() { calls.Add(1) })
	cancel()
	s.Schedule(time.Millisecond, func() bool { return false }, func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestCycleLock(t *testing.T) {
	var l CycleLock
	assert.True(t, l.TryAcquire())
	assert.True(t, l.IsHeld())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.False(t, l.IsHeld())
	assert.True(t, l.TryAcquire())
}
