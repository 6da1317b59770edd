package dialogue

import (
	"context"

	"github.com/go-go-golems/conciliate/pkg/transcript"
)

// Transcript returns a copy of the turns recorded so far.
func (c *Controller) Transcript() []transcript.Turn {
	c.mu.Lock()
	tr := c.transcript
	c.mu.Unlock()
	return tr.Snapshot()
}

func (c *Controller) IsAutomationActive() bool {
	return c.active.IsActive()
}

// IsTerminated reports whether the responder has ended the dialogue.
// Once true it stays true until Reset.
func (c *Controller) IsTerminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return true
	}
	return c.detector.IsTerminated(c.transcript.Snapshot())
}

// IsBusy reports whether a round currently holds the cycle lock.
func (c *Controller) IsBusy() bool {
	return c.lock.IsHeld()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.terminated || c.detector.IsTerminated(c.transcript.Snapshot()):
		return StatusTerminated
	case c.failed:
		return StatusFailed
	case c.active.IsActive():
		return StatusActive
	case c.stopped:
		return StatusStopped
	default:
		return StatusIdle
	}
}

// LastError returns the failure that halted the session, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Rounds counts automatic and manual rounds entered in this session.
func (c *Controller) Rounds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rounds
}

// Wait blocks until the controller is quiescent: no round in flight, no round
// pending and automation off (stopped, terminated or failed). It returns the
// session's LastError. With a ManualScheduler, Wait only returns once pending
// entries have been fired or automation is stopped.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		done := !c.lock.IsHeld() &&
			c.pending == nil &&
			(!c.active.IsActive() || c.terminated || c.failed)
		ch := c.changed
		err := c.lastErr
		c.mu.Unlock()

		if done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
