package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-clone"
)

// Transcript is the append-only, ordered record of a dialogue session.
//
// Appends are serialized by the dialogue controller (only the holder of the
// cycle lock writes), but reads may happen concurrently from renderers, so the
// slice itself is guarded by a RWMutex. Every read hands out copies; callers
// can never observe or cause a mutation of a stored turn.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// New creates a transcript pre-populated with the given seed turns.
func New(seed ...Turn) *Transcript {
	t := &Transcript{now: time.Now}
	for _, s := range seed {
		t.Append(s)
	}
	return t
}

// Append stores a copy of turn at the end of the transcript and returns the
// stored copy with its ID, Index and CreatedAt filled in.
func (t *Transcript) Append(turn Turn) Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	turn = cloneTurn(turn)
	turn.Index = len(t.turns)
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = t.now()
	}
	t.turns = append(t.turns, turn)

	return cloneTurn(turn)
}

// Snapshot returns a deep copy of all turns in insertion order.
func (t *Transcript) Snapshot() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ret := make([]Turn, len(t.turns))
	for i := range t.turns {
		ret[i] = cloneTurn(t.turns[i])
	}
	return ret
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Last returns the most recent turn with the given role.
func (t *Transcript) Last(role Role) (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return LastOf(t.turns, role)
}

// LastOf scans turns backward for the most recent turn with the given role.
func LastOf(turns []Turn, role Role) (Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == role {
			return cloneTurn(turns[i]), true
		}
	}
	return Turn{}, false
}

func cloneTurn(t Turn) Turn {
	if t.Metadata != nil {
		t.Metadata = clone.Clone(t.Metadata).(map[string]any)
	}
	return t
}
