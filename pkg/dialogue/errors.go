package dialogue

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNilSeeker         = errors.New("dialogue: seeker is nil")
	ErrNilResponder      = errors.New("dialogue: responder is nil")
	ErrEmptyQuestion     = errors.New("seeker returned an empty question")
	ErrEmptyResponse     = errors.New("responder returned no turns")
	ErrMalformedResponse = errors.New("responder returned a malformed turn")
)

// Phase names the remote call a failure came from.
type Phase string

const (
	PhaseSeeker    Phase = "seeker"
	PhaseResponder Phase = "responder"
)

// RoundError is the terminal failure of a round. Transport errors, timeouts
// and protocol violations all surface as a RoundError.
type RoundError struct {
	Phase Phase
	Round int
	Err   error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("round %d: %s: %v", e.Round, e.Phase, e.Err)
}

func (e *RoundError) Unwrap() error {
	return e.Err
}

func (e *RoundError) Cause() error {
	return e.Err
}
