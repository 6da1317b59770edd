package dialogue

import (
	"context"

	"github.com/go-go-golems/conciliate/pkg/transcript"
)

// Seeker produces the next question given the transcript so far.
// Implementations must not retain or mutate the slice.
type Seeker interface {
	AskSeeker(ctx context.Context, turns []transcript.Turn) (string, error)
}

// Responder answers the latest question. It may return several turns.
// Implementations must not retain or mutate the slice.
type Responder interface {
	AskResponder(ctx context.Context, turns []transcript.Turn) ([]transcript.Turn, error)
}

type SeekerFunc func(ctx context.Context, turns []transcript.Turn) (string, error)

func (f SeekerFunc) AskSeeker(ctx context.Context, turns []transcript.Turn) (string, error) {
	return f(ctx, turns)
}

type ResponderFunc func(ctx context.Context, turns []transcript.Turn) ([]transcript.Turn, error)

func (f ResponderFunc) AskResponder(ctx context.Context, turns []transcript.Turn) ([]transcript.Turn, error) {
	return f(ctx, turns)
}
