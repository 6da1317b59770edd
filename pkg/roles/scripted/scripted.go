// Package scripted provides canned seeker and responder roles for dry runs
// and tests. Both roles hand out their lines round-robin.
package scripted

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/conciliate/pkg/dialogue"
	"github.com/go-go-golems/conciliate/pkg/transcript"
)

var ErrInjected = errors.New("scripted failure")

type Script struct {
	Questions []string `yaml:"questions"`
	Answers   []string `yaml:"answers"`
	// Latency is added to every call, honouring context cancellation.
	Latency time.Duration `yaml:"latency,omitempty"`
	// SeekerFailAt and ResponderFailAt make the n-th call (1-based) fail.
	SeekerFailAt    int `yaml:"seeker_fail_at,omitempty"`
	ResponderFailAt int `yaml:"responder_fail_at,omitempty"`
}

// DefaultScript asks three questions and stops on the third answer.
func DefaultScript() *Script {
	return &Script{
		Questions: []string{
			"Does the invention require an external power source?",
			"Is it intended for household use?",
			"Is it a kitchen appliance that heats water?",
		},
		Answers: []string{
			"Question #1: No",
			"Question #2: Yes",
			"Question #3: Stop",
		},
	}
}

func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read script %s", path)
	}
	s := &Script{}
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, errors.Wrapf(err, "could not parse script %s", path)
	}
	if len(s.Questions) == 0 || len(s.Answers) == 0 {
		return nil, errors.Errorf("script %s needs at least one question and one answer", path)
	}
	return s, nil
}

type Seeker struct {
	script *Script
	mu     sync.Mutex
	index  int
	calls  int
}

var _ dialogue.Seeker = (*Seeker)(nil)

func NewSeeker(script *Script) *Seeker {
	return &Seeker{script: script}
}

func (s *Seeker) AskSeeker(ctx context.Context, _ []transcript.Turn) (string, error) {
	if err := wait(ctx, s.script.Latency); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.script.SeekerFailAt > 0 && s.calls == s.script.SeekerFailAt {
		return "", ErrInjected
	}
	if len(s.script.Questions) == 0 {
		return "", nil
	}
	q := s.script.Questions[s.index]
	s.index = (s.index + 1) % len(s.script.Questions)
	return q, nil
}

// Calls returns how many times the seeker was asked.
func (s *Seeker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type Responder struct {
	script *Script
	mu     sync.Mutex
	index  int
	calls  int
}

var _ dialogue.Responder = (*Responder)(nil)

func NewResponder(script *Script) *Responder {
	return &Responder{script: script}
}

func (r *Responder) AskResponder(ctx context.Context, _ []transcript.Turn) ([]transcript.Turn, error) {
	if err := wait(ctx, r.script.Latency); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.script.ResponderFailAt > 0 && r.calls == r.script.ResponderFailAt {
		return nil, ErrInjected
	}
	if len(r.script.Answers) == 0 {
		return nil, nil
	}
	a := r.script.Answers[r.index]
	r.index = (r.index + 1) % len(r.script.Answers)

	turn := transcript.NewResponderTurn(a)
	turn.Metadata = map[string]any{transcript.MetaModel: "scripted"}
	return []transcript.Turn{turn}, nil
}

func (r *Responder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
