package openai

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/conciliate/pkg/dialogue"
	"github.com/go-go-golems/conciliate/pkg/document"
	"github.com/go-go-golems/conciliate/pkg/settings"
	"github.com/go-go-golems/conciliate/pkg/transcript"
)

// ErrSeekerCompleted is returned once the responder has announced that the
// question limit is reached ("None,N").
var ErrSeekerCompleted = errors.New("seeker: session completed")

// Seeker asks the next question. It only ever sees the document title and
// description, never the content.
type Seeker struct {
	client   *Client
	settings *settings.RoleSettings
	doc      *document.Document
}

var _ dialogue.Seeker = (*Seeker)(nil)

func NewSeeker(client *Client, s *settings.RoleSettings, doc *document.Document) *Seeker {
	return &Seeker{client: client, settings: s, doc: doc}
}

func (s *Seeker) AskSeeker(ctx context.Context, turns []transcript.Turn) (string, error) {
	for _, t := range turns {
		if t.Role == transcript.RoleResponder && transcript.IsQuestionLimit(t.Content) {
			return "", ErrSeekerCompleted
		}
	}

	prompt, err := renderSeekerPrompt(s.doc.Title, s.doc.Description, turns)
	if err != nil {
		return "", errors.Wrap(err, "could not render seeker prompt")
	}

	c, err := s.client.complete(ctx, s.settings, []go_openai.ChatCompletionMessage{
		{Role: go_openai.ChatMessageRoleSystem, Content: prompt},
	})
	if err != nil {
		return "", err
	}
	// an empty question is rejected by the controller
	return c.Content, nil
}

// Responder answers questions with full knowledge of the document.
type Responder struct {
	client   *Client
	settings *settings.ResponderSettings
	doc      *document.Document

	mu  sync.Mutex
	rng *rand.Rand
}

var _ dialogue.Responder = (*Responder)(nil)

type ResponderOption func(*Responder)

// WithRand sets the random source used in degraded mode.
func WithRand(rng *rand.Rand) ResponderOption {
	return func(r *Responder) {
		r.rng = rng
	}
}

func NewResponder(client *Client, s *settings.ResponderSettings, doc *document.Document, options ...ResponderOption) *Responder {
	ret := &Responder{
		client:   client,
		settings: s,
		doc:      doc,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

func (r *Responder) AskResponder(ctx context.Context, turns []transcript.Turn) ([]transcript.Turn, error) {
	content := r.doc.Content
	if r.settings.Degraded {
		r.mu.Lock()
		content = Degrade(content, r.rng)
		r.mu.Unlock()
	}

	messages := []go_openai.ChatCompletionMessage{
		{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: renderResponderPrompt(r.doc.Title, r.doc.Description, content),
		},
	}
	for _, t := range turns {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    chatRole(t.Role),
			Content: t.Content,
		})
	}

	c, err := r.client.complete(ctx, &r.settings.RoleSettings, messages)
	if err != nil {
		return nil, err
	}

	turn := transcript.NewResponderTurn(c.Content)
	turn.Metadata = map[string]any{
		transcript.MetaModel:      c.Model,
		transcript.MetaDurationMs: c.Duration.Milliseconds(),
	}
	return []transcript.Turn{turn}, nil
}

func chatRole(r transcript.Role) string {
	switch r {
	case transcript.RoleSeeker:
		return go_openai.ChatMessageRoleUser
	case transcript.RoleResponder:
		return go_openai.ChatMessageRoleAssistant
	default:
		return go_openai.ChatMessageRoleSystem
	}
}
