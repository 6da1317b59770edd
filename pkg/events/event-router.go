package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/conciliate/pkg/helpers"
	"github.com/go-go-golems/conciliate/pkg/transcript"
)

// EventHandler receives decoded dialogue events from the router.
type EventHandler func(ctx context.Context, e Event) error

type EventRouter struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
	verbose    bool
	blocking   bool
}

type EventRouterOption func(*EventRouter)

func WithLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) {
		r.logger = logger
	}
}

func WithVerbose(verbose bool) EventRouterOption {
	return func(r *EventRouter) {
		r.verbose = verbose
		r.logger = helpers.NewWatermill(log.Logger)
	}
}

// WithBlockingPublish makes publishers wait until every subscriber acked.
// Off by default so that a slow renderer never stalls a dialogue round.
func WithBlockingPublish(blocking bool) EventRouterOption {
	return func(r *EventRouter) {
		r.blocking = blocking
	}
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{
		logger: watermill.NopLogger{},
	}

	for _, o := range options {
		o(ret)
	}

	goPubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: ret.blocking,
	}, ret.logger)
	ret.Publisher = goPubSub
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}

	ret.router = router

	return ret, nil
}

// Sink returns an EventSink publishing on the router's topic.
func (e *EventRouter) Sink(topic string) *WatermillSink {
	return NewWatermillSink(e.Publisher, topic)
}

func (e *EventRouter) Close() error {
	log.Debug().Msg("Closing publisher")
	err := e.Publisher.Close()
	if err != nil {
		log.Error().Err(err).Msg("Failed to close pubsub")
		// not returning just yet
	}
	log.Debug().Msg("Publisher closed")

	log.Debug().Msg("Closing router")
	err = e.router.Close()
	if err != nil {
		log.Error().Err(err).Msg("Failed to close router")
	}
	log.Debug().Msg("Router closed")

	return nil
}

func (e *EventRouter) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	e.router.AddNoPublisherHandler(name, topic, e.Subscriber, f)
}

// AddEventHandler registers a handler that receives decoded events. Messages
// that fail to decode are logged and acked so one bad payload does not wedge
// the subscription.
func (e *EventRouter) AddEventHandler(name string, topic string, h EventHandler) {
	e.AddHandler(name, topic, func(msg *message.Message) error {
		defer msg.Ack()

		ev, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.UUID).Msg("Failed to parse dialogue event")
			return nil
		}
		return h(msg.Context(), ev)
	})
}

// DumpRawEvents prints every message payload as indented JSON.
func (e *EventRouter) DumpRawEvents(w io.Writer) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		var s map[string]interface{}
		err := json.Unmarshal(msg.Payload, &s)
		if err != nil {
			return err
		}
		if !e.verbose {
			if meta, ok := s["meta"].(map[string]interface{}); ok {
				s["id"] = meta["message_id"]
			}
			delete(s, "meta")
		}
		s_, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(s_))
		return err
	}
}

// PrintEvents writes a one-line human readable rendering of each event.
func PrintEvents(w io.Writer) EventHandler {
	return func(ctx context.Context, e Event) error {
		line := Describe(e)
		if line == "" {
			return nil
		}
		_, err := fmt.Fprintln(w, line)
		return err
	}
}

// Describe renders an event for terminal output.
func Describe(e Event) string {
	round := e.Metadata().Round
	switch ev := e.(type) {
	case *EventTurn:
		d := transcript.Display(ev.Turn)
		switch ev.Type() {
		case EventTypeQuestion:
			return fmt.Sprintf("[%d] seeker: %s", round, d.Text)
		case EventTypeManual:
			return fmt.Sprintf("[%d] you: %s", round, d.Text)
		case EventTypeResponse:
			if d.Rating != "" {
				return fmt.Sprintf("[%d] responder: %s (rating %s/10)", round, d.Text, d.Rating)
			}
			return fmt.Sprintf("[%d] responder: %s", round, d.Text)
		case EventTypeQuestionDiscarded:
			return fmt.Sprintf("[%d] discarded question after stop: %s", round, d.Text)
		}
	case *EventFailed:
		return fmt.Sprintf("[%d] halted: %s failed: %s", round, ev.Phase, ev.Error)
	case *EventRejected:
		return fmt.Sprintf("[%d] rejected %s: %s", round, ev.Operation, ev.Reason)
	case *EventInfo:
		msg := strings.TrimSpace(ev.Message)
		if msg == "" {
			return fmt.Sprintf("[%d] %s", round, ev.Type())
		}
		return fmt.Sprintf("[%d] %s: %s", round, ev.Type(), msg)
	}
	return ""
}

func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) IsRunning() bool {
	return e.router.IsRunning()
}

func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}
