package events

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// TopicDialogue is the default topic dialogue events are published on.
const TopicDialogue = "dialogue"

// EventSink receives dialogue events from the controller.
type EventSink interface {
	// PublishEvent publishes an event to the sink.
	// Returns an error if the event could not be published.
	PublishEvent(event Event) error
}

// NullSink discards all events.
type NullSink struct{}

func (NullSink) PublishEvent(Event) error {
	return nil
}

var _ EventSink = NullSink{}

// WatermillSink publishes events to a watermill Publisher.
// The event is serialized to JSON and sent as a watermill message, so any
// number of subscribers on the topic can follow the dialogue.
type WatermillSink struct {
	publisher message.Publisher
	topic     string

	mu             sync.Mutex
	sequenceNumber uint64
}

func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	return &WatermillSink{
		publisher: publisher,
		topic:     topic,
	}
}

func (w *WatermillSink) PublishEvent(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event to JSON")
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("sequence_number", strconv.FormatUint(w.sequenceNumber, 10))
	msg.Metadata.Set("event_type", string(event.Type()))
	w.sequenceNumber++

	err = w.publisher.Publish(w.topic, msg)
	if err != nil {
		log.Error().Err(err).Str("topic", w.topic).Msg("Failed to publish event to watermill")
		return err
	}

	log.Trace().Str("topic", w.topic).Str("event_type", string(event.Type())).Msg("Published event to watermill")
	return nil
}

var _ EventSink = (*WatermillSink)(nil)

// ChannelSink forwards events to a Go channel. Used by tests and by hosts
// that want events without a message bus. Publishing never blocks: when the
// buffer is full the event is dropped and logged.
type ChannelSink struct {
	C chan Event
}

func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{C: make(chan Event, size)}
}

func (c *ChannelSink) PublishEvent(event Event) error {
	select {
	case c.C <- event:
	default:
		log.Warn().Str("event_type", string(event.Type())).Msg("channel sink full, dropping event")
	}
	return nil
}

var _ EventSink = (*ChannelSink)(nil)
