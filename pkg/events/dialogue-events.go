package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-go-golems/conciliate/pkg/transcript"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventTypeAutomationStarted EventType = "automation-started"
	EventTypeAutomationStopped EventType = "automation-stopped"
	EventTypeRoundStarted      EventType = "round-started"
	// A seeker question was appended to the transcript.
	EventTypeQuestion EventType = "question"
	// A question arrived after automation was stopped and was dropped.
	EventTypeQuestionDiscarded EventType = "question-discarded"
	EventTypeResponse          EventType = "response"
	// A human-originated seeker turn was appended.
	EventTypeManual     EventType = "manual"
	EventTypeTerminated EventType = "terminated"
	EventTypeFailed     EventType = "failed"
	EventTypeRejected   EventType = "rejected"
	EventTypeReset      EventType = "reset"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// EventMetadata correlates an event with its dialogue session and round.
type EventMetadata struct {
	ID        uuid.UUID `json:"message_id" yaml:"message_id"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Round     int       `json:"round" yaml:"round"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

func NewEventMetadata(sessionID string, round int) EventMetadata {
	return EventMetadata{
		ID:        uuid.New(),
		SessionID: sessionID,
		Round:     round,
		Timestamp: time.Now(),
	}
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.SessionID != "" {
		e.Str("session_id", em.SessionID)
	}
	e.Int("round", em.Round)
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// raw JSON when the event was decoded by NewEventFromJson
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

var _ Event = &EventImpl{}

// EventInfo covers lifecycle notifications that carry no transcript data:
// automation started/stopped, round started, terminated and reset.
type EventInfo struct {
	EventImpl
	Message string `json:"message,omitempty"`
}

func NewInfoEvent(t EventType, metadata EventMetadata, message string) *EventInfo {
	return &EventInfo{
		EventImpl: EventImpl{Type_: t, Metadata_: metadata},
		Message:   message,
	}
}

var _ Event = &EventInfo{}

// EventTurn carries a turn that was appended (question, response, manual) or
// dropped (question-discarded).
type EventTurn struct {
	EventImpl
	Turn transcript.Turn `json:"turn"`
}

func NewTurnEvent(t EventType, metadata EventMetadata, turn transcript.Turn) *EventTurn {
	return &EventTurn{
		EventImpl: EventImpl{Type_: t, Metadata_: metadata},
		Turn:      turn,
	}
}

var _ Event = &EventTurn{}

type EventFailed struct {
	EventImpl
	Phase string `json:"phase"`
	Error string `json:"error"`
}

func NewFailedEvent(metadata EventMetadata, phase string, err error) *EventFailed {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &EventFailed{
		EventImpl: EventImpl{Type_: EventTypeFailed, Metadata_: metadata},
		Phase:     phase,
		Error:     msg,
	}
}

var _ Event = &EventFailed{}

// EventRejected records a policy no-op, e.g. a manual send while automation
// is active.
type EventRejected struct {
	EventImpl
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

func NewRejectedEvent(metadata EventMetadata, operation, reason string) *EventRejected {
	return &EventRejected{
		EventImpl: EventImpl{Type_: EventTypeRejected, Metadata_: metadata},
		Operation: operation,
		Reason:    reason,
	}
}

var _ Event = &EventRejected{}

func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("empty event payload")
	}

	e.payload = b

	switch e.Type_ {
	case EventTypeQuestion, EventTypeQuestionDiscarded, EventTypeResponse, EventTypeManual:
		ret, ok := ToTypedEvent[EventTurn](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventTurn")
		}
		ret.payload = b
		return ret, nil
	case EventTypeFailed:
		ret, ok := ToTypedEvent[EventFailed](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventFailed")
		}
		ret.payload = b
		return ret, nil
	case EventTypeRejected:
		ret, ok := ToTypedEvent[EventRejected](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventRejected")
		}
		ret.payload = b
		return ret, nil
	case EventTypeAutomationStarted,
		EventTypeAutomationStopped,
		EventTypeRoundStarted,
		EventTypeTerminated,
		EventTypeReset:
		ret, ok := ToTypedEvent[EventInfo](e)
		if !ok {
			return nil, fmt.Errorf("could not cast event to EventInfo")
		}
		ret.payload = b
		return ret, nil
	}

	return nil, fmt.Errorf("unknown event type: %s", e.Type_)
}

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil || ret == nil {
		return nil, false
	}

	return ret, true
}
