package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-go-golems/conciliate/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventFromJson_TurnEvent(t *testing.T) {
	meta := NewEventMetadata("sess-1", 3)
	in := NewTurnEvent(EventTypeResponse, meta, transcript.NewResponderTurn("Yes,7"))

	b, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := NewEventFromJson(b)
	require.NoError(t, err)
	require.Equal(t, EventTypeResponse, out.Type())
	require.Equal(t, "sess-1", out.Metadata().SessionID)
	require.Equal(t, 3, out.Metadata().Round)
	require.Equal(t, b, out.Payload())

	ev, ok := out.(*EventTurn)
	require.True(t, ok)
	require.Equal(t, "Yes,7", ev.Turn.Content)
	require.Equal(t, transcript.RoleResponder, ev.Turn.Role)
}

func TestNewEventFromJson_FailedAndRejected(t *testing.T) {
	b, err := json.Marshal(NewFailedEvent(NewEventMetadata("s", 1), "seeker", errors.New("boom")))
	require.NoError(t, err)
	out, err := NewEventFromJson(b)
	require.NoError(t, err)
	failed, ok := out.(*EventFailed)
	require.True(t, ok)
	assert.Equal(t, "seeker", failed.Phase)
	assert.Equal(t, "boom", failed.Error)

	b, err = json.Marshal(NewRejectedEvent(NewEventMetadata("s", 1), "manual", "automation active"))
	require.NoError(t, err)
	out, err = NewEventFromJson(b)
	require.NoError(t, err)
	rejected, ok := out.(*EventRejected)
	require.True(t, ok)
	assert.Equal(t, "manual", rejected.Operation)
}

func TestNewEventFromJson_Unknown(t *testing.T) {
	_, err := NewEventFromJson([]byte(`{"type":"nope","meta":{}}`))
	require.Error(t, err)

	_, err = NewEventFromJson([]byte(`not json`))
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	meta := NewEventMetadata("s", 2)
	assert.Equal(t, "[2] seeker: Is it new?",
		Describe(NewTurnEvent(EventTypeQuestion, meta, transcript.NewSeekerTurn("Is it new?", transcript.OriginAutomated))))
	assert.Equal(t, "[2] responder: Yes (rating 8/10)",
		Describe(NewTurnEvent(EventTypeResponse, meta, transcript.NewResponderTurn("Yes,8"))))
	assert.Equal(t, "[2] halted: responder failed: timeout",
		Describe(NewFailedEvent(meta, "responder", errors.New("timeout"))))
	assert.Equal(t, "[2] terminated",
		Describe(NewInfoEvent(EventTypeTerminated, meta, "")))
}

func TestChannelSink_DropsWhenFull(t *testing.T) {
	s := NewChannelSink(1)
	require.NoError(t, s.PublishEvent(NewInfoEvent(EventTypeReset, NewEventMetadata("s", 0), "")))
	require.NoError(t, s.PublishEvent(NewInfoEvent(EventTypeReset, NewEventMetadata("s", 0), "")))
	require.Len(t, s.C, 1)
}

func TestEventRouter_DeliversToHandlers(t *testing.T) {
	router, err := NewEventRouter()
	require.NoError(t, err)

	received := make(chan Event, 4)
	router.AddEventHandler("collect", TopicDialogue, func(ctx context.Context, e Event) error {
		received <- e
		return nil
	})
	var buf bytes.Buffer
	router.AddEventHandler("print", TopicDialogue, PrintEvents(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	sink := router.Sink(TopicDialogue)
	require.NoError(t, sink.PublishEvent(NewTurnEvent(EventTypeQuestion, NewEventMetadata("s", 1),
		transcript.NewSeekerTurn("Is this patented?", transcript.OriginAutomated))))

	select {
	case e := <-received:
		require.Equal(t, EventTypeQuestion, e.Type())
		ev, ok := e.(*EventTurn)
		require.True(t, ok)
		require.Equal(t, "Is this patented?", ev.Turn.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	require.NoError(t, router.Close())
}
