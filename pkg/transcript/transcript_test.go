package transcript

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_AppendAssignsIndexAndID(t *testing.T) {
	tr := New()
	a := tr.Append(NewSeekerTurn("Is this patented?", OriginAutomated))
	b := tr.Append(NewResponderTurn("Yes, filed in 2023."))

	require.Equal(t, 0, a.Index)
	require.Equal(t, 1, b.Index)
	require.NotEmpty(t, a.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.False(t, a.CreatedAt.IsZero())
	require.Equal(t, 2, tr.Len())
}

func TestTranscript_SeedTurns(t *testing.T) {
	tr := New(NewResponderTurn("Welcome"), NewSystemTurn("note"))
	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, RoleResponder, snap[0].Role)
	assert.Equal(t, RoleSystem, snap[1].Role)
}

func TestTranscript_SnapshotIsIsolated(t *testing.T) {
	tr := New()
	turn := NewResponderTurn("Yes")
	turn.Metadata = map[string]any{MetaModel: "m1"}
	tr.Append(turn)

	// caller mutation of the appended value must not leak in
	turn.Metadata[MetaModel] = "changed"

	snap := tr.Snapshot()
	require.Equal(t, "m1", snap[0].Metadata[MetaModel])

	snap[0].Content = "No"
	snap[0].Metadata[MetaModel] = "changed"
	again := tr.Snapshot()
	require.Equal(t, "Yes", again[0].Content)
	require.Equal(t, "m1", again[0].Metadata[MetaModel])
}

func TestTranscript_Last(t *testing.T) {
	tr := New()
	_, ok := tr.Last(RoleResponder)
	require.False(t, ok)

	tr.Append(NewResponderTurn("first"))
	tr.Append(NewSeekerTurn("q", OriginHuman))
	tr.Append(NewResponderTurn("second"))
	tr.Append(NewSeekerTurn("q2", OriginHuman))

	last, ok := tr.Last(RoleResponder)
	require.True(t, ok)
	require.Equal(t, "second", last.Content)
}

func TestTranscript_ConcurrentReadersDuringAppends(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			tr.Append(NewSeekerTurn("q", OriginAutomated))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			snap := tr.Snapshot()
			for j := range snap {
				assert.Equal(t, j, snap[j].Index)
			}
		}
	}()
	wg.Wait()
	require.Equal(t, 200, tr.Len())
}

func TestExchanges(t *testing.T) {
	turns := []Turn{
		NewResponderTurn("Welcome to the session!"),
		NewSeekerTurn("Is it a device?", OriginAutomated),
		NewResponderTurn("Question #1: Yes"),
		NewSystemTurn("ignored"),
		NewSeekerTurn("Is it software?", OriginHuman),
		NewResponderTurn("Question #2: no"),
		NewSeekerTurn("dangling", OriginAutomated),
	}

	got := Exchanges(turns)
	require.Equal(t, []Exchange{
		{Question: "", Answer: "Welcome to the session!"},
		{Question: "Is it a device?", Answer: "Yes"},
		{Question: "Is it software?", Answer: "no"},
	}, got)
}

func TestStripNumbering(t *testing.T) {
	assert.Equal(t, "Stop", StripNumbering("Question #21: Stop"))
	assert.Equal(t, "Yes", StripNumbering("  question #3:Yes"))
	assert.Equal(t, "plain text", StripNumbering("plain text"))
}

func TestDisplay(t *testing.T) {
	d := Display(NewResponderTurn("Yes,7"))
	assert.Equal(t, DisplayVerdict, d.Kind)
	assert.Equal(t, "Yes", d.Answer)
	assert.Equal(t, "7", d.Rating)

	d = Display(NewResponderTurn("stop,9"))
	assert.Equal(t, DisplayClosing, d.Kind)
	assert.Equal(t, ClosingText, d.Text)
	assert.Equal(t, "9", d.Rating)

	d = Display(NewResponderTurn("None,20"))
	assert.Equal(t, DisplayLimit, d.Kind)
	assert.Equal(t, LimitText, d.Text)
	assert.True(t, IsQuestionLimit("none,"))

	d = Display(NewSeekerTurn("Yes,7", OriginHuman))
	assert.Equal(t, DisplayPlain, d.Kind)
	assert.Equal(t, "Yes,7", d.Text)

	d = Display(NewResponderTurn("Yes, filed in 2023."))
	assert.Equal(t, DisplayPlain, d.Kind)
}
