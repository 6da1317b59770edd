package termination

import (
	"testing"

	"github.com/go-go-golems/conciliate/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_Matches(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		content string
		want    bool
	}{
		{"STOP. Thank you for your time.", true},
		{"stop,9", true},
		{"  Stop", true},
		{"Question #21: Stop", true},
		{"Question #4: Yes", false},
		{"Yes, filed in 2023.", false},
		{"We should not STOP here", false},
		{"", false},
		{"ST", false},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Matches(tt.content))
		})
	}
}

func TestDetector_WithoutNumberingStrip(t *testing.T) {
	d := NewDetector(WithStripNumbering(false))
	assert.False(t, d.Matches("Question #21: Stop"))
	assert.True(t, d.Matches("STOP"))
}

func TestDetector_CustomAndEmptyMarker(t *testing.T) {
	d := NewDetector(WithMarker("done"))
	assert.True(t, d.Matches("DONE with questions"))
	assert.False(t, d.Matches("STOP"))

	d = NewDetector(WithMarker("  "))
	assert.False(t, d.Matches("anything"))
}

func TestDetector_IsTerminated(t *testing.T) {
	d := NewDetector()

	require.False(t, d.IsTerminated(nil))

	// seeker turns never terminate, even if they start with the marker
	turns := []transcript.Turn{
		transcript.NewSeekerTurn("STOP asking?", transcript.OriginHuman),
	}
	require.False(t, d.IsTerminated(turns))

	turns = append(turns, transcript.NewResponderTurn("No"))
	require.False(t, d.IsTerminated(turns))

	turns = append(turns,
		transcript.NewSeekerTurn("Is it new?", transcript.OriginAutomated),
		transcript.NewResponderTurn("STOP. Thank you for your time."),
	)
	require.True(t, d.IsTerminated(turns))

	// sticky: a trailing responder turn does not undo an earlier marker
	turns = append(turns, transcript.NewResponderTurn("Anything else?"))
	require.True(t, d.IsTerminated(turns))
}
