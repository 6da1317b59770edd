package cmds

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/conciliate/pkg/roles/scripted"
	"github.com/go-go-golems/conciliate/pkg/settings"
)

func fastSettings() *settings.Settings {
	s := settings.NewSettings()
	s.Dialogue.RoundDelay = time.Millisecond
	return s
}

func TestRunDialogueDryRun(t *testing.T) {
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := RunDialogue(ctx, &out, fastSettings(), SessionOptions{DryRun: true}, false, nil)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Welcome to the Dry Run session!")
	assert.Contains(t, s, "[1] seeker: Does the invention require an external power source?")
	assert.Contains(t, s, "[3] responder: Question #3: Stop")
	assert.Contains(t, s, "[3] terminated")
	assert.Contains(t, s, "terminated after 3 rounds")
}

func TestRunDialogueMaxRounds(t *testing.T) {
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := RunDialogue(ctx, &out, fastSettings(), SessionOptions{DryRun: true, MaxRounds: 1}, false, nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "stopped after 1 rounds")
}

func TestRunDialogueFailureIsReturned(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(script, []byte(`
questions: ["Is it metal?"]
answers: ["No"]
responder_fail_at: 2
`), 0o644))

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := RunDialogue(ctx, &out, fastSettings(), SessionOptions{DryRun: true, ScriptPath: script}, false, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, scripted.ErrInjected))
	assert.Contains(t, out.String(), "halted: responder failed")
	assert.Contains(t, out.String(), "failed after 2 rounds")
}

func TestNewSessionRequiresDocument(t *testing.T) {
	_, err := NewSession(settings.NewSettings(), SessionOptions{}, nil)
	require.Error(t, err)
}

func TestNewSessionLoadsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: Kettle\ndescription: hot\ncontent: body\n"), 0o644))

	sess, err := NewSession(settings.NewSettings(), SessionOptions{DocumentPath: path, DryRun: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", sess.Document.Title)
	require.Len(t, sess.Controller.Transcript(), 1)
}
