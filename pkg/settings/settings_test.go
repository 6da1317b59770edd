package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultRoundDelay, s.Dialogue.RoundDelay)
	assert.Equal(t, DefaultCallTimeout, s.Dialogue.CallTimeout)
	assert.Equal(t, "STOP", s.Dialogue.TerminationMarker)
	assert.True(t, s.Dialogue.StripNumbering)
	assert.Equal(t, DefaultModel, s.Seeker.Model)
	assert.Equal(t, DefaultModel, s.Responder.Model)
	assert.Equal(t, []string{"localhost:*"}, s.Server.AllowedOrigins)
}

func TestLoadFile_Overrides(t *testing.T) {
	p := writeConfig(t, `
dialogue:
  round_delay: 250ms
  call_timeout: 5s
  termination_marker: DONE
client:
  api_key: sk-test-1234
  requests_per_minute: 30
seeker:
  model: seeker-model
  temperature: 0.2
responder:
  model: responder-model
  max_tokens: 64
  degraded: true
server:
  addr: ":9090"
  allowed_origins: ["example.com", "*.example.org"]
document: doc.yaml
`)
	s, err := LoadFile(p)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, s.Dialogue.RoundDelay)
	assert.Equal(t, 5*time.Second, s.Dialogue.CallTimeout)
	assert.Equal(t, "DONE", s.Dialogue.TerminationMarker)
	assert.Equal(t, "sk-test-1234", s.Client.APIKey)
	assert.Equal(t, 30.0, s.Client.RequestsPerMinute)
	assert.Equal(t, "seeker-model", s.Seeker.Model)
	require.NotNil(t, s.Seeker.Temperature)
	assert.Equal(t, 0.2, *s.Seeker.Temperature)
	assert.Equal(t, "responder-model", s.Responder.Model)
	require.NotNil(t, s.Responder.MaxTokens)
	assert.Equal(t, 64, *s.Responder.MaxTokens)
	assert.True(t, s.Responder.Degraded)
	assert.Equal(t, ":9090", s.Server.Addr)
	assert.Equal(t, []string{"example.com", "*.example.org"}, s.Server.AllowedOrigins)
	assert.Equal(t, "doc.yaml", s.Document)
}

func TestValidate(t *testing.T) {
	s := NewSettings()
	require.NoError(t, s.Validate())

	bad := s.Clone()
	bad.Dialogue.RoundDelay = -time.Second
	require.Error(t, bad.Validate())

	bad = s.Clone()
	bad.Dialogue.TerminationMarker = "  "
	require.Error(t, bad.Validate())

	bad = s.Clone()
	bad.Seeker.Model = ""
	require.Error(t, bad.Validate())

	bad = s.Clone()
	bad.Server = nil
	require.Error(t, bad.Validate())

	// clones are independent
	require.Equal(t, DefaultRoundDelay, s.Dialogue.RoundDelay)
	require.NotNil(t, s.Server)
}

func TestRedactedAndYAML(t *testing.T) {
	s := NewSettings()
	s.Client.APIKey = "sk-abcdefgh"

	r := s.Redacted()
	assert.Equal(t, "****efgh", r.Client.APIKey)
	assert.Equal(t, "sk-abcdefgh", s.Client.APIKey)

	b, err := r.ToYAML()
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "round_delay: 1.5s")
	assert.Contains(t, out, "timeout: 1m0s")
	assert.Contains(t, out, "****efgh")
	assert.NotContains(t, out, "sk-abcdefgh")
}
