package settings

import (
	"strings"
	"time"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel             = "gpt-4o-mini"
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultRoundDelay        = 1500 * time.Millisecond
	DefaultCallTimeout       = 60 * time.Second
	DefaultClientTimeout     = 60 * time.Second
	DefaultTerminationMarker = "STOP"
	DefaultServerAddr        = ":8080"
)

type Settings struct {
	Dialogue  *DialogueSettings  `yaml:"dialogue" mapstructure:"dialogue"`
	Client    *ClientSettings    `yaml:"client" mapstructure:"client"`
	Seeker    *RoleSettings      `yaml:"seeker" mapstructure:"seeker"`
	Responder *ResponderSettings `yaml:"responder" mapstructure:"responder"`
	Server    *ServerSettings    `yaml:"server" mapstructure:"server"`
	// Document is the path of the YAML file describing the document under discussion.
	Document string `yaml:"document,omitempty" mapstructure:"document"`
}

type DialogueSettings struct {
	RoundDelay        time.Duration `yaml:"round_delay" mapstructure:"round_delay"`
	CallTimeout       time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	TerminationMarker string        `yaml:"termination_marker" mapstructure:"termination_marker"`
	StripNumbering    bool          `yaml:"strip_numbering" mapstructure:"strip_numbering"`
}

type ClientSettings struct {
	APIKey       string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	Organization string        `yaml:"organization,omitempty" mapstructure:"organization"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// RequestsPerMinute paces calls to the API; 0 disables pacing.
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// AllowInsecureBaseURL permits http and local network endpoints.
	AllowInsecureBaseURL bool `yaml:"allow_insecure_base_url" mapstructure:"allow_insecure_base_url"`
}

type RoleSettings struct {
	Model       string   `yaml:"model" mapstructure:"model"`
	Temperature *float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

type ResponderSettings struct {
	RoleSettings `yaml:",inline" mapstructure:",squash"`
	// Degraded perturbs numbers in the document before it is sent to the model.
	Degraded bool `yaml:"degraded" mapstructure:"degraded"`
}

type ServerSettings struct {
	Addr              string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins    []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int      `yaml:"burst" mapstructure:"burst"`
}

func NewSettings() *Settings {
	return &Settings{
		Dialogue: &DialogueSettings{
			RoundDelay:        DefaultRoundDelay,
			CallTimeout:       DefaultCallTimeout,
			TerminationMarker: DefaultTerminationMarker,
			StripNumbering:    true,
		},
		Client: &ClientSettings{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultClientTimeout,
		},
		Seeker: &RoleSettings{Model: DefaultModel},
		Responder: &ResponderSettings{
			RoleSettings: RoleSettings{Model: DefaultModel},
		},
		Server: &ServerSettings{
			Addr:              DefaultServerAddr,
			AllowedOrigins:    []string{"localhost:*"},
			RequestsPerSecond: 5,
			Burst:             10,
		},
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// SetDefaults registers every default with viper so that config files and
// environment variables only need to override what they change.
func SetDefaults(v *viper.Viper) {
	d := NewSettings()
	v.SetDefault("dialogue.round_delay", d.Dialogue.RoundDelay)
	v.SetDefault("dialogue.call_timeout", d.Dialogue.CallTimeout)
	v.SetDefault("dialogue.termination_marker", d.Dialogue.TerminationMarker)
	v.SetDefault("dialogue.strip_numbering", d.Dialogue.StripNumbering)
	v.SetDefault("client.api_key", "")
	v.SetDefault("client.organization", "")
	v.SetDefault("client.base_url", d.Client.BaseURL)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("client.requests_per_minute", d.Client.RequestsPerMinute)
	v.SetDefault("client.allow_insecure_base_url", false)
	v.SetDefault("seeker.model", d.Seeker.Model)
	v.SetDefault("responder.model", d.Responder.Model)
	v.SetDefault("responder.degraded", false)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.requests_per_second", d.Server.RequestsPerSecond)
	v.SetDefault("server.burst", d.Server.Burst)
	v.SetDefault("document", "")
}

// Load decodes the settings held by v on top of the defaults.
func Load(v *viper.Viper) (*Settings, error) {
	s := NewSettings()
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	// an empty "api_key" in a config file should not hide OPENAI_API_KEY
	if s.Client.APIKey == "" {
		s.Client.APIKey = v.GetString("openai-api-key")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads a single YAML config file.
func LoadFile(path string) (*Settings, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "could not read config %s", path)
	}
	return Load(v)
}

func (s *Settings) Validate() error {
	if s.Dialogue == nil || s.Client == nil || s.Seeker == nil || s.Responder == nil || s.Server == nil {
		return errors.New("settings: missing section")
	}
	if s.Dialogue.RoundDelay < 0 {
		return errors.Errorf("dialogue.round_delay must not be negative, got %s", s.Dialogue.RoundDelay)
	}
	if s.Dialogue.CallTimeout < 0 {
		return errors.Errorf("dialogue.call_timeout must not be negative, got %s", s.Dialogue.CallTimeout)
	}
	if strings.TrimSpace(s.Dialogue.TerminationMarker) == "" {
		return errors.New("dialogue.termination_marker must not be empty")
	}
	if s.Client.RequestsPerMinute < 0 {
		return errors.New("client.requests_per_minute must not be negative")
	}
	if s.Seeker.Model == "" || s.Responder.Model == "" {
		return errors.New("seeker.model and responder.model are required")
	}
	if s.Server.RequestsPerSecond < 0 || s.Server.Burst < 0 {
		return errors.New("server rate limits must not be negative")
	}
	return nil
}

// Redacted returns a copy that is safe to print.
func (s *Settings) Redacted() *Settings {
	ret := s.Clone()
	if ret.Client != nil && ret.Client.APIKey != "" {
		key := ret.Client.APIKey
		if len(key) > 4 {
			ret.Client.APIKey = "****" + key[len(key)-4:]
		} else {
			ret.Client.APIKey = "****"
		}
	}
	return ret
}

// MarshalYAML renders durations as strings ("1.5s") instead of nanoseconds.
func (d *DialogueSettings) MarshalYAML() (interface{}, error) {
	return struct {
		RoundDelay        string `yaml:"round_delay"`
		CallTimeout       string `yaml:"call_timeout"`
		TerminationMarker string `yaml:"termination_marker"`
		StripNumbering    bool   `yaml:"strip_numbering"`
	}{
		RoundDelay:        d.RoundDelay.String(),
		CallTimeout:       d.CallTimeout.String(),
		TerminationMarker: d.TerminationMarker,
		StripNumbering:    d.StripNumbering,
	}, nil
}

func (c *ClientSettings) MarshalYAML() (interface{}, error) {
	return struct {
		APIKey            string  `yaml:"api_key,omitempty"`
		BaseURL           string  `yaml:"base_url"`
		Organization      string  `yaml:"organization,omitempty"`
		Timeout           string  `yaml:"timeout"`
		RequestsPerMinute float64 `yaml:"requests_per_minute"`
		AllowInsecure     bool    `yaml:"allow_insecure_base_url"`
	}{
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		Organization:      c.Organization,
		Timeout:           c.Timeout.String(),
		RequestsPerMinute: c.RequestsPerMinute,
		AllowInsecure:     c.AllowInsecureBaseURL,
	}, nil
}

func (s *Settings) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}
