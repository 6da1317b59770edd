package cmds

import (
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/go-go-golems/conciliate/pkg/dialogue"
	"github.com/go-go-golems/conciliate/pkg/document"
	"github.com/go-go-golems/conciliate/pkg/events"
	"github.com/go-go-golems/conciliate/pkg/metrics"
	"github.com/go-go-golems/conciliate/pkg/roles/openai"
	"github.com/go-go-golems/conciliate/pkg/roles/scripted"
	"github.com/go-go-golems/conciliate/pkg/settings"
	"github.com/go-go-golems/conciliate/pkg/termination"
	"github.com/go-go-golems/conciliate/pkg/transcript"
)

// SessionOptions are the command line flags shared by every host.
type SessionOptions struct {
	DocumentPath string `glazed.parameter:"document"`
	ScriptPath   string `glazed.parameter:"script"`
	DryRun       bool   `glazed.parameter:"dry-run"`
	MaxRounds    int    `glazed.parameter:"max-rounds"`
}

// SessionFlags declares the SessionOptions flags of the run, serve and chat
// commands.
func SessionFlags() []*parameters.ParameterDefinition {
	return []*parameters.ParameterDefinition{
		parameters.NewParameterDefinition("document",
			parameters.ParameterTypeString,
			parameters.WithDefault(""),
			parameters.WithHelp("Document YAML (title, description, content)"),
		),
		parameters.NewParameterDefinition("dry-run",
			parameters.ParameterTypeBool,
			parameters.WithDefault(false),
			parameters.WithHelp("Use scripted roles instead of the OpenAI API"),
		),
		parameters.NewParameterDefinition("script",
			parameters.ParameterTypeString,
			parameters.WithDefault(""),
			parameters.WithHelp("Script YAML for --dry-run (default: built-in script)"),
		),
		parameters.NewParameterDefinition("max-rounds",
			parameters.ParameterTypeInteger,
			parameters.WithDefault(0),
			parameters.WithHelp("Stop automation after this many rounds (0: no limit)"),
		),
	}
}

func DecodeSessionOptions(parsedLayers *layers.ParsedLayers) (SessionOptions, error) {
	ret := SessionOptions{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, &ret); err != nil {
		return ret, errors.Wrap(err, "failed to initialize session options")
	}
	if ret.MaxRounds < 0 {
		return ret, errors.Errorf("--max-rounds must not be negative, got %d", ret.MaxRounds)
	}
	return ret, nil
}

// Session bundles a controller with what it was built from.
type Session struct {
	Settings   *settings.Settings
	Document   *document.Document
	Controller *dialogue.Controller
	Metrics    *metrics.Collector
}

// Seed returns the opening turns of a fresh session.
func (s *Session) Seed() []transcript.Turn {
	return []transcript.Turn{s.Document.Greeting()}
}

func LoadSettings() (*settings.Settings, error) {
	return settings.Load(viper.GetViper())
}

var dryRunDocument = &document.Document{
	Title:       "Dry Run",
	Description: "A placeholder invention used for scripted sessions.",
	Content:     "Nothing to see here.",
}

func NewSession(s *settings.Settings, opts SessionOptions, sink events.EventSink) (*Session, error) {
	doc, err := loadDocument(s, opts)
	if err != nil {
		return nil, err
	}

	seeker, responder, err := buildRoles(s, opts, doc)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	detector := termination.NewDetector(
		termination.WithMarker(s.Dialogue.TerminationMarker),
		termination.WithStripNumbering(s.Dialogue.StripNumbering),
	)

	ret := &Session{Settings: s, Document: doc, Metrics: collector}
	ctrl, err := dialogue.NewController(seeker, responder,
		dialogue.WithDetector(detector),
		dialogue.WithEventSink(sink),
		dialogue.WithMetrics(collector),
		dialogue.WithRoundDelay(s.Dialogue.RoundDelay),
		dialogue.WithCallTimeout(s.Dialogue.CallTimeout),
		dialogue.WithMaxRounds(opts.MaxRounds),
		dialogue.WithSeed(ret.Seed()...),
	)
	if err != nil {
		return nil, err
	}
	ret.Controller = ctrl

	log.Debug().
		Str("session_id", ctrl.SessionID()).
		Str("document", doc.Title).
		Bool("dry_run", opts.DryRun).
		Msg("session created")
	return ret, nil
}

func loadDocument(s *settings.Settings, opts SessionOptions) (*document.Document, error) {
	path := opts.DocumentPath
	if path == "" {
		path = s.Document
	}
	if path == "" {
		if opts.DryRun {
			return dryRunDocument, nil
		}
		return nil, errors.New("no document given (use --document or set document in the config)")
	}
	return document.Load(path)
}

func buildRoles(s *settings.Settings, opts SessionOptions, doc *document.Document) (dialogue.Seeker, dialogue.Responder, error) {
	if opts.DryRun {
		script := scripted.DefaultScript()
		if opts.ScriptPath != "" {
			var err error
			script, err = scripted.LoadScript(opts.ScriptPath)
			if err != nil {
				return nil, nil, err
			}
		}
		return scripted.NewSeeker(script), scripted.NewResponder(script), nil
	}

	client, err := openai.MakeClient(s.Client)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not create openai client")
	}
	return openai.NewSeeker(client, s.Seeker, doc), openai.NewResponder(client, s.Responder, doc), nil
}
