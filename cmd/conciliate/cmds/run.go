package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/conciliate/pkg/events"
	"github.com/go-go-golems/conciliate/pkg/settings"
)

type RunCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*RunCommand)(nil)

type RunSettings struct {
	PrintRawEvents bool `glazed.parameter:"print-raw-events"`
}

func NewRunCommand() (*RunCommand, error) {
	flags := append(SessionFlags(),
		parameters.NewParameterDefinition("print-raw-events",
			parameters.ParameterTypeBool,
			parameters.WithDefault(false),
			parameters.WithHelp("Print events as JSON"),
		),
	)
	description := cmds.NewCommandDescription(
		"run",
		cmds.WithShort("Run an automated dialogue until the responder ends it"),
		cmds.WithLong("Starts automation on a fresh session and prints every dialogue event.\n"+
			"Ctrl-C stops automation and waits for the round in flight; a second Ctrl-C aborts it."),
		cmds.WithFlags(flags...),
	)
	return &RunCommand{CommandDescription: description}, nil
}

func (c *RunCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	opts, err := DecodeSessionOptions(parsedLayers)
	if err != nil {
		return err
	}
	rs := &RunSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, rs); err != nil {
		return errors.Wrap(err, "failed to initialize run settings")
	}
	s, err := LoadSettings()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	return RunDialogue(ctx, os.Stdout, s, opts, rs.PrintRawEvents, interrupts)
}

// RunDialogue runs automation to completion, printing events to w. The first
// value on interrupts stops automation, the second cancels the round in flight.
func RunDialogue(
	ctx context.Context,
	w io.Writer,
	s *settings.Settings,
	opts SessionOptions,
	printRaw bool,
	interrupts <-chan os.Signal,
) error {
	// blocking publish so every event is printed before Wait returns
	router, err := events.NewEventRouter(
		events.WithVerbose(viper.GetBool("verbose")),
		events.WithBlockingPublish(true),
	)
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()
	if printRaw {
		router.AddHandler("raw", events.TopicDialogue, router.DumpRawEvents(w))
	} else {
		router.AddEventHandler("printer", events.TopicDialogue, events.PrintEvents(w))
	}

	sess, err := NewSession(s, opts, router.Sink(events.TopicDialogue))
	if err != nil {
		return err
	}
	ctrl := sess.Controller

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg := errgroup.Group{}
	eg.Go(func() error {
		return router.Run(ctx)
	})

	var dialogueErr error
	eg.Go(func() error {
		// stops the router once the dialogue has settled
		defer cancel()
		<-router.Running()

		go func() {
			select {
			case <-ctx.Done():
				return
			case <-interrupts:
				log.Info().Msg("stopping automation, waiting for the round in flight")
				ctrl.Stop()
			}
			select {
			case <-ctx.Done():
			case <-interrupts:
				log.Warn().Msg("aborting round in flight")
				cancel()
			}
		}()

		_, _ = fmt.Fprintln(w, sess.Document.Greeting().Content)
		if _, err := ctrl.Start(ctx); err != nil {
			log.Debug().Err(err).Msg("first round failed")
		}
		dialogueErr = ctrl.Wait(ctx)
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "session %s: %s after %d rounds\n", ctrl.SessionID(), ctrl.Status(), ctrl.Rounds())
	return dialogueErr
}
