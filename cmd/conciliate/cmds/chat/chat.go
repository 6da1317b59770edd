package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	glazedcmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/conciliate/cmd/conciliate/cmds"
	"github.com/go-go-golems/conciliate/pkg/events"
)

type ChatCommand struct {
	*glazedcmds.CommandDescription
}

var _ glazedcmds.BareCommand = (*ChatCommand)(nil)

func NewChatCommand() (*ChatCommand, error) {
	description := glazedcmds.NewCommandDescription(
		"chat",
		glazedcmds.WithShort("Follow and steer a dialogue in the terminal"),
		glazedcmds.WithFlags(cmds.SessionFlags()...),
	)
	return &ChatCommand{CommandDescription: description}, nil
}

func (c *ChatCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	opts, err := cmds.DecodeSessionOptions(parsedLayers)
	if err != nil {
		return err
	}
	s, err := cmds.LoadSettings()
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()

	sess, err := cmds.NewSession(s, opts, router.Sink(events.TopicDialogue))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		initialModel(ctx, sess.Controller, sess.Seed()),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(), // turn on mouse support so we can track the mouse wheel
	)

	router.AddEventHandler("ui", events.TopicDialogue, func(_ context.Context, e events.Event) error {
		p.Send(eventMsg{event: e})
		return nil
	})

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		_, err := p.Run()
		return err
	})

	return eg.Wait()
}
