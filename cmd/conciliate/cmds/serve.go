package cmds

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/conciliate/pkg/events"
	"github.com/go-go-golems/conciliate/pkg/httpapi"
)

type ServeCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*ServeCommand)(nil)

type ServeSettings struct {
	Addr string `glazed.parameter:"addr"`
}

func NewServeCommand() (*ServeCommand, error) {
	flags := append(SessionFlags(),
		parameters.NewParameterDefinition("addr",
			parameters.ParameterTypeString,
			parameters.WithDefault(""),
			parameters.WithHelp("Listen address (default from server.addr)"),
		),
	)
	description := cmds.NewCommandDescription(
		"serve",
		cmds.WithShort("Serve a dialogue session over HTTP"),
		cmds.WithFlags(flags...),
	)
	return &ServeCommand{CommandDescription: description}, nil
}

func (c *ServeCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	opts, err := DecodeSessionOptions(parsedLayers)
	if err != nil {
		return err
	}
	ss := &ServeSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, ss); err != nil {
		return errors.Wrap(err, "failed to initialize serve settings")
	}
	s, err := LoadSettings()
	if err != nil {
		return err
	}
	if ss.Addr != "" {
		s.Server.Addr = ss.Addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()
	router.AddEventHandler("log", events.TopicDialogue, func(_ context.Context, e events.Event) error {
		log.Info().Str("event_type", string(e.Type())).Msg(events.Describe(e))
		return nil
	})

	sess, err := NewSession(s, opts, router.Sink(events.TopicDialogue))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := sess.Metrics.Register(reg); err != nil {
		return errors.Wrap(err, "could not register metrics")
	}

	origins, err := httpapi.NewOriginAllowlist(s.Server.AllowedOrigins)
	if err != nil {
		return err
	}
	api := httpapi.NewServer(sess.Controller,
		httpapi.WithBaseContext(ctx),
		httpapi.WithSeed(sess.Seed),
		httpapi.WithOrigins(origins),
		httpapi.WithClientLimiter(httpapi.NewClientLimiter(s.Server.RequestsPerSecond, s.Server.Burst)),
		httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)

	srv := &http.Server{
		Addr:              s.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("session_id", sess.Controller.SessionID()).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		sess.Controller.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
