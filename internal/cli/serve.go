package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tally-ledger/backend/internal/attachment"
	"github.com/tally-ledger/backend/internal/auth"
	"github.com/tally-ledger/backend/internal/config"
	v1 "github.com/tally-ledger/backend/internal/controllers/v1"
	"github.com/tally-ledger/backend/internal/ledger"
	"github.com/tally-ledger/backend/internal/notify"
	"github.com/tally-ledger/backend/internal/router"
	"github.com/tally-ledger/backend/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 10 * time.Second
	amqpPublishTimeout = 5 * time.Second
	amqpQueueSize      = 1024
)

func newServeCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the monthly reset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := o.cfg.Validate(); err != nil {
				return err
			}

			l, err := net.Listen("tcp", ":"+o.cfg.Port)
			if err != nil {
				return fmt.Errorf("failed to listen on port %s: %w", o.cfg.Port, err)
			}

			return serve(ctx, o.cfg, l)
		},
	}
}

// serve runs the HTTP server on the listener and the monthly reset until
// ctx is cancelled or one of them fails.
func serve(ctx context.Context, cfg config.Config, listener net.Listener) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	notifier, closeNotifier, err := newNotifier(cfg, registry)
	if err != nil {
		return err
	}
	defer closeNotifier()

	ledgerOptions := []ledger.Option{ledger.WithNotifier(notifier)}
	if cfg.AttachmentDir != "" {
		store, err := attachment.NewDir(cfg.AttachmentDir)
		if err != nil {
			return err
		}
		ledgerOptions = append(ledgerOptions, ledger.WithAttachments(store))
	} else {
		log.Info().Msg("ATTACHMENT_DIR is not set, attachments are disabled")
	}
	l := ledger.New(db, ledgerOptions...)

	apiURL, err := url.Parse(cfg.APIURL)
	if err != nil {
		return fmt.Errorf("invalid API URL: %w", err)
	}

	routerOptions := router.Options{
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		EnablePprof:      cfg.EnablePprof,
		Registry:         registry,
	}

	r, teardown, err := router.Config(apiURL, routerOptions)
	if err != nil {
		return err
	}
	defer teardown()

	router.AttachRoutes(v1.Controller{
		Ledger: l,
		Tokens: auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),

		MaxAttachmentSize: cfg.AttachmentMaxSize,
	}, r.Group("/"), routerOptions)

	server := &http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("address", listener.Addr().String()).Msg("Listening")
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down")
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return scheduler.NewMonthly(l).Run(ctx)
	})

	return g.Wait()
}

// newNotifier returns the notifier for alert events. Events are always
// logged and counted. The AMQP publisher is added if a broker is configured.
func newNotifier(cfg config.Config, reg prometheus.Registerer) (notify.Notifier, func(), error) {
	metrics, err := notify.NewMetrics(reg)
	if err != nil {
		return nil, func() {}, err
	}

	notifier := notify.Multi{notify.Log{}, metrics}
	if cfg.AMQPURL == "" {
		log.Info().Msg("AMQP disabled, alert events are only logged")
		return notifier, func() {}, nil
	}

	publisher, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to AMQP broker, alert events are only logged")
		return notifier, func() {}, nil
	}

	// Publishing runs in the background so a stalled broker cannot hold up
	// requests
	async := notify.NewAsync(publisher, amqpQueueSize, amqpPublishTimeout)

	log.Info().Str("exchange", cfg.AMQPExchange).Msg("Publishing alert events")
	return append(notifier, async), func() {
		async.Close()
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Closing AMQP connection")
		}
	}, nil
}
