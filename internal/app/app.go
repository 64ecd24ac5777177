package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall-server/internal/config"
	"github.com/vovakirdan/wirecall-server/internal/core"
	"github.com/vovakirdan/wirecall-server/internal/presence"
	"github.com/vovakirdan/wirecall-server/internal/rpc"
	transporthttp "github.com/vovakirdan/wirecall-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	registry        *presence.Registry
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	registry := presence.New(cfg.Registry.Shards)
	svc := core.NewService(registry, core.Options{
		EnforceDeclaredCount: cfg.Invite.EnforceDeclaredCount,
	}, logger)

	dispatcher, err := rpc.NewDispatcher(svc, logger)
	if err != nil {
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}

	logger.Info().
		Int("shards", registry.Shards()).
		Int64("read_limit", cfg.WS.ReadLimit).
		Bool("enforce_declared_count", cfg.Invite.EnforceDeclaredCount).
		Msg("signaling core initialized")

	return &App{
		server:          transporthttp.NewServer(registry, dispatcher, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Int("connections", a.registry.Len()).Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
