package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"pixelsync/internal/config"
	"pixelsync/internal/core"
	"pixelsync/internal/store"
	"pixelsync/internal/store/sqlite"
	transporthttp "pixelsync/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	router          *transporthttp.Router
	shutdownTimeout time.Duration
	registry        *core.Registry
	store           store.Store
	log             *zerolog.Logger
}

// journalAdapter satisfies core.Journal on top of the persistent
// store. Journal writes are best effort; the registry logs failures
// and the live session proceeds regardless.
type journalAdapter struct {
	store store.Store
}

func (j *journalAdapter) SessionStarted(id, name string, hasPassword bool, at time.Time) error {
	return j.store.RecordSessionStarted(context.Background(), id, name, hasPassword, at)
}

func (j *journalAdapter) SessionEnded(id, reason string, peakMembers int, at time.Time) error {
	return j.store.RecordSessionEnded(context.Background(), id, reason, peakMembers, at)
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	registry := core.NewRegistry(logger, &journalAdapter{store: st})
	router := transporthttp.NewRouter(registry, cfg.KickGrace, cfg.MaxMessageBytes, logger)
	server := transporthttp.NewServer(router, registry, st, cfg, logger)

	return &App{
		server:          server,
		router:          router,
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.server.Addr).Msg("server listening")

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		// Tell connected members the server is going away before the
		// listener stops accepting.
		a.router.Shutdown("server shutting down")

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
