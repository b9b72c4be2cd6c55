// Package server runs the HTTP listener and the background handlers as one
// unit with a shared lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vmunix/filtarr/internal/events"
	"github.com/vmunix/filtarr/internal/handlers"
	"golang.org/x/sync/errgroup"
)

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// Config for the runner.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Runner manages the HTTP server and background handlers.
type Runner struct {
	config     Config
	handler    http.Handler
	bus        *events.Bus
	components []handlers.Handler
	logger     *slog.Logger
}

// NewRunner creates a new runner. The bus, if any, is closed when Run returns.
func NewRunner(cfg Config, handler http.Handler, bus *events.Bus, logger *slog.Logger, components ...handlers.Handler) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Runner{
		config:     cfg,
		handler:    handler,
		bus:        bus,
		components: components,
		logger:     logger.With("component", "runner"),
	}
}

// Run listens on the configured address and serves until ctx is canceled or
// a component fails.
func (r *Runner) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.config.Addr, err)
	}
	return r.Serve(ctx, ln)
}

// Serve is Run on an existing listener. Cancellation is a clean stop and
// returns nil.
func (r *Runner) Serve(ctx context.Context, ln net.Listener) error {
	if r.bus != nil {
		defer func() { _ = r.bus.Close() }()
	}

	srv := &http.Server{
		Handler:           r.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use errgroup to manage component lifecycle
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		r.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	for _, c := range r.components {
		g.Go(func() error {
			r.logger.Debug("starting handler", "handler", c.Name())
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	r.logger.Info("server stopped")
	return err
}
