// Package handlers holds the long-running and per-grab processing units of
// the daemon.
package handlers

import (
	"context"
	"log/slog"

	"github.com/vmunix/filtarr/internal/events"
)

// Handler is a background component started by the server runner.
type Handler interface {
	// Start runs until ctx is canceled (blocking).
	Start(ctx context.Context) error

	// Name returns handler name for logging.
	Name() string
}

// BaseHandler provides common handler functionality.
type BaseHandler struct {
	bus    *events.Bus
	logger *slog.Logger
}

// NewBaseHandler creates a base handler.
func NewBaseHandler(bus *events.Bus, logger *slog.Logger) *BaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseHandler{
		bus:    bus,
		logger: logger,
	}
}

// Bus returns the event bus.
func (h *BaseHandler) Bus() *events.Bus {
	return h.bus
}

// Logger returns the handler's logger.
func (h *BaseHandler) Logger() *slog.Logger {
	return h.logger
}

// publish sends e on the bus, logging instead of failing.
func (h *BaseHandler) publish(ctx context.Context, e events.Event) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(ctx, e); err != nil {
		h.logger.Error("failed to publish event", "type", e.EventType(), "error", err)
	}
}
