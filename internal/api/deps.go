package api

import (
	"context"
	"errors"

	"github.com/vmunix/filtarr/internal/events"
	"github.com/vmunix/filtarr/internal/handlers"
	"github.com/vmunix/filtarr/internal/webhook"
	"github.com/vmunix/filtarr/internal/worker"
)

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// TaskQueue is the serialized work queue grabs are pushed onto.
type TaskQueue interface {
	Submit(t worker.Task) error
	Len() int
}

// Reconciler runs the reconcile workflow for one grab.
type Reconciler interface {
	Reconcile(ctx context.Context, g webhook.Grab) (handlers.Decision, error)
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Queue      TaskQueue
	Reconciler Reconciler
	Validator  *webhook.Validator

	// Optional dependencies (nil if not configured)
	Bus      *events.Bus
	EventLog *events.EventLog
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Queue == nil {
		return errors.New("task queue is required")
	}
	if d.Reconciler == nil {
		return errors.New("reconciler is required")
	}
	if d.Validator == nil {
		return errors.New("validator is required")
	}
	return nil
}
