package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/vmunix/filtarr/internal/events"
)

// HistoryPruner deletes decision history older than the retention window,
// once at start and then every interval.
type HistoryPruner struct {
	log       *events.EventLog
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewHistoryPruner creates a pruner. A zero interval selects one hour.
func NewHistoryPruner(log *events.EventLog, retention, interval time.Duration, logger *slog.Logger) *HistoryPruner {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &HistoryPruner{
		log:       log,
		retention: retention,
		interval:  interval,
		logger:    logger.With("component", "pruner"),
	}
}

// Name returns the handler name.
func (p *HistoryPruner) Name() string {
	return "pruner"
}

// Start prunes until ctx is canceled.
func (p *HistoryPruner) Start(ctx context.Context) error {
	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.prune(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *HistoryPruner) prune(ctx context.Context) {
	n, err := p.log.Prune(ctx, p.retention)
	if err != nil {
		p.logger.Error("history prune failed", "error", err)
		return
	}
	if n > 0 {
		p.logger.Info("history pruned", "deleted", n, "retention", p.retention.String())
	}
}
