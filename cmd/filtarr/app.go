package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/filtarr/internal/api"
	"github.com/vmunix/filtarr/internal/arr"
	"github.com/vmunix/filtarr/internal/blacklist"
	"github.com/vmunix/filtarr/internal/config"
	"github.com/vmunix/filtarr/internal/download"
	"github.com/vmunix/filtarr/internal/events"
	"github.com/vmunix/filtarr/internal/handlers"
	"github.com/vmunix/filtarr/internal/server"
	"github.com/vmunix/filtarr/internal/webhook"
	"github.com/vmunix/filtarr/internal/worker"
)

const (
	pruneInterval    = time.Hour
	startupAuthLimit = 10 * time.Second
)

// app is the wired daemon.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *download.QBittorrentClient
	history *events.EventLog // nil unless history.path is set
	runner  *server.Runner
	sources []webhook.Source
}

// newQueueClients builds a queue client per enabled manager.
func newQueueClients(cfg *config.Config, logger *slog.Logger) map[webhook.Source]arr.QueueClient {
	opts := arr.Options{
		PageSize: cfg.Filter.PageSize,
		MaxPages: cfg.Filter.MaxPages,
		Timeout:  cfg.QBittorrent.Timeout,
	}
	queues := make(map[webhook.Source]arr.QueueClient)
	if cfg.Radarr.Enabled() {
		queues[webhook.SourceRadarr] = arr.NewClient(arr.KindRadarr, cfg.Radarr.URL, cfg.Radarr.APIKey, opts, logger)
	}
	if cfg.Sonarr.Enabled() {
		queues[webhook.SourceSonarr] = arr.NewClient(arr.KindSonarr, cfg.Sonarr.URL, cfg.Sonarr.APIKey, opts, logger)
	}
	return queues
}

func newTorrentClient(cfg *config.Config, logger *slog.Logger) *download.QBittorrentClient {
	return download.NewQBittorrentClient(
		cfg.QBittorrent.URL,
		cfg.QBittorrent.Username,
		cfg.QBittorrent.Password,
		cfg.QBittorrent.Timeout,
		logger,
	)
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// === Decision history (optional) ===
	if cfg.History.Path != "" {
		log, err := events.OpenEventLog(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.history = log
	}
	bus := events.NewBus(a.history, logger)

	// === Clients ===
	a.client = newTorrentClient(cfg, logger)
	queues := newQueueClients(cfg, logger)
	for _, src := range []webhook.Source{webhook.SourceRadarr, webhook.SourceSonarr} {
		if _, ok := queues[src]; ok {
			a.sources = append(a.sources, src)
		}
	}

	// === Workflow ===
	bl := blacklist.New(cfg.Filter.Extensions)
	reconciler := handlers.NewReconciler(bus, a.client, queues, bl, cfg.Filter.Delay, logger)
	queue := worker.New(logger)

	// === HTTP ===
	apiSrv, err := api.New(api.Config{
		Sources:    a.sources,
		APIKey:     cfg.Webhook.APIKey,
		PendingTTL: cfg.Webhook.PendingTTL,
	}, api.ServerDeps{
		Queue:      queue,
		Reconciler: reconciler,
		Validator:  webhook.NewValidator(cfg.QBittorrent.ClientName),
		Bus:        bus,
		EventLog:   a.history,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	// === Background handlers ===
	components := []handlers.Handler{queue}
	if a.history != nil {
		components = append(components, handlers.NewHistoryPruner(a.history, cfg.History.Retention, pruneInterval, logger))
	}

	a.runner = server.NewRunner(server.Config{Addr: cfg.Server.Addr()}, apiSrv.Handler(), bus, logger, components...)

	logger.Info("filtarr configured",
		"addr", cfg.Server.Addr(),
		"sources", a.sources,
		"qbittorrent", cfg.QBittorrent.URL,
		"extensions", bl.Len(),
		"delay", cfg.Filter.Delay.String(),
		"history", cfg.History.Path != "",
		"webhook_auth", cfg.Webhook.APIKey != "",
	)
	return a, nil
}

// Run logs in to qBittorrent and serves until ctx is canceled. A failed
// login is not fatal; every call re-authenticates on demand.
func (a *app) Run(ctx context.Context) error {
	authCtx, cancel := context.WithTimeout(ctx, startupAuthLimit)
	if err := a.client.Authenticate(authCtx); err != nil {
		a.logger.Warn("qbittorrent login failed, will retry on first grab", "error", err)
	}
	cancel()

	if err := a.runner.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Close releases the decision history.
func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Error("failed to close history", "error", err)
		}
	}
}
