package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/filtarr/internal/arr"
	"github.com/vmunix/filtarr/internal/blacklist"
	"github.com/vmunix/filtarr/internal/download"
	"github.com/vmunix/filtarr/internal/events"
	"github.com/vmunix/filtarr/internal/metrics"
	"github.com/vmunix/filtarr/internal/reqid"
	"github.com/vmunix/filtarr/internal/webhook"
)

// Stage names a step of the reconcile workflow.
type Stage string

const (
	StageDelay      Stage = "delay"
	StageFetchFiles Stage = "fetch_files"
	StageResume     Stage = "resume"
	StageFetchQueue Stage = "fetch_queue"
	StageRemove     Stage = "remove"
)

// StageError records which step of a reconcile failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrNoQueueClient is returned when a grab arrives for a manager that has
// no queue client configured.
var ErrNoQueueClient = errors.New("no queue client configured for source")

// Action is the terminal outcome of a reconcile.
type Action string

const (
	ActionResume             Action = "resume"
	ActionRemoveAndBlocklist Action = "remove_and_blocklist"
)

// Resume reasons
const (
	ReasonClean          = "clean"
	ReasonNoQueueEntry   = "no_queue_entry"
	ReasonQueueEntryGone = "queue_entry_gone"
)

// Decision describes what a reconcile did.
type Decision struct {
	Action       Action
	Reason       string               // set for ActionResume
	QueueEntryID int64                // set for ActionRemoveAndBlocklist
	File         download.TorrentFile // first blacklisted file, if any
}

// Reconciler inspects a grabbed torrent and either resumes it or removes and
// blocklists the release in the media manager.
type Reconciler struct {
	*BaseHandler
	client    download.TorrentClient
	queues    map[webhook.Source]arr.QueueClient
	blacklist *blacklist.Blacklist
	delay     time.Duration
}

// NewReconciler creates a reconciler. delay is the quiet period before the
// torrent is inspected, giving the manager time to record the grab.
func NewReconciler(bus *events.Bus, client download.TorrentClient, queues map[webhook.Source]arr.QueueClient,
	bl *blacklist.Blacklist, delay time.Duration, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		BaseHandler: NewBaseHandler(bus, logger.With("component", "reconciler")),
		client:      client,
		queues:      queues,
		blacklist:   bl,
		delay:       delay,
	}
}

// Reconcile runs the workflow for one grab to a terminal state. Failures are
// logged and published here; the returned error is for callers that want it.
func (r *Reconciler) Reconcile(ctx context.Context, g webhook.Grab) (Decision, error) {
	log := r.Logger().With(
		"source", g.Source,
		"download_id", g.DownloadID,
		"subject_id", g.MediaID,
	)
	requestID, _ := reqid.From(ctx)
	if requestID != "" {
		log = log.With("request_id", requestID)
	}

	start := time.Now()
	log.Info("reconcile started", "release", g.ReleaseTitle)

	d, err := r.run(ctx, log, g)
	base := func(eventType string) events.BaseEvent {
		return events.NewBaseEvent(eventType, g.Source.Entity(), g.MediaID).WithRequestID(requestID)
	}
	release := events.Release{
		Source:       string(g.Source),
		DownloadID:   g.DownloadID,
		ReleaseTitle: g.ReleaseTitle,
		Title:        g.Title,
	}

	if err != nil {
		stage := Stage("unknown")
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		log.Error("reconcile failed", "stage", stage, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		metrics.ReconcileFailures.WithLabelValues(string(g.Source), string(stage)).Inc()
		r.publish(context.WithoutCancel(ctx), &events.ReconcileFailed{
			BaseEvent: base(events.EventReconcileFailed),
			Release:   release,
			Stage:     string(stage),
			Error:     err.Error(),
		})
		return d, err
	}

	metrics.Decisions.WithLabelValues(string(g.Source), string(d.Action)).Inc()
	switch d.Action {
	case ActionRemoveAndBlocklist:
		log.Warn("release removed and blocklisted",
			"queue_id", d.QueueEntryID,
			"file", d.File.Name,
			"duration_ms", time.Since(start).Milliseconds())
		r.publish(ctx, &events.ReleaseBlocklisted{
			BaseEvent:    base(events.EventReleaseBlocklisted),
			Release:      release,
			QueueEntryID: d.QueueEntryID,
			File:         d.File.Name,
			Extension:    blacklist.Extension(d.File.Name),
		})
	default:
		log.Info("torrent resumed", "reason", d.Reason,
			"duration_ms", time.Since(start).Milliseconds())
		r.publish(ctx, &events.ReleaseResumed{
			BaseEvent: base(events.EventReleaseResumed),
			Release:   release,
			Reason:    d.Reason,
		})
	}
	return d, nil
}

func (r *Reconciler) run(ctx context.Context, log *slog.Logger, g webhook.Grab) (Decision, error) {
	if err := r.wait(ctx); err != nil {
		return Decision{}, &StageError{Stage: StageDelay, Err: err}
	}

	files, err := r.client.Files(ctx, g.DownloadID)
	if err != nil {
		return Decision{}, &StageError{Stage: StageFetchFiles, Err: err}
	}
	log.Debug("files fetched", "stage", StageFetchFiles, "count", len(files))

	offender, blacklisted := r.blacklist.Match(files)
	if !blacklisted {
		return r.resume(ctx, g, ReasonClean)
	}
	log.Info("blacklisted file found", "stage", "evaluate", "file", offender.Name)

	queue, ok := r.queues[g.Source]
	if !ok {
		return Decision{}, &StageError{Stage: StageFetchQueue, Err: ErrNoQueueClient}
	}
	records, err := queue.Queue(ctx, g.MediaID)
	if err != nil {
		return Decision{}, &StageError{Stage: StageFetchQueue, Err: err}
	}

	record, found := arr.FindByDownloadID(records, g.DownloadID)
	if !found {
		log.Info("no queue entry for download, resuming", "stage", "match", "records", len(records))
		d, err := r.resume(ctx, g, ReasonNoQueueEntry)
		d.File = offender
		return d, err
	}

	err = queue.RemoveFromQueue(ctx, record.ID, arr.RemoveOptions{RemoveFromClient: true, Blocklist: true})
	if errors.Is(err, arr.ErrQueueItemNotFound) {
		log.Info("queue entry vanished before removal, resuming", "stage", StageRemove, "queue_id", record.ID)
		d, err := r.resume(ctx, g, ReasonQueueEntryGone)
		d.File = offender
		return d, err
	}
	if err != nil {
		return Decision{}, &StageError{Stage: StageRemove, Err: err}
	}

	return Decision{
		Action:       ActionRemoveAndBlocklist,
		QueueEntryID: record.ID,
		File:         offender,
	}, nil
}

func (r *Reconciler) resume(ctx context.Context, g webhook.Grab, reason string) (Decision, error) {
	if err := r.client.Resume(ctx, g.DownloadID); err != nil {
		return Decision{}, &StageError{Stage: StageResume, Err: err}
	}
	return Decision{Action: ActionResume, Reason: reason}, nil
}

// wait sleeps for the configured delay unless ctx ends first.
func (r *Reconciler) wait(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
