package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/vmunix/filtarr/internal/events"
	"github.com/vmunix/filtarr/internal/metrics"
	"github.com/vmunix/filtarr/internal/reqid"
	"github.com/vmunix/filtarr/internal/webhook"
	"github.com/vmunix/filtarr/internal/worker"
)

// Webhook results, used as the result label of filtarr_webhooks_total.
const (
	resultTest      = "test"
	resultInvalid   = "invalid"
	resultDuplicate = "duplicate"
	resultQueued    = "queued"
	resultRejected  = "rejected"
)

type issuesResponse struct {
	Issues []webhook.Issue `json:"issues"`
}

type webhookResponse struct {
	Status string `json:"status"`
}

// handleWebhook returns the handler for one manager's webhook route.
func (s *Server) handleWebhook(source webhook.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.With("source", source)
		if id, ok := reqid.From(r.Context()); ok {
			log = log.With("request_id", id)
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
		if err != nil {
			s.invalid(w, source, webhook.Issue{Code: webhook.CodeInvalidJSON, Path: []string{}, Message: err.Error()})
			return
		}

		payload, err := webhook.Decode(body)
		if err != nil {
			s.invalid(w, source, webhook.Issue{Code: webhook.CodeInvalidJSON, Path: []string{}, Message: err.Error()})
			return
		}

		if payload.IsTest() {
			log.Info("test webhook received")
			metrics.Webhooks.WithLabelValues(string(source), resultTest).Inc()
			writeJSON(w, http.StatusOK, webhookResponse{Status: "ok"})
			return
		}

		grab, issues := s.deps.Validator.Validate(source, payload)
		if len(issues) > 0 {
			log.Warn("webhook rejected", "issues", len(issues), "first", issues[0].Message,
				"path", strings.Join(issues[0].Path, "."))
			s.invalid(w, source, issues...)
			return
		}

		key := pendingKey(grab)
		if err := s.pending.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
			log.Info("grab already pending", "download_id", grab.DownloadID)
			metrics.Webhooks.WithLabelValues(string(source), resultDuplicate).Inc()
			writeJSON(w, http.StatusOK, webhookResponse{Status: resultDuplicate})
			return
		}

		requestID, _ := reqid.From(r.Context())
		task := worker.Task{
			ID: key,
			Run: func(ctx context.Context) {
				defer s.pending.Delete(key)
				if requestID != "" {
					ctx = reqid.With(ctx, requestID)
				}
				// Failures are logged and published by the reconciler.
				_, _ = s.deps.Reconciler.Reconcile(ctx, grab)
			},
		}
		if err := s.deps.Queue.Submit(task); err != nil {
			s.pending.Delete(key)
			log.Error("failed to enqueue grab", "download_id", grab.DownloadID, "error", err)
			metrics.Webhooks.WithLabelValues(string(source), resultRejected).Inc()
			code := "ENQUEUE_FAILED"
			if errors.Is(err, worker.ErrClosed) {
				code = "SHUTTING_DOWN"
			}
			writeError(w, http.StatusServiceUnavailable, code, err.Error())
			return
		}

		log.Info("grab queued",
			"download_id", grab.DownloadID,
			"subject_id", grab.MediaID,
			"release", grab.ReleaseTitle,
			"queued", s.deps.Queue.Len())
		metrics.Webhooks.WithLabelValues(string(source), resultQueued).Inc()
		s.publishAccepted(r.Context(), grab, requestID)
		writeJSON(w, http.StatusOK, webhookResponse{Status: resultQueued})
	}
}

func (s *Server) invalid(w http.ResponseWriter, source webhook.Source, issues ...webhook.Issue) {
	metrics.Webhooks.WithLabelValues(string(source), resultInvalid).Inc()
	writeJSON(w, http.StatusBadRequest, issuesResponse{Issues: issues})
}

func (s *Server) publishAccepted(ctx context.Context, g webhook.Grab, requestID string) {
	if s.deps.Bus == nil {
		return
	}
	e := &events.GrabAccepted{
		BaseEvent: events.NewBaseEvent(events.EventGrabAccepted, g.Source.Entity(), g.MediaID).WithRequestID(requestID),
		Release: events.Release{
			Source:       string(g.Source),
			DownloadID:   g.DownloadID,
			ReleaseTitle: g.ReleaseTitle,
			Title:        g.Title,
		},
	}
	if err := s.deps.Bus.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.log.Error("failed to publish event", "type", e.EventType(), "error", err)
	}
}

// pendingKey identifies a grab while it waits in or runs on the queue.
func pendingKey(g webhook.Grab) string {
	return string(g.Source) + ":" + strings.ToLower(g.DownloadID)
}
