package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/filtarr/internal/arr"
	arrmocks "github.com/vmunix/filtarr/internal/arr/mocks"
	"github.com/vmunix/filtarr/internal/blacklist"
	"github.com/vmunix/filtarr/internal/download"
	dlmocks "github.com/vmunix/filtarr/internal/download/mocks"
	"github.com/vmunix/filtarr/internal/events"
	"github.com/vmunix/filtarr/internal/handlers"
	"github.com/vmunix/filtarr/internal/metrics"
	"github.com/vmunix/filtarr/internal/webhook"
	"github.com/vmunix/filtarr/internal/worker"
)

const radarrGrabBody = `{
	"eventType": "Grab",
	"movie": {"id": 42, "title": "Some Movie", "imdbId": "tt0000042", "tmdbId": 4242},
	"release": {"releaseTitle": "Some.Movie.2024.1080p.WEB-DL"},
	"downloadId": "ABCDEF0123456789",
	"downloadClient": "qBittorrent"
}`

type testEnv struct {
	srv    *Server
	queue  *worker.Queue
	client *dlmocks.MockTorrentClient
	radarr *arrmocks.MockQueueClient
	bus    *events.Bus
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv builds a server around mocked adapters. The worker queue is
// not started; call startWorker to process submitted grabs.
func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	env := &testEnv{
		queue:  worker.New(testLogger()),
		client: dlmocks.NewMockTorrentClient(ctrl),
		radarr: arrmocks.NewMockQueueClient(ctrl),
		bus:    events.NewBus(nil, nil),
	}
	t.Cleanup(func() { _ = env.bus.Close() })

	rec := handlers.NewReconciler(env.bus, env.client,
		map[webhook.Source]arr.QueueClient{webhook.SourceRadarr: env.radarr},
		blacklist.Default(), 0, testLogger())

	if cfg.Sources == nil {
		cfg.Sources = []webhook.Source{webhook.SourceRadarr, webhook.SourceSonarr}
	}
	srv, err := New(cfg, ServerDeps{
		Queue:      env.queue,
		Reconciler: rec,
		Validator:  webhook.NewValidator(""),
		Bus:        env.bus,
	}, testLogger())
	require.NoError(t, err)
	env.srv = srv
	return env
}

func (e *testEnv) startWorker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.queue.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func (e *testEnv) post(path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeIssues(t *testing.T, w *httptest.ResponseRecorder) []webhook.Issue {
	t.Helper()
	var resp issuesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Issues
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(Config{}, ServerDeps{}, nil)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestWebhook_TestEventIsAcknowledged(t *testing.T) {
	env := newTestEnv(t, Config{})

	for _, path := range []string{"/radarr", "/sonarr"} {
		w := env.post(path, `{"eventType": "Test"}`)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.Zero(t, env.queue.Len(), "test events are never enqueued")
}

func TestWebhook_MalformedJSON(t *testing.T) {
	env := newTestEnv(t, Config{})

	w := env.post("/radarr", `{"eventType": "Grab"`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	issues := decodeIssues(t, w)
	require.Len(t, issues, 1)
	assert.Equal(t, webhook.CodeInvalidJSON, issues[0].Code)
	assert.Zero(t, env.queue.Len())
}

func TestWebhook_NonObjectBody(t *testing.T) {
	env := newTestEnv(t, Config{})

	w := env.post("/sonarr", `"Grab"`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, webhook.CodeInvalidJSON, decodeIssues(t, w)[0].Code)
}

func TestWebhook_ValidationFailure(t *testing.T) {
	env := newTestEnv(t, Config{})
	before := testutil.ToFloat64(metrics.Webhooks.WithLabelValues("radarr", resultInvalid))

	body := strings.Replace(radarrGrabBody, `"qBittorrent"`, `"Transmission"`, 1)
	w := env.post("/radarr", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	issues := decodeIssues(t, w)
	require.Len(t, issues, 1)
	assert.Equal(t, []string{"downloadClient"}, issues[0].Path)
	assert.Zero(t, env.queue.Len())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Webhooks.WithLabelValues("radarr", resultInvalid)))
}

func TestWebhook_RadarrPayloadOnSonarrRoute(t *testing.T) {
	env := newTestEnv(t, Config{})

	w := env.post("/sonarr", radarrGrabBody)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var paths []string
	for _, i := range decodeIssues(t, w) {
		paths = append(paths, strings.Join(i.Path, "."))
	}
	assert.Contains(t, paths, "series")
}

func TestWebhook_GrabIsQueuedAndReconciled(t *testing.T) {
	env := newTestEnv(t, Config{})
	accepted := env.bus.Subscribe(events.EventGrabAccepted, 1)
	resumed := make(chan struct{})

	gomock.InOrder(
		env.client.EXPECT().Files(gomock.Any(), "ABCDEF0123456789").
			Return([]download.TorrentFile{{Name: "Some.Movie.mkv"}}, nil),
		env.client.EXPECT().Resume(gomock.Any(), "ABCDEF0123456789").
			DoAndReturn(func(context.Context, string) error {
				close(resumed)
				return nil
			}),
	)

	w := env.post("/radarr", radarrGrabBody, headerRequestID, "req-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resultQueued)
	assert.Equal(t, "req-1", w.Header().Get(headerRequestID))

	select {
	case e := <-accepted:
		ga, ok := e.(*events.GrabAccepted)
		require.True(t, ok)
		assert.Equal(t, "req-1", ga.RequestID)
		assert.Equal(t, int64(42), ga.EntityID())
	case <-time.After(time.Second):
		t.Fatal("grab.accepted not published")
	}

	env.startWorker(t)
	select {
	case <-resumed:
	case <-time.After(2 * time.Second):
		t.Fatal("grab was not reconciled")
	}

	// The pending entry is cleared once the task finishes.
	require.Eventually(t, func() bool {
		_, found := env.srv.pending.Get("radarr:abcdef0123456789")
		return !found
	}, time.Second, 10*time.Millisecond)
}

func TestWebhook_DuplicateWhilePending(t *testing.T) {
	env := newTestEnv(t, Config{})

	w := env.post("/radarr", radarrGrabBody)
	require.Equal(t, http.StatusOK, w.Code)

	lower := strings.Replace(radarrGrabBody, "ABCDEF0123456789", "abcdef0123456789", 1)
	w = env.post("/radarr", lower)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resultDuplicate)
	assert.Equal(t, 1, env.queue.Len())

	// Same hash from the other manager is a distinct grab.
	sonarr := `{
		"eventType": "Grab",
		"series": {"id": 9, "title": "Some Show", "imdbId": "tt9", "tmdbId": 9},
		"release": {"releaseTitle": "Some.Show.S01E01"},
		"downloadId": "ABCDEF0123456789",
		"downloadClient": "qBittorrent"
	}`
	w = env.post("/sonarr", sonarr)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, env.queue.Len())
}

func TestWebhook_QueueClosed(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, env.queue.Start(ctx), context.Canceled)

	w := env.post("/radarr", radarrGrabBody)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	_, found := env.srv.pending.Get("radarr:abcdef0123456789")
	assert.False(t, found)
}

func TestWebhook_DisabledSourceIsNotRouted(t *testing.T) {
	env := newTestEnv(t, Config{Sources: []webhook.Source{webhook.SourceRadarr}})

	w := env.post("/sonarr", `{"eventType": "Test"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhook_APIKey(t *testing.T) {
	env := newTestEnv(t, Config{APIKey: "secret"})

	w := env.post("/radarr", `{"eventType": "Test"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.post("/radarr", `{"eventType": "Test"}`, "X-Api-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.post("/radarr", `{"eventType": "Test"}`, "X-Api-Key", "secret")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.post("/radarr?apikey=secret", `{"eventType": "Test"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, Config{MaxBodyBytes: 16})

	w := env.post("/radarr", radarrGrabBody)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, webhook.CodeInvalidJSON, decodeIssues(t, w)[0].Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Config{})
	require.Equal(t, http.StatusOK, env.post("/radarr", radarrGrabBody).Code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","queued":1}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.Register()
	env := newTestEnv(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "filtarr_queue_depth")
}

func TestListEvents(t *testing.T) {
	log, err := events.OpenEventLog(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer log.Close()

	_, err = log.Append(context.Background(), &events.ReleaseResumed{
		BaseEvent: events.NewBaseEvent(events.EventReleaseResumed, events.EntityMovie, 42),
		Release:   events.Release{Source: "radarr", DownloadID: "abc"},
		Reason:    "clean",
	})
	require.NoError(t, err)

	srv, err := New(Config{}, ServerDeps{
		Queue:      worker.New(testLogger()),
		Reconciler: handlers.NewReconciler(nil, nil, nil, blacklist.Default(), 0, testLogger()),
		Validator:  webhook.NewValidator(""),
		EventLog:   log,
	}, testLogger())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/events?limit=5", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp listEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, events.EventReleaseResumed, resp.Items[0].EventType)
	assert.Equal(t, int64(42), resp.Items[0].EntityID)
	assert.Contains(t, string(resp.Items[0].Payload), `"reason":"clean"`)
	assert.Equal(t, 5, resp.Limit)
}

func TestListEvents_NoHistory(t *testing.T) {
	env := newTestEnv(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
