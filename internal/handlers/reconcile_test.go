package handlers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/filtarr/internal/arr"
	arrmocks "github.com/vmunix/filtarr/internal/arr/mocks"
	"github.com/vmunix/filtarr/internal/blacklist"
	"github.com/vmunix/filtarr/internal/download"
	dlmocks "github.com/vmunix/filtarr/internal/download/mocks"
	"github.com/vmunix/filtarr/internal/events"
	"github.com/vmunix/filtarr/internal/reqid"
	"github.com/vmunix/filtarr/internal/webhook"
	"go.uber.org/mock/gomock"
)

const testHash = "ABCDEF0123456789"

var blocklistOpts = arr.RemoveOptions{RemoveFromClient: true, Blocklist: true}

type reconcileFixture struct {
	client *dlmocks.MockTorrentClient
	radarr *arrmocks.MockQueueClient
	sonarr *arrmocks.MockQueueClient
	bus    *events.Bus
	events <-chan events.Event
	r      *Reconciler
}

func newReconcileFixture(t *testing.T, delay time.Duration) *reconcileFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &reconcileFixture{
		client: dlmocks.NewMockTorrentClient(ctrl),
		radarr: arrmocks.NewMockQueueClient(ctrl),
		sonarr: arrmocks.NewMockQueueClient(ctrl),
		bus:    events.NewBus(nil, nil),
	}
	t.Cleanup(func() { _ = f.bus.Close() })
	f.events = f.bus.SubscribeAll(10)

	queues := map[webhook.Source]arr.QueueClient{
		webhook.SourceRadarr: f.radarr,
		webhook.SourceSonarr: f.sonarr,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.r = NewReconciler(f.bus, f.client, queues, blacklist.Default(), delay, logger)
	return f
}

// nextEvent returns the next published event or fails the test.
func (f *reconcileFixture) nextEvent(t *testing.T) events.Event {
	t.Helper()
	select {
	case e := <-f.events:
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func radarrGrab() webhook.Grab {
	return webhook.Grab{
		Source:         webhook.SourceRadarr,
		MediaID:        42,
		Title:          "Some Movie",
		ReleaseTitle:   "Some.Movie.2024.1080p.WEB-DL",
		DownloadID:     testHash,
		DownloadClient: webhook.DefaultClientName,
	}
}

func TestReconcile_CleanTorrentIsResumed(t *testing.T) {
	f := newReconcileFixture(t, 0)

	gomock.InOrder(
		f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{
			{Name: "Some.Movie/Some.Movie.mkv"},
			{Name: "Some.Movie/Some.Movie.srt"},
		}, nil),
		f.client.EXPECT().Resume(gomock.Any(), testHash).Return(nil),
	)

	d, err := f.r.Reconcile(context.Background(), radarrGrab())
	require.NoError(t, err)
	assert.Equal(t, ActionResume, d.Action)
	assert.Equal(t, ReasonClean, d.Reason)

	e, ok := f.nextEvent(t).(*events.ReleaseResumed)
	require.True(t, ok)
	assert.Equal(t, ReasonClean, e.Reason)
	assert.Equal(t, testHash, e.DownloadID)
	assert.Equal(t, events.EntityMovie, e.EntityType())
	assert.Equal(t, int64(42), e.EntityID())
}

func TestReconcile_BlacklistedWithQueueEntryIsBlocklisted(t *testing.T) {
	f := newReconcileFixture(t, 0)

	gomock.InOrder(
		f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{
			{Name: "Some.Movie/Some.Movie.mkv"},
			{Name: "Some.Movie/setup.EXE"},
		}, nil),
		f.radarr.EXPECT().Queue(gomock.Any(), int64(42)).Return([]arr.QueueRecord{
			{ID: 7, SubjectID: 42, DownloadID: "other"},
			{ID: 8, SubjectID: 42, DownloadID: "abcdef0123456789"},
		}, nil),
		f.radarr.EXPECT().RemoveFromQueue(gomock.Any(), int64(8), blocklistOpts).Return(nil),
	)
	// Resume must not be called after a successful removal.
	f.client.EXPECT().Resume(gomock.Any(), gomock.Any()).Times(0)

	d, err := f.r.Reconcile(context.Background(), radarrGrab())
	require.NoError(t, err)
	assert.Equal(t, ActionRemoveAndBlocklist, d.Action)
	assert.Equal(t, int64(8), d.QueueEntryID)
	assert.Equal(t, "Some.Movie/setup.EXE", d.File.Name)

	e, ok := f.nextEvent(t).(*events.ReleaseBlocklisted)
	require.True(t, ok)
	assert.Equal(t, int64(8), e.QueueEntryID)
	assert.Equal(t, ".exe", e.Extension)
	assert.Equal(t, "radarr", e.Source)
}

func TestReconcile_BlacklistedWithoutQueueEntryIsResumed(t *testing.T) {
	f := newReconcileFixture(t, 0)

	gomock.InOrder(
		f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{
			{Name: "Some.Movie/installer.msi"},
		}, nil),
		f.radarr.EXPECT().Queue(gomock.Any(), int64(42)).Return([]arr.QueueRecord{
			{ID: 7, SubjectID: 42, DownloadID: "other"},
		}, nil),
		f.client.EXPECT().Resume(gomock.Any(), testHash).Return(nil),
	)
	f.radarr.EXPECT().RemoveFromQueue(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	d, err := f.r.Reconcile(context.Background(), radarrGrab())
	require.NoError(t, err)
	assert.Equal(t, ActionResume, d.Action)
	assert.Equal(t, ReasonNoQueueEntry, d.Reason)
	assert.Equal(t, "Some.Movie/installer.msi", d.File.Name)
}

func TestReconcile_QueueEntryGoneIsResumed(t *testing.T) {
	f := newReconcileFixture(t, 0)

	gomock.InOrder(
		f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{{Name: "x.scr"}}, nil),
		f.radarr.EXPECT().Queue(gomock.Any(), int64(42)).Return([]arr.QueueRecord{{ID: 3, DownloadID: testHash}}, nil),
		f.radarr.EXPECT().RemoveFromQueue(gomock.Any(), int64(3), blocklistOpts).Return(arr.ErrQueueItemNotFound),
		f.client.EXPECT().Resume(gomock.Any(), testHash).Return(nil),
	)

	d, err := f.r.Reconcile(context.Background(), radarrGrab())
	require.NoError(t, err)
	assert.Equal(t, ReasonQueueEntryGone, d.Reason)
}

func TestReconcile_SonarrUsesSeriesQueue(t *testing.T) {
	f := newReconcileFixture(t, 0)
	g := radarrGrab()
	g.Source = webhook.SourceSonarr
	g.MediaID = 9

	gomock.InOrder(
		f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{{Name: "ep.bat"}}, nil),
		f.sonarr.EXPECT().Queue(gomock.Any(), int64(9)).Return([]arr.QueueRecord{{ID: 11, DownloadID: testHash}}, nil),
		f.sonarr.EXPECT().RemoveFromQueue(gomock.Any(), int64(11), blocklistOpts).Return(nil),
	)

	d, err := f.r.Reconcile(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, ActionRemoveAndBlocklist, d.Action)

	e := f.nextEvent(t)
	assert.Equal(t, events.EntitySeries, e.EntityType())
	assert.Equal(t, int64(9), e.EntityID())
}

func TestReconcile_FilesFailure(t *testing.T) {
	f := newReconcileFixture(t, 0)
	f.client.EXPECT().Files(gomock.Any(), testHash).Return(nil, download.ErrClientUnavailable)
	f.client.EXPECT().Resume(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.r.Reconcile(context.Background(), radarrGrab())
	require.ErrorIs(t, err, download.ErrClientUnavailable)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageFetchFiles, se.Stage)

	e, ok := f.nextEvent(t).(*events.ReconcileFailed)
	require.True(t, ok)
	assert.Equal(t, string(StageFetchFiles), e.Stage)
	assert.NotEmpty(t, e.Error)
}

func TestReconcile_QueueFailureLeavesTorrentAlone(t *testing.T) {
	f := newReconcileFixture(t, 0)
	f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{{Name: "a.exe"}}, nil)
	f.radarr.EXPECT().Queue(gomock.Any(), int64(42)).Return(nil, arr.ErrUnauthorized)
	f.client.EXPECT().Resume(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.r.Reconcile(context.Background(), radarrGrab())
	require.ErrorIs(t, err, arr.ErrUnauthorized)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageFetchQueue, se.Stage)
}

func TestReconcile_RemoveFailure(t *testing.T) {
	f := newReconcileFixture(t, 0)
	f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{{Name: "a.exe"}}, nil)
	f.radarr.EXPECT().Queue(gomock.Any(), int64(42)).Return([]arr.QueueRecord{{ID: 1, DownloadID: testHash}}, nil)
	f.radarr.EXPECT().RemoveFromQueue(gomock.Any(), int64(1), blocklistOpts).Return(arr.ErrUnavailable)
	f.client.EXPECT().Resume(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.r.Reconcile(context.Background(), radarrGrab())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageRemove, se.Stage)
	assert.ErrorIs(t, err, arr.ErrUnavailable)
}

func TestReconcile_ResumeFailure(t *testing.T) {
	f := newReconcileFixture(t, 0)
	f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{{Name: "a.mkv"}}, nil)
	f.client.EXPECT().Resume(gomock.Any(), testHash).Return(download.ErrAuthFailed)

	_, err := f.r.Reconcile(context.Background(), radarrGrab())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageResume, se.Stage)
	assert.ErrorIs(t, err, download.ErrAuthFailed)
}

func TestReconcile_MissingQueueClient(t *testing.T) {
	f := newReconcileFixture(t, 0)
	delete(f.r.queues, webhook.SourceRadarr)
	f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{{Name: "a.exe"}}, nil)

	_, err := f.r.Reconcile(context.Background(), radarrGrab())
	assert.ErrorIs(t, err, ErrNoQueueClient)
}

func TestReconcile_CanceledDuringDelay(t *testing.T) {
	f := newReconcileFixture(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.r.Reconcile(ctx, radarrGrab())
	require.ErrorIs(t, err, context.Canceled)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDelay, se.Stage)
}

func TestReconcile_WaitsForDelay(t *testing.T) {
	f := newReconcileFixture(t, 20*time.Millisecond)
	f.client.EXPECT().Files(gomock.Any(), testHash).Return(nil, nil)
	f.client.EXPECT().Resume(gomock.Any(), testHash).Return(nil)

	start := time.Now()
	_, err := f.r.Reconcile(context.Background(), radarrGrab())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestReconcile_EventsCarryRequestID(t *testing.T) {
	f := newReconcileFixture(t, 0)
	f.client.EXPECT().Files(gomock.Any(), testHash).Return(nil, nil)
	f.client.EXPECT().Resume(gomock.Any(), testHash).Return(nil)

	ctx := reqid.With(context.Background(), "req-123")
	_, err := f.r.Reconcile(ctx, radarrGrab())
	require.NoError(t, err)

	e, ok := f.nextEvent(t).(*events.ReleaseResumed)
	require.True(t, ok)
	assert.Equal(t, "req-123", e.RequestID)
}

func TestReconcile_SequentialGrabs(t *testing.T) {
	f := newReconcileFixture(t, 0)
	other := radarrGrab()
	other.DownloadID = "FFFF"

	gomock.InOrder(
		f.client.EXPECT().Files(gomock.Any(), testHash).Return([]download.TorrentFile{{Name: "a.mkv"}}, nil),
		f.client.EXPECT().Resume(gomock.Any(), testHash).Return(nil),
		f.client.EXPECT().Files(gomock.Any(), "FFFF").Return([]download.TorrentFile{{Name: "a.exe"}}, nil),
		f.radarr.EXPECT().Queue(gomock.Any(), int64(42)).Return([]arr.QueueRecord{{ID: 2, DownloadID: "ffff"}}, nil),
		f.radarr.EXPECT().RemoveFromQueue(gomock.Any(), int64(2), blocklistOpts).Return(nil),
	)

	_, err := f.r.Reconcile(context.Background(), radarrGrab())
	require.NoError(t, err)
	_, err = f.r.Reconcile(context.Background(), other)
	require.NoError(t, err)

	assert.Equal(t, events.EventReleaseResumed, f.nextEvent(t).EventType())
	assert.Equal(t, events.EventReleaseBlocklisted, f.nextEvent(t).EventType())
}
