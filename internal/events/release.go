package events

// Entity types
const (
	EntityMovie  = "movie"
	EntitySeries = "series"
)

// Event type constants
const (
	EventGrabAccepted       = "grab.accepted"
	EventReleaseResumed     = "release.resumed"
	EventReleaseBlocklisted = "release.blocklisted"
	EventReconcileFailed    = "reconcile.failed"
)

// Release identifies the grab an event is about.
type Release struct {
	Source       string `json:"source"`
	DownloadID   string `json:"download_id"`
	ReleaseTitle string `json:"release_title"`
	Title        string `json:"title,omitempty"`
}

// GrabAccepted is emitted when a grab webhook passes validation and is queued.
type GrabAccepted struct {
	BaseEvent
	Release
}

// ReleaseResumed is emitted when the torrent was allowed to continue.
type ReleaseResumed struct {
	BaseEvent
	Release
	Reason string `json:"reason"` // "clean", "no_queue_entry" or "queue_entry_gone"
}

// ReleaseBlocklisted is emitted when the queue entry was removed and blocklisted.
type ReleaseBlocklisted struct {
	BaseEvent
	Release
	QueueEntryID int64  `json:"queue_entry_id"`
	File         string `json:"file"`
	Extension    string `json:"extension"`
}

// ReconcileFailed is emitted when an upstream failure abandoned the grab.
type ReconcileFailed struct {
	BaseEvent
	Release
	Stage string `json:"stage"`
	Error string `json:"error"`
}
