// Package arr is a client for the download queue of Radarr and Sonarr (API v3).
package arr

import (
	"context"
	"errors"
)

// Kind identifies which media manager a client talks to.
type Kind string

const (
	KindRadarr Kind = "radarr"
	KindSonarr Kind = "sonarr"
)

// subjectParam is the queue filter parameter for the kind's media IDs.
func (k Kind) subjectParam() string {
	if k == KindSonarr {
		return "seriesIds"
	}
	return "movieIds"
}

// QueueRecord is one pending download in a manager's queue.
type QueueRecord struct {
	ID             int64
	SubjectID      int64 // movieId for Radarr, seriesId for Sonarr
	DownloadID     string
	Title          string
	Status         string
	Protocol       string
	DownloadClient string
}

// RemoveOptions controls what the manager does besides dropping the queue entry.
type RemoveOptions struct {
	RemoveFromClient bool
	Blocklist        bool
}

// QueueClient reads and prunes a media manager's download queue.
//
//go:generate mockgen -destination=mocks/mock_queue.go -package=mocks github.com/vmunix/filtarr/internal/arr QueueClient
type QueueClient interface {
	// Queue lists queue records for the given media IDs.
	Queue(ctx context.Context, subjectIDs ...int64) ([]QueueRecord, error)
	// RemoveFromQueue deletes a queue record.
	RemoveFromQueue(ctx context.Context, id int64, opts RemoveOptions) error
}

// Sentinel errors for the arr package.
var (
	// ErrUnavailable is returned when the manager cannot be reached or fails with a server error.
	ErrUnavailable = errors.New("media manager unavailable")

	// ErrUnauthorized is returned when the manager rejects the API key.
	ErrUnauthorized = errors.New("media manager rejected api key")

	// ErrQueueItemNotFound is returned when the queue record no longer exists.
	ErrQueueItemNotFound = errors.New("queue item not found")

	errNotFound = errors.New("not found")
)
