// Package download talks to the torrent client that holds grabbed releases.
package download

import "context"

// TorrentFile is one file inside a torrent as reported by the client.
type TorrentFile struct {
	Name         string  `json:"name"`
	Size         int64   `json:"size"`
	Progress     float64 `json:"progress"` // 0-1
	Priority     int     `json:"priority"`
	IsSeed       bool    `json:"is_seed"`
	Availability float64 `json:"availability"`
}

// TorrentClient inspects and resumes torrents by info hash.
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/vmunix/filtarr/internal/download TorrentClient
type TorrentClient interface {
	// Authenticate establishes a session. Calling it with a live session is a no-op.
	Authenticate(ctx context.Context) error
	// Files lists the files of the torrent identified by hash.
	Files(ctx context.Context, hash string) ([]TorrentFile, error)
	// Resume starts the torrent identified by hash. Resuming a running torrent is a no-op.
	Resume(ctx context.Context, hash string) error
}
