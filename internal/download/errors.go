package download

import "errors"

// Sentinel errors for the download package.
var (
	// ErrClientUnavailable is returned when the download client cannot be reached
	// or answers with a server error.
	ErrClientUnavailable = errors.New("download client unavailable")

	// ErrAuthFailed is returned when the client rejects the configured credentials.
	ErrAuthFailed = errors.New("download client authentication failed")

	// ErrTorrentNotFound is returned when the client does not know the hash.
	ErrTorrentNotFound = errors.New("torrent not found in client")

	// errSessionExpired marks a 403 on an authenticated call.
	errSessionExpired = errors.New("session expired")
)
