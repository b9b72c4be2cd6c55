// Package webhook decodes and validates Radarr and Sonarr "On Grab" webhooks.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Source identifies the media manager that sent a webhook.
type Source string

const (
	SourceRadarr Source = "radarr"
	SourceSonarr Source = "sonarr"
)

// subjectKey is the payload field that holds the media object.
func (s Source) subjectKey() string {
	if s == SourceSonarr {
		return "series"
	}
	return "movie"
}

// Entity returns the event entity type for the source's media.
func (s Source) Entity() string {
	return s.subjectKey()
}

// Event types understood by the ingress.
const (
	EventGrab = "Grab"
	EventTest = "Test"
)

// DefaultClientName is the download client name Radarr and Sonarr report
// for qBittorrent.
const DefaultClientName = "qBittorrent"

// Grab is a validated grab notification.
type Grab struct {
	Source         Source
	MediaID        int64
	Title          string
	ImdbID         string
	TmdbID         int64
	ReleaseTitle   string
	DownloadID     string
	DownloadClient string
}

// Issue describes one validation failure.
type Issue struct {
	Code    string   `json:"code"`
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Issue codes.
const (
	CodeInvalidJSON    = "invalid_json"
	CodeInvalidType    = "invalid_type"
	CodeInvalidLiteral = "invalid_literal"
	CodeTooSmall       = "too_small"
)

// Payload is a decoded but unvalidated webhook body.
type Payload map[string]any

// ErrNotObject is returned by Decode when the body is valid JSON but not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Decode parses a webhook body. Numbers are kept as json.Number so that
// integer fields can be checked exactly.
func Decode(body []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode payload: trailing data after object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Payload(obj), nil
}

// EventType returns the eventType field, or "" when absent or not a string.
func (p Payload) EventType() string {
	s, _ := p["eventType"].(string)
	return s
}

// IsTest reports whether the payload is a connection test.
func (p Payload) IsTest() bool {
	return p.EventType() == EventTest
}
