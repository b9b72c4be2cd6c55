package arr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/filtarr/internal/metrics"
)

const (
	defaultPageSize = 1000
	defaultMaxPages = 10
)

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	PageSize int
	MaxPages int
	Timeout  time.Duration
}

// Client interacts with the Radarr or Sonarr queue API.
type Client struct {
	kind       Kind
	baseURL    string
	apiKey     string
	pageSize   int
	maxPages   int
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a new queue client for the given manager kind.
func NewClient(kind Kind, baseURL, apiKey string, opts Options, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		kind:     kind,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		log:      log.With("component", string(kind)),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// Kind returns the manager kind this client talks to.
func (c *Client) Kind() Kind {
	return c.kind
}

// Queue lists the queue records for the given media IDs. Pages are fetched
// until totalRecords is reached or the page cap is hit.
func (c *Client) Queue(ctx context.Context, subjectIDs ...int64) ([]QueueRecord, error) {
	params := url.Values{}
	for _, id := range subjectIDs {
		params.Add(c.kind.subjectParam(), strconv.FormatInt(id, 10))
	}
	params.Set("pageSize", strconv.Itoa(c.pageSize))

	var records []QueueRecord
	for page := 1; page <= c.maxPages; page++ {
		params.Set("page", strconv.Itoa(page))

		var resp queueResponse
		if err := c.doRequest(ctx, http.MethodGet, "queue", params, &resp); err != nil {
			if errors.Is(err, errNotFound) {
				return nil, fmt.Errorf("queue endpoint not found at %s", c.baseURL)
			}
			return nil, err
		}

		for _, r := range resp.Records {
			records = append(records, r.toRecord(c.kind))
		}

		if len(resp.Records) == 0 || len(records) >= resp.TotalRecords {
			break
		}
		if page == c.maxPages {
			c.log.Warn("queue listing truncated", "total_records", resp.TotalRecords, "fetched", len(records))
		}
	}

	c.log.Debug("queue fetched", "subject_ids", subjectIDs, "count", len(records))
	return records, nil
}

// RemoveFromQueue deletes a queue record.
func (c *Client) RemoveFromQueue(ctx context.Context, id int64, opts RemoveOptions) error {
	c.log.Debug("removing queue item", "queue_id", id,
		"remove_from_client", opts.RemoveFromClient, "blocklist", opts.Blocklist)

	params := url.Values{
		"removeFromClient": {strconv.FormatBool(opts.RemoveFromClient)},
		"blocklist":        {strconv.FormatBool(opts.Blocklist)},
	}

	err := c.doRequest(ctx, http.MethodDelete, "queue/"+strconv.FormatInt(id, 10), params, nil)
	if errors.Is(err, errNotFound) {
		return ErrQueueItemNotFound
	}
	if err != nil {
		return err
	}

	c.log.Debug("queue item removed", "queue_id", id)
	return nil
}

// doRequest performs an HTTP request to the manager API. result may be nil.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, result any) error {
	start := time.Now()
	operation := strings.SplitN(path, "/", 2)[0]
	if method == http.MethodDelete {
		operation = "queue/delete"
	}
	defer metrics.ObserveUpstream(string(c.kind), operation, start)

	reqURL := c.baseURL + "/api/v3/" + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode >= 500:
		c.log.Debug("api server error", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.log.Debug("api unexpected status", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	c.log.Debug("api request complete", "path", path, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Response types for the queue API

type queueResponse struct {
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
	TotalRecords int           `json:"totalRecords"`
	Records      []queueRecord `json:"records"`
}

type queueRecord struct {
	ID             int64  `json:"id"`
	MovieID        int64  `json:"movieId"`
	SeriesID       int64  `json:"seriesId"`
	DownloadID     string `json:"downloadId"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	Protocol       string `json:"protocol"`
	DownloadClient string `json:"downloadClient"`
}

func (r queueRecord) toRecord(kind Kind) QueueRecord {
	subject := r.MovieID
	if kind == KindSonarr {
		subject = r.SeriesID
	}
	return QueueRecord{
		ID:             r.ID,
		SubjectID:      subject,
		DownloadID:     r.DownloadID,
		Title:          r.Title,
		Status:         r.Status,
		Protocol:       r.Protocol,
		DownloadClient: r.DownloadClient,
	}
}

// FindByDownloadID returns the first record whose download ID matches,
// ignoring case.
func FindByDownloadID(records []QueueRecord, downloadID string) (QueueRecord, bool) {
	for _, r := range records {
		if strings.EqualFold(r.DownloadID, downloadID) {
			return r, true
		}
	}
	return QueueRecord{}, false
}
