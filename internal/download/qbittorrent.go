package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vmunix/filtarr/internal/metrics"
)

const (
	endpointLogin  = "auth/login"
	endpointFiles  = "torrents/files"
	endpointResume = "torrents/resume"
	endpointStart  = "torrents/start" // qBittorrent 5.x name for resume
)

// QBittorrentClient interacts with the qBittorrent Web API v2.
// The session cookie is shared by every caller of the client.
type QBittorrentClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	log        *slog.Logger

	mu            sync.Mutex
	authenticated bool
	resumePath    string
}

// NewQBittorrentClient creates a new qBittorrent client.
// A zero timeout falls back to 30 seconds.
func NewQBittorrentClient(baseURL, username, password string, timeout time.Duration, log *slog.Logger) *QBittorrentClient {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// cookiejar.New only fails on a bad PublicSuffixList, and we pass none.
	jar, _ := cookiejar.New(nil)
	return &QBittorrentClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		password:   password,
		resumePath: endpointResume,
		log:        log.With("component", "qbittorrent"),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// Authenticate logs in unless a session is already established.
func (c *QBittorrentClient) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authenticated {
		return nil
	}
	return c.login(ctx)
}

// Files lists the files of a torrent.
func (c *QBittorrentClient) Files(ctx context.Context, hash string) ([]TorrentFile, error) {
	hash = strings.ToLower(hash)
	c.log.Debug("fetching files", "hash", hash)

	var files []TorrentFile
	err := c.withSession(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, endpointFiles, url.Values{"hash": {hash}})
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &files); err != nil {
			return fmt.Errorf("decode files: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Debug("files fetched", "hash", hash, "count", len(files))
	return files, nil
}

// Resume starts a paused torrent. Older servers expose torrents/resume and
// 5.x servers torrents/start; the first 404 switches endpoints for good.
func (c *QBittorrentClient) Resume(ctx context.Context, hash string) error {
	hash = strings.ToLower(hash)
	params := url.Values{"hashes": {hash}}

	err := c.withSession(ctx, func() error {
		endpoint := c.resumeEndpoint()
		_, err := c.doRequest(ctx, http.MethodPost, endpoint, params)
		if errors.Is(err, ErrTorrentNotFound) && endpoint == endpointResume {
			c.log.Info("resume endpoint missing, switching to start", "hash", hash)
			c.setResumeEndpoint(endpointStart)
			_, err = c.doRequest(ctx, http.MethodPost, endpointStart, params)
		}
		return err
	})
	if err != nil {
		return err
	}

	c.log.Debug("torrent resumed", "hash", hash)
	return nil
}

// withSession runs op with a live session. A 403 from op means the session
// expired: the client logs in again and op runs one more time.
func (c *QBittorrentClient) withSession(ctx context.Context, op func() error) error {
	attempt := func() error {
		if err := c.Authenticate(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if errors.Is(err, errSessionExpired) {
			c.log.Debug("session expired, re-authenticating")
			c.resetSession()
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1), ctx)
	err := backoff.Retry(attempt, policy)
	if errors.Is(err, errSessionExpired) {
		return fmt.Errorf("%w: session rejected after re-login", ErrAuthFailed)
	}
	return err
}

// login must be called with c.mu held.
func (c *QBittorrentClient) login(ctx context.Context) error {
	start := time.Now()
	defer metrics.ObserveUpstream("qbittorrent", endpointLogin, start)

	form := url.Values{
		"username": {c.username},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(endpointLogin), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("login request failed", "error", err)
		return ErrClientUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode == http.StatusForbidden:
		c.authenticated = false
		return fmt.Errorf("%w: too many failed attempts, client refused login", ErrAuthFailed)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: login status %d", ErrClientUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("login unexpected status: %d", resp.StatusCode)
	}

	if strings.TrimSpace(string(body)) != "Ok." {
		c.authenticated = false
		return ErrAuthFailed
	}

	c.authenticated = true
	c.log.Debug("authenticated", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *QBittorrentClient) resetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = false
}

func (c *QBittorrentClient) resumeEndpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumePath
}

func (c *QBittorrentClient) setResumeEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumePath = endpoint
}

func (c *QBittorrentClient) apiURL(endpoint string) string {
	return c.baseURL + "/api/v2/" + endpoint
}

// doRequest performs an authenticated API call and returns the response body.
// GET parameters go in the query string, POST parameters in a form body.
func (c *QBittorrentClient) doRequest(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	start := time.Now()
	defer metrics.ObserveUpstream("qbittorrent", endpoint, start)

	reqURL := c.apiURL(endpoint)
	var body io.Reader
	if method == http.MethodGet {
		reqURL += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "endpoint", endpoint, "error", err)
		return nil, ErrClientUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, errSessionExpired
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTorrentNotFound
	case resp.StatusCode >= 500:
		c.log.Debug("api server error", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrClientUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		c.log.Debug("api unexpected status", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("api request complete", "endpoint", endpoint, "duration_ms", time.Since(start).Milliseconds())
	return data, nil
}
