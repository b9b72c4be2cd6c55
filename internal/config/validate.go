package config

import (
	"fmt"
	"net/url"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}
	if !validLogFormats[c.Server.LogFormat] {
		errs = append(errs, fmt.Sprintf("server.log_format: must be text or json; got %q", c.Server.LogFormat))
	}

	// qBittorrent validation
	if msg := checkURL(c.QBittorrent.URL); msg != "" {
		errs = append(errs, "qbittorrent.url: "+msg)
	}
	if c.QBittorrent.Timeout <= 0 {
		errs = append(errs, "qbittorrent.timeout: must be positive")
	}

	// Managers
	if !c.Radarr.Enabled() && !c.Sonarr.Enabled() {
		errs = append(errs, "radarr, sonarr: at least one of radarr or sonarr must have url and api_key set")
	}
	if c.Radarr.Enabled() {
		if msg := checkURL(c.Radarr.URL); msg != "" {
			errs = append(errs, "radarr.url: "+msg)
		}
	}
	if c.Sonarr.Enabled() {
		if msg := checkURL(c.Sonarr.URL); msg != "" {
			errs = append(errs, "sonarr.url: "+msg)
		}
	}

	// Filter validation
	if len(c.Filter.Extensions) == 0 {
		errs = append(errs, "filter.extensions: at least one extension is required")
	}
	if c.Filter.Delay < 0 {
		errs = append(errs, "filter.delay: must not be negative")
	}
	if c.Filter.PageSize < 1 {
		errs = append(errs, fmt.Sprintf("filter.page_size: must be positive, got %d", c.Filter.PageSize))
	}
	if c.Filter.MaxPages < 1 {
		errs = append(errs, fmt.Sprintf("filter.max_pages: must be positive, got %d", c.Filter.MaxPages))
	}

	if c.Webhook.PendingTTL <= 0 {
		errs = append(errs, "webhook.pending_ttl: must be positive")
	}

	if c.History.Path != "" && c.History.Retention <= 0 {
		errs = append(errs, "history.retention: must be positive when history.path is set")
	}

	return errs
}

func checkURL(raw string) string {
	if raw == "" {
		return "required"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("must be an http or https URL, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("missing host in %q", raw)
	}
	return ""
}
