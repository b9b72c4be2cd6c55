// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FILTARR_SERVER_PORT.
const EnvPrefix = "FILTARR"

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `toml:"server" mapstructure:"server"`
	QBittorrent QBittorrentConfig `toml:"qbittorrent" mapstructure:"qbittorrent"`
	Radarr      ManagerConfig     `toml:"radarr" mapstructure:"radarr"`
	Sonarr      ManagerConfig     `toml:"sonarr" mapstructure:"sonarr"`
	Filter      FilterConfig      `toml:"filter" mapstructure:"filter"`
	Webhook     WebhookConfig     `toml:"webhook" mapstructure:"webhook"`
	History     HistoryConfig     `toml:"history" mapstructure:"history"`
}

type ServerConfig struct {
	Host          string `toml:"host" mapstructure:"host"`
	Port          int    `toml:"port" mapstructure:"port"`
	LogLevel      string `toml:"log_level" mapstructure:"log_level"`
	LogFormat     string `toml:"log_format" mapstructure:"log_format"`
	LogFile       string `toml:"log_file" mapstructure:"log_file"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb" mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups" mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `toml:"log_max_age_days" mapstructure:"log_max_age_days"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type QBittorrentConfig struct {
	URL        string        `toml:"url" mapstructure:"url"`
	Username   string        `toml:"username" mapstructure:"username"`
	Password   string        `toml:"password" mapstructure:"password"`
	ClientName string        `toml:"client_name" mapstructure:"client_name"`
	Timeout    time.Duration `toml:"timeout" mapstructure:"timeout"`
}

// ManagerConfig configures a Radarr or Sonarr instance.
type ManagerConfig struct {
	URL    string `toml:"url" mapstructure:"url"`
	APIKey string `toml:"api_key" mapstructure:"api_key"`
}

// Enabled reports whether the manager's webhook route and queue client are active.
func (m ManagerConfig) Enabled() bool {
	return m.URL != "" && m.APIKey != ""
}

type FilterConfig struct {
	Extensions []string      `toml:"extensions" mapstructure:"extensions"`
	Delay      time.Duration `toml:"delay" mapstructure:"delay"`
	PageSize   int           `toml:"page_size" mapstructure:"page_size"`
	MaxPages   int           `toml:"max_pages" mapstructure:"max_pages"`
}

type WebhookConfig struct {
	APIKey     string        `toml:"api_key" mapstructure:"api_key"`
	PendingTTL time.Duration `toml:"pending_ttl" mapstructure:"pending_ttl"`
}

// HistoryConfig enables the SQLite decision history when Path is set.
type HistoryConfig struct {
	Path      string        `toml:"path" mapstructure:"path"`
	Retention time.Duration `toml:"retention" mapstructure:"retention"`
}

var defaultExtensions = []string{
	".exe", ".bat", ".cmd", ".com", ".scr", ".pif", ".msi", ".dll", ".vbs", ".js",
	".jar", ".app", ".deb", ".rpm", ".dmg", ".pkg", ".zip", ".rar", ".7z", ".tar", ".gz",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "text")
	v.SetDefault("server.log_file", "")
	v.SetDefault("server.log_max_size_mb", 10)
	v.SetDefault("server.log_max_backups", 3)
	v.SetDefault("server.log_max_age_days", 28)

	v.SetDefault("qbittorrent.url", "http://localhost:8080")
	v.SetDefault("qbittorrent.username", "admin")
	v.SetDefault("qbittorrent.password", "adminadmin")
	v.SetDefault("qbittorrent.client_name", "qBittorrent")
	v.SetDefault("qbittorrent.timeout", "30s")

	v.SetDefault("radarr.url", "http://localhost:7878")
	v.SetDefault("radarr.api_key", "")
	v.SetDefault("sonarr.url", "http://localhost:8989")
	v.SetDefault("sonarr.api_key", "")

	v.SetDefault("filter.extensions", slices.Clone(defaultExtensions))
	v.SetDefault("filter.delay", "10s")
	v.SetDefault("filter.page_size", 1000)
	v.SetDefault("filter.max_pages", 10)

	v.SetDefault("webhook.api_key", "")
	v.SetDefault("webhook.pending_ttl", "1h")

	v.SetDefault("history.path", "")
	v.SetDefault("history.retention", "720h")
}

// legacyEnv maps keys to the unprefixed variable names older deployments use.
var legacyEnv = map[string]string{
	"qbittorrent.url":      "QBITTORRENT_URL",
	"qbittorrent.username": "QBITTORRENT_USERNAME",
	"qbittorrent.password": "QBITTORRENT_PASSWORD",
	"radarr.url":           "RADARR_URL",
	"radarr.api_key":       "RADARR_API_KEY",
	"sonarr.url":           "SONARR_URL",
	"sonarr.api_key":       "SONARR_API_KEY",
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, legacy)
	}
	return v
}

// Default returns the built-in configuration, without file or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; a decode failure is a programming error.
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return &cfg
}

// Load reads the configuration file at path, applies environment overrides
// and validates the result. An empty path loads defaults and environment only.
// Unresolved ${VAR} references and validation failures are returned together
// as a *ConfigError.
func Load(path string) (*Config, error) {
	v := newViper()
	cfgErr := &ConfigError{Path: path}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}

		// Substitute environment variables
		content, missing := substituteEnvVars(string(data))
		cfgErr.Missing = missing

		if err := v.ReadConfig(strings.NewReader(content)); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfgErr.Errors = cfg.Validate()
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return &cfg, nil
}

// envVarPattern matches ${VAR_NAME} references.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// References to unset variables are left in place and returned as missing.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		if !slices.Contains(missing, varName) {
			missing = append(missing, varName)
		}
		return match
	})
	return out, missing
}
