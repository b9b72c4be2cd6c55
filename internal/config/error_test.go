package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError_Empty(t *testing.T) {
	e := &ConfigError{Path: "/etc/filtarr/config.toml"}
	assert.False(t, e.HasErrors())
	assert.Empty(t, e.Error())
}

func TestConfigError_MissingVars(t *testing.T) {
	e := &ConfigError{
		Path:    "/etc/filtarr/config.toml",
		Missing: []string{"RADARR_API_KEY", "SONARR_API_KEY"},
	}
	got := e.Error()
	assert.True(t, e.HasErrors())
	assert.Contains(t, got, "/etc/filtarr/config.toml")
	assert.Contains(t, got, "missing environment variables: RADARR_API_KEY, SONARR_API_KEY")
}

func TestConfigError_ValidationErrors(t *testing.T) {
	e := &ConfigError{
		Errors: []string{"server.port: must be between 1 and 65535", "filter.page_size: must be positive"},
	}
	got := e.Error()
	assert.Contains(t, got, "validation failed")
	assert.Contains(t, got, "  - server.port")
	assert.Contains(t, got, "  - filter.page_size")
	assert.NotContains(t, got, "missing environment variables")
}

func TestConfigError_Both(t *testing.T) {
	e := &ConfigError{
		Missing: []string{"API_KEY"},
		Errors:  []string{"server.port: invalid"},
	}
	got := e.Error()
	assert.Contains(t, got, "missing environment variables")
	assert.Contains(t, got, "validation failed")
}
