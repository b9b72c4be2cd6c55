package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
[qbittorrent]
url = "http://qbit:8080"

[radarr]
url = "http://radarr:7878"
api_key = "key"
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunConfigTest_Valid(t *testing.T) {
	path := writeFile(t, validConfig)

	var out bytes.Buffer
	require.NoError(t, runConfigTest(&out, path))
	assert.Contains(t, out.String(), "Validating "+path)
	assert.Contains(t, out.String(), "radarr (http://radarr:7878)")
	assert.Contains(t, out.String(), "Configuration valid!")
}

func TestRunConfigTest_Invalid(t *testing.T) {
	path := writeFile(t, `
[server]
port = 0

[radarr]
api_key = "${FILTARR_CLI_TEST_UNSET}"
`)
	os.Unsetenv("FILTARR_CLI_TEST_UNSET")

	var out bytes.Buffer
	err := runConfigTest(&out, path)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Missing environment variables:")
	assert.Contains(t, out.String(), "FILTARR_CLI_TEST_UNSET")
	assert.Contains(t, out.String(), "server.port")
}

func TestRunConfigTest_MissingFile(t *testing.T) {
	var out bytes.Buffer
	err := runConfigTest(&out, filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filtarr", "config.toml")

	var out bytes.Buffer
	require.NoError(t, runConfigInit(&out, path, false))
	assert.FileExists(t, path)
	assert.Contains(t, out.String(), "Wrote "+path)

	err := runConfigInit(&out, path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, runConfigInit(&out, path, true))
}

func TestResolveConfigPath_Explicit(t *testing.T) {
	path, err := resolveConfigPath("/some/where.toml")
	require.NoError(t, err)
	assert.Equal(t, "/some/where.toml", path)
}

func TestResolveConfigPath_NotFound(t *testing.T) {
	t.Setenv("FILTARR_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(t.TempDir(), "xdg"))
	t.Chdir(t.TempDir())

	path, err := resolveConfigPath("")
	require.NoError(t, err)
	assert.Empty(t, path, "no file means defaults plus environment")
}
