package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[server]
log_level = "debug"
poll_interval = "30s"

[database]
path = "/var/lib/grabarr/grabarr.db"

[libraries.movies]
root = "/library/movies"

[[clients]]
name = "sab-main"
type = "sabnzbd"
url = "http://localhost:8080"
api_key = "secret"
priority = 1
enabled = true
remote_path = "/downloads"
local_path = "/mnt/sab/downloads"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Server.PollInterval.Std())
	assert.Equal(t, "/var/lib/grabarr/grabarr.db", cfg.Database.Path)
	assert.Equal(t, "/library/movies", cfg.Libraries.Movies.Root)
	require.Len(t, cfg.Clients, 1)
	assert.Equal(t, "sab-main", cfg.Clients[0].Name)
	assert.Equal(t, "/downloads", cfg.Clients[0].RemotePath)
	assert.True(t, cfg.Clients[0].Enabled)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
[libraries.movies]
root = "/library/movies"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, time.Minute, cfg.Server.PollInterval.Std())
	assert.Equal(t, "./data/grabarr.db", cfg.Database.Path)
}

func TestLoadEnvSubstitution(t *testing.T) {
	t.Setenv("GRABARR_TEST_API_KEY", "from-env")

	path := writeConfig(t, `
[[clients]]
name = "sab-main"
type = "sabnzbd"
url = "http://localhost:8080"
api_key = "${GRABARR_TEST_API_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Clients, 1)
	assert.Equal(t, "from-env", cfg.Clients[0].APIKey)
}

func TestLoadEnvSubstitutionUnsetLeftAlone(t *testing.T) {
	path := writeConfig(t, `
[database]
path = "${GRABARR_TEST_UNSET_VAR}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${GRABARR_TEST_UNSET_VAR}", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	assert.Error(t, err)
}

func TestLoadBadTOML(t *testing.T) {
	path := writeConfig(t, `[server`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateOK(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{LogLevel: "info"},
		Libraries: LibrariesConfig{Movies: LibraryConfig{Root: "/library/movies"}},
		Clients: []ClientConfig{{
			Name: "sab-main", Type: "sabnzbd",
			URL: "http://localhost:8080", APIKey: "secret",
		}},
	}
	assert.Empty(t, cfg.Validate())
}

func TestValidateErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{LogLevel: "loud"},
		Clients: []ClientConfig{
			{Name: "a", Type: "torrent", URL: "", APIKey: ""},
			{Name: "a", Type: "sabnzbd", URL: "http://x", APIKey: "k", RemotePath: "/downloads"},
		},
	}
	errs := cfg.Validate()

	assert.Contains(t, errs, `server.log_level: must be one of debug, info, warn, error; got "loud"`)

	joined := ""
	for _, e := range errs {
		joined += e + "\n"
	}
	assert.Contains(t, joined, "at least one library root")
	assert.Contains(t, joined, "unknown type")
	assert.Contains(t, joined, "url: required")
	assert.Contains(t, joined, "api_key: required")
	assert.Contains(t, joined, "duplicate name")
	assert.Contains(t, joined, "remote_path and local_path must be set together")
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Std())

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
