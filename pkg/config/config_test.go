package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	content := `
server:
  listen: ":9090"
  timeout: 45s

cache:
  duration: 300s

search:
  max_history: 720h

sources:
  microblog:
    access_token: "test-token"
    page_size: 25
  socialnetwork:
    client_id: "app-id"
    client_secret: "app-secret"
`
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 300*time.Second, cfg.Cache.Duration)
	assert.Equal(t, 720*time.Hour, cfg.Search.MaxHistory)
	assert.Equal(t, "test-token", cfg.Sources.Microblog.AccessToken)
	assert.Equal(t, 25, cfg.Sources.Microblog.PageSize)
	assert.Equal(t, "app-id", cfg.Sources.SocialNetwork.ClientID)
}

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 900*time.Second, cfg.Cache.Duration)
	assert.Equal(t, 26*7*24*time.Hour, cfg.Search.MaxHistory)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 50, cfg.Sources.Microblog.PageSize)
	assert.NotEmpty(t, cfg.Sources.SocialNetwork.Fields)
	assert.Empty(t, cfg.Sources.Microblog.AccessToken, "credentials have no default")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_MICROBLOG_TOKEN", "secret-from-env")

	content := `
sources:
  microblog:
    access_token: "${TEST_MICROBLOG_TOKEN}"
`
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.Sources.Microblog.AccessToken)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load("/nonexistent/config.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
