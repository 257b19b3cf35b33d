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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
site_url: https://lists.example.com/sites/ideas
listen_addr: ":9090"
lists:
  ideas: Ideas
  activity: Idea Activity
gateway:
  max_retries: 5
  retry_base_delay: 2s
  no_retry_on_client_error: true
board:
  reconcile_delay: 500ms
actor:
  name: lee
  id: 7
logging:
  level: debug
  json: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://lists.example.com/sites/ideas", cfg.SiteURL)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "Idea Activity", cfg.Lists.Activity)
	assert.Equal(t, 5, cfg.Gateway.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Gateway.RetryBaseDelay)
	assert.True(t, cfg.Gateway.NoRetryOnClientError)
	assert.Equal(t, 500*time.Millisecond, cfg.Board.ReconcileDelay)
	assert.Equal(t, "lee", cfg.Actor.Name)
	assert.Equal(t, 7, cfg.Actor.ID)

	// Fields the file omits keep their defaults.
	assert.Equal(t, "IdeaDiscussions", cfg.Lists.Discussions)
	assert.Equal(t, 250*time.Millisecond, cfg.Gateway.RequestSpacing)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
site_url: https://lists.example.com/sites/ideas
actor:
  name: lee
`)
	t.Setenv("DASHBOARD_SITE_URL", "https://other.example.com")
	t.Setenv("DASHBOARD_ACTOR_NAME", "dana")
	t.Setenv("DASHBOARD_ACTOR_ID", "11")
	t.Setenv("DASHBOARD_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://other.example.com", cfg.SiteURL, "env must win over the file")
	assert.Equal(t, "dana", cfg.Actor.Name)
	assert.Equal(t, 11, cfg.Actor.ID)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("DASHBOARD_SITE_URL", "")
	t.Setenv("DASHBOARD_ACTOR_NAME", "")

	_, err := Load(writeConfig(t, `actor: {name: lee}`))
	assert.Error(t, err, "missing site_url")

	_, err = Load(writeConfig(t, `site_url: https://x.example.com`))
	assert.Error(t, err, "missing actor.name")

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err, "missing file")

	_, err = Load(writeConfig(t, "site_url: [broken"))
	assert.Error(t, err, "malformed yaml")
}
