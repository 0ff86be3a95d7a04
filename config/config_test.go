package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8080"
cms:
  project_id: abc123
  dataset: staging
  use_cdn: true
  revalidate: 30s
cron:
  warm_interval: "@every 5m"
site:
  name: Test Crypto
`)
	t.Setenv("SANITY_API_READ_TOKEN", "secret")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.GetServerAddress())
	assert.Equal(t, "abc123", cfg.CMS.ProjectID)
	assert.Equal(t, "staging", cfg.CMS.Dataset)
	assert.Equal(t, "secret", cfg.CMS.Token)
	assert.True(t, cfg.CMS.UseCDN)
	assert.Equal(t, 30*time.Second, cfg.CMS.Revalidate)
	assert.Equal(t, "2024-01-01", cfg.CMS.APIVersion)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis:6379", cfg.Cache.Addr)
	assert.Equal(t, "Test Crypto", cfg.Site.Name)
	assert.Equal(t, "Asia/Manila", cfg.Site.Timezone)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SANITY_PROJECT_ID", "envproj")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "envproj", cfg.CMS.ProjectID)
	assert.Equal(t, ":3000", cfg.GetServerAddress())
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing project": `cms: {project_id: ""}`,
		"bad cron":        "cms: {project_id: p}\ncron: {feed_interval: \"every tuesday\"}",
		"bad timezone":    "cms: {project_id: p}\nsite: {timezone: Mars/Olympus}",
		"bad mode":        "cms: {project_id: p}\nserver: {mode: turbo}",
		"bad base url":    "cms: {project_id: p}\nsite: {base_url: \"not a url\"}",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SANITY_PROJECT_ID", "")
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestGetServerAddress(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = "127.0.0.1:9000"
	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddress())
}

func TestSiteLocation(t *testing.T) {
	assert.Equal(t, "Asia/Manila", Default().Site.Location().String())
	assert.Equal(t, time.UTC, SiteConfig{Timezone: "Nowhere/Land"}.Location())
}
