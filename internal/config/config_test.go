package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/libris/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "libris.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bot:
  link: https://t.me/yaml_bot
  page_size: 8
session:
  backend: redis
  ttl: 2h
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LIBRIS_BOT_PAGE_SIZE=3\n"), 0o600))
	t.Setenv("LIBRIS_SESSION_BACKEND", "cache")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/yaml_bot", cfg.Bot.Link, "YAML overrides defaults")
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 3, cfg.Bot.PageSize, ".env overrides YAML")
	assert.Equal(t, "cache", cfg.Session.Backend, "environment overrides YAML")
	assert.Equal(t, 15*time.Second, cfg.Bot.IdentityTTL)

	t.Setenv("LIBRIS_BOT_IDENTITY_TTL", "0s")
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Bot.IdentityTTL, "zero turns the identity cache off")

	// godotenv.Load sets the process environment; unset it for later tests.
	require.NoError(t, os.Unsetenv("LIBRIS_BOT_PAGE_SIZE"))
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("LIBRIS_SESSION_BACKEND", "etcd")
	_, err := config.Load("")
	assert.ErrorContains(t, err, "unknown backend")

	t.Setenv("LIBRIS_SESSION_BACKEND", "memory")
	t.Setenv("LIBRIS_BOT_PAGE_SIZE", "many")
	_, err = config.Load("")
	assert.ErrorContains(t, err, "LIBRIS_BOT_PAGE_SIZE")
}
