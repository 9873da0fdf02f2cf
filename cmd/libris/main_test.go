package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/libris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "libris.yaml")
	body := fmt.Sprintf(`database:
  driver: sqlite
  dsn: %s
session:
  backend: sql
log:
  level: error
`, filepath.Join(dir, "libris.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "libris version "+libris.Version+"\n", out)
}

func TestDirectoryAndSessions(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema up to date (sqlite)")

	out, err = execute(t, "--config", cfg, "directory", "add-employee", "Ada Admin", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Ada Admin <ada@example.com>")

	_, err = execute(t, "--config", cfg, "directory", "add-employee", "Bob", "not-an-email")
	assert.ErrorContains(t, err, "invalid email")

	_, err = execute(t, "--config", cfg, "directory", "grant-admin", "404")
	assert.Error(t, err)

	out, err = execute(t, "--config", cfg, "session", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No active sessions found.")

	_, err = execute(t, "--config", cfg, "session", "inspect", "nobody")
	assert.Error(t, err)
}

func TestGrantAdminHelpMentionsCache(t *testing.T) {
	out, err := execute(t, "directory", "grant-admin", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "LIBRIS_BOT_IDENTITY_TTL")
	assert.Contains(t, out, "restart serve")
}

func TestServeRequiresSecret(t *testing.T) {
	t.Setenv("LIBRIS_JWT_SECRET", "")
	cfg := writeConfig(t)

	_, err := execute(t, "--config", cfg, "serve")
	assert.ErrorIs(t, err, errNoSecret)
}
