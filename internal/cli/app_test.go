package cli_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/libris/internal/cli"
	"github.com/aretw0/libris/internal/config"
	"github.com/aretw0/libris/internal/logging"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (o *outbox) SendVerificationCode(_ context.Context, email, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.codes == nil {
		o.codes = make(map[string]string)
	}
	o.codes[email] = code
	return nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "libris.db")
	return cfg
}

func texts(replies []domain.Reply) []string {
	out := make([]string, len(replies))
	for i, r := range replies {
		out[i] = r.Text
	}
	return out
}

func TestBuild_RegistersAMember(t *testing.T) {
	ctx := context.Background()
	mail := &outbox{}
	app, err := cli.Build(ctx, testConfig(t), cli.WithLogger(logging.NewNop()), cli.WithMailer(mail))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	_, err = app.Entities.CreateEmployee(ctx, domain.Employee{FullName: "Ada Admin", Email: "ada@example.com"})
	require.NoError(t, err)

	handle := func(text string) []domain.Reply {
		replies, err := app.Engine.Handle(ctx, "1", domain.TextInput(text))
		require.NoError(t, err)
		return replies
	}

	handle("/start")
	handle("ada@example.com")
	require.Contains(t, mail.codes, "ada@example.com")

	replies := handle(mail.codes["ada@example.com"])
	assert.Contains(t, texts(replies)[0], "Welcome, Ada Admin")

	members, err := app.Entities.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Ada Admin", members[0].FullName)

	series, err := testutil.GatherAndCount(app.Registry, "libris_commits_total")
	require.NoError(t, err)
	assert.Positive(t, series)

	ids, err := app.Sessions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "finished conversations leave no session behind")
}

func TestBuild_AsyncQRStartsAWorker(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bot.AsyncQR = true

	app, err := cli.Build(context.Background(), cfg, cli.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Worker)
}

func TestBuild_RejectsBadLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "loud"

	_, err := cli.Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	db, _, err := cli.OpenDatabase(context.Background(), testConfig(t).Database, logging.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name       string
		backend    string
		key        string
		wantLocker bool
	}{
		{name: "memory", backend: "memory"},
		{name: "file", backend: "file"},
		{name: "cache", backend: "cache"},
		{name: "sql", backend: "sql"},
		{name: "redis", backend: "redis", wantLocker: true},
		{name: "encrypted sql", backend: "sql", key: "0123456789abcdef0123456789abcdef"},
		{name: "encrypted redis", backend: "redis", key: "0123456789abcdef0123456789abcdef", wantLocker: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Session
			cfg.Backend = tt.backend
			cfg.RedisAddr = mr.Addr()
			cfg.Dir = t.TempDir()
			cfg.EncryptionKey = tt.key

			store, locker, closer, err := cli.OpenSessions(cfg, db)
			require.NoError(t, err)
			defer closer.Close()

			assert.Equal(t, tt.wantLocker, locker != nil)
			ports.RunStateStoreContract(t, store)
		})
	}
}

func TestOpenSessions_RedisLockKey(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default().Session
	cfg.Backend = "redis"
	cfg.RedisAddr = mr.Addr()
	cfg.Prefix = "office:"

	_, locker, closer, err := cli.OpenSessions(cfg, nil)
	require.NoError(t, err)
	defer closer.Close()
	require.NotNil(t, locker)

	unlock, err := locker.Lock(context.Background(), "42", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("office:lock:42"))
	assert.False(t, mr.Exists("office:lock:lock:42"))
	require.NoError(t, unlock(context.Background()))
	assert.False(t, mr.Exists("office:lock:42"))
}

func TestOpenSessions_Errors(t *testing.T) {
	cfg := config.Default().Session

	cfg.Backend = "sql"
	_, _, _, err := cli.OpenSessions(cfg, nil)
	assert.Error(t, err)

	cfg.Backend = "etcd"
	_, _, _, err = cli.OpenSessions(cfg, nil)
	assert.Error(t, err)

	cfg.Backend = "memory"
	cfg.EncryptionKey = "short"
	_, _, _, err = cli.OpenSessions(cfg, nil)
	assert.Error(t, err)
}
