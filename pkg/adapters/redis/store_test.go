package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/libris/pkg/adapters/redis"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunStateStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	chatID := "chat-ttl"

	state := domain.NewState(chatID)
	state.Begin(domain.WorkflowWishlistCreate, "await_author")
	state.Scratchpad["title"] = "Dune"
	require.NoError(t, store.Save(ctx, chatID, state))

	chats, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, chats, chatID)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, chatID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index is pruned against wall-clock time, which miniredis cannot fast-forward.
	time.Sleep(1200 * time.Millisecond)

	chats, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-chat", domain.NewState("my-chat")))

	assert.True(t, mr.Exists("custom:app:s:my-chat"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:idx"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, "my-chat")
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	require.NoError(t, store.Save(context.Background(), "42", domain.NewState("42")))
	assert.True(t, mr.Exists(redis.DefaultPrefix+"s:42"))
	assert.Equal(t, redis.DefaultPrefix, store.Prefix())
}

func TestRedisStore_ChatIDsCannotClobberIndex(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	for _, id := range []string{"42", "index", "idx", "s:42", "lock:42", "43"} {
		require.NoError(t, store.Save(ctx, id, domain.NewState(id)), "save %q", id)
	}

	chats, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"42", "index", "idx", "s:42", "lock:42", "43"}, chats)

	loaded, err := store.Load(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", loaded.ChatID)
}
