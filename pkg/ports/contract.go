package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	chatID := "contract-chat-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(chatID)
		state.Begin(domain.WorkflowBookCreate, "await_author")
		state.Scratchpad["title"] = "Dune"
		state.Scratchpad["categories"] = "Programming, DevOps"

		require.NoError(t, store.Save(ctx, chatID, state), "Save should not return error")

		loaded, err := store.Load(ctx, chatID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, chatID, loaded.ChatID)
		assert.Equal(t, state.Tag(), loaded.Tag())
		assert.Equal(t, "Dune", loaded.Scratchpad["title"])
		assert.Equal(t, "Programming, DevOps", loaded.Scratchpad["categories"])
	})

	t.Run("Loaded state is detached", func(t *testing.T) {
		loaded, err := store.Load(ctx, chatID)
		require.NoError(t, err)
		loaded.Scratchpad["title"] = "mutated"

		again, err := store.Load(ctx, chatID)
		require.NoError(t, err)
		assert.Equal(t, "Dune", again.Scratchpad["title"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+chatID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, chatID, domain.NewState(chatID)))

		require.NoError(t, store.Delete(ctx, chatID), "Delete should not return error")

		_, err := store.Load(ctx, chatID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, chatID), "Deleting a missing session is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := chatID + "-1"
		id2 := chatID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewState(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewState(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
