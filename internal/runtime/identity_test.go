package runtime_test

import (
	"errors"
	"testing"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryOutageKeepsWorkflow(t *testing.T) {
	h := newHarness(t)

	h.press(aliceChat, "wish:add")
	h.text(aliceChat, "Dune")
	before := h.state(aliceChat)
	require.NotNil(t, before)
	require.Equal(t, "Dune", before.Scratchpad["title"])

	h.store.failLookups(errors.New("connection reset"))
	replies := h.text(aliceChat, "Frank Herbert")
	assert.Contains(t, joined(replies), "Something went wrong")
	assert.NotContains(t, joined(replies), "not registered")

	during := h.state(aliceChat)
	require.NotNil(t, during, "the session survives the outage")
	assert.Equal(t, before.Tag(), during.Tag())
	assert.Equal(t, "Dune", during.Scratchpad["title"])

	h.mu.Lock()
	require.NotEmpty(t, h.fails)
	last := h.fails[len(h.fails)-1]
	h.mu.Unlock()
	assert.Equal(t, "resolve", last.Op)
	assert.Equal(t, domain.StoreFailure, last.Kind)

	h.store.failLookups(nil)
	h.text(aliceChat, "Frank Herbert")
	h.text(aliceChat, "-")
	items := wishesOf(h, h.alice)
	require.Len(t, items, 1)
	assert.Equal(t, "Frank Herbert", items[0].Author)
}

func TestDirectoryOutageDoesNotStartRegistration(t *testing.T) {
	h := newHarness(t)
	h.store.failLookups(errors.New("connection reset"))

	replies := h.text(aliceChat, "/start")
	assert.Contains(t, joined(replies), "Something went wrong")
	assert.Nil(t, h.state(aliceChat))

	replies = h.press(adminChat, "book:add")
	assert.NotContains(t, joined(replies), "Only administrators")
}
