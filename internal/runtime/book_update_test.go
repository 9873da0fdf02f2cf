package runtime_test

import (
	"errors"
	"testing"

	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingOf(t *testing.T, s *domain.State) map[string]any {
	t.Helper()
	require.NotNil(t, s)
	p, ok := s.Scratchpad["pending"].(map[string]any)
	require.True(t, ok, "pending is a map")
	return p
}

func TestBookUpdate_EmptySaveNeverCallsStore(t *testing.T) {
	h := newHarness(t)
	b := h.book("Dune", h.location("Berlin", "Room 5"), h.alice, domain.CategoryDevOps)

	replies := h.press(adminChat, "book:select:update:"+b.ID.String())
	assert.Contains(t, tags(replies), "upd:save")

	replies = h.press(adminChat, "upd:save")
	assert.Contains(t, joined(replies), "no changes")
	assert.Equal(t, 0, h.store.updates())
	assert.Equal(t, domain.Step("await_field"), h.state(adminChat).Step)

	got, err := h.store.GetBook(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Title, got.Title)
}

func TestBookUpdate_OwnerChangeWaitsForSave(t *testing.T) {
	h := newHarness(t)
	b := h.book("Dune", h.location("Berlin", "Room 5"), h.alice, domain.CategoryDevOps)

	h.press(adminChat, "book:select:update:"+b.ID.String())
	h.press(adminChat, "upd:owner")
	replies := h.press(adminChat, "book:owner:"+h.bob.ID.String())
	assert.Contains(t, joined(replies), "Unsaved changes: Owner")

	got, err := h.store.GetBook(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, h.alice.ID, got.OwnerID, "nothing is written before save")
	assert.Equal(t, 0, h.store.updates())

	h.press(adminChat, "upd:save")
	got, err = h.store.GetBook(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, h.bob.ID, got.OwnerID)
	assert.Equal(t, 1, h.store.updates())
	assert.Nil(t, h.state(adminChat))
}

func TestBookUpdate_AllFieldsInOneWrite(t *testing.T) {
	h := newHarness(t)
	berlin := h.location("Berlin", "Room 5")
	sofia := h.location("Sofia", "Lobby")
	desc := "Spice"
	b := h.book("Dune", berlin, h.alice, domain.CategoryDevOps)
	_, err := h.store.UpdateBook(h.ctx, b.ID, domain.BookPatch{Description: ptr(&desc)})
	require.NoError(t, err)
	before := h.store.updates()

	h.press(adminChat, "book:select:update:"+b.ID.String())
	h.press(adminChat, "upd:title")
	h.text(adminChat, "Dune Messiah")
	h.press(adminChat, "upd:author")
	h.text(adminChat, "F. Herbert")
	h.press(adminChat, "upd:description")
	h.text(adminChat, "-")
	h.press(adminChat, "upd:location")
	h.text(adminChat, "Sofia: Lobby")
	h.press(adminChat, "upd:categories")
	h.text(adminChat, "Algorithms")
	h.text(adminChat, chat.LabelDone)
	h.press(adminChat, "upd:save")

	assert.Equal(t, before+1, h.store.updates())
	got, err := h.store.GetBook(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", got.Title)
	assert.Equal(t, "F. Herbert", got.Author)
	assert.Nil(t, got.Description, "a dash clears the description")
	assert.Equal(t, sofia.ID, got.LocationID)
	assert.Equal(t, []domain.Category{domain.CategoryDevOps, domain.CategoryAlgorithms}, got.Categories)
}

func TestBookUpdate_CategoryToggleRoundTrips(t *testing.T) {
	h := newHarness(t)
	b := h.book("Dune", h.location("Berlin", "Room 5"), h.alice, domain.CategoryDevOps)

	h.press(adminChat, "book:select:update:"+b.ID.String())
	h.press(adminChat, "upd:categories")

	h.text(adminChat, "Databases")
	before := pendingOf(t, h.state(adminChat))["categories"]
	assert.Equal(t, "Databases, DevOps", before)

	h.text(adminChat, "Algorithms")
	assert.Equal(t, "Databases, DevOps, Algorithms", pendingOf(t, h.state(adminChat))["categories"])
	h.text(adminChat, "Algorithms")
	assert.Equal(t, before, pendingOf(t, h.state(adminChat))["categories"])

	// Leaving and re-entering the sub-state starts from the pending value.
	h.text(adminChat, chat.LabelDone)
	h.press(adminChat, "upd:categories")
	h.text(adminChat, "Databases")
	assert.Equal(t, "DevOps", pendingOf(t, h.state(adminChat))["categories"])
}

func TestBookUpdate_EmptyCategoriesCannotLeave(t *testing.T) {
	h := newHarness(t)
	b := h.book("Dune", h.location("Berlin", "Room 5"), h.alice, domain.CategoryDevOps)

	h.press(adminChat, "book:select:update:"+b.ID.String())
	h.press(adminChat, "upd:categories")
	h.text(adminChat, "DevOps")
	replies := h.text(adminChat, chat.LabelDone)
	assert.Contains(t, joined(replies), "at least one category")
	assert.Equal(t, domain.Step("edit_categories"), h.state(adminChat).Step)
}

func TestBookUpdate_StoreFailureKeepsPendingForRetry(t *testing.T) {
	h := newHarness(t)
	b := h.book("Dune", h.location("Berlin", "Room 5"), h.alice, domain.CategoryDevOps)

	h.press(adminChat, "book:select:update:"+b.ID.String())
	h.press(adminChat, "upd:title")
	h.text(adminChat, "Dune Messiah")

	h.store.failUpdates(errors.New("connection reset"))
	replies := h.press(adminChat, "upd:save")
	assert.Contains(t, joined(replies), "try again later")

	s := h.state(adminChat)
	require.NotNil(t, s)
	assert.Equal(t, domain.WorkflowBookUpdate, s.Workflow)
	assert.Equal(t, "Dune Messiah", pendingOf(t, s)["title"])

	h.store.failUpdates(nil)
	h.press(adminChat, "upd:save")
	got, err := h.store.GetBook(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", got.Title)
	assert.Nil(t, h.state(adminChat))
}

func TestBookUpdate_DeletedBookEndsWorkflow(t *testing.T) {
	h := newHarness(t)
	b := h.book("Dune", h.location("Berlin", "Room 5"), h.alice, domain.CategoryDevOps)

	h.press(adminChat, "book:select:update:"+b.ID.String())
	h.press(adminChat, "upd:title")
	h.text(adminChat, "Dune Messiah")
	require.NoError(t, h.store.DeleteBook(h.ctx, b.ID))

	replies := h.press(adminChat, "upd:save")
	assert.Contains(t, joined(replies), "no longer exists")
	assert.Nil(t, h.state(adminChat))
}

func TestBookUpdate_UnknownButtonRePromptsHub(t *testing.T) {
	h := newHarness(t)
	b := h.book("Dune", h.location("Berlin", "Room 5"), h.alice, domain.CategoryDevOps)

	h.press(adminChat, "book:select:update:"+b.ID.String())
	replies := h.press(adminChat, "upd:isbn")
	assert.Contains(t, tags(replies), "upd:title")
	assert.Equal(t, domain.Step("await_field"), h.state(adminChat).Step)

	replies = h.text(adminChat, "hello")
	assert.Contains(t, joined(replies), "Choose a field")
}

func ptr[T any](v T) *T { return &v }
