package runtime_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/adapters/redis"
	"github.com/aretw0/libris/pkg/domain"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startBook walks the creation form up to category selection.
func startBook(h *harness, title string, owner domain.AppUser) {
	h.t.Helper()
	h.press(adminChat, "book:add")
	h.text(adminChat, title)
	h.text(adminChat, "Frank Herbert")
	h.text(adminChat, "-")
	h.press(adminChat, "book:owner:"+owner.ID.String())
	require.Equal(h.t, domain.Step("await_categories"), h.state(adminChat).Step)
}

func TestBookCreate_EndToEnd(t *testing.T) {
	h := newHarness(t)

	h.press(adminChat, "loc:add")
	h.text(adminChat, "Berlin")
	h.text(adminChat, "Room 5")
	h.press(adminChat, "loc:confirm")
	require.Nil(t, h.state(adminChat))

	startBook(h, "Dune", h.alice)
	h.text(adminChat, "Databases")
	h.text(adminChat, chat.LabelDone)
	replies := h.text(adminChat, "Berlin: Room 5")
	assert.Contains(t, joined(replies), "No description")
	assert.Contains(t, tags(replies), "book:confirm")

	replies = h.press(adminChat, "book:confirm")
	assert.Contains(t, joined(replies), "Dune")
	assert.Nil(t, h.state(adminChat), "session is cleared after commit")

	books, err := h.store.ListBooks(h.ctx, domain.BookFilter{AvailableOnly: true})
	require.NoError(t, err)
	require.Len(t, books, 1)
	b := books[0]
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Frank Herbert", b.Author)
	assert.Nil(t, b.Description)
	assert.Equal(t, h.alice.ID, b.OwnerID)
	assert.Equal(t, []domain.Category{domain.CategoryDatabases}, b.Categories)
	assert.Equal(t, "https://t.me/test_bot?start=book_"+b.ID.String(), b.QRPayload)
	assert.NotEmpty(t, b.QRCode, "sync attacher stores the PNG")
	assert.NotEmpty(t, replies[len(replies)-1].Image)
	assert.Equal(t, 1, h.committed("book", "create"))
}

func TestBookCreate_CategorySetIsExactlyTheToggledSet(t *testing.T) {
	h := newHarness(t)
	h.location("Berlin", "Room 5")

	startBook(h, "SRE", h.alice)
	for _, c := range []string{"Databases", "DevOps", "Databases", "Algorithms", "Programming", "Programming"} {
		h.text(adminChat, c)
	}
	h.text(adminChat, chat.LabelDone)
	h.text(adminChat, "Berlin: Room 5")
	h.press(adminChat, "book:confirm")

	books, err := h.store.ListBooks(h.ctx, domain.BookFilter{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.ElementsMatch(t, []domain.Category{domain.CategoryDevOps, domain.CategoryAlgorithms}, books[0].Categories)
}

func TestBookCreate_DoneWithoutCategoriesNeverAdvances(t *testing.T) {
	h := newHarness(t)
	h.location("Berlin", "Room 5")
	startBook(h, "Dune", h.alice)

	replies := h.text(adminChat, chat.LabelDone)
	assert.Contains(t, joined(replies), "at least one category")
	assert.Equal(t, domain.Step("await_categories"), h.state(adminChat).Step)

	h.text(adminChat, "DevOps")
	h.text(adminChat, "DevOps")
	h.text(adminChat, chat.LabelDone)
	assert.Equal(t, domain.Step("await_categories"), h.state(adminChat).Step)

	books, err := h.store.ListBooks(h.ctx, domain.BookFilter{})
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestBookCreate_InvalidInputRePrompts(t *testing.T) {
	h := newHarness(t)
	h.location("Berlin", "Room 5")
	startBook(h, "Dune", h.alice)

	replies := h.text(adminChat, "Cooking")
	assert.Contains(t, joined(replies), "Unknown category")

	h.text(adminChat, "DevOps")
	h.text(adminChat, chat.LabelDone)
	replies = h.text(adminChat, "Narnia: Wardrobe")
	assert.Contains(t, joined(replies), "Choose a location")
	replies = h.text(adminChat, "Berlin: Room 6")
	assert.Contains(t, joined(replies), "no location Berlin: Room 6")
	assert.Equal(t, domain.Step("await_location"), h.state(adminChat).Step)

	// Text on a button-only step re-prompts the same step.
	h.text(adminChat, "Berlin: Room 5")
	replies = h.text(adminChat, "yes please")
	assert.Contains(t, tags(replies), "book:confirm")
	assert.Equal(t, domain.Step("await_confirm"), h.state(adminChat).Step)
}

func TestBookCreate_UnknownOwnerIsRejected(t *testing.T) {
	h := newHarness(t)
	h.location("Berlin", "Room 5")
	h.press(adminChat, "book:add")
	h.text(adminChat, "Dune")
	h.text(adminChat, "Herbert")
	replies := h.text(adminChat, "A desert planet")
	assert.Contains(t, tags(replies), "book:owner:"+h.bob.ID.String())

	replies = h.press(adminChat, "book:owner:"+h.admin.TelegramUserID.String())
	assert.Contains(t, joined(replies), "not registered anymore")
	assert.Equal(t, domain.Step("await_owner"), h.state(adminChat).Step)
}

func TestBookCreate_NeedsALocation(t *testing.T) {
	h := newHarness(t)

	replies := h.press(adminChat, "book:add")
	assert.Contains(t, joined(replies), "Create a location first")
	assert.Contains(t, tags(replies), "loc:add")
	assert.Nil(t, h.state(adminChat))
}

func TestBookCreate_AdminOnly(t *testing.T) {
	h := newHarness(t)
	h.location("Berlin", "Room 5")

	replies := h.press(aliceChat, "book:add")
	assert.Contains(t, joined(replies), "Only administrators")
	assert.Nil(t, h.state(aliceChat))
}

func TestBookCreate_SurvivesJSONSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := newHarness(t, withSessions(redis.NewFromClient(client)))
	h.location("Berlin", "Room 5")

	startBook(h, "Dune", h.alice)
	h.text(adminChat, "DevOps")
	h.text(adminChat, "Databases")
	h.text(adminChat, chat.LabelDone)
	h.text(adminChat, "Berlin: Room 5")
	h.press(adminChat, "book:confirm")

	books, err := h.store.ListBooks(h.ctx, domain.BookFilter{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, []domain.Category{domain.CategoryDatabases, domain.CategoryDevOps}, books[0].Categories)
	assert.Equal(t, h.alice.ID, books[0].OwnerID)
}

func TestCatalog_ListAndDetail(t *testing.T) {
	h := newHarness(t)
	loc := h.location("Berlin", "Room 5")
	dune := h.book("Dune", loc, h.alice, domain.CategoryDevOps)
	taken := h.book("Taken", loc, h.alice)
	_, err := h.store.CreateOrder(h.ctx, domain.Order{AppUserID: h.bob.ID, BookID: taken.ID, Status: domain.OrderInProcess})
	require.NoError(t, err)

	replies := h.press(aliceChat, "book:list:view")
	assert.Contains(t, joined(replies), "Dune")
	assert.NotContains(t, joined(replies), "Taken")

	replies = h.press(aliceChat, "book:select:view:"+dune.ID.String())
	assert.Contains(t, joined(replies), "Alice")
	assert.Contains(t, joined(replies), "Berlin: Room 5")
	assert.Contains(t, tags(replies), "order:reserve:"+dune.ID.String())
	assert.NotContains(t, tags(replies), "book:qr:"+dune.ID.String())

	replies = h.press(adminChat, "book:select:view:"+taken.ID.String())
	assert.NotContains(t, tags(replies), "order:reserve:"+taken.ID.String())
	assert.Contains(t, tags(replies), "book:qr:"+taken.ID.String())

	replies = h.press(aliceChat, "book:list:update")
	assert.Contains(t, joined(replies), "Only administrators")
}

func TestCatalog_Pagination(t *testing.T) {
	h := newHarness(t)
	loc := h.location("Berlin", "Room 5")
	for _, title := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		h.book(title, loc, h.alice)
	}

	replies := h.press(aliceChat, "book:list:view")
	assert.Contains(t, tags(replies), "book:page:view:2")
	assert.NotContains(t, tags(replies), "book:page:view:0")

	replies = h.press(aliceChat, "book:page:view:2")
	assert.Contains(t, joined(replies), "7: G by Author of G")
	assert.Contains(t, tags(replies), "book:page:view:1")
	assert.Contains(t, tags(replies), "book:menu")
}

func TestBookQR_RegeneratesMissingImage(t *testing.T) {
	h := newHarness(t)
	loc := h.location("Berlin", "Room 5")
	b := h.book("Dune", loc, h.alice)

	replies := h.press(adminChat, "book:qr:"+b.ID.String())
	require.Len(t, replies, 1)
	assert.NotEmpty(t, replies[0].Image)

	stored, err := h.store.GetBook(h.ctx, b.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.QRCode)
}

func TestBookRemove(t *testing.T) {
	h := newHarness(t)
	loc := h.location("Berlin", "Room 5")
	free := h.book("Free", loc, h.alice)
	busy := h.book("Busy", loc, h.alice)
	_, err := h.store.CreateOrder(h.ctx, domain.Order{AppUserID: h.bob.ID, BookID: busy.ID, Status: domain.OrderReserved})
	require.NoError(t, err)

	replies := h.press(adminChat, "book:select:remove:"+free.ID.String())
	assert.Contains(t, joined(replies), `Remove "Free"`)
	assert.Contains(t, tags(replies), "book:remove:confirm")

	h.press(adminChat, "book:remove:confirm")
	_, err = h.store.GetBook(h.ctx, free.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, h.state(adminChat))

	h.press(adminChat, "book:select:remove:"+busy.ID.String())
	replies = h.press(adminChat, "book:remove:confirm")
	assert.Contains(t, joined(replies), "cannot be removed")
	_, err = h.store.GetBook(h.ctx, busy.ID)
	assert.NoError(t, err)
	assert.Nil(t, h.state(adminChat))
}
