package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEntityStoreContract verifies the behavior every EntityStore implementation shares.
// newStore must return an empty store for each call.
func RunEntityStoreContract(t *testing.T, newStore func(t *testing.T) EntityStore) {
	ctx := context.Background()

	t.Run("Location uniqueness", func(t *testing.T) {
		s := newStore(t)
		berlin, err := s.CreateLocation(ctx, domain.Location{City: "Berlin", Room: "5"})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, berlin.ID, "Create should assign an ID")

		_, err = s.CreateLocation(ctx, domain.Location{City: "Berlin", Room: "5"})
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		found, err := s.FindLocation(ctx, "Berlin", "5")
		require.NoError(t, err)
		assert.Equal(t, berlin.ID, found.ID)

		london, err := s.CreateLocation(ctx, domain.Location{City: "London", Room: "1"})
		require.NoError(t, err)

		city, room := domain.City("Berlin"), "5"
		_, err = s.UpdateLocation(ctx, london.ID, domain.LocationPatch{City: &city, Room: &room})
		assert.ErrorIs(t, err, domain.ErrDuplicate, "Update must not collide with another location")

		room = "2"
		moved, err := s.UpdateLocation(ctx, london.ID, domain.LocationPatch{Room: &room})
		require.NoError(t, err)
		assert.Equal(t, domain.City("London"), moved.City)
		assert.Equal(t, "2", moved.Room)

		all, err := s.ListLocations(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		_, err = s.GetLocation(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Location delete refuses dependents", func(t *testing.T) {
		s := newStore(t)
		owner := seedMember(t, s, "owner@example.com")
		loc, err := s.CreateLocation(ctx, domain.Location{City: "Sofia", Room: "3"})
		require.NoError(t, err)
		book, err := s.CreateBook(ctx, domain.Book{Title: "SICP", Author: "Abelson", OwnerID: owner.ID, LocationID: loc.ID})
		require.NoError(t, err)

		err = s.DeleteLocation(ctx, loc.ID)
		assert.ErrorIs(t, err, domain.ErrHasDependents)
		all, err := s.ListLocations(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1, "Refused delete must leave the row in place")

		require.NoError(t, s.DeleteBook(ctx, book.ID))
		require.NoError(t, s.DeleteLocation(ctx, loc.ID))
		assert.ErrorIs(t, s.DeleteLocation(ctx, loc.ID), domain.ErrNotFound)
	})

	t.Run("Book lifecycle", func(t *testing.T) {
		s := newStore(t)
		owner := seedMember(t, s, "reader@example.com")
		loc, err := s.CreateLocation(ctx, domain.Location{City: "Vienna", Room: "7"})
		require.NoError(t, err)

		id := uuid.New()
		desc := "classic"
		created, err := s.CreateBook(ctx, domain.Book{
			ID:          id,
			Title:       "Dune",
			Author:      "Herbert",
			Description: &desc,
			OwnerID:     owner.ID,
			LocationID:  loc.ID,
			Categories:  []domain.Category{domain.CategoryProgramming, domain.CategoryDevOps},
			QRPayload:   domain.BookDeepLink("https://t.me/bot", id),
		})
		require.NoError(t, err)
		assert.Equal(t, id, created.ID, "Create must keep a caller-provided ID")

		got, err := s.GetBook(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Dune", got.Title)
		assert.ElementsMatch(t, []domain.Category{domain.CategoryProgramming, domain.CategoryDevOps}, got.Categories)
		require.NotNil(t, got.Description)
		assert.Equal(t, "classic", *got.Description)
		assert.Equal(t, domain.BookDeepLink("https://t.me/bot", id), got.QRPayload)

		title := "Dune Messiah"
		var cleared *string
		updated, err := s.UpdateBook(ctx, id, domain.BookPatch{Title: &title, Description: &cleared})
		require.NoError(t, err)
		assert.Equal(t, "Dune Messiah", updated.Title)
		assert.Equal(t, "Herbert", updated.Author, "Untouched fields must survive")
		assert.Nil(t, updated.Description)

		png := []byte{0x89, 'P', 'N', 'G'}
		require.NoError(t, s.SetBookQR(ctx, id, png))
		got, err = s.GetBook(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, png, got.QRCode)

		_, err = s.UpdateBook(ctx, uuid.New(), domain.BookPatch{Title: &title})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.SetBookQR(ctx, uuid.New(), png), domain.ErrNotFound)
	})

	t.Run("Available books", func(t *testing.T) {
		s := newStore(t)
		member := seedMember(t, s, "borrower@example.com")
		loc, err := s.CreateLocation(ctx, domain.Location{City: "Warsaw", Room: "1"})
		require.NoError(t, err)
		a, err := s.CreateBook(ctx, domain.Book{Title: "A", Author: "X", OwnerID: member.ID, LocationID: loc.ID})
		require.NoError(t, err)
		b, err := s.CreateBook(ctx, domain.Book{Title: "B", Author: "Y", OwnerID: member.ID, LocationID: loc.ID})
		require.NoError(t, err)

		order, err := s.CreateOrder(ctx, domain.Order{AppUserID: member.ID, BookID: a.ID, Status: domain.OrderReserved, TakenFromID: &loc.ID})
		require.NoError(t, err)

		available, err := s.ListBooks(ctx, domain.BookFilter{AvailableOnly: true})
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, b.ID, available[0].ID)

		all, err := s.ListBooks(ctx, domain.BookFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		_, err = s.TransitionOrder(ctx, order.ID, domain.OrderReserved, domain.OrderCancelled)
		require.NoError(t, err)
		available, err = s.ListBooks(ctx, domain.BookFilter{AvailableOnly: true})
		require.NoError(t, err)
		assert.Len(t, available, 2, "Cancelled orders release the book")
	})

	t.Run("Order transitions", func(t *testing.T) {
		s := newStore(t)
		member := seedMember(t, s, "loaner@example.com")
		from, err := s.CreateLocation(ctx, domain.Location{City: "Krakow", Room: "1"})
		require.NoError(t, err)
		to, err := s.CreateLocation(ctx, domain.Location{City: "Krakow", Room: "2"})
		require.NoError(t, err)
		book, err := s.CreateBook(ctx, domain.Book{Title: "TAOCP", Author: "Knuth", OwnerID: member.ID, LocationID: from.ID})
		require.NoError(t, err)

		order, err := s.CreateOrder(ctx, domain.Order{AppUserID: member.ID, BookID: book.ID, Status: domain.OrderReserved, TakenFromID: &from.ID})
		require.NoError(t, err)

		_, err = s.TransitionOrder(ctx, order.ID, domain.OrderInProcess, domain.OrderReturned)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "Conditional update must check the current status")

		_, err = s.ReturnOrder(ctx, order.ID, to.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "Only in-process orders can be returned")

		taken, err := s.TransitionOrder(ctx, order.ID, domain.OrderReserved, domain.OrderInProcess)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderInProcess, taken.Status)

		assert.ErrorIs(t, s.DeleteBook(ctx, book.ID), domain.ErrHasDependents, "Books on loan cannot be deleted")

		returned, err := s.ReturnOrder(ctx, order.ID, to.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderReturned, returned.Status)
		require.NotNil(t, returned.ReturnedToID)
		assert.Equal(t, to.ID, *returned.ReturnedToID)

		moved, err := s.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, to.ID, moved.LocationID, "Return moves the book")

		_, err = s.TransitionOrder(ctx, uuid.New(), domain.OrderReserved, domain.OrderCancelled)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, s.DeleteBook(ctx, book.ID))
		_, err = s.GetOrder(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound, "Closed orders go with the book")
	})

	t.Run("One active order per book", func(t *testing.T) {
		s := newStore(t)
		alice := seedMember(t, s, "first@example.com")
		bob := seedMember(t, s, "second@example.com")
		loc, err := s.CreateLocation(ctx, domain.Location{City: "Gdansk", Room: "1"})
		require.NoError(t, err)
		book, err := s.CreateBook(ctx, domain.Book{Title: "SICP", Author: "Abelson", OwnerID: alice.ID, LocationID: loc.ID})
		require.NoError(t, err)

		first, err := s.CreateOrder(ctx, domain.Order{AppUserID: alice.ID, BookID: book.ID, Status: domain.OrderReserved})
		require.NoError(t, err)

		_, err = s.CreateOrder(ctx, domain.Order{AppUserID: bob.ID, BookID: book.ID, Status: domain.OrderReserved})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "A reserved book cannot be reserved again")
		_, err = s.CreateOrder(ctx, domain.Order{AppUserID: bob.ID, BookID: book.ID, Status: domain.OrderInProcess})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "A reserved book cannot be taken by someone else")

		_, err = s.CreateOrder(ctx, domain.Order{AppUserID: bob.ID, BookID: book.ID, Status: domain.OrderCancelled})
		assert.NoError(t, err, "Closed orders do not hold the book")

		_, err = s.TransitionOrder(ctx, first.ID, domain.OrderReserved, domain.OrderCancelled)
		require.NoError(t, err)
		_, err = s.CreateOrder(ctx, domain.Order{AppUserID: bob.ID, BookID: book.ID, Status: domain.OrderReserved})
		assert.NoError(t, err, "A cancelled reservation releases the book")

		active, err := s.ListOrders(ctx, domain.OrderFilter{BookID: &book.ID, Statuses: []domain.OrderStatus{domain.OrderReserved, domain.OrderInProcess}})
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("Order listing", func(t *testing.T) {
		s := newStore(t)
		alice := seedMember(t, s, "alice@example.com")
		bob := seedMember(t, s, "bob@example.com")
		loc, err := s.CreateLocation(ctx, domain.Location{City: "Tbilisi", Room: "1"})
		require.NoError(t, err)
		book, err := s.CreateBook(ctx, domain.Book{Title: "Go", Author: "Pike", OwnerID: alice.ID, LocationID: loc.ID})
		require.NoError(t, err)

		other, err := s.CreateBook(ctx, domain.Book{Title: "C", Author: "Kernighan", OwnerID: alice.ID, LocationID: loc.ID})
		require.NoError(t, err)

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		mk := func(user, bookID uuid.UUID, status domain.OrderStatus, offset time.Duration) domain.Order {
			o, err := s.CreateOrder(ctx, domain.Order{AppUserID: user, BookID: bookID, Status: status, CreatedAt: base.Add(offset)})
			require.NoError(t, err)
			return o
		}
		returned := mk(alice.ID, book.ID, domain.OrderReturned, 0)
		inProcess := mk(alice.ID, other.ID, domain.OrderInProcess, time.Hour)
		reserved := mk(alice.ID, book.ID, domain.OrderReserved, 2*time.Hour)
		mk(bob.ID, book.ID, domain.OrderCancelled, 3*time.Hour)

		mine, err := s.ListOrders(ctx, domain.OrderFilter{AppUserID: &alice.ID})
		require.NoError(t, err)
		require.Len(t, mine, 3)
		assert.Equal(t, []uuid.UUID{reserved.ID, inProcess.ID, returned.ID}, []uuid.UUID{mine[0].ID, mine[1].ID, mine[2].ID})

		active, err := s.ListOrders(ctx, domain.OrderFilter{BookID: &book.ID, Statuses: []domain.OrderStatus{domain.OrderReserved, domain.OrderInProcess}})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, reserved.ID, active[0].ID)

		all, err := s.ListOrders(ctx, domain.OrderFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("Wishlist", func(t *testing.T) {
		s := newStore(t)
		alice := seedMember(t, s, "wish-a@example.com")
		bob := seedMember(t, s, "wish-b@example.com")

		note := "hardcover"
		item, err := s.CreateWishlistItem(ctx, domain.WishlistItem{AppUserID: alice.ID, Title: "Refactoring", Author: "Fowler", Comment: &note})
		require.NoError(t, err)
		_, err = s.CreateWishlistItem(ctx, domain.WishlistItem{AppUserID: bob.ID, Title: "Clean Code", Author: "Martin"})
		require.NoError(t, err)

		own, err := s.ListWishlist(ctx, &alice.ID)
		require.NoError(t, err)
		require.Len(t, own, 1)
		assert.Equal(t, "Refactoring", own[0].Title)

		all, err := s.ListWishlist(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		var cleared *string
		author := "M. Fowler"
		updated, err := s.UpdateWishlistItem(ctx, item.ID, domain.WishlistPatch{Author: &author, Comment: &cleared})
		require.NoError(t, err)
		assert.Equal(t, "M. Fowler", updated.Author)
		assert.Equal(t, "Refactoring", updated.Title)
		assert.Nil(t, updated.Comment)

		require.NoError(t, s.DeleteWishlistItem(ctx, item.ID))
		_, err = s.GetWishlistItem(ctx, item.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.DeleteWishlistItem(ctx, item.ID), domain.ErrNotFound)
	})

	t.Run("Directory", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindTelegramUser(ctx, "42")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		member := seedMember(t, s, "Jane.Doe@example.com")

		emp, err := s.FindEmployeeByEmail(ctx, "jane.doe@EXAMPLE.com")
		require.NoError(t, err, "Email lookup is case-insensitive")
		assert.Equal(t, member.EmployeeID, emp.ID)

		tg, err := s.GetAppUser(ctx, member.ID)
		require.NoError(t, err)
		byTelegram, err := s.FindAppUserByTelegram(ctx, tg.TelegramUserID)
		require.NoError(t, err)
		assert.Equal(t, member.ID, byTelegram.ID)

		members, err := s.ListMembers(ctx)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "Jane.Doe@example.com", members[0].FullName)

		admin, err := s.CreateRole(ctx, domain.Role{Name: domain.RoleAdmin})
		require.NoError(t, err)
		require.NoError(t, s.UpdateAppUserRole(ctx, member.ID, admin.ID))
		promoted, err := s.GetAppUser(ctx, member.ID)
		require.NoError(t, err)
		role, err := s.GetRole(ctx, promoted.RoleID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, role.Name)

		_, err = s.FindRoleByName(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// seedMember registers a member with the user role, reusing the role when it exists.
// The employee's full name is its email so tests can tell members apart.
func seedMember(t *testing.T, s EntityStore, email string) domain.AppUser {
	t.Helper()
	ctx := context.Background()

	role, err := s.FindRoleByName(ctx, domain.RoleUser)
	if err != nil {
		role, err = s.CreateRole(ctx, domain.Role{Name: domain.RoleUser})
		require.NoError(t, err)
	}
	emp, err := s.CreateEmployee(ctx, domain.Employee{FullName: email, Email: email})
	require.NoError(t, err)
	tg, err := s.CreateTelegramUser(ctx, domain.TelegramUser{TelegramID: "tg-" + email, Username: email})
	require.NoError(t, err)
	u, err := s.CreateAppUser(ctx, domain.AppUser{TelegramUserID: tg.ID, EmployeeID: emp.ID, RoleID: role.ID})
	require.NoError(t, err)
	return u
}
