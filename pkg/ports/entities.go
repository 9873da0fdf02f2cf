package ports

import (
	"context"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
)

// BookStore persists books. Create assigns an ID when the caller left it zero.
type BookStore interface {
	CreateBook(ctx context.Context, book domain.Book) (domain.Book, error)
	// GetBook returns domain.ErrNotFound for an unknown id.
	GetBook(ctx context.Context, id uuid.UUID) (domain.Book, error)
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, patch domain.BookPatch) (domain.Book, error)
	// DeleteBook refuses with domain.ErrHasDependents while the book has an active order.
	// Closed orders are removed together with the book.
	DeleteBook(ctx context.Context, id uuid.UUID) error
	SetBookQR(ctx context.Context, id uuid.UUID, png []byte) error
}

// LocationStore persists shelves. (City, Room) is unique.
type LocationStore interface {
	// CreateLocation returns domain.ErrDuplicate when (city, room) already exists.
	CreateLocation(ctx context.Context, loc domain.Location) (domain.Location, error)
	GetLocation(ctx context.Context, id uuid.UUID) (domain.Location, error)
	FindLocation(ctx context.Context, city domain.City, room string) (domain.Location, error)
	ListLocations(ctx context.Context) ([]domain.Location, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, patch domain.LocationPatch) (domain.Location, error)
	// DeleteLocation never cascades: it returns domain.ErrHasDependents while books reference it.
	DeleteLocation(ctx context.Context, id uuid.UUID) error
	SetLocationQR(ctx context.Context, id uuid.UUID, png []byte) error
}

// OrderStore persists loans.
type OrderStore interface {
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
	// ListOrders sorts by status rank, then by creation time.
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	// TransitionOrder moves an order from one status to another only if it is
	// still in from. Otherwise it returns domain.ErrInvalidTransition.
	TransitionOrder(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (domain.Order, error)
	// ReturnOrder closes an in-process order and moves the book to locationID.
	ReturnOrder(ctx context.Context, id, locationID uuid.UUID) (domain.Order, error)
}

// WishlistStore persists wishlist items.
type WishlistStore interface {
	CreateWishlistItem(ctx context.Context, item domain.WishlistItem) (domain.WishlistItem, error)
	GetWishlistItem(ctx context.Context, id uuid.UUID) (domain.WishlistItem, error)
	// ListWishlist returns one member's items, or every item when appUserID is nil.
	ListWishlist(ctx context.Context, appUserID *uuid.UUID) ([]domain.WishlistItem, error)
	UpdateWishlistItem(ctx context.Context, id uuid.UUID, patch domain.WishlistPatch) (domain.WishlistItem, error)
	DeleteWishlistItem(ctx context.Context, id uuid.UUID) error
}

// DirectoryStore holds identities, employees and roles.
type DirectoryStore interface {
	FindTelegramUser(ctx context.Context, telegramID string) (domain.TelegramUser, error)
	CreateTelegramUser(ctx context.Context, u domain.TelegramUser) (domain.TelegramUser, error)
	FindAppUserByTelegram(ctx context.Context, telegramUserID uuid.UUID) (domain.AppUser, error)
	GetAppUser(ctx context.Context, id uuid.UUID) (domain.AppUser, error)
	CreateAppUser(ctx context.Context, u domain.AppUser) (domain.AppUser, error)
	UpdateAppUserRole(ctx context.Context, id, roleID uuid.UUID) error
	ListMembers(ctx context.Context) ([]domain.Member, error)
	FindEmployeeByEmail(ctx context.Context, email string) (domain.Employee, error)
	CreateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error)
	GetRole(ctx context.Context, id uuid.UUID) (domain.Role, error)
	FindRoleByName(ctx context.Context, name string) (domain.Role, error)
	CreateRole(ctx context.Context, r domain.Role) (domain.Role, error)
}

// EntityStore is the full persistence surface used by the engine.
type EntityStore interface {
	BookStore
	LocationStore
	OrderStore
	WishlistStore
	DirectoryStore
}
