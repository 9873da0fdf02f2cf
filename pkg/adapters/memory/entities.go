package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
)

// Entities implements ports.EntityStore with mutex-guarded maps.
// Every call is atomic and values are copied on the way in and out.
type Entities struct {
	mu sync.RWMutex

	books     map[uuid.UUID]domain.Book
	locations map[uuid.UUID]domain.Location
	orders    map[uuid.UUID]domain.Order
	wishlist  map[uuid.UUID]domain.WishlistItem
	tgUsers   map[uuid.UUID]domain.TelegramUser
	appUsers  map[uuid.UUID]domain.AppUser
	employees map[uuid.UUID]domain.Employee
	roles     map[uuid.UUID]domain.Role

	now func() time.Time
}

// NewEntities creates an empty entity store.
func NewEntities() *Entities {
	return &Entities{
		books:     make(map[uuid.UUID]domain.Book),
		locations: make(map[uuid.UUID]domain.Location),
		orders:    make(map[uuid.UUID]domain.Order),
		wishlist:  make(map[uuid.UUID]domain.WishlistItem),
		tgUsers:   make(map[uuid.UUID]domain.TelegramUser),
		appUsers:  make(map[uuid.UUID]domain.AppUser),
		employees: make(map[uuid.UUID]domain.Employee),
		roles:     make(map[uuid.UUID]domain.Role),
		now:       time.Now,
	}
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, domain.ErrNotFound)
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func copyBook(b domain.Book) domain.Book {
	b.Categories = slices.Clone(b.Categories)
	b.QRCode = slices.Clone(b.QRCode)
	if b.Description != nil {
		d := *b.Description
		b.Description = &d
	}
	return b
}

func copyLocation(l domain.Location) domain.Location {
	l.QRCode = slices.Clone(l.QRCode)
	return l
}

func copyOrder(o domain.Order) domain.Order {
	if o.TakenFromID != nil {
		v := *o.TakenFromID
		o.TakenFromID = &v
	}
	if o.ReturnedToID != nil {
		v := *o.ReturnedToID
		o.ReturnedToID = &v
	}
	return o
}

func copyWish(w domain.WishlistItem) domain.WishlistItem {
	if w.Comment != nil {
		c := *w.Comment
		w.Comment = &c
	}
	return w
}

// --- books ---

func (s *Entities) CreateBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book.ID = ensureID(book.ID)
	if _, ok := s.locations[book.LocationID]; !ok {
		return domain.Book{}, notFound("location", book.LocationID)
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = s.now().UTC()
	}
	s.books[book.ID] = copyBook(book)
	return copyBook(book), nil
}

func (s *Entities) GetBook(ctx context.Context, id uuid.UUID) (domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return domain.Book{}, notFound("book", id)
	}
	return copyBook(b), nil
}

func (s *Entities) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	busy := make(map[uuid.UUID]bool)
	if filter.AvailableOnly {
		for _, o := range s.orders {
			if o.Status.Active() {
				busy[o.BookID] = true
			}
		}
	}

	out := make([]domain.Book, 0, len(s.books))
	for _, b := range s.books {
		if busy[b.ID] {
			continue
		}
		out = append(out, copyBook(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Entities) UpdateBook(ctx context.Context, id uuid.UUID, patch domain.BookPatch) (domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return domain.Book{}, notFound("book", id)
	}
	if patch.LocationID != nil {
		if _, ok := s.locations[*patch.LocationID]; !ok {
			return domain.Book{}, notFound("location", *patch.LocationID)
		}
	}
	patch.Apply(&b)
	s.books[id] = copyBook(b)
	return copyBook(b), nil
}

func (s *Entities) DeleteBook(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return notFound("book", id)
	}
	for _, o := range s.orders {
		if o.BookID == id && o.Status.Active() {
			return fmt.Errorf("book %s: %w", id, domain.ErrHasDependents)
		}
	}
	for oid, o := range s.orders {
		if o.BookID == id {
			delete(s.orders, oid)
		}
	}
	delete(s.books, id)
	return nil
}

func (s *Entities) SetBookQR(ctx context.Context, id uuid.UUID, png []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return notFound("book", id)
	}
	b.QRCode = slices.Clone(png)
	s.books[id] = b
	return nil
}

// --- locations ---

func (s *Entities) findLocation(city domain.City, room string) (domain.Location, bool) {
	for _, l := range s.locations {
		if l.City == city && l.Room == room {
			return l, true
		}
	}
	return domain.Location{}, false
}

func (s *Entities) CreateLocation(ctx context.Context, loc domain.Location) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.findLocation(loc.City, loc.Room); exists {
		return domain.Location{}, fmt.Errorf("location %s: %w", loc.Label(), domain.ErrDuplicate)
	}
	loc.ID = ensureID(loc.ID)
	s.locations[loc.ID] = copyLocation(loc)
	return copyLocation(loc), nil
}

func (s *Entities) GetLocation(ctx context.Context, id uuid.UUID) (domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.locations[id]
	if !ok {
		return domain.Location{}, notFound("location", id)
	}
	return copyLocation(l), nil
}

func (s *Entities) FindLocation(ctx context.Context, city domain.City, room string) (domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.findLocation(city, room)
	if !ok {
		return domain.Location{}, notFound("location", domain.LocationLabel(city, room))
	}
	return copyLocation(l), nil
}

func (s *Entities) ListLocations(ctx context.Context) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Location, 0, len(s.locations))
	for _, l := range s.locations {
		out = append(out, copyLocation(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].Room < out[j].Room
	})
	return out, nil
}

func (s *Entities) UpdateLocation(ctx context.Context, id uuid.UUID, patch domain.LocationPatch) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locations[id]
	if !ok {
		return domain.Location{}, notFound("location", id)
	}
	if patch.City != nil {
		l.City = *patch.City
	}
	if patch.Room != nil {
		l.Room = *patch.Room
	}
	if other, exists := s.findLocation(l.City, l.Room); exists && other.ID != id {
		return domain.Location{}, fmt.Errorf("location %s: %w", l.Label(), domain.ErrDuplicate)
	}
	s.locations[id] = l
	return copyLocation(l), nil
}

func (s *Entities) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return notFound("location", id)
	}
	for _, b := range s.books {
		if b.LocationID == id {
			return fmt.Errorf("location %s: %w", id, domain.ErrHasDependents)
		}
	}
	delete(s.locations, id)
	return nil
}

func (s *Entities) SetLocationQR(ctx context.Context, id uuid.UUID, png []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locations[id]
	if !ok {
		return notFound("location", id)
	}
	l.QRCode = slices.Clone(png)
	s.locations[id] = l
	return nil
}

// --- orders ---

func (s *Entities) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[order.BookID]; !ok {
		return domain.Order{}, notFound("book", order.BookID)
	}
	if order.Status.Active() {
		for _, o := range s.orders {
			if o.BookID == order.BookID && o.Status.Active() {
				return domain.Order{}, fmt.Errorf("book %s already has an active order: %w", order.BookID, domain.ErrInvalidTransition)
			}
		}
	}
	order.ID = ensureID(order.ID)
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now().UTC()
	}
	s.orders[order.ID] = copyOrder(order)
	return copyOrder(order), nil
}

func (s *Entities) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, notFound("order", id)
	}
	return copyOrder(o), nil
}

func (s *Entities) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0)
	for _, o := range s.orders {
		if filter.AppUserID != nil && o.AppUserID != *filter.AppUserID {
			continue
		}
		if filter.BookID != nil && o.BookID != *filter.BookID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, o.Status) {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Status.Rank(), out[j].Status.Rank(); ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Entities) TransitionOrder(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, notFound("order", id)
	}
	if o.Status != from || !from.CanTransition(to) {
		return domain.Order{}, fmt.Errorf("order %s is %q, want %q -> %q: %w", id, o.Status, from, to, domain.ErrInvalidTransition)
	}
	o.Status = to
	s.orders[id] = o
	return copyOrder(o), nil
}

func (s *Entities) ReturnOrder(ctx context.Context, id, locationID uuid.UUID) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, notFound("order", id)
	}
	if _, ok := s.locations[locationID]; !ok {
		return domain.Order{}, notFound("location", locationID)
	}
	if o.Status != domain.OrderInProcess {
		return domain.Order{}, fmt.Errorf("order %s is %q: %w", id, o.Status, domain.ErrInvalidTransition)
	}
	book, ok := s.books[o.BookID]
	if !ok {
		return domain.Order{}, notFound("book", o.BookID)
	}

	o.Status = domain.OrderReturned
	o.ReturnedToID = &locationID
	book.LocationID = locationID
	s.orders[id] = copyOrder(o)
	s.books[book.ID] = book
	return copyOrder(o), nil
}

// --- wishlist ---

func (s *Entities) CreateWishlistItem(ctx context.Context, item domain.WishlistItem) (domain.WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = ensureID(item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now().UTC()
	}
	s.wishlist[item.ID] = copyWish(item)
	return copyWish(item), nil
}

func (s *Entities) GetWishlistItem(ctx context.Context, id uuid.UUID) (domain.WishlistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wishlist[id]
	if !ok {
		return domain.WishlistItem{}, notFound("wishlist item", id)
	}
	return copyWish(w), nil
}

func (s *Entities) ListWishlist(ctx context.Context, appUserID *uuid.UUID) ([]domain.WishlistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WishlistItem, 0)
	for _, w := range s.wishlist {
		if appUserID != nil && w.AppUserID != *appUserID {
			continue
		}
		out = append(out, copyWish(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Entities) UpdateWishlistItem(ctx context.Context, id uuid.UUID, patch domain.WishlistPatch) (domain.WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wishlist[id]
	if !ok {
		return domain.WishlistItem{}, notFound("wishlist item", id)
	}
	patch.Apply(&w)
	s.wishlist[id] = copyWish(w)
	return copyWish(w), nil
}

func (s *Entities) DeleteWishlistItem(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wishlist[id]; !ok {
		return notFound("wishlist item", id)
	}
	delete(s.wishlist, id)
	return nil
}

// --- directory ---

func (s *Entities) FindTelegramUser(ctx context.Context, telegramID string) (domain.TelegramUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.tgUsers {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}
	return domain.TelegramUser{}, notFound("telegram user", telegramID)
}

func (s *Entities) CreateTelegramUser(ctx context.Context, u domain.TelegramUser) (domain.TelegramUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tgUsers {
		if existing.TelegramID == u.TelegramID {
			return domain.TelegramUser{}, fmt.Errorf("telegram user %s: %w", u.TelegramID, domain.ErrDuplicate)
		}
	}
	u.ID = ensureID(u.ID)
	s.tgUsers[u.ID] = u
	return u, nil
}

func (s *Entities) FindAppUserByTelegram(ctx context.Context, telegramUserID uuid.UUID) (domain.AppUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.appUsers {
		if u.TelegramUserID == telegramUserID {
			return u, nil
		}
	}
	return domain.AppUser{}, notFound("app user for telegram user", telegramUserID)
}

func (s *Entities) GetAppUser(ctx context.Context, id uuid.UUID) (domain.AppUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.appUsers[id]
	if !ok {
		return domain.AppUser{}, notFound("app user", id)
	}
	return u, nil
}

func (s *Entities) CreateAppUser(ctx context.Context, u domain.AppUser) (domain.AppUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[u.RoleID]; !ok {
		return domain.AppUser{}, notFound("role", u.RoleID)
	}
	for _, existing := range s.appUsers {
		if existing.TelegramUserID == u.TelegramUserID {
			return domain.AppUser{}, fmt.Errorf("app user for %s: %w", u.TelegramUserID, domain.ErrDuplicate)
		}
	}
	u.ID = ensureID(u.ID)
	s.appUsers[u.ID] = u
	return u, nil
}

func (s *Entities) UpdateAppUserRole(ctx context.Context, id, roleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.appUsers[id]
	if !ok {
		return notFound("app user", id)
	}
	if _, ok := s.roles[roleID]; !ok {
		return notFound("role", roleID)
	}
	u.RoleID = roleID
	s.appUsers[id] = u
	return nil
}

func (s *Entities) ListMembers(ctx context.Context) ([]domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Member, 0, len(s.appUsers))
	for _, u := range s.appUsers {
		m := domain.Member{AppUserID: u.ID}
		if e, ok := s.employees[u.EmployeeID]; ok {
			m.FullName = e.FullName
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *Entities) FindEmployeeByEmail(ctx context.Context, email string) (domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.employees {
		if strings.EqualFold(e.Email, strings.TrimSpace(email)) {
			return e, nil
		}
	}
	return domain.Employee{}, notFound("employee", email)
}

func (s *Entities) CreateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.employees {
		if strings.EqualFold(existing.Email, e.Email) {
			return domain.Employee{}, fmt.Errorf("employee %s: %w", e.Email, domain.ErrDuplicate)
		}
	}
	e.ID = ensureID(e.ID)
	s.employees[e.ID] = e
	return e, nil
}

func (s *Entities) GetRole(ctx context.Context, id uuid.UUID) (domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[id]
	if !ok {
		return domain.Role{}, notFound("role", id)
	}
	return r, nil
}

func (s *Entities) FindRoleByName(ctx context.Context, name string) (domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return domain.Role{}, notFound("role", name)
}

func (s *Entities) CreateRole(ctx context.Context, r domain.Role) (domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.roles {
		if existing.Name == r.Name {
			return domain.Role{}, fmt.Errorf("role %s: %w", r.Name, domain.ErrDuplicate)
		}
	}
	r.ID = ensureID(r.ID)
	s.roles[r.ID] = r
	return r, nil
}
