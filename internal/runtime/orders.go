package runtime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
)

func (t *turn) routeOrder(parts []string) bool {
	if len(parts) == 0 {
		return false
	}
	switch {
	case parts[0] == "menu" && len(parts) == 1:
		t.say("📋 Orders", chat.OrdersMenu()...)
	case parts[0] == "list" && len(parts) == 1:
		t.listOrders()
	case parts[0] == "reserve" && len(parts) == 2:
		id, ok := parseID(parts[1])
		if !ok {
			return false
		}
		t.reserve(id)
	case parts[0] == "detail" && len(parts) == 1:
		t.pickOrder("detail", 1)
	case parts[0] == "detail" && len(parts) == 2:
		id, ok := parseID(parts[1])
		if !ok {
			return false
		}
		t.showOrder(id)
	case parts[0] == "cancel" && len(parts) == 1:
		t.pickOrder("cancel", 1)
	case parts[0] == "cancel" && len(parts) == 2:
		id, ok := parseID(parts[1])
		if !ok {
			return false
		}
		t.cancelOrder(id)
	case parts[0] == "page" && len(parts) == 3:
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return false
		}
		t.pickOrder(parts[1], n)
	case parts[0] == "return" && len(parts) == 3:
		orderID, ok1 := parseID(parts[1])
		locID, ok2 := parseID(parts[2])
		if !ok1 || !ok2 {
			return false
		}
		t.returnOrder(orderID, locID)
	default:
		return false
	}
	return true
}

// scope limits order queries to the chat's own orders unless it is an admin.
func (t *turn) scope() domain.OrderFilter {
	if t.id.IsAdmin {
		return domain.OrderFilter{}
	}
	return domain.OrderFilter{AppUserID: &t.id.AppUserID}
}

func (t *turn) orderViews(orders []domain.Order) []chat.OrderView {
	titles := make(map[uuid.UUID]string)
	views := make([]chat.OrderView, len(orders))
	for i, o := range orders {
		title, ok := titles[o.BookID]
		if !ok {
			title = "unknown book"
			if b, err := t.e.store.GetBook(t.ctx, o.BookID); err == nil {
				title = b.Title
			}
			titles[o.BookID] = title
		}
		views[i] = chat.OrderView{Order: o, Book: title}
	}
	return views
}

func (t *turn) listOrders() {
	orders, err := t.e.store.ListOrders(t.ctx, t.scope())
	if err != nil {
		t.fail("list_orders", err)
		return
	}
	t.say(chat.OrderList(t.orderViews(orders)), chat.OrdersMenu()...)
}

// pickOrder lists orders as buttons for a detail view or a cancellation.
func (t *turn) pickOrder(action string, page int) {
	filter := t.scope()
	title := "ℹ️ Choose an order"
	if action == "cancel" {
		filter.Statuses = []domain.OrderStatus{domain.OrderReserved}
		title = "🚫 Choose a reservation to cancel"
	} else if action != "detail" {
		t.say(msgStale)
		return
	}
	orders, err := t.e.store.ListOrders(t.ctx, filter)
	if err != nil {
		t.fail("list_orders", err)
		return
	}
	views := t.orderViews(orders)
	items := make([]chat.Item, len(views))
	for i, v := range views {
		items[i] = chat.Item{ID: v.Order.ID.String(), Label: chat.OrderLine(v)}
	}
	text, kb := chat.List(items, chat.Page{
		Number: page,
		Size:   t.e.pageSize,
		Title:  title,
		Select: "order:" + action,
		Nav:    "order:page:" + action,
		Back:   "order:menu",
	})
	t.say(text, kb...)
}

// ownOrder loads an order the chat may act on.
func (t *turn) ownOrder(op string, id uuid.UUID) (domain.Order, bool) {
	o, err := t.e.store.GetOrder(t.ctx, id)
	if err != nil {
		t.failLookup(op, "That order", err)
		return domain.Order{}, false
	}
	if !t.id.IsAdmin && o.AppUserID != t.id.AppUserID {
		t.e.emitFailure(t.ctx, t.state.ChatID, op, domain.NotFoundFailure, domain.ErrNotFound)
		t.say("That order no longer exists.")
		return domain.Order{}, false
	}
	return o, true
}

func (t *turn) showOrder(id uuid.UUID) {
	o, ok := t.ownOrder("order_detail", id)
	if !ok {
		return
	}
	v := t.orderViews([]domain.Order{o})[0]
	if t.id.IsAdmin {
		v.Member = t.memberName(o.AppUserID)
	}
	v.TakenAt = t.locationLabel(o.TakenFromID)
	v.Returned = t.locationLabel(o.ReturnedToID)
	text, kb := chat.OrderDetail(v)
	t.say(text, kb...)
}

func (t *turn) locationLabel(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	loc, err := t.e.store.GetLocation(t.ctx, *id)
	if err != nil {
		return "unknown"
	}
	return loc.Label()
}

// lostRace reports whether CreateOrder refused because another order
// took the book after the availability check.
func lostRace(err error) bool {
	return errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrDuplicate)
}

func (t *turn) reserve(bookID uuid.UUID) {
	b, err := t.e.store.GetBook(t.ctx, bookID)
	if err != nil {
		t.failLookup("order_reserve", "That book", err)
		return
	}
	active, err := t.activeOrders(b.ID)
	if err != nil {
		t.fail("order_reserve", err)
		return
	}
	if len(active) > 0 {
		t.e.emitFailure(t.ctx, t.state.ChatID, "order_reserve", domain.ConflictFailure, domain.ErrInvalidTransition)
		t.say(fmt.Sprintf("%q is already reserved or on loan.", b.Title))
		return
	}
	from := b.LocationID
	o, err := t.e.store.CreateOrder(t.ctx, domain.Order{
		AppUserID:   t.id.AppUserID,
		BookID:      b.ID,
		Status:      domain.OrderReserved,
		TakenFromID: &from,
	})
	if lostRace(err) {
		t.e.emitFailure(t.ctx, t.state.ChatID, "order_reserve", domain.ConflictFailure, err)
		t.say(fmt.Sprintf("%q is already reserved or on loan.", b.Title))
		return
	}
	if err != nil {
		t.fail("order_reserve", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "order", "reserve", o.ID.String())
	t.say(fmt.Sprintf("📚 %q is reserved for you. Scan the QR code on the book when you pick it up.", b.Title))
}

func (t *turn) cancelOrder(id uuid.UUID) {
	o, ok := t.ownOrder("order_cancel", id)
	if !ok {
		return
	}
	_, err := t.e.store.TransitionOrder(t.ctx, o.ID, domain.OrderReserved, domain.OrderCancelled)
	if errors.Is(err, domain.ErrInvalidTransition) {
		t.e.emitFailure(t.ctx, t.state.ChatID, "order_cancel", domain.ConflictFailure, err)
		t.say("This order is no longer a reservation and cannot be cancelled.")
		return
	}
	if err != nil {
		t.fail("order_cancel", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "order", "cancel", o.ID.String())
	t.say("🚫 Reservation cancelled.", chat.OrdersMenu()...)
}

func (t *turn) returnOrder(orderID, locationID uuid.UUID) {
	o, ok := t.ownOrder("order_return", orderID)
	if !ok {
		return
	}
	loc, err := t.e.store.GetLocation(t.ctx, locationID)
	if err != nil {
		t.failLookup("order_return", "That location", err)
		return
	}
	_, err = t.e.store.ReturnOrder(t.ctx, o.ID, loc.ID)
	if errors.Is(err, domain.ErrInvalidTransition) {
		t.e.emitFailure(t.ctx, t.state.ChatID, "order_return", domain.ConflictFailure, err)
		t.say("This book is not on loan.")
		return
	}
	if err != nil {
		t.fail("order_return", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "order", "return", o.ID.String())
	t.say(fmt.Sprintf("✅ Returned to %s. Thank you!", loc.Label()))
}

// Deep links

const (
	linkBook     = "book_"
	linkLocation = "location_"
)

// deepLink handles a /start payload. It never touches the session state.
func (t *turn) deepLink(payload string) {
	if raw, ok := strings.CutPrefix(payload, linkBook); ok {
		if id, ok := parseID(raw); ok {
			t.scanBook(id)
			return
		}
	}
	if raw, ok := strings.CutPrefix(payload, linkLocation); ok {
		if id, ok := parseID(raw); ok {
			t.scanLocation(id)
			return
		}
	}
	t.fail("deep_link", domain.Invalid("deep_link", "That link is not valid."))
}

// scanBook confirms a pickup: the chat's own reservation moves to in process,
// a free book is checked out directly.
func (t *turn) scanBook(bookID uuid.UUID) {
	b, err := t.e.store.GetBook(t.ctx, bookID)
	if err != nil {
		t.failLookup("scan_book", "That book", err)
		return
	}
	active, err := t.activeOrders(b.ID)
	if err != nil {
		t.fail("scan_book", err)
		return
	}
	for _, o := range active {
		if o.Status == domain.OrderReserved && o.AppUserID == t.id.AppUserID {
			if _, err := t.e.store.TransitionOrder(t.ctx, o.ID, domain.OrderReserved, domain.OrderInProcess); err != nil {
				t.fail("scan_book", err)
				return
			}
			t.e.emitCommit(t.ctx, t.state.ChatID, "order", "pickup", o.ID.String())
			t.say(fmt.Sprintf("✅ Reservation confirmed. Enjoy %q!", b.Title))
			return
		}
	}
	for _, o := range active {
		if o.Status == domain.OrderInProcess {
			t.say(fmt.Sprintf("%q is already taken.", b.Title))
			return
		}
	}
	if len(active) > 0 {
		t.say(fmt.Sprintf("%q is reserved by another member.", b.Title))
		return
	}

	from := b.LocationID
	o, err := t.e.store.CreateOrder(t.ctx, domain.Order{
		AppUserID:   t.id.AppUserID,
		BookID:      b.ID,
		Status:      domain.OrderInProcess,
		TakenFromID: &from,
	})
	if lostRace(err) {
		t.e.emitFailure(t.ctx, t.state.ChatID, "scan_book", domain.ConflictFailure, err)
		t.say(fmt.Sprintf("%q is already reserved or on loan.", b.Title))
		return
	}
	if err != nil {
		t.fail("scan_book", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "order", "checkout", o.ID.String())
	t.say(fmt.Sprintf("📚 Enjoy %q! Scan a location QR code when you bring it back.", b.Title))
}

// scanLocation offers the chat's loans for return to the scanned location.
func (t *turn) scanLocation(locationID uuid.UUID) {
	loc, err := t.e.store.GetLocation(t.ctx, locationID)
	if err != nil {
		t.failLookup("scan_location", "That location", err)
		return
	}
	orders, err := t.e.store.ListOrders(t.ctx, domain.OrderFilter{
		AppUserID: &t.id.AppUserID,
		Statuses:  []domain.OrderStatus{domain.OrderInProcess},
	})
	if err != nil {
		t.fail("scan_location", err)
		return
	}
	if len(orders) == 0 {
		t.say("You have no books to return.")
		return
	}
	t.say(fmt.Sprintf("📍 %s. Which book are you returning?", loc.Label()),
		chat.ReturnChoices(t.orderViews(orders), loc.ID.String())...)
}
