package runtime

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/google/uuid"
)

const (
	stepTitle       domain.Step = "await_title"
	stepAuthor      domain.Step = "await_author"
	stepDescription domain.Step = "await_description"
	stepOwner       domain.Step = "await_owner"
	stepCategories  domain.Step = "await_categories"
	stepLocation    domain.Step = "await_location"
	stepConfirm     domain.Step = "await_confirm"
)

const ownerTag = "book:owner:"

type bookDraft struct {
	Title       string `mapstructure:"title"`
	Author      string `mapstructure:"author"`
	Description string `mapstructure:"description"`
	OwnerID     string `mapstructure:"owner_id"`
	OwnerName   string `mapstructure:"owner_name"`
	Location    string `mapstructure:"location"`
}

func bookCreateFlow() workflow {
	return workflow{
		stepTitle: {
			prompt: func(t *turn) { t.say("📖 New book. What is the title?") },
			text: func(t *turn, in string) {
				if in == "" {
					t.invalid("book_create", "The title cannot be empty.")
					return
				}
				t.state.Scratchpad["title"] = in
				t.next(stepAuthor)
			},
		},
		stepAuthor: {
			prompt: func(t *turn) { t.say("Who is the author?") },
			text: func(t *turn, in string) {
				if in == "" {
					t.invalid("book_create", "The author cannot be empty.")
					return
				}
				t.state.Scratchpad["author"] = in
				t.next(stepDescription)
			},
		},
		stepDescription: {
			prompt: func(t *turn) { t.say("Add a short description, or send - to skip.") },
			text: func(t *turn, in string) {
				d := ""
				if p := domain.OptionalText(in); p != nil {
					d = *p
				}
				t.state.Scratchpad["description"] = d
				t.next(stepOwner)
			},
		},
		stepOwner: {
			prompt: func(t *turn) { t.promptOwners("Who owns this book?") },
			button: func(t *turn, tag string) bool {
				m, handled := t.pickOwner("book_create", tag)
				if !handled || m == nil {
					return handled
				}
				t.state.Scratchpad["owner_id"] = m.AppUserID.String()
				t.state.Scratchpad["owner_name"] = m.FullName
				setSelection(t.state, nil)
				t.next(stepCategories)
				return true
			},
		},
		stepCategories: {
			prompt: func(t *turn) { t.promptCategories() },
			text: func(t *turn, in string) {
				if in == chat.LabelDone {
					if len(selection(t.state)) == 0 {
						t.invalid("book_create", "Select at least one category before pressing Done.")
						return
					}
					t.next(stepLocation)
					return
				}
				t.toggleCategory("book_create", in)
			},
		},
		stepLocation: {
			prompt: func(t *turn) { t.promptLocations("Where is the book kept?") },
			text: func(t *turn, in string) {
				loc, ok := t.findLocation("book_create", in)
				if !ok {
					return
				}
				t.state.Scratchpad["location"] = loc.Label()
				t.next(stepConfirm)
			},
		},
		stepConfirm: {
			prompt: func(t *turn) {
				d := readDraft[bookDraft](t)
				text, kb := chat.BookSummary(chat.BookDraft{
					Title:       d.Title,
					Author:      d.Author,
					Description: d.Description,
					Owner:       d.OwnerName,
					Location:    d.Location,
					Categories:  selection(t.state),
				})
				t.say(text, kb...)
			},
			button: func(t *turn, tag string) bool {
				if tag != "book:confirm" {
					return false
				}
				t.createBook()
				return true
			},
		},
	}
}

func (t *turn) startBookCreate() {
	if !t.admin() {
		return
	}
	locs, err := t.e.store.ListLocations(t.ctx)
	if err != nil {
		t.fail("book_create", err)
		return
	}
	if len(locs) == 0 {
		t.say("There are no locations yet. Create a location first.",
			[]domain.Button{{Label: "➕ Add location", Tag: "loc:add"}})
		return
	}
	t.begin(domain.WorkflowBookCreate, stepTitle)
}

func (t *turn) createBook() {
	d := readDraft[bookDraft](t)
	city, room, ok := domain.ParseLocationLabel(d.Location)
	ownerID, okOwner := parseID(d.OwnerID)
	if !ok || !okOwner {
		// The draft was damaged; start over rather than guess.
		t.fail("book_create", domain.ErrNotFound)
		return
	}
	loc, err := t.e.store.FindLocation(t.ctx, city, room)
	if err != nil {
		t.fail("book_create", err)
		return
	}

	id := uuid.New()
	book := domain.Book{
		ID:          id,
		Title:       d.Title,
		Author:      d.Author,
		Description: domain.OptionalText(d.Description),
		OwnerID:     ownerID,
		LocationID:  loc.ID,
		Categories:  selection(t.state),
		QRPayload:   domain.BookDeepLink(t.e.botLink, id),
	}
	created, err := t.e.store.CreateBook(t.ctx, book)
	if err != nil {
		t.fail("book_create", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "book", "create", created.ID.String())
	t.done(fmt.Sprintf("✅ %q was added to the library.", created.Title))
	t.attachQR(ports.QRBook, created.ID, created.QRPayload, created.Title)
}

// attachQR renders the QR code of a new entity. A failure leaves the entity
// without an image.
func (t *turn) attachQR(target ports.QRTarget, id uuid.UUID, payload, caption string) []byte {
	if t.e.qr == nil {
		return nil
	}
	png, err := t.e.qr.Attach(t.ctx, target, id, payload)
	if err != nil {
		t.e.logger.Warn("qr attachment failed", "target", target, "id", id, "err", err)
		t.e.emitFailure(t.ctx, t.state.ChatID, "attach_qr", domain.StoreFailure, err)
		return nil
	}
	if len(png) > 0 {
		t.image(caption, png)
	}
	return png
}

func (t *turn) promptOwners(text string) {
	members, err := t.e.store.ListMembers(t.ctx)
	if err != nil {
		t.fail("list_members", err)
		return
	}
	t.say(text, chat.Owners(members)...)
}

// pickOwner resolves an owner button. handled is false for foreign tags; a
// nil member means the choice was rejected and the step was prompted again.
func (t *turn) pickOwner(op, tag string) (m *domain.Member, handled bool) {
	raw, ok := strings.CutPrefix(tag, ownerTag)
	if !ok {
		return nil, false
	}
	id, ok := parseID(raw)
	if !ok {
		t.invalid(op, "Pick an owner from the list.")
		return nil, true
	}
	members, err := t.e.store.ListMembers(t.ctx)
	if err != nil {
		t.fail(op, err)
		return nil, true
	}
	i := slices.IndexFunc(members, func(m domain.Member) bool { return m.AppUserID == id })
	if i < 0 {
		t.invalid(op, "That member is not registered anymore. Pick another owner.")
		return nil, true
	}
	return &members[i], true
}

func (t *turn) promptCategories() {
	sel := selection(t.state)
	text := "Choose categories and press Done."
	if len(sel) > 0 {
		text += "\nSelected: " + domain.JoinCategories(sel)
	}
	t.say(text, chat.Categories()...)
}

// toggleCategory adds or removes a category from the selection. It returns
// false when the input is not a category.
func (t *turn) toggleCategory(op, in string) bool {
	c, ok := domain.ParseCategory(in)
	if !ok {
		t.invalid(op, "Unknown category. Use the keyboard.")
		return false
	}
	sel, added := toggle(selection(t.state), c)
	setSelection(t.state, sel)
	if added {
		t.say(fmt.Sprintf("Added %s.", c))
	} else {
		t.say(fmt.Sprintf("Removed %s.", c))
	}
	return true
}

func (t *turn) promptLocations(text string) {
	locs, err := t.e.store.ListLocations(t.ctx)
	if err != nil {
		t.fail("list_locations", err)
		return
	}
	t.say(text, chat.Locations(locs)...)
}

// findLocation resolves a "City: room" label typed or pressed by the user.
func (t *turn) findLocation(op, label string) (domain.Location, bool) {
	city, room, ok := domain.ParseLocationLabel(label)
	if !ok {
		t.invalid(op, "Choose a location from the keyboard.")
		return domain.Location{}, false
	}
	loc, err := t.e.store.FindLocation(t.ctx, city, room)
	if errors.Is(err, domain.ErrNotFound) {
		t.invalid(op, "There is no location "+domain.LocationLabel(city, room)+".")
		return domain.Location{}, false
	}
	if err != nil {
		t.fail(op, err)
		return domain.Location{}, false
	}
	return loc, true
}

// Catalog

func (t *turn) booksMenu() {
	t.say("📚 Books", chat.BooksMenu(t.id.IsAdmin)...)
}

var listTitles = map[string]string{
	"view":   "📚 Available books",
	"update": "✏️ Choose a book to update",
	"remove": "🗑 Choose a book to remove",
	"qr":     "🔳 Choose a book",
}

func (t *turn) routeBook(parts []string) bool {
	switch {
	case len(parts) == 1 && parts[0] == "add":
		t.startBookCreate()
	case len(parts) == 1 && parts[0] == "menu":
		t.booksMenu()
	case len(parts) == 2 && parts[0] == "list":
		t.listBooks(parts[1], 1)
	case len(parts) == 3 && parts[0] == "page":
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return false
		}
		t.listBooks(parts[1], n)
	case len(parts) == 3 && parts[0] == "select":
		id, ok := parseID(parts[2])
		if !ok {
			return false
		}
		return t.selectBook(parts[1], id)
	case len(parts) == 2 && parts[0] == "qr":
		id, ok := parseID(parts[1])
		if !ok {
			return false
		}
		t.sendBookQR(id)
	default:
		return false
	}
	return true
}

func (t *turn) listBooks(action string, page int) {
	title, known := listTitles[action]
	if !known {
		t.say(msgStale)
		return
	}
	if action != "view" && !t.admin() {
		return
	}
	books, err := t.e.store.ListBooks(t.ctx, domain.BookFilter{AvailableOnly: action == "view"})
	if err != nil {
		t.fail("list_books", err)
		return
	}
	items := make([]chat.Item, len(books))
	for i, b := range books {
		items[i] = chat.Item{ID: b.ID.String(), Label: b.Title + " by " + b.Author}
	}
	text, kb := chat.List(items, chat.Page{
		Number: page,
		Size:   t.e.pageSize,
		Title:  title,
		Select: "book:select:" + action,
		Nav:    "book:page:" + action,
		Back:   "book:menu",
	})
	t.say(text, kb...)
}

func (t *turn) selectBook(action string, id uuid.UUID) bool {
	switch action {
	case "view":
		t.showBook(id)
	case "update":
		t.startBookUpdate(id)
	case "remove":
		t.startBookRemove(id)
	case "qr":
		t.sendBookQR(id)
	default:
		return false
	}
	return true
}

func (t *turn) showBook(id uuid.UUID) {
	b, err := t.e.store.GetBook(t.ctx, id)
	if err != nil {
		t.failLookup("get_book", "That book", err)
		return
	}
	view := chat.BookView{Book: b, Owner: t.memberName(b.OwnerID), Location: "unknown"}
	if loc, err := t.e.store.GetLocation(t.ctx, b.LocationID); err == nil {
		view.Location = loc.Label()
	}
	active, err := t.activeOrders(b.ID)
	if err != nil {
		t.fail("get_book", err)
		return
	}
	view.Available = len(active) == 0
	text, kb := chat.BookDetail(view, t.id.IsAdmin, "book:list:view")
	t.say(text, kb...)
}

func (t *turn) activeOrders(bookID uuid.UUID) ([]domain.Order, error) {
	return t.e.store.ListOrders(t.ctx, domain.OrderFilter{
		BookID:   &bookID,
		Statuses: []domain.OrderStatus{domain.OrderReserved, domain.OrderInProcess},
	})
}

func (t *turn) sendBookQR(id uuid.UUID) {
	if !t.admin() {
		return
	}
	b, err := t.e.store.GetBook(t.ctx, id)
	if err != nil {
		t.failLookup("book_qr", "That book", err)
		return
	}
	if len(b.QRCode) > 0 {
		t.image(b.Title, b.QRCode)
		return
	}
	if t.attachQR(ports.QRBook, b.ID, b.QRPayload, b.Title) == nil {
		t.say("The QR code is being generated. Try again in a moment.")
	}
}

// failLookup reports an entity that could not be read outside any workflow.
func (t *turn) failLookup(op, what string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		t.e.emitFailure(t.ctx, t.state.ChatID, op, domain.NotFoundFailure, err)
		t.say(what + " no longer exists.")
		return
	}
	t.fail(op, err)
}

// Book removal

const stepRemoveConfirm domain.Step = "confirm"

func bookRemoveFlow() workflow {
	return workflow{
		stepRemoveConfirm: {
			prompt: func(t *turn) {
				name, _ := t.state.Scratchpad[keyTargetName].(string)
				t.say(fmt.Sprintf("Remove %q from the library?", name), chat.Confirm("book:remove:confirm", "book:cancel")...)
			},
			button: func(t *turn, tag string) bool {
				if tag != "book:remove:confirm" {
					return false
				}
				t.removeBook()
				return true
			},
		},
	}
}

func (t *turn) startBookRemove(id uuid.UUID) {
	if !t.admin() {
		return
	}
	b, err := t.e.store.GetBook(t.ctx, id)
	if err != nil {
		t.failLookup("book_remove", "That book", err)
		return
	}
	t.beginWith(domain.WorkflowBookRemove, stepRemoveConfirm, map[string]any{
		keyTargetID:   b.ID.String(),
		keyTargetName: b.Title,
	})
}

func (t *turn) removeBook() {
	id, ok := parseID(fmt.Sprint(t.state.Scratchpad[keyTargetID]))
	if !ok {
		t.fail("book_remove", domain.ErrNotFound)
		return
	}
	name, _ := t.state.Scratchpad[keyTargetName].(string)
	err := t.e.store.DeleteBook(t.ctx, id)
	switch {
	case errors.Is(err, domain.ErrHasDependents):
		t.e.emitFailure(t.ctx, t.state.ChatID, "book_remove", domain.ConflictFailure, err)
		t.done(fmt.Sprintf("%q is reserved or on loan and cannot be removed.", name))
	case err != nil:
		t.fail("book_remove", err)
	default:
		t.e.emitCommit(t.ctx, t.state.ChatID, "book", "delete", id.String())
		t.done(fmt.Sprintf("🗑 %q was removed.", name))
	}
}
