package chat

import (
	"fmt"
	"strings"

	"github.com/aretw0/libris/pkg/domain"
)

// NoDescription is shown in place of an empty book description.
const NoDescription = "No description"

// BookView bundles a book with the names its card displays.
type BookView struct {
	Book      domain.Book
	Owner     string
	Location  string
	Available bool
}

// BookDetail renders a book card. Back is the tag of the back button.
func BookDetail(v BookView, isAdmin bool, back string) (string, [][]domain.Button) {
	b := v.Book
	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 %s\n", b.Title)
	fmt.Fprintf(&sb, "Author: %s\n", b.Author)
	fmt.Fprintf(&sb, "Owner: %s\n", v.Owner)
	fmt.Fprintf(&sb, "Location: %s\n", v.Location)
	fmt.Fprintf(&sb, "Categories: %s\n", JoinOrDash(b.Categories))
	fmt.Fprintf(&sb, "Description: %s", describe(b.Description))
	if !v.Available {
		sb.WriteString("\n\nThis book is currently taken.")
	}

	var rows [][]domain.Button
	if v.Available {
		rows = append(rows, []domain.Button{btn("📚 Order", "order:reserve:"+b.ID.String())})
	}
	last := []domain.Button{btn(LabelBack, back)}
	if isAdmin {
		last = append(last, btn("🔳 QR", "book:qr:"+b.ID.String()))
	}
	return sb.String(), append(rows, last)
}

// BookDraft is the data collected by the creation form.
type BookDraft struct {
	Title       string
	Author      string
	Description string
	Owner       string
	Location    string
	Categories  []domain.Category
}

// BookSummary renders the confirmation card of the creation form.
func BookSummary(d BookDraft) (string, [][]domain.Button) {
	desc := d.Description
	if desc == "" {
		desc = NoDescription
	}
	text := fmt.Sprintf("Please check the book:\n\nTitle: %s\nAuthor: %s\nLocation: %s\nOwner: %s\nDescription: %s\nCategories: %s",
		d.Title, d.Author, d.Location, d.Owner, desc, JoinOrDash(d.Categories))
	return text, Confirm("book:confirm", "book:cancel")
}

// LocationList renders every location, one per line.
func LocationList(locs []domain.Location) string {
	if len(locs) == 0 {
		return "There are no locations yet."
	}
	var sb strings.Builder
	sb.WriteString("📍 Locations:")
	for i, l := range locs {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, l.Label())
	}
	return sb.String()
}

// OrderView bundles an order with the names its card displays.
type OrderView struct {
	Order    domain.Order
	Book     string
	Member   string
	TakenAt  string
	Returned string
}

// OrderLine is the one-line label used by order lists.
func OrderLine(v OrderView) string {
	return fmt.Sprintf("%s [%s]", v.Book, v.Order.Status)
}

// OrderList renders orders grouped in the order they are given.
func OrderList(views []OrderView) string {
	if len(views) == 0 {
		return "You have no orders."
	}
	var sb strings.Builder
	sb.WriteString("📋 Orders:")
	for i, v := range views {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, OrderLine(v))
	}
	return sb.String()
}

// OrderDetail renders one order card.
func OrderDetail(v OrderView) (string, [][]domain.Button) {
	o := v.Order
	var sb strings.Builder
	fmt.Fprintf(&sb, "Order for %q\n", v.Book)
	fmt.Fprintf(&sb, "Status: %s\n", o.Status)
	if v.Member != "" {
		fmt.Fprintf(&sb, "Member: %s\n", v.Member)
	}
	if v.TakenAt != "" {
		fmt.Fprintf(&sb, "Taken from: %s\n", v.TakenAt)
	}
	if v.Returned != "" {
		fmt.Fprintf(&sb, "Returned to: %s\n", v.Returned)
	}
	fmt.Fprintf(&sb, "Created: %s", o.CreatedAt.Format("2006-01-02 15:04"))

	var rows [][]domain.Button
	if o.Status == domain.OrderReserved {
		rows = append(rows, []domain.Button{btn("🚫 Cancel reservation", "order:cancel:"+o.ID.String())})
	}
	return sb.String(), append(rows, []domain.Button{btn(LabelBack, "order:detail")})
}

// ReturnChoices lists in-process orders that can be returned to a location.
func ReturnChoices(views []OrderView, locationID string) [][]domain.Button {
	rows := make([][]domain.Button, 0, len(views))
	for _, v := range views {
		rows = append(rows, []domain.Button{btn(v.Book, "order:return:"+v.Order.ID.String()+":"+locationID)})
	}
	return rows
}

// WishlistDetail renders a wishlist card with its edit and remove buttons.
func WishlistDetail(w domain.WishlistItem, by string) (string, [][]domain.Button) {
	comment := "-"
	if w.Comment != nil {
		comment = *w.Comment
	}
	text := fmt.Sprintf("⭐ %s\nAuthor: %s\nComment: %s", w.Title, w.Author, comment)
	if by != "" {
		text += "\nWished by: " + by
	}
	id := w.ID.String()
	return text, [][]domain.Button{
		{btn("✏️ Edit", "wish:select:upd:"+id), btn("🗑 Remove", "wish:select:rm:"+id)},
		{btn(LabelBack, "wish:list")},
	}
}

// Help lists the commands available to a chat.
func Help(isAdmin bool) string {
	lines := []string{
		"Available commands:",
		"/books - browse the library",
		"/orders - your reservations and loans",
		"/wishlists - books you would like us to get",
		"/locations - where the shelves are",
		"/cancel - abandon the current operation",
		"/help - this message",
	}
	if isAdmin {
		lines = append(lines, "", "As an admin you can add, update and remove books and locations from their menus.")
	}
	return strings.Join(lines, "\n")
}

// JoinOrDash renders categories or "-" when there are none.
func JoinOrDash(cs []domain.Category) string {
	if len(cs) == 0 {
		return "-"
	}
	return domain.JoinCategories(cs)
}

func describe(d *string) string {
	if d == nil || *d == "" {
		return NoDescription
	}
	return *d
}
