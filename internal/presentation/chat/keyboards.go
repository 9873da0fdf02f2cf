package chat

import (
	"github.com/aretw0/libris/pkg/domain"
)

func btn(label, tag string) domain.Button { return domain.Button{Label: label, Tag: tag} }

// reply builds a reply keyboard: pressing a key sends its label as text.
func reply(labels []string, perRow int) [][]domain.Button {
	var rows [][]domain.Button
	for i := 0; i < len(labels); i += perRow {
		row := make([]domain.Button, 0, perRow)
		for _, l := range labels[i:min(i+perRow, len(labels))] {
			row = append(row, domain.Button{Label: l})
		}
		rows = append(rows, row)
	}
	return rows
}

// Confirm is a two-button confirm/cancel row.
func Confirm(confirmTag, cancelTag string) [][]domain.Button {
	return [][]domain.Button{{btn("Confirm", confirmTag), btn("Cancel", cancelTag)}}
}

// BooksMenu is the /books keyboard.
func BooksMenu(isAdmin bool) [][]domain.Button {
	if !isAdmin {
		return [][]domain.Button{
			{btn("ℹ️ Show details", "book:list:view")},
			{btn(LabelClose, "menu:close")},
		}
	}
	return [][]domain.Button{
		{btn("➕ Add a book", "book:add"), btn("ℹ️ Show details", "book:list:view")},
		{btn("✏️ Update a book", "book:list:update"), btn("🗑 Remove a book", "book:list:remove")},
		{btn("🔳 Show QR", "book:list:qr"), btn(LabelClose, "menu:close")},
	}
}

// BookUpdateHub is the field menu of the book update workflow.
func BookUpdateHub() [][]domain.Button {
	return [][]domain.Button{
		{btn("Title", "upd:title"), btn("Author", "upd:author")},
		{btn("Description", "upd:description"), btn("Owner", "upd:owner")},
		{btn("Location", "upd:location"), btn("Categories", "upd:categories")},
		{btn("💾 Save changes", "upd:save")},
		{btn("Exit", "upd:cancel")},
	}
}

// WishlistUpdateHub is the field menu of the wishlist update workflow.
func WishlistUpdateHub() [][]domain.Button {
	return [][]domain.Button{
		{btn("Title", "wupd:title"), btn("Author", "wupd:author"), btn("Comment", "wupd:comment")},
		{btn("💾 Save changes", "wupd:save")},
		{btn("Exit", "wupd:cancel")},
	}
}

// Cities is a reply keyboard of every city.
func Cities() [][]domain.Button {
	labels := make([]string, len(domain.Cities))
	for i, c := range domain.Cities {
		labels[i] = string(c)
	}
	return reply(labels, 3)
}

// Categories is a reply keyboard of every category plus Done.
func Categories() [][]domain.Button {
	labels := make([]string, 0, len(domain.Categories)+1)
	for _, c := range domain.Categories {
		labels = append(labels, string(c))
	}
	rows := reply(labels, 2)
	return append(rows, []domain.Button{{Label: LabelDone}})
}

// Owners lists members as inline buttons tagged book:owner:<app-user-id>.
func Owners(members []domain.Member) [][]domain.Button {
	rows := make([][]domain.Button, 0, len(members))
	for _, m := range members {
		rows = append(rows, []domain.Button{btn(m.FullName, "book:owner:"+m.AppUserID.String())})
	}
	return rows
}

// Locations is a reply keyboard of "City: room" labels.
func Locations(locs []domain.Location) [][]domain.Button {
	labels := make([]string, len(locs))
	for i, l := range locs {
		labels[i] = l.Label()
	}
	return reply(labels, 2)
}

// LocationsMenu is the /locations keyboard.
func LocationsMenu(isAdmin bool) [][]domain.Button {
	if !isAdmin {
		return [][]domain.Button{{btn(LabelClose, "menu:close")}}
	}
	return [][]domain.Button{
		{btn("➕ Add", "loc:add"), btn("✏️ Update", "loc:update"), btn("🗑 Remove", "loc:remove")},
		{btn("🔳 Show QR", "loc:qrlist"), btn(LabelClose, "menu:close")},
	}
}

// LocationQRs lists locations as inline buttons tagged loc:qr:<id>.
func LocationQRs(locs []domain.Location) [][]domain.Button {
	rows := make([][]domain.Button, 0, len(locs)+1)
	for _, l := range locs {
		rows = append(rows, []domain.Button{btn(l.Label(), "loc:qr:"+l.ID.String())})
	}
	return append(rows, []domain.Button{btn(LabelBack, "loc:menu")})
}

// OrdersMenu is the /orders keyboard.
func OrdersMenu() [][]domain.Button {
	return [][]domain.Button{
		{btn("📋 My orders", "order:list"), btn("ℹ️ Details", "order:detail")},
		{btn("🚫 Cancel a reservation", "order:cancel"), btn(LabelClose, "menu:close")},
	}
}

// WishlistMenu is the /wishlists keyboard.
func WishlistMenu() [][]domain.Button {
	return [][]domain.Button{
		{btn("➕ Add a wish", "wish:add"), btn("ℹ️ Show details", "wish:list")},
		{btn(LabelClose, "menu:close")},
	}
}
