// Package chat renders entities into reply text and keyboard layouts.
// Every function is pure: no store access, no session mutation.
package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/libris/pkg/domain"
)

// Fixed labels shared by keyboards and the engine.
const (
	LabelPrev   = "⬅ Previous"
	LabelNext   = "Next ➡"
	LabelBack   = "⬅️ Go back"
	LabelDone   = "✅ Done"
	LabelClose  = "❌ Close Menu"
	DefaultSize = 5
)

// Item is one selectable list entry.
type Item struct {
	ID    string
	Label string
}

// Page describes which slice of a list to render and how its buttons are tagged.
type Page struct {
	Number int
	Size   int
	Title  string
	// Select prefixes item tags: Select + ":" + Item.ID.
	Select string
	// Nav prefixes page tags: Nav + ":" + page number.
	Nav string
	// Back is the tag of the always-present back button.
	Back string
}

// Bounds clamps a page number and returns the slice [start, end) and the page count.
func Bounds(total, page, size int) (start, end, number, pages int) {
	if size <= 0 {
		size = DefaultSize
	}
	pages = (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	number = min(max(page, 1), pages)
	start = (number - 1) * size
	end = min(start+size, total)
	return start, end, number, pages
}

// List renders one page of items with numbered entries and navigation.
// Previous appears only after the first page, Next only before the last, Back always.
func List(items []Item, p Page) (string, [][]domain.Button) {
	start, end, number, pages := Bounds(len(items), p.Number, p.Size)

	var b strings.Builder
	if p.Title != "" {
		b.WriteString(p.Title)
	}
	if len(items) == 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Nothing here yet.")
		return b.String(), [][]domain.Button{{{Label: LabelBack, Tag: p.Back}}}
	}
	if pages > 1 {
		fmt.Fprintf(&b, " (page %d/%d)", number, pages)
	}

	rows := make([][]domain.Button, 0, end-start+2)
	for i := start; i < end; i++ {
		label := fmt.Sprintf("%d: %s", i+1, items[i].Label)
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(label)
		rows = append(rows, []domain.Button{{Label: label, Tag: p.Select + ":" + items[i].ID}})
	}

	var nav []domain.Button
	if number > 1 {
		nav = append(nav, domain.Button{Label: LabelPrev, Tag: p.Nav + ":" + strconv.Itoa(number-1)})
	}
	if number < pages {
		nav = append(nav, domain.Button{Label: LabelNext, Tag: p.Nav + ":" + strconv.Itoa(number+1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []domain.Button{{Label: LabelBack, Tag: p.Back}})
	return b.String(), rows
}
