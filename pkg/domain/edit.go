package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Pending update keys accepted for books. Anything else is rejected before any write.
const (
	FieldTitle       = "title"
	FieldAuthor      = "author"
	FieldDescription = "description"
	FieldOwner       = "owner_id"
	FieldLocation    = "location_id"
	FieldCategories  = "categories"
	FieldComment     = "comment"
)

var (
	bookFields     = []string{FieldTitle, FieldAuthor, FieldDescription, FieldOwner, FieldLocation, FieldCategories}
	wishlistFields = []string{FieldTitle, FieldAuthor, FieldComment}
)

// BookEdit is one allowed change to a book.
type BookEdit interface {
	applyBook(*BookPatch)
}

type (
	SetTitle       struct{ Title string }
	SetAuthor      struct{ Author string }
	SetDescription struct{ Description *string }
	SetOwner       struct{ OwnerID uuid.UUID }
	SetLocation    struct{ LocationID uuid.UUID }
	SetCategories  struct{ Categories []Category }
)

func (e SetTitle) applyBook(p *BookPatch)       { p.Title = &e.Title }
func (e SetAuthor) applyBook(p *BookPatch)      { p.Author = &e.Author }
func (e SetDescription) applyBook(p *BookPatch) { p.Description = &e.Description }
func (e SetOwner) applyBook(p *BookPatch)       { p.OwnerID = &e.OwnerID }
func (e SetLocation) applyBook(p *BookPatch)    { p.LocationID = &e.LocationID }
func (e SetCategories) applyBook(p *BookPatch) {
	cs := slices.Clone(e.Categories)
	p.Categories = &cs
}

// NewBookPatch folds edits into a single patch.
func NewBookPatch(edits ...BookEdit) BookPatch {
	var p BookPatch
	for _, e := range edits {
		e.applyBook(&p)
	}
	return p
}

// ParseBookEdits validates a pending-update map against the book allow-list.
// Either every entry is valid and converted, or an error is returned and nothing applies.
func ParseBookEdits(pending map[string]any) ([]BookEdit, error) {
	keys := sortedKeys(pending)
	edits := make([]BookEdit, 0, len(keys))
	for _, k := range keys {
		if !slices.Contains(bookFields, k) {
			return nil, Invalid("parse_book_edits", fmt.Sprintf("field %q cannot be edited", k))
		}
		v := pending[k]
		switch k {
		case FieldDescription:
			if v == nil {
				edits = append(edits, SetDescription{})
				continue
			}
			s, ok := v.(string)
			if !ok {
				return nil, badValue(k, v)
			}
			edits = append(edits, SetDescription{Description: &s})
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, badValue(k, v)
		}
		switch k {
		case FieldTitle:
			edits = append(edits, SetTitle{Title: s})
		case FieldAuthor:
			edits = append(edits, SetAuthor{Author: s})
		case FieldOwner:
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, badValue(k, v)
			}
			edits = append(edits, SetOwner{OwnerID: id})
		case FieldLocation:
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, badValue(k, v)
			}
			edits = append(edits, SetLocation{LocationID: id})
		case FieldCategories:
			cs, ok := ParseCategoryList(s)
			if !ok || len(cs) == 0 {
				return nil, badValue(k, v)
			}
			edits = append(edits, SetCategories{Categories: cs})
		}
	}
	return edits, nil
}

// WishlistEdit is one allowed change to a wishlist item.
type WishlistEdit interface {
	applyWishlist(*WishlistPatch)
}

type (
	SetWishTitle   struct{ Title string }
	SetWishAuthor  struct{ Author string }
	SetWishComment struct{ Comment *string }
)

func (e SetWishTitle) applyWishlist(p *WishlistPatch)   { p.Title = &e.Title }
func (e SetWishAuthor) applyWishlist(p *WishlistPatch)  { p.Author = &e.Author }
func (e SetWishComment) applyWishlist(p *WishlistPatch) { p.Comment = &e.Comment }

// NewWishlistPatch folds edits into a single patch.
func NewWishlistPatch(edits ...WishlistEdit) WishlistPatch {
	var p WishlistPatch
	for _, e := range edits {
		e.applyWishlist(&p)
	}
	return p
}

// ParseWishlistEdits validates a pending-update map against the wishlist allow-list.
func ParseWishlistEdits(pending map[string]any) ([]WishlistEdit, error) {
	keys := sortedKeys(pending)
	edits := make([]WishlistEdit, 0, len(keys))
	for _, k := range keys {
		if !slices.Contains(wishlistFields, k) {
			return nil, Invalid("parse_wishlist_edits", fmt.Sprintf("field %q cannot be edited", k))
		}
		v := pending[k]
		if k == FieldComment && v == nil {
			edits = append(edits, SetWishComment{})
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, badValue(k, v)
		}
		switch k {
		case FieldTitle:
			edits = append(edits, SetWishTitle{Title: s})
		case FieldAuthor:
			edits = append(edits, SetWishAuthor{Author: s})
		case FieldComment:
			edits = append(edits, SetWishComment{Comment: &s})
		}
	}
	return edits, nil
}

// OptionalText maps the "-" sentinel to nil.
func OptionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "-" || s == "" {
		return nil
	}
	return &s
}

func badValue(key string, v any) error {
	return Invalid("parse_edits", fmt.Sprintf("field %q has an invalid value (%T)", key, v))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
