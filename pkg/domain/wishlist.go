package domain

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem is a book a member would like the library to get.
type WishlistItem struct {
	ID        uuid.UUID
	AppUserID uuid.UUID
	Title     string
	Author    string
	Comment   *string
	CreatedAt time.Time
}

// WishlistPatch is a partial wishlist update.
type WishlistPatch struct {
	Title   *string
	Author  *string
	Comment **string
}

func (p WishlistPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Comment == nil
}

func (p WishlistPatch) Apply(w *WishlistItem) {
	if p.Title != nil {
		w.Title = *p.Title
	}
	if p.Author != nil {
		w.Author = *p.Author
	}
	if p.Comment != nil {
		w.Comment = *p.Comment
	}
}
