package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Book is a lendable copy owned by a registered member.
type Book struct {
	ID          uuid.UUID
	Title       string
	Author      string
	Description *string
	OwnerID     uuid.UUID
	LocationID  uuid.UUID
	Categories  []Category
	QRPayload   string
	QRCode      []byte
	CreatedAt   time.Time
}

// BookFilter narrows ListBooks.
type BookFilter struct {
	// AvailableOnly excludes books with a reserved or in-process order.
	AvailableOnly bool
}

// BookPatch is a partial update. Nil fields are left untouched.
type BookPatch struct {
	Title       *string
	Author      *string
	Description **string
	OwnerID     *uuid.UUID
	LocationID  *uuid.UUID
	Categories  *[]Category
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Description == nil &&
		p.OwnerID == nil && p.LocationID == nil && p.Categories == nil
}

// Apply writes the patch onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.OwnerID != nil {
		b.OwnerID = *p.OwnerID
	}
	if p.LocationID != nil {
		b.LocationID = *p.LocationID
	}
	if p.Categories != nil {
		b.Categories = slices.Clone(*p.Categories)
	}
}

// BookDeepLink is the deep-link payload for a book QR code.
func BookDeepLink(botLink string, id uuid.UUID) string {
	return botLink + "?start=book_" + id.String()
}
