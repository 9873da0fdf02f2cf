package gormstore

import (
	"github.com/aretw0/libris/pkg/domain"
	"gorm.io/datatypes"
)

func bookToModel(b domain.Book) *bookModel {
	cats := make(datatypes.JSONSlice[string], len(b.Categories))
	for i, c := range b.Categories {
		cats[i] = string(c)
	}
	return &bookModel{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		OwnerID:     b.OwnerID,
		LocationID:  b.LocationID,
		Categories:  cats,
		QRPayload:   b.QRPayload,
		QRCode:      b.QRCode,
		CreatedAt:   b.CreatedAt,
	}
}

func bookToEntity(m *bookModel) domain.Book {
	cats := make([]domain.Category, len(m.Categories))
	for i, c := range m.Categories {
		cats[i] = domain.Category(c)
	}
	return domain.Book{
		ID:          m.ID,
		Title:       m.Title,
		Author:      m.Author,
		Description: m.Description,
		OwnerID:     m.OwnerID,
		LocationID:  m.LocationID,
		Categories:  cats,
		QRPayload:   m.QRPayload,
		QRCode:      m.QRCode,
		CreatedAt:   m.CreatedAt,
	}
}

func locationToModel(l domain.Location) *locationModel {
	return &locationModel{ID: l.ID, City: string(l.City), Room: l.Room, QRPayload: l.QRPayload, QRCode: l.QRCode}
}

func locationToEntity(m *locationModel) domain.Location {
	return domain.Location{ID: m.ID, City: domain.City(m.City), Room: m.Room, QRPayload: m.QRPayload, QRCode: m.QRCode}
}

func orderToModel(o domain.Order) *orderModel {
	return &orderModel{
		ID:           o.ID,
		AppUserID:    o.AppUserID,
		BookID:       o.BookID,
		Status:       string(o.Status),
		TakenFromID:  o.TakenFromID,
		ReturnedToID: o.ReturnedToID,
		CreatedAt:    o.CreatedAt,
	}
}

func orderToEntity(m *orderModel) domain.Order {
	return domain.Order{
		ID:           m.ID,
		AppUserID:    m.AppUserID,
		BookID:       m.BookID,
		Status:       domain.OrderStatus(m.Status),
		TakenFromID:  m.TakenFromID,
		ReturnedToID: m.ReturnedToID,
		CreatedAt:    m.CreatedAt,
	}
}

func wishToModel(w domain.WishlistItem) *wishlistModel {
	return &wishlistModel{ID: w.ID, AppUserID: w.AppUserID, Title: w.Title, Author: w.Author, Comment: w.Comment, CreatedAt: w.CreatedAt}
}

func wishToEntity(m *wishlistModel) domain.WishlistItem {
	return domain.WishlistItem{ID: m.ID, AppUserID: m.AppUserID, Title: m.Title, Author: m.Author, Comment: m.Comment, CreatedAt: m.CreatedAt}
}

func stateToModel(chatID string, s *domain.State) *sessionModel {
	return &sessionModel{
		ChatID:     chatID,
		Workflow:   string(s.Workflow),
		Step:       string(s.Step),
		Scratchpad: datatypes.JSONMap(s.Scratchpad),
		History:    datatypes.JSONSlice[string](s.History),
		UpdatedAt:  s.UpdatedAt,
	}
}

func stateToEntity(m *sessionModel) *domain.State {
	s := domain.NewState(m.ChatID)
	s.Workflow = domain.Workflow(m.Workflow)
	s.Step = domain.Step(m.Step)
	for k, v := range m.Scratchpad {
		s.Scratchpad[k] = v
	}
	s.History = []string(m.History)
	s.UpdatedAt = m.UpdatedAt
	return s
}

func mapAll[M any, E any](models []M, fn func(*M) E) []E {
	out := make([]E, len(models))
	for i := range models {
		out[i] = fn(&models[i])
	}
	return out
}
