package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreateBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	book.ID = newID(book.ID)
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}
	m := bookToModel(book)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(ctx, tx, &locationModel{}, ByID{ID: book.LocationID})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("location %s: %w", book.LocationID, domain.ErrNotFound)
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return domain.Book{}, translate(err, "book", book.ID)
	}
	return bookToEntity(m), nil
}

func (s *Store) GetBook(ctx context.Context, id uuid.UUID) (domain.Book, error) {
	var m bookModel
	if err := first(ctx, s.db, &m, ByID{ID: id}); err != nil {
		return domain.Book{}, translate(err, "book", id)
	}
	return bookToEntity(&m), nil
}

func (s *Store) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	specs := []Specification{OrderBy{Field: "title"}, OrderBy{Field: "id"}}
	if filter.AvailableOnly {
		specs = append(specs, Available{})
	}

	var models []bookModel
	if err := applySpecifications(s.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return mapAll(models, bookToEntity), nil
}

func (s *Store) UpdateBook(ctx context.Context, id uuid.UUID, patch domain.BookPatch) (domain.Book, error) {
	var out domain.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m bookModel
		if err := first(ctx, tx, &m, ByID{ID: id}); err != nil {
			return err
		}
		if patch.LocationID != nil {
			ok, err := exists(ctx, tx, &locationModel{}, ByID{ID: *patch.LocationID})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("location %s: %w", *patch.LocationID, domain.ErrNotFound)
			}
		}

		book := bookToEntity(&m)
		patch.Apply(&book)
		updated := bookToModel(book)
		if err := tx.Save(updated).Error; err != nil {
			return err
		}
		out = bookToEntity(updated)
		return nil
	})
	if err != nil {
		return domain.Book{}, translate(err, "book", id)
	}
	return out, nil
}

func (s *Store) DeleteBook(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m bookModel
		if err := first(ctx, tx, &m, ByID{ID: id}); err != nil {
			return err
		}
		busy, err := exists(ctx, tx, &orderModel{}, Filter("book_id", id), StatusIn{Statuses: activeStatuses})
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("book %s: %w", id, domain.ErrHasDependents)
		}
		if err := tx.Where("book_id = ?", id).Delete(&orderModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&bookModel{}, "id = ?", id).Error
	})
	return translate(err, "book", id)
}

func (s *Store) SetBookQR(ctx context.Context, id uuid.UUID, png []byte) error {
	res := s.db.WithContext(ctx).Model(&bookModel{}).Where("id = ?", id).Update("qr_code", png)
	if res.Error != nil {
		return translate(res.Error, "book", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("book %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
