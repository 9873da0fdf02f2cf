package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreateWishlistItem(ctx context.Context, item domain.WishlistItem) (domain.WishlistItem, error) {
	item.ID = newID(item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	m := wishToModel(item)
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return domain.WishlistItem{}, translate(err, "wishlist item", item.ID)
	}
	return wishToEntity(m), nil
}

func (s *Store) GetWishlistItem(ctx context.Context, id uuid.UUID) (domain.WishlistItem, error) {
	var m wishlistModel
	if err := first(ctx, s.db, &m, ByID{ID: id}); err != nil {
		return domain.WishlistItem{}, translate(err, "wishlist item", id)
	}
	return wishToEntity(&m), nil
}

func (s *Store) ListWishlist(ctx context.Context, appUserID *uuid.UUID) ([]domain.WishlistItem, error) {
	specs := []Specification{OrderBy{Field: "created_at"}}
	if appUserID != nil {
		specs = append(specs, Filter("app_user_id", *appUserID))
	}

	var models []wishlistModel
	if err := applySpecifications(s.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return mapAll(models, wishToEntity), nil
}

func (s *Store) UpdateWishlistItem(ctx context.Context, id uuid.UUID, patch domain.WishlistPatch) (domain.WishlistItem, error) {
	var out domain.WishlistItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m wishlistModel
		if err := first(ctx, tx, &m, ByID{ID: id}); err != nil {
			return err
		}
		item := wishToEntity(&m)
		patch.Apply(&item)
		updated := wishToModel(item)
		if err := tx.Save(updated).Error; err != nil {
			return err
		}
		out = wishToEntity(updated)
		return nil
	})
	if err != nil {
		return domain.WishlistItem{}, translate(err, "wishlist item", id)
	}
	return out, nil
}

func (s *Store) DeleteWishlistItem(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&wishlistModel{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "wishlist item", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("wishlist item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
