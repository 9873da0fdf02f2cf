package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/libris/pkg/domain"
	"gorm.io/gorm"
)

// Migrate creates or updates every table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	// At most one reserved or in-process order per book, even across connections.
	activeBook := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_active_book ON orders (book_id) WHERE status IN ('%s', '%s')",
		domain.OrderReserved, domain.OrderInProcess,
	)
	if err := db.WithContext(ctx).Exec(activeBook).Error; err != nil {
		return fmt.Errorf("active order index: %w", err)
	}
	return nil
}

// SeedRoles makes sure the admin and user roles exist. It is idempotent.
func SeedRoles(ctx context.Context, s *Store) error {
	for _, name := range []string{domain.RoleAdmin, domain.RoleUser} {
		_, err := s.FindRoleByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if _, err := s.CreateRole(ctx, domain.Role{Name: name}); err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}
