// Package gormstore persists library entities and chat sessions in a SQL
// database through gorm: postgres in production, sqlite for local runs and tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store implements ports.EntityStore. Each method runs as one transaction at most.
type Store struct {
	db *gorm.DB
}

// New wraps an open database. Call Migrate before first use.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the handle for sibling adapters such as SessionStore.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// translate maps driver errors onto domain sentinels.
func translate(err error, kind string, key any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %v: %w", kind, key, domain.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %v: %w", kind, key, domain.ErrDuplicate)
	default:
		return fmt.Errorf("%s %v: %w", kind, key, err)
	}
}

// first loads one row matching specs into dst.
func first(ctx context.Context, db *gorm.DB, dst any, specs ...Specification) error {
	return applySpecifications(db.WithContext(ctx), specs...).First(dst).Error
}

// exists reports whether a row of model matches specs.
func exists(ctx context.Context, db *gorm.DB, model any, specs ...Specification) (bool, error) {
	var n int64
	err := applySpecifications(db.WithContext(ctx).Model(model), specs...).Count(&n).Error
	return n > 0, err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
