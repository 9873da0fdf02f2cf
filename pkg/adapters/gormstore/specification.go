package gormstore

import (
	"fmt"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Specification narrows or orders a query.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

func applySpecifications(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// ByID filters by primary key.
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// OrderBy applies ordering.
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

// FilterBy is a generic equality filter.
type FilterBy struct {
	Field string
	Value any
}

func (s FilterBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s = ?", s.Field), s.Value)
}

func Filter(field string, value any) Specification {
	return FilterBy{Field: field, Value: value}
}

// StatusIn keeps orders whose status is one of Statuses.
type StatusIn struct {
	Statuses []domain.OrderStatus
}

func (s StatusIn) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", statusStrings(s.Statuses))
}

// Available drops books that have a reserved or in-process order.
type Available struct{}

func (Available) Apply(db *gorm.DB) *gorm.DB {
	busy := db.Session(&gorm.Session{NewDB: true}).
		Model(&orderModel{}).
		Select("book_id").
		Where("status IN ?", statusStrings(activeStatuses))
	return db.Where("id NOT IN (?)", busy)
}

// ByStatusRank orders by reserved, in process, closed, then creation time.
type ByStatusRank struct{}

func (ByStatusRank) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                "CASE status WHEN ? THEN 0 WHEN ? THEN 1 ELSE 2 END, created_at ASC",
		Vars:               []any{string(domain.OrderReserved), string(domain.OrderInProcess)},
		WithoutParentheses: true,
	}})
}

var activeStatuses = []domain.OrderStatus{domain.OrderReserved, domain.OrderInProcess}

func statusStrings(ss []domain.OrderStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
