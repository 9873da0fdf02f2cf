package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle status of a loan.
type OrderStatus string

const (
	OrderReserved  OrderStatus = "Reserved"
	OrderInProcess OrderStatus = "In process"
	OrderReturned  OrderStatus = "Returned"
	OrderCancelled OrderStatus = "Cancelled"
)

// Active reports whether the order still holds the book.
func (s OrderStatus) Active() bool {
	return s == OrderReserved || s == OrderInProcess
}

// CanTransition reports whether s may move to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderReserved:
		return next == OrderCancelled || next == OrderInProcess
	case OrderInProcess:
		return next == OrderReturned
	default:
		return false
	}
}

// Rank orders statuses for listings: reserved, then in process, then closed.
func (s OrderStatus) Rank() int {
	switch s {
	case OrderReserved:
		return 0
	case OrderInProcess:
		return 1
	default:
		return 2
	}
}

// Order is a reservation or loan of a book by a member.
type Order struct {
	ID           uuid.UUID
	AppUserID    uuid.UUID
	BookID       uuid.UUID
	Status       OrderStatus
	TakenFromID  *uuid.UUID
	ReturnedToID *uuid.UUID
	CreatedAt    time.Time
}

// OrderFilter narrows ListOrders. Zero fields match everything.
type OrderFilter struct {
	AppUserID *uuid.UUID
	BookID    *uuid.UUID
	Statuses  []OrderStatus
}
