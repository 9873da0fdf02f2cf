package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	order.ID = newID(order.ID)
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	m := orderToModel(order)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(ctx, tx, &bookModel{}, ByID{ID: order.BookID})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("book %s: %w", order.BookID, domain.ErrNotFound)
		}
		if order.Status.Active() {
			busy, err := exists(ctx, tx, &orderModel{}, Filter("book_id", order.BookID), StatusIn{Statuses: activeStatuses})
			if err != nil {
				return err
			}
			if busy {
				return fmt.Errorf("book %s already has an active order: %w", order.BookID, domain.ErrInvalidTransition)
			}
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return domain.Order{}, translate(err, "order", order.ID)
	}
	return orderToEntity(m), nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	var m orderModel
	if err := first(ctx, s.db, &m, ByID{ID: id}); err != nil {
		return domain.Order{}, translate(err, "order", id)
	}
	return orderToEntity(&m), nil
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	specs := []Specification{ByStatusRank{}}
	if filter.AppUserID != nil {
		specs = append(specs, Filter("app_user_id", *filter.AppUserID))
	}
	if filter.BookID != nil {
		specs = append(specs, Filter("book_id", *filter.BookID))
	}
	if len(filter.Statuses) > 0 {
		specs = append(specs, StatusIn{Statuses: filter.Statuses})
	}

	var models []orderModel
	if err := applySpecifications(s.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return mapAll(models, orderToEntity), nil
}

// TransitionOrder is a conditional update on the current status.
func (s *Store) TransitionOrder(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (domain.Order, error) {
	var out domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m orderModel
		if err := first(ctx, tx, &m, ByID{ID: id}); err != nil {
			return err
		}
		if !from.CanTransition(to) {
			return fmt.Errorf("order %s %q -> %q: %w", id, from, to, domain.ErrInvalidTransition)
		}
		res := tx.Model(&orderModel{}).
			Where("id = ? AND status = ?", id, string(from)).
			Update("status", string(to))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s is %q, want %q: %w", id, m.Status, from, domain.ErrInvalidTransition)
		}
		m.Status = string(to)
		out = orderToEntity(&m)
		return nil
	})
	if err != nil {
		return domain.Order{}, translate(err, "order", id)
	}
	return out, nil
}

// ReturnOrder closes an in-process order and moves its book in the same transaction.
func (s *Store) ReturnOrder(ctx context.Context, id, locationID uuid.UUID) (domain.Order, error) {
	var out domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m orderModel
		if err := first(ctx, tx, &m, ByID{ID: id}); err != nil {
			return err
		}
		ok, err := exists(ctx, tx, &locationModel{}, ByID{ID: locationID})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("location %s: %w", locationID, domain.ErrNotFound)
		}

		res := tx.Model(&orderModel{}).
			Where("id = ? AND status = ?", id, string(domain.OrderInProcess)).
			Updates(map[string]any{"status": string(domain.OrderReturned), "returned_to_id": locationID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s is %q: %w", id, m.Status, domain.ErrInvalidTransition)
		}

		res = tx.Model(&bookModel{}).Where("id = ?", m.BookID).Update("location_id", locationID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("book %s: %w", m.BookID, domain.ErrNotFound)
		}

		m.Status = string(domain.OrderReturned)
		m.ReturnedToID = &locationID
		out = orderToEntity(&m)
		return nil
	})
	if err != nil {
		return domain.Order{}, translate(err, "order", id)
	}
	return out, nil
}
