package gormstore

import (
	"context"
	"fmt"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func byCityRoom(city domain.City, room string) []Specification {
	return []Specification{Filter("city", string(city)), Filter("room", room)}
}

func (s *Store) CreateLocation(ctx context.Context, loc domain.Location) (domain.Location, error) {
	loc.ID = newID(loc.ID)
	m := locationToModel(loc)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(ctx, tx, &locationModel{}, byCityRoom(loc.City, loc.Room)...)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("location %s: %w", loc.Label(), domain.ErrDuplicate)
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return domain.Location{}, translate(err, "location", loc.Label())
	}
	return locationToEntity(m), nil
}

func (s *Store) GetLocation(ctx context.Context, id uuid.UUID) (domain.Location, error) {
	var m locationModel
	if err := first(ctx, s.db, &m, ByID{ID: id}); err != nil {
		return domain.Location{}, translate(err, "location", id)
	}
	return locationToEntity(&m), nil
}

func (s *Store) FindLocation(ctx context.Context, city domain.City, room string) (domain.Location, error) {
	var m locationModel
	if err := first(ctx, s.db, &m, byCityRoom(city, room)...); err != nil {
		return domain.Location{}, translate(err, "location", domain.LocationLabel(city, room))
	}
	return locationToEntity(&m), nil
}

func (s *Store) ListLocations(ctx context.Context) ([]domain.Location, error) {
	var models []locationModel
	err := applySpecifications(s.db.WithContext(ctx), OrderBy{Field: "city"}, OrderBy{Field: "room"}).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return mapAll(models, locationToEntity), nil
}

func (s *Store) UpdateLocation(ctx context.Context, id uuid.UUID, patch domain.LocationPatch) (domain.Location, error) {
	var out domain.Location
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m locationModel
		if err := first(ctx, tx, &m, ByID{ID: id}); err != nil {
			return err
		}
		loc := locationToEntity(&m)
		if patch.City != nil {
			loc.City = *patch.City
		}
		if patch.Room != nil {
			loc.Room = *patch.Room
		}

		var other locationModel
		err := first(ctx, tx, &other, byCityRoom(loc.City, loc.Room)...)
		switch {
		case err == nil && other.ID != id:
			return fmt.Errorf("location %s: %w", loc.Label(), domain.ErrDuplicate)
		case err != nil && !isNotFound(err):
			return err
		}

		updated := locationToModel(loc)
		if err := tx.Save(updated).Error; err != nil {
			return err
		}
		out = locationToEntity(updated)
		return nil
	})
	if err != nil {
		return domain.Location{}, translate(err, "location", id)
	}
	return out, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m locationModel
		if err := first(ctx, tx, &m, ByID{ID: id}); err != nil {
			return err
		}
		used, err := exists(ctx, tx, &bookModel{}, Filter("location_id", id))
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("location %s: %w", id, domain.ErrHasDependents)
		}
		return tx.Delete(&locationModel{}, "id = ?", id).Error
	})
	return translate(err, "location", id)
}

func (s *Store) SetLocationQR(ctx context.Context, id uuid.UUID, png []byte) error {
	res := s.db.WithContext(ctx).Model(&locationModel{}).Where("id = ?", id).Update("qr_code", png)
	if res.Error != nil {
		return translate(res.Error, "location", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("location %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
