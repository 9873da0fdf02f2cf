package gormstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) FindTelegramUser(ctx context.Context, telegramID string) (domain.TelegramUser, error) {
	var m telegramUserModel
	if err := first(ctx, s.db, &m, Filter("telegram_id", telegramID)); err != nil {
		return domain.TelegramUser{}, translate(err, "telegram user", telegramID)
	}
	return domain.TelegramUser{ID: m.ID, TelegramID: m.TelegramID, Username: m.Username}, nil
}

func (s *Store) CreateTelegramUser(ctx context.Context, u domain.TelegramUser) (domain.TelegramUser, error) {
	u.ID = newID(u.ID)
	m := telegramUserModel{ID: u.ID, TelegramID: u.TelegramID, Username: u.Username}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.TelegramUser{}, translate(err, "telegram user", u.TelegramID)
	}
	return u, nil
}

func appUserToEntity(m *appUserModel) domain.AppUser {
	return domain.AppUser{ID: m.ID, TelegramUserID: m.TelegramUserID, EmployeeID: m.EmployeeID, RoleID: m.RoleID}
}

func (s *Store) FindAppUserByTelegram(ctx context.Context, telegramUserID uuid.UUID) (domain.AppUser, error) {
	var m appUserModel
	if err := first(ctx, s.db, &m, Filter("telegram_user_id", telegramUserID)); err != nil {
		return domain.AppUser{}, translate(err, "app user for telegram user", telegramUserID)
	}
	return appUserToEntity(&m), nil
}

func (s *Store) GetAppUser(ctx context.Context, id uuid.UUID) (domain.AppUser, error) {
	var m appUserModel
	if err := first(ctx, s.db, &m, ByID{ID: id}); err != nil {
		return domain.AppUser{}, translate(err, "app user", id)
	}
	return appUserToEntity(&m), nil
}

func (s *Store) CreateAppUser(ctx context.Context, u domain.AppUser) (domain.AppUser, error) {
	u.ID = newID(u.ID)
	m := appUserModel{ID: u.ID, TelegramUserID: u.TelegramUserID, EmployeeID: u.EmployeeID, RoleID: u.RoleID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(ctx, tx, &roleModel{}, ByID{ID: u.RoleID})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("role %s: %w", u.RoleID, domain.ErrNotFound)
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.AppUser{}, translate(err, "app user", u.ID)
	}
	return u, nil
}

func (s *Store) UpdateAppUserRole(ctx context.Context, id, roleID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(ctx, tx, &roleModel{}, ByID{ID: roleID})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("role %s: %w", roleID, domain.ErrNotFound)
		}
		res := tx.Model(&appUserModel{}).Where("id = ?", id).Update("role_id", roleID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "app user", id)
}

func (s *Store) ListMembers(ctx context.Context) ([]domain.Member, error) {
	var rows []struct {
		AppUserID uuid.UUID
		FullName  string
	}
	err := s.db.WithContext(ctx).
		Table("app_users").
		Select("app_users.id AS app_user_id, employees.full_name AS full_name").
		Joins("JOIN employees ON employees.id = app_users.employee_id").
		Order("employees.full_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	out := make([]domain.Member, len(rows))
	for i, r := range rows {
		out[i] = domain.Member{AppUserID: r.AppUserID, FullName: r.FullName}
	}
	return out, nil
}

func (s *Store) FindEmployeeByEmail(ctx context.Context, email string) (domain.Employee, error) {
	var m employeeModel
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&m).Error
	if err != nil {
		return domain.Employee{}, translate(err, "employee", email)
	}
	return domain.Employee{ID: m.ID, FullName: m.FullName, Email: m.Email}, nil
}

func (s *Store) CreateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	e.ID = newID(e.ID)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&employeeModel{}).Where("LOWER(email) = ?", strings.ToLower(e.Email)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("employee %s: %w", e.Email, domain.ErrDuplicate)
		}
		return tx.Create(&employeeModel{ID: e.ID, FullName: e.FullName, Email: e.Email}).Error
	})
	if err != nil {
		return domain.Employee{}, translate(err, "employee", e.Email)
	}
	return e, nil
}

func (s *Store) GetRole(ctx context.Context, id uuid.UUID) (domain.Role, error) {
	var m roleModel
	if err := first(ctx, s.db, &m, ByID{ID: id}); err != nil {
		return domain.Role{}, translate(err, "role", id)
	}
	return domain.Role{ID: m.ID, Name: m.Name}, nil
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (domain.Role, error) {
	var m roleModel
	if err := first(ctx, s.db, &m, Filter("name", name)); err != nil {
		return domain.Role{}, translate(err, "role", name)
	}
	return domain.Role{ID: m.ID, Name: m.Name}, nil
}

func (s *Store) CreateRole(ctx context.Context, r domain.Role) (domain.Role, error) {
	r.ID = newID(r.ID)
	if err := s.db.WithContext(ctx).Create(&roleModel{ID: r.ID, Name: r.Name}).Error; err != nil {
		return domain.Role{}, translate(err, "role", r.Name)
	}
	return r, nil
}
