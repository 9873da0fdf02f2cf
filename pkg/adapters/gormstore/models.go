package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type roleModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"type:varchar(32);not null;uniqueIndex"`
}

func (roleModel) TableName() string { return "roles" }

type employeeModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName string    `gorm:"type:varchar(255);not null"`
	Email    string    `gorm:"type:varchar(255);not null;uniqueIndex"`
}

func (employeeModel) TableName() string { return "employees" }

type telegramUserModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TelegramID string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	Username   string    `gorm:"type:varchar(255)"`
}

func (telegramUserModel) TableName() string { return "telegram_users" }

type appUserModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TelegramUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	EmployeeID     uuid.UUID `gorm:"type:uuid;not null;index"`
	RoleID         uuid.UUID `gorm:"type:uuid;not null;index"`
}

func (appUserModel) TableName() string { return "app_users" }

type locationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	City      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_locations_city_room"`
	Room      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_locations_city_room"`
	QRPayload string    `gorm:"type:varchar(512)"`
	QRCode    []byte
}

func (locationModel) TableName() string { return "locations" }

type bookModel struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Title       string                      `gorm:"type:varchar(255);not null"`
	Author      string                      `gorm:"type:varchar(255);not null"`
	Description *string                     `gorm:"type:text"`
	OwnerID     uuid.UUID                   `gorm:"type:uuid;not null;index"`
	LocationID  uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Categories  datatypes.JSONSlice[string] `gorm:"not null"`
	QRPayload   string                      `gorm:"type:varchar(512)"`
	QRCode      []byte
	CreatedAt   time.Time
}

func (bookModel) TableName() string { return "books" }

type orderModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	AppUserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	BookID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status       string     `gorm:"type:varchar(32);not null;index"`
	TakenFromID  *uuid.UUID `gorm:"type:uuid"`
	ReturnedToID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time
}

func (orderModel) TableName() string { return "orders" }

type wishlistModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	AppUserID uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Author    string    `gorm:"type:varchar(255);not null"`
	Comment   *string   `gorm:"type:text"`
	CreatedAt time.Time
}

func (wishlistModel) TableName() string { return "wishlists" }

type sessionModel struct {
	ChatID     string                      `gorm:"type:varchar(64);primaryKey"`
	Workflow   string                      `gorm:"type:varchar(32)"`
	Step       string                      `gorm:"type:varchar(64)"`
	Scratchpad datatypes.JSONMap
	History    datatypes.JSONSlice[string]
	UpdatedAt  time.Time `gorm:"index"`
}

func (sessionModel) TableName() string { return "sessions" }

func allModels() []any {
	return []any{
		&roleModel{}, &employeeModel{}, &telegramUserModel{}, &appUserModel{},
		&locationModel{}, &bookModel{}, &orderModel{}, &wishlistModel{},
		&sessionModel{},
	}
}
