package domain

import "github.com/google/uuid"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// TelegramUser is the chat identity as seen by the transport.
type TelegramUser struct {
	ID         uuid.UUID
	TelegramID string
	Username   string
}

// Employee is a directory entry that a chat identity registers against.
type Employee struct {
	ID       uuid.UUID
	FullName string
	Email    string
}

// Role grants capabilities to app users.
type Role struct {
	ID   uuid.UUID
	Name string
}

// AppUser links a chat identity to an employee and a role.
type AppUser struct {
	ID             uuid.UUID
	TelegramUserID uuid.UUID
	EmployeeID     uuid.UUID
	RoleID         uuid.UUID
}

// Member is an app user with its display name, used by owner pickers.
type Member struct {
	AppUserID uuid.UUID
	FullName  string
}
