package ports

import (
	"context"

	"github.com/aretw0/libris/pkg/domain"
)

// StateStore defines the interface for persisting conversation sessions.
// Sessions are ephemeral: losing them on restart is acceptable.
type StateStore interface {
	// Save persists the state for a given chat.
	Save(ctx context.Context, chatID string, state *domain.State) error

	// Load retrieves the state for a given chat.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, chatID string) (*domain.State, error)

	// Delete removes the state for a given chat. Deleting a missing session is not an error.
	Delete(ctx context.Context, chatID string) error

	// List returns the chat IDs with an open session.
	List(ctx context.Context) ([]string, error)
}
