package ports

import (
	"context"

	"github.com/aretw0/libris/pkg/domain"
)

// Engine is the inbound port of the conversation engine.
// Adapters (HTTP ingress, console runner) hand it one event at a time per chat.
type Engine interface {
	Handle(ctx context.Context, chatID string, event domain.Event) ([]domain.Reply, error)
}
