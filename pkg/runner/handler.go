package runner

import (
	"context"

	"github.com/aretw0/libris/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (console) and JSON (scripted) modes.
type IOHandler interface {
	// Output presents the replies produced by one event.
	Output(ctx context.Context, replies []domain.Reply) error

	// Input reads the next event. It returns io.EOF when the source is exhausted.
	Input(ctx context.Context) (domain.Event, error)
}

// ContentRenderer transforms reply text before it is printed (e.g. markdown to ANSI).
type ContentRenderer func(string) (string, error)
