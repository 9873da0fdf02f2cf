package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
)

// Runner feeds events from an IOHandler into the engine and prints the replies.
type Runner struct {
	handler IOHandler
	logger  *slog.Logger
	chatID  string
}

// NewRunner creates a Runner reading stdin and writing stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger: slog.New(slog.DiscardHandler),
		chatID: DefaultChatID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// ChatID returns the chat the runner speaks as.
func (r *Runner) ChatID() string { return r.chatID }

// Run loops until the input is exhausted or ctx is cancelled.
// Invalid input is reported to the user and skipped.
func (r *Runner) Run(ctx context.Context, engine ports.Engine) error {
	if err := SanitizeChatID(r.chatID); err != nil {
		return err
	}
	for {
		ev, err := r.handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input: %w", err)
		}

		ev, err = SanitizeEvent(ev)
		if err != nil {
			r.logger.Warn("input rejected", "chat_id", r.chatID, "err", err)
			if err := r.handler.Output(ctx, []domain.Reply{{Text: "Error: " + err.Error(), Notice: true}}); err != nil {
				return fmt.Errorf("output: %w", err)
			}
			continue
		}

		r.logger.Debug("event", "chat_id", r.chatID, "type", ev.Kind, "value", ev.Value)
		replies, err := engine.Handle(ctx, r.chatID, ev)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("handle %s event: %w", ev.Kind, err)
		}

		if err := r.handler.Output(ctx, replies); err != nil {
			return fmt.Errorf("output: %w", err)
		}
	}
}
