package runner

import "log/slog"

// DefaultInputBufferSize is the number of lines buffered ahead of the runner.
const DefaultInputBufferSize = 64

// DefaultChatID identifies the console conversation when none is given.
const DefaultChatID = "console"

// Option configures the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.handler = handler
	}
}

// WithChatID sets the chat the console speaks as.
func WithChatID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.chatID = id
		}
	}
}
