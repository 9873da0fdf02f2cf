// Package runtime drives the chat workflows: it turns (session, event) into a
// new session state plus the replies to send back.
package runtime

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/aretw0/libris/internal/logging"
	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/capability"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/aretw0/libris/pkg/session"
)

// DefaultBotLink prefixes deep-link payloads when no link is configured.
const DefaultBotLink = "https://t.me/libris_bot"

// Resolver answers who a chat is. Resolve never fails.
type Resolver interface {
	Resolve(ctx context.Context, chatID string) capability.Identity
	Forget(chatID string)
}

// Engine is the conversation state machine.
type Engine struct {
	store     ports.EntityStore
	sessions  *session.Manager
	resolver  Resolver
	qr        ports.QRAttacher
	mailer    ports.Mailer
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	botLink   string
	pageSize  int
	now       func() time.Time
	codeGen   func() (string, error)
	workflows map[domain.Workflow]workflow
}

var _ ports.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithQRAttacher sets the attacher called after a book or location is created.
func WithQRAttacher(a ports.QRAttacher) Option {
	return func(e *Engine) { e.qr = a }
}

// WithMailer sets the mailer used for registration codes.
func WithMailer(m ports.Mailer) Option {
	return func(e *Engine) { e.mailer = m }
}

// WithHooks registers lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = e.hooks.Merge(h) }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithBotLink(link string) Option {
	return func(e *Engine) {
		if link != "" {
			e.botLink = strings.TrimRight(link, "/")
		}
	}
}

func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithCodeGenerator replaces the verification code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(e *Engine) { e.codeGen = gen }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. Sessions are loaded, saved and cleared through the manager.
func New(store ports.EntityStore, sessions *session.Manager, resolver Resolver, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		sessions: sessions,
		resolver: resolver,
		logger:   logging.NewNop(),
		botLink:  DefaultBotLink,
		pageSize: chat.DefaultSize,
		now:      time.Now,
		codeGen:  randomCode,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.workflows = map[domain.Workflow]workflow{
		domain.WorkflowBookCreate:     bookCreateFlow(),
		domain.WorkflowBookUpdate:     bookUpdateFlow(),
		domain.WorkflowBookRemove:     bookRemoveFlow(),
		domain.WorkflowLocation:       locationFlow(),
		domain.WorkflowWishlistCreate: wishlistCreateFlow(),
		domain.WorkflowWishlistUpdate: wishlistUpdateFlow(),
		domain.WorkflowWishlistRemove: wishlistRemoveFlow(),
		domain.WorkflowRegistration:   registrationFlow(),
	}
	return e
}

// Handle processes one inbound event for a chat under the chat's session lock.
// Workflow failures are reported as replies; the error is only set when the
// session itself could not be loaded or persisted.
func (e *Engine) Handle(ctx context.Context, chatID string, ev domain.Event) ([]domain.Reply, error) {
	start := e.now()
	id := e.resolver.Resolve(ctx, chatID)

	var (
		replies  []domain.Reply
		from, to domain.StateTag
	)
	err := e.sessions.Transact(ctx, chatID, func(ctx context.Context, state *domain.State) error {
		from = state.Tag()
		next, out := e.Step(ctx, id, state, ev)
		*state = *next
		to = state.Tag()
		replies = out
		return nil
	})
	if err != nil {
		e.logger.Error("session update failed", "chat_id", chatID, "err", err)
		e.emitFailure(ctx, chatID, "session", domain.StoreFailure, err)
		return nil, fmt.Errorf("handle event for chat %s: %w", chatID, err)
	}

	e.logger.Debug("event handled", "chat_id", chatID, "input", ev.Kind, "from", from.String(), "to", to.String())
	e.emitTransition(ctx, chatID, from, to, ev.Kind, e.now().Sub(start))
	return replies, nil
}

// Step computes the next state and the replies for one event without touching
// the session store. The given state is never modified.
func (e *Engine) Step(ctx context.Context, id capability.Identity, state *domain.State, ev domain.Event) (*domain.State, []domain.Reply) {
	t := &turn{ctx: ctx, e: e, id: id, state: state.Clone()}
	if t.state.Scratchpad == nil {
		t.state.Scratchpad = make(map[string]any)
	}
	t.dispatch(ev)
	return t.state, t.replies
}

func (e *Engine) emitTransition(ctx context.Context, chatID string, from, to domain.StateTag, input domain.EventKind, d time.Duration) {
	if e.hooks.OnTransition == nil {
		return
	}
	e.hooks.OnTransition(ctx, &domain.TransitionEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventTransition, ChatID: chatID},
		From:      from,
		To:        to,
		Input:     input,
		Duration:  d,
	})
}

func (e *Engine) emitCommit(ctx context.Context, chatID, entity, op, id string) {
	e.logger.Info("entity committed", "chat_id", chatID, "entity", entity, "op", op, "id", id)
	if e.hooks.OnCommit == nil {
		return
	}
	e.hooks.OnCommit(ctx, &domain.CommitEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventCommit, ChatID: chatID},
		Entity:    entity,
		Op:        op,
		ID:        id,
	})
}

func (e *Engine) emitFailure(ctx context.Context, chatID, op string, kind domain.FailureKind, err error) {
	if e.hooks.OnFailure == nil {
		return
	}
	e.hooks.OnFailure(ctx, &domain.FailureEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventFailure, ChatID: chatID},
		Op:        op,
		Kind:      kind,
		Err:       err,
	})
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
