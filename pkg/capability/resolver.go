// Package capability answers "who is this chat and may it administer the library".
package capability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/libris/internal/logging"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Identity is the resolved view of a chat.
type Identity struct {
	ChatID     string
	AppUserID  uuid.UUID
	Registered bool
	IsAdmin    bool
	// Degraded is set when a directory lookup failed for a reason other
	// than a missing record. Registered and IsAdmin are then unreliable.
	Degraded bool
}

// Directory is the read path the resolver needs.
type Directory interface {
	FindTelegramUser(ctx context.Context, telegramID string) (domain.TelegramUser, error)
	FindAppUserByTelegram(ctx context.Context, telegramUserID uuid.UUID) (domain.AppUser, error)
	GetRole(ctx context.Context, id uuid.UUID) (domain.Role, error)
}

var _ Directory = (ports.DirectoryStore)(nil)

// Resolver looks identities up through the directory and caches them briefly.
// Lookup errors yield a Degraded identity and are never returned.
type Resolver struct {
	dir    Directory
	cache  *gocache.Cache
	logger *slog.Logger
}

type Option func(*Resolver)

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// DefaultTTL bounds how stale a cached role may be.
const DefaultTTL = 15 * time.Second

// WithTTL sets how long identities are cached. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl <= 0 {
			r.cache = nil
			return
		}
		r.cache = gocache.New(ttl, 2*ttl)
	}
}

func NewResolver(dir Directory, opts ...Option) *Resolver {
	r := &Resolver{
		dir:    dir,
		cache:  gocache.New(DefaultTTL, 2*DefaultTTL),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never fails. Unknown chats yield Registered == false; broken
// lookups also set Degraded.
func (r *Resolver) Resolve(ctx context.Context, chatID string) Identity {
	if r.cache != nil {
		if x, ok := r.cache.Get(chatID); ok {
			return x.(Identity)
		}
	}

	id, cacheable := r.lookup(ctx, chatID)
	if r.cache != nil && cacheable {
		r.cache.SetDefault(chatID, id)
	}
	return id
}

// Forget drops a cached identity, e.g. right after registration.
func (r *Resolver) Forget(chatID string) {
	if r.cache != nil {
		r.cache.Delete(chatID)
	}
}

// lookup reports whether the answer may be cached: backend errors are not.
func (r *Resolver) lookup(ctx context.Context, chatID string) (Identity, bool) {
	id := Identity{ChatID: chatID}

	tg, err := r.dir.FindTelegramUser(ctx, chatID)
	if err != nil {
		return r.degrade(id, "telegram user", err)
	}
	user, err := r.dir.FindAppUserByTelegram(ctx, tg.ID)
	if err != nil {
		return r.degrade(id, "app user", err)
	}
	id.Registered = true
	id.AppUserID = user.ID

	role, err := r.dir.GetRole(ctx, user.RoleID)
	if err != nil {
		return r.degrade(id, "role", err)
	}
	id.IsAdmin = role.Name == domain.RoleAdmin
	return id, true
}

// degrade settles a failed lookup: a missing record is a cacheable answer,
// anything else marks the identity Degraded and is not cached.
func (r *Resolver) degrade(id Identity, what string, err error) (Identity, bool) {
	if domain.Classify(err) == domain.NotFoundFailure {
		return id, true
	}
	r.logger.Warn("Capability lookup failed",
		"chat_id", id.ChatID,
		"lookup", what,
		"err", err,
	)
	id.Degraded = true
	return id, false
}
