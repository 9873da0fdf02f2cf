package runtime_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/libris/internal/runtime"
	"github.com/aretw0/libris/pkg/adapters/memory"
	"github.com/aretw0/libris/pkg/adapters/qr"
	"github.com/aretw0/libris/pkg/capability"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/aretw0/libris/pkg/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	adminChat    = "100"
	aliceChat    = "200"
	bobChat      = "300"
	strangerChat = "900"
)

// spyStore counts book updates and can inject failures into them and into
// directory lookups.
type spyStore struct {
	ports.EntityStore

	mu          sync.Mutex
	bookUpdates int
	updateErr   error
	lookupErr   error
	orderGate   *sync.WaitGroup
}

// holdOrders makes CreateOrder wait until n callers have reached it.
func (s *spyStore) holdOrders(n int) {
	var wg sync.WaitGroup
	wg.Add(n)
	s.mu.Lock()
	s.orderGate = &wg
	s.mu.Unlock()
}

func (s *spyStore) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	gate := s.orderGate
	s.mu.Unlock()
	if gate != nil {
		gate.Done()
		gate.Wait()
	}
	return s.EntityStore.CreateOrder(ctx, order)
}

func (s *spyStore) FindTelegramUser(ctx context.Context, telegramID string) (domain.TelegramUser, error) {
	s.mu.Lock()
	err := s.lookupErr
	s.mu.Unlock()
	if err != nil {
		return domain.TelegramUser{}, err
	}
	return s.EntityStore.FindTelegramUser(ctx, telegramID)
}

func (s *spyStore) failLookups(err error) {
	s.mu.Lock()
	s.lookupErr = err
	s.mu.Unlock()
}

func (s *spyStore) UpdateBook(ctx context.Context, id uuid.UUID, patch domain.BookPatch) (domain.Book, error) {
	s.mu.Lock()
	s.bookUpdates++
	err := s.updateErr
	s.mu.Unlock()
	if err != nil {
		return domain.Book{}, err
	}
	return s.EntityStore.UpdateBook(ctx, id, patch)
}

func (s *spyStore) updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookUpdates
}

func (s *spyStore) failUpdates(err error) {
	s.mu.Lock()
	s.updateErr = err
	s.mu.Unlock()
}

// outbox records verification codes instead of mailing them.
type outbox struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (o *outbox) SendVerificationCode(_ context.Context, email, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.codes[email] = code
	return nil
}

func (o *outbox) code(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[email]
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	store    *spyStore
	sessions ports.StateStore
	engine   *runtime.Engine
	mail     *outbox

	mu      sync.Mutex
	commits []*domain.CommitEvent
	fails   []*domain.FailureEvent

	admin, alice, bob domain.AppUser
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	sessions ports.StateStore
	opts     []runtime.Option
}

func withSessions(s ports.StateStore) harnessOption {
	return func(c *harnessConfig) { c.sessions = s }
}

func withEngineOptions(opts ...runtime.Option) harnessOption {
	return func(c *harnessConfig) { c.opts = append(c.opts, opts...) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{sessions: memory.NewStore()}
	for _, o := range opts {
		o(&cfg)
	}

	h := &harness{
		t:        t,
		ctx:      context.Background(),
		store:    &spyStore{EntityStore: memory.NewEntities()},
		sessions: cfg.sessions,
		mail:     &outbox{codes: make(map[string]string)},
	}
	admin, err := h.store.CreateRole(h.ctx, domain.Role{Name: domain.RoleAdmin})
	require.NoError(t, err)
	user, err := h.store.CreateRole(h.ctx, domain.Role{Name: domain.RoleUser})
	require.NoError(t, err)

	h.admin = h.member(adminChat, "Ada Admin", "ada@example.com", admin)
	h.alice = h.member(aliceChat, "Alice", "alice@example.com", user)
	h.bob = h.member(bobChat, "Bob", "bob@example.com", user)
	_, err = h.store.CreateEmployee(h.ctx, domain.Employee{FullName: "Sam Stranger", Email: "sam@example.com"})
	require.NoError(t, err)

	hooks := domain.LifecycleHooks{
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			h.mu.Lock()
			h.commits = append(h.commits, e)
			h.mu.Unlock()
		},
		OnFailure: func(_ context.Context, e *domain.FailureEvent) {
			h.mu.Lock()
			h.fails = append(h.fails, e)
			h.mu.Unlock()
		},
	}
	engineOpts := append([]runtime.Option{
		runtime.WithQRAttacher(qr.NewAttacher(qr.NewGenerator(), h.store)),
		runtime.WithMailer(h.mail),
		runtime.WithHooks(hooks),
		runtime.WithBotLink("https://t.me/test_bot"),
	}, cfg.opts...)

	h.engine = runtime.New(
		h.store,
		session.NewManager(h.sessions),
		capability.NewResolver(h.store, capability.WithTTL(0)),
		engineOpts...,
	)
	return h
}

func (h *harness) member(chatID, name, email string, role domain.Role) domain.AppUser {
	h.t.Helper()
	emp, err := h.store.CreateEmployee(h.ctx, domain.Employee{FullName: name, Email: email})
	require.NoError(h.t, err)
	tg, err := h.store.CreateTelegramUser(h.ctx, domain.TelegramUser{TelegramID: chatID})
	require.NoError(h.t, err)
	u, err := h.store.CreateAppUser(h.ctx, domain.AppUser{TelegramUserID: tg.ID, EmployeeID: emp.ID, RoleID: role.ID})
	require.NoError(h.t, err)
	return u
}

func (h *harness) text(chatID, text string) []domain.Reply {
	h.t.Helper()
	replies, err := h.engine.Handle(h.ctx, chatID, domain.TextInput(text))
	require.NoError(h.t, err)
	return replies
}

func (h *harness) press(chatID, tag string) []domain.Reply {
	h.t.Helper()
	replies, err := h.engine.Handle(h.ctx, chatID, domain.ButtonPress(tag))
	require.NoError(h.t, err)
	return replies
}

// state returns the stored session, or nil when the chat has none.
func (h *harness) state(chatID string) *domain.State {
	h.t.Helper()
	s, err := h.sessions.Load(h.ctx, chatID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	require.NoError(h.t, err)
	return s
}

func (h *harness) location(city domain.City, room string) domain.Location {
	h.t.Helper()
	loc, err := h.store.CreateLocation(h.ctx, domain.Location{City: city, Room: room})
	require.NoError(h.t, err)
	return loc
}

func (h *harness) book(title string, loc domain.Location, owner domain.AppUser, cats ...domain.Category) domain.Book {
	h.t.Helper()
	id := uuid.New()
	b, err := h.store.CreateBook(h.ctx, domain.Book{
		ID:         id,
		QRPayload:  domain.BookDeepLink("https://t.me/test_bot", id),
		Title:      title,
		Author:     "Author of " + title,
		OwnerID:    owner.ID,
		LocationID: loc.ID,
		Categories: cats,
	})
	require.NoError(h.t, err)
	return b
}

func (h *harness) committed(entity, op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.commits {
		if c.Entity == entity && c.Op == op {
			n++
		}
	}
	return n
}

// joined concatenates reply texts for substring assertions.
func joined(replies []domain.Reply) string {
	parts := make([]string, len(replies))
	for i, r := range replies {
		parts[i] = r.Text
	}
	return strings.Join(parts, "\n")
}

func tags(replies []domain.Reply) []string {
	var out []string
	for _, r := range replies {
		for _, row := range r.Buttons {
			for _, b := range row {
				if b.Tag != "" {
					out = append(out, b.Tag)
				}
			}
		}
	}
	return out
}
