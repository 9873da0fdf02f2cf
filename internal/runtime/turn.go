package runtime

import (
	"context"
	"errors"
	"maps"
	"strings"

	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/capability"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
)

// step is one row group of a transition table. prompt re-displays the step,
// text and button consume input. A nil handler means the step does not accept
// that event shape, and the step is prompted again.
type step struct {
	prompt func(t *turn)
	text   func(t *turn, in string)
	// button reports whether it consumed the tag.
	button func(t *turn, tag string) bool
}

type workflow map[domain.Step]step

// turn carries one event through the engine.
type turn struct {
	ctx     context.Context
	e       *Engine
	id      capability.Identity
	state   *domain.State
	replies []domain.Reply
}

// Shared texts.
const (
	msgGoodbye     = "Operation cancelled. See you!"
	msgDiscarded   = "Previous operation discarded."
	msgAdminOnly   = "Only administrators can do that."
	msgRegister    = "You are not registered yet. Send /start to register."
	msgStoreFailed = "Something went wrong on our side. Please try again later."
	msgGone        = "It no longer exists. The operation was closed."
	msgStale       = "This button is no longer active. Use /help to see what I can do."
	msgUnknown     = "I did not understand that. Use /help to see what I can do."
)

var errIdentityUnavailable = errors.New("identity lookup failed")

// cancelTags end the active workflow.
var cancelTags = map[string]bool{
	"book:cancel": true,
	"loc:cancel":  true,
	"upd:cancel":  true,
	"wupd:cancel": true,
	"wish:cancel": true,
	"reg:cancel":  true,
}

func (t *turn) say(text string, buttons ...[]domain.Button) {
	t.replies = append(t.replies, domain.Reply{Text: text, Buttons: buttons})
}

func (t *turn) image(caption string, png []byte) {
	t.replies = append(t.replies, domain.Reply{Text: caption, Image: png})
}

func (t *turn) notice(text string) {
	t.replies = append(t.replies, domain.Reply{Text: text, Notice: true})
}

func (t *turn) dispatch(ev domain.Event) {
	value := strings.TrimSpace(ev.Value)
	switch ev.Kind {
	case domain.KindButton:
		t.press(value)
	case domain.KindText:
		if strings.HasPrefix(value, "/") {
			t.command(value)
			return
		}
		t.input(value)
	default:
		t.say(msgUnknown)
	}
}

func (t *turn) press(tag string) {
	if cancelTags[tag] {
		t.cancel()
		return
	}
	if !t.member() {
		return
	}
	st, active := t.current()
	if active && st.button != nil && st.button(t, tag) {
		return
	}
	if t.route(tag) {
		return
	}
	if active {
		st.prompt(t)
		return
	}
	t.say(msgStale)
}

func (t *turn) input(text string) {
	if t.state.Workflow != domain.WorkflowRegistration && !t.member() {
		return
	}
	st, active := t.current()
	if !active {
		t.say(msgUnknown)
		return
	}
	if st.text == nil {
		st.prompt(t)
		return
	}
	st.text(t, text)
}

func (t *turn) command(line string) {
	name, arg, _ := strings.Cut(line, " ")
	name, _, _ = strings.Cut(name, "@")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/cancel":
		t.cancel()
		return
	case "/start":
		t.start(arg)
		return
	}
	if !t.member() {
		return
	}
	switch name {
	case "/help":
		t.say(chat.Help(t.id.IsAdmin))
	case "/books":
		t.booksMenu()
	case "/locations":
		t.locationsMenu()
	case "/orders":
		t.say("📋 Orders", chat.OrdersMenu()...)
	case "/wishlists":
		t.say("⭐ Wishlist", chat.WishlistMenu()...)
	default:
		t.say(msgUnknown)
	}
}

// member lets registered chats through. An unregistered chat in the middle
// of a registration is prompted again, any other one is pointed at /start.
func (t *turn) member() bool {
	if t.id.Registered {
		return true
	}
	if t.id.Degraded {
		t.unavailable()
		return false
	}
	if t.state.Workflow == domain.WorkflowRegistration {
		t.prompt()
		return false
	}
	t.state.Reset()
	t.say(msgRegister)
	return false
}

func (t *turn) admin() bool {
	if t.id.IsAdmin {
		return true
	}
	if t.id.Degraded {
		t.unavailable()
		return false
	}
	t.say(msgAdminOnly)
	return false
}

// unavailable answers a chat whose identity could not be resolved.
// The session is left as it was so the next message can carry on.
func (t *turn) unavailable() {
	t.e.emitFailure(t.ctx, t.state.ChatID, "resolve", domain.StoreFailure, errIdentityUnavailable)
	t.say(msgStoreFailed)
}

func (t *turn) current() (step, bool) {
	if t.state.Idle() {
		return step{}, false
	}
	st, ok := t.e.workflows[t.state.Workflow][t.state.Step]
	if !ok {
		// Unknown tags come from an older build; drop them.
		t.e.logger.Warn("dropping unknown session state", "chat_id", t.state.ChatID, "state", t.state.Tag().String())
		t.state.Reset()
		return step{}, false
	}
	return st, true
}

// cancel ends the active workflow. Without one it does nothing.
func (t *turn) cancel() {
	if t.state.Idle() {
		return
	}
	t.state.Reset()
	t.say(msgGoodbye)
}

// begin starts a workflow, discarding any other one first, and prompts its first step.
func (t *turn) begin(w domain.Workflow, s domain.Step) {
	t.beginWith(w, s, nil)
}

// beginWith is begin with a seeded scratchpad.
func (t *turn) beginWith(w domain.Workflow, s domain.Step, seed map[string]any) {
	if !t.state.Idle() {
		t.notice(msgDiscarded)
	}
	t.state.Begin(w, s)
	maps.Copy(t.state.Scratchpad, seed)
	t.prompt()
}

// next moves to another step of the active workflow and prompts it.
func (t *turn) next(s domain.Step) {
	t.state.Goto(s)
	t.prompt()
}

func (t *turn) prompt() {
	if st, ok := t.current(); ok {
		st.prompt(t)
	}
}

// done closes the workflow after a successful commit.
func (t *turn) done(text string, buttons ...[]domain.Button) {
	t.state.Reset()
	t.say(text, buttons...)
}

// fail reports err to the chat and applies the failure policy:
// validation stays, not-found ends the workflow, store failures keep the
// session for a retry. Conflicts are reported with their own message by the
// caller before fail is reached.
func (t *turn) fail(op string, err error) domain.FailureKind {
	kind := domain.Classify(err)
	t.e.emitFailure(t.ctx, t.state.ChatID, op, kind, err)
	switch kind {
	case domain.ValidationFailure:
		t.say(reason(err))
	case domain.NotFoundFailure:
		t.state.Reset()
		t.say(msgGone)
	case domain.ConflictFailure:
		t.say(reason(err))
	default:
		t.e.logger.Error("operation failed", "chat_id", t.state.ChatID, "op", op, "err", err)
		t.say(msgStoreFailed)
	}
	return kind
}

// invalid reports a validation failure and re-prompts the current step.
func (t *turn) invalid(op, why string) {
	t.fail(op, domain.Invalid(op, why))
	t.prompt()
}

func reason(err error) string {
	var f *domain.Failure
	if errors.As(err, &f) && f.Err != nil {
		return f.Err.Error()
	}
	return err.Error()
}

func parseID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// route handles buttons that are valid outside any workflow step.
func (t *turn) route(tag string) bool {
	parts := strings.Split(tag, ":")
	switch parts[0] {
	case "menu":
		if tag == "menu:close" {
			t.say("Menu closed.")
			return true
		}
	case "book":
		return t.routeBook(parts[1:])
	case "loc":
		return t.routeLocation(parts[1:])
	case "order":
		return t.routeOrder(parts[1:])
	case "wish":
		return t.routeWishlist(parts[1:])
	}
	return false
}
