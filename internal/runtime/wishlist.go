package runtime

import (
	"fmt"
	"strconv"

	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
)

const (
	stepComment     domain.Step = "await_comment"
	stepEditComment domain.Step = "edit_comment"
)

type wishDraft struct {
	Title  string `mapstructure:"title"`
	Author string `mapstructure:"author"`
}

func wishlistCreateFlow() workflow {
	return workflow{
		stepTitle: {
			prompt: func(t *turn) { t.say("⭐ Which book would you like us to get? Send the title.") },
			text: func(t *turn, in string) {
				if in == "" {
					t.invalid("wishlist_create", "The title cannot be empty.")
					return
				}
				t.state.Scratchpad["title"] = in
				t.next(stepAuthor)
			},
		},
		stepAuthor: {
			prompt: func(t *turn) { t.say("Who is the author?") },
			text: func(t *turn, in string) {
				if in == "" {
					t.invalid("wishlist_create", "The author cannot be empty.")
					return
				}
				t.state.Scratchpad["author"] = in
				t.next(stepComment)
			},
		},
		stepComment: {
			prompt: func(t *turn) { t.say("Any comment? Send - to skip.") },
			text:   func(t *turn, in string) { t.createWish(domain.OptionalText(in)) },
		},
	}
}

func (t *turn) createWish(comment *string) {
	d := readDraft[wishDraft](t)
	item, err := t.e.store.CreateWishlistItem(t.ctx, domain.WishlistItem{
		AppUserID: t.id.AppUserID,
		Title:     d.Title,
		Author:    d.Author,
		Comment:   comment,
	})
	if err != nil {
		t.fail("wishlist_create", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "wishlist", "create", item.ID.String())
	t.done(fmt.Sprintf("⭐ %q was added to the wishlist.", item.Title), chat.WishlistMenu()...)
}

var wishHubButtons = map[string]domain.Step{
	"wupd:title":   stepEditTitle,
	"wupd:author":  stepEditAuthor,
	"wupd:comment": stepEditComment,
}

func wishlistUpdateFlow() workflow {
	return workflow{
		stepField: {
			prompt: func(t *turn) { t.say(hubText(t.state, "wish"), chat.WishlistUpdateHub()...) },
			button: func(t *turn, tag string) bool {
				if tag == "wupd:save" {
					t.saveWish()
					return true
				}
				next, ok := wishHubButtons[tag]
				if !ok {
					return false
				}
				t.next(next)
				return true
			},
		},
		stepEditTitle: {
			prompt: func(t *turn) { t.say("Send the new title.") },
			text: func(t *turn, in string) {
				if in == "" {
					t.invalid("wishlist_update", "The title cannot be empty.")
					return
				}
				t.stage(domain.FieldTitle, in)
			},
		},
		stepEditAuthor: {
			prompt: func(t *turn) { t.say("Send the new author.") },
			text: func(t *turn, in string) {
				if in == "" {
					t.invalid("wishlist_update", "The author cannot be empty.")
					return
				}
				t.stage(domain.FieldAuthor, in)
			},
		},
		stepEditComment: {
			prompt: func(t *turn) { t.say("Send the new comment, or - to remove it.") },
			text: func(t *turn, in string) {
				if c := domain.OptionalText(in); c != nil {
					t.stage(domain.FieldComment, *c)
					return
				}
				t.stage(domain.FieldComment, nil)
			},
		},
	}
}

func (t *turn) saveWish() {
	p := pending(t.state)
	if len(p) == 0 {
		t.say("There are no changes to save yet.", chat.WishlistUpdateHub()...)
		return
	}
	edits, err := domain.ParseWishlistEdits(p)
	if err != nil {
		t.fail("wishlist_update", err)
		return
	}
	id, ok := parseID(fmt.Sprint(t.state.Scratchpad[keyTargetID]))
	if !ok {
		t.fail("wishlist_update", domain.ErrNotFound)
		return
	}
	item, err := t.e.store.UpdateWishlistItem(t.ctx, id, domain.NewWishlistPatch(edits...))
	if err != nil {
		t.fail("wishlist_update", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "wishlist", "update", item.ID.String())
	t.done(fmt.Sprintf("✅ %q was updated.", item.Title))
}

func wishlistRemoveFlow() workflow {
	return workflow{
		stepRemoveConfirm: {
			prompt: func(t *turn) {
				name, _ := t.state.Scratchpad[keyTargetName].(string)
				t.say(fmt.Sprintf("Remove %q from the wishlist?", name), chat.Confirm("wish:rm:confirm", "wish:cancel")...)
			},
			button: func(t *turn, tag string) bool {
				if tag != "wish:rm:confirm" {
					return false
				}
				t.removeWish()
				return true
			},
		},
	}
}

func (t *turn) removeWish() {
	id, ok := parseID(fmt.Sprint(t.state.Scratchpad[keyTargetID]))
	if !ok {
		t.fail("wishlist_remove", domain.ErrNotFound)
		return
	}
	name, _ := t.state.Scratchpad[keyTargetName].(string)
	if err := t.e.store.DeleteWishlistItem(t.ctx, id); err != nil {
		t.fail("wishlist_remove", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "wishlist", "delete", id.String())
	t.done(fmt.Sprintf("🗑 %q was removed from the wishlist.", name))
}

func (t *turn) routeWishlist(parts []string) bool {
	switch {
	case len(parts) == 1 && parts[0] == "add":
		t.begin(domain.WorkflowWishlistCreate, stepTitle)
	case len(parts) == 1 && parts[0] == "menu":
		t.say("⭐ Wishlist", chat.WishlistMenu()...)
	case len(parts) == 1 && parts[0] == "list":
		t.listWishes(1)
	case len(parts) == 2 && parts[0] == "page":
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return false
		}
		t.listWishes(n)
	case len(parts) == 3 && parts[0] == "select":
		id, ok := parseID(parts[2])
		if !ok {
			return false
		}
		return t.selectWish(parts[1], id)
	default:
		return false
	}
	return true
}

func (t *turn) listWishes(page int) {
	var owner *uuid.UUID
	if !t.id.IsAdmin {
		owner = &t.id.AppUserID
	}
	items, err := t.e.store.ListWishlist(t.ctx, owner)
	if err != nil {
		t.fail("list_wishlist", err)
		return
	}
	entries := make([]chat.Item, len(items))
	for i, w := range items {
		entries[i] = chat.Item{ID: w.ID.String(), Label: w.Title + " by " + w.Author}
	}
	text, kb := chat.List(entries, chat.Page{
		Number: page,
		Size:   t.e.pageSize,
		Title:  "⭐ Wishlist",
		Select: "wish:select:detail",
		Nav:    "wish:page",
		Back:   "wish:menu",
	})
	t.say(text, kb...)
}

func (t *turn) selectWish(action string, id uuid.UUID) bool {
	if action != "detail" && action != "upd" && action != "rm" {
		return false
	}
	item, err := t.e.store.GetWishlistItem(t.ctx, id)
	if err != nil {
		t.failLookup("wishlist", "That wish", err)
		return true
	}
	if !t.id.IsAdmin && item.AppUserID != t.id.AppUserID {
		t.say("You can only manage your own wishes.")
		return true
	}
	switch action {
	case "detail":
		by := ""
		if t.id.IsAdmin && item.AppUserID != t.id.AppUserID {
			by = t.memberName(item.AppUserID)
		}
		text, kb := chat.WishlistDetail(item, by)
		t.say(text, kb...)
	case "upd":
		t.beginWith(domain.WorkflowWishlistUpdate, stepField, map[string]any{
			keyTargetID:   item.ID.String(),
			keyTargetName: item.Title,
			keyPending:    map[string]any{},
		})
	case "rm":
		t.beginWith(domain.WorkflowWishlistRemove, stepRemoveConfirm, map[string]any{
			keyTargetID:   item.ID.String(),
			keyTargetName: item.Title,
		})
	}
	return true
}

// memberName looks up a display name, falling back to "unknown".
func (t *turn) memberName(id uuid.UUID) string {
	members, err := t.e.store.ListMembers(t.ctx)
	if err != nil {
		return "unknown"
	}
	for _, m := range members {
		if m.AppUserID == id {
			return m.FullName
		}
	}
	return "unknown"
}
