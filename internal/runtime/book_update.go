package runtime

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
)

const (
	stepField           domain.Step = "await_field"
	stepEditTitle       domain.Step = "edit_title"
	stepEditAuthor      domain.Step = "edit_author"
	stepEditDescription domain.Step = "edit_description"
	stepEditOwner       domain.Step = "edit_owner"
	stepEditLocation    domain.Step = "edit_location"
	stepEditCategories  domain.Step = "edit_categories"
)

// keyOriginal holds the persisted category list of the book being edited.
const keyOriginal = "original_categories"

var bookHubButtons = map[string]domain.Step{
	"upd:title":       stepEditTitle,
	"upd:author":      stepEditAuthor,
	"upd:description": stepEditDescription,
	"upd:owner":       stepEditOwner,
	"upd:location":    stepEditLocation,
	"upd:categories":  stepEditCategories,
}

func bookUpdateFlow() workflow {
	return workflow{
		stepField: {
			prompt: func(t *turn) {
				t.say(hubText(t.state, "book"), chat.BookUpdateHub()...)
			},
			button: func(t *turn, tag string) bool {
				if tag == "upd:save" {
					t.saveBook()
					return true
				}
				next, ok := bookHubButtons[tag]
				if !ok {
					return false
				}
				if next == stepEditCategories {
					t.loadSelection()
				}
				t.next(next)
				return true
			},
		},
		stepEditTitle: {
			prompt: func(t *turn) { t.say("Send the new title.") },
			text: func(t *turn, in string) {
				if in == "" {
					t.invalid("book_update", "The title cannot be empty.")
					return
				}
				t.stage(domain.FieldTitle, in)
			},
		},
		stepEditAuthor: {
			prompt: func(t *turn) { t.say("Send the new author.") },
			text: func(t *turn, in string) {
				if in == "" {
					t.invalid("book_update", "The author cannot be empty.")
					return
				}
				t.stage(domain.FieldAuthor, in)
			},
		},
		stepEditDescription: {
			prompt: func(t *turn) { t.say("Send the new description, or - to remove it.") },
			text: func(t *turn, in string) {
				if d := domain.OptionalText(in); d != nil {
					t.stage(domain.FieldDescription, *d)
					return
				}
				t.stage(domain.FieldDescription, nil)
			},
		},
		stepEditOwner: {
			prompt: func(t *turn) { t.promptOwners("Choose the new owner.") },
			button: func(t *turn, tag string) bool {
				m, handled := t.pickOwner("book_update", tag)
				if !handled || m == nil {
					return handled
				}
				t.stage(domain.FieldOwner, m.AppUserID.String())
				return true
			},
		},
		stepEditLocation: {
			prompt: func(t *turn) { t.promptLocations("Choose the new location.") },
			text: func(t *turn, in string) {
				loc, ok := t.findLocation("book_update", in)
				if !ok {
					return
				}
				t.stage(domain.FieldLocation, loc.ID.String())
			},
		},
		stepEditCategories: {
			prompt: func(t *turn) { t.promptCategories() },
			text: func(t *turn, in string) {
				if in == chat.LabelDone {
					if len(selection(t.state)) == 0 {
						t.invalid("book_update", "A book needs at least one category.")
						return
					}
					t.next(stepField)
					return
				}
				if t.toggleCategory("book_update", in) {
					pending(t.state)[domain.FieldCategories] = domain.JoinCategories(selection(t.state))
				}
			},
		},
	}
}

func (t *turn) startBookUpdate(id uuid.UUID) {
	if !t.admin() {
		return
	}
	b, err := t.e.store.GetBook(t.ctx, id)
	if err != nil {
		t.failLookup("book_update", "That book", err)
		return
	}
	t.beginWith(domain.WorkflowBookUpdate, stepField, map[string]any{
		keyTargetID:   b.ID.String(),
		keyTargetName: b.Title,
		keyOriginal:   domain.JoinCategories(b.Categories),
		keyPending:    map[string]any{},
	})
}

// stage records one pending change and returns to the hub.
func (t *turn) stage(field string, value any) {
	pending(t.state)[field] = value
	t.say(fieldName(field) + " will be changed when you save.")
	t.next(stepField)
}

// loadSelection seeds the category toggles from the pending change, or from
// the book as stored.
func (t *turn) loadSelection() {
	raw, ok := pending(t.state)[domain.FieldCategories].(string)
	if !ok {
		raw, _ = t.state.Scratchpad[keyOriginal].(string)
	}
	cs, _ := domain.ParseCategoryList(raw)
	setSelection(t.state, cs)
}

func (t *turn) saveBook() {
	p := pending(t.state)
	if len(p) == 0 {
		t.say("There are no changes to save yet.", chat.BookUpdateHub()...)
		return
	}
	edits, err := domain.ParseBookEdits(p)
	if err != nil {
		t.fail("book_update", err)
		return
	}
	id, ok := parseID(fmt.Sprint(t.state.Scratchpad[keyTargetID]))
	if !ok {
		t.fail("book_update", domain.ErrNotFound)
		return
	}
	b, err := t.e.store.UpdateBook(t.ctx, id, domain.NewBookPatch(edits...))
	if err != nil {
		t.fail("book_update", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "book", "update", b.ID.String())
	t.done(fmt.Sprintf("✅ %q was updated.", b.Title))
}

// hubText renders the hub header with the fields changed so far.
func hubText(s *domain.State, kind string) string {
	name, _ := s.Scratchpad[keyTargetName].(string)
	text := fmt.Sprintf("Updating %s %q. Choose a field to change.", kind, name)
	p := pending(s)
	if len(p) == 0 {
		return text
	}
	fields := make([]string, 0, len(p))
	for k := range p {
		fields = append(fields, fieldName(k))
	}
	slices.Sort(fields)
	return text + "\nUnsaved changes: " + strings.Join(fields, ", ")
}

func fieldName(key string) string {
	switch key {
	case domain.FieldOwner:
		return "Owner"
	case domain.FieldLocation:
		return "Location"
	}
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
