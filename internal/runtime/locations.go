package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/google/uuid"
)

const (
	stepAddCity       domain.Step = "add_city"
	stepAddRoom       domain.Step = "add_room"
	stepAddConfirm    domain.Step = "add_confirm"
	stepUpdateSelect  domain.Step = "update_select"
	stepUpdateCity    domain.Step = "update_city"
	stepUpdateRoom    domain.Step = "update_room"
	stepUpdateConfirm domain.Step = "update_confirm"
	stepRemoveSelect  domain.Step = "remove_select"
	stepLocRemove     domain.Step = "remove_confirm"
)

type locationDraft struct {
	City       string `mapstructure:"city"`
	Room       string `mapstructure:"room"`
	TargetID   string `mapstructure:"target_id"`
	TargetName string `mapstructure:"target_name"`
}

func (d locationDraft) label() string {
	return domain.LocationLabel(domain.City(d.City), d.Room)
}

// cityStep and roomStep are shared by the add and update sub-flows.
func cityStep(next domain.Step) step {
	return step{
		prompt: func(t *turn) { t.say("Choose a city.", chat.Cities()...) },
		text: func(t *turn, in string) {
			city, ok := domain.ParseCity(in)
			if !ok {
				t.invalid("location", "Unknown city. Use the keyboard.")
				return
			}
			t.state.Scratchpad["city"] = string(city)
			t.next(next)
		},
	}
}

func roomStep(next domain.Step) step {
	return step{
		prompt: func(t *turn) { t.say("Send the room name or number.") },
		text: func(t *turn, in string) {
			if in == "" {
				t.invalid("location", "The room cannot be empty.")
				return
			}
			t.state.Scratchpad["room"] = in
			t.next(next)
		},
	}
}

func confirmStep(question func(locationDraft) string, commit func(*turn)) step {
	return step{
		prompt: func(t *turn) {
			d := readDraft[locationDraft](t)
			t.say(question(d), chat.Confirm("loc:confirm", "loc:cancel")...)
		},
		button: func(t *turn, tag string) bool {
			if tag != "loc:confirm" {
				return false
			}
			commit(t)
			return true
		},
	}
}

// selectStep resolves an existing location by label and remembers it.
func selectStep(text string, next domain.Step) step {
	return step{
		prompt: func(t *turn) { t.promptLocations(text) },
		text: func(t *turn, in string) {
			loc, ok := t.findLocation("location", in)
			if !ok {
				return
			}
			t.state.Scratchpad[keyTargetID] = loc.ID.String()
			t.state.Scratchpad[keyTargetName] = loc.Label()
			t.next(next)
		},
	}
}

func locationFlow() workflow {
	return workflow{
		stepAddCity: cityStep(stepAddRoom),
		stepAddRoom: roomStep(stepAddConfirm),
		stepAddConfirm: confirmStep(func(d locationDraft) string {
			return fmt.Sprintf("Create location %s?", d.label())
		}, (*turn).addLocation),

		stepUpdateSelect: selectStep("Which location do you want to change?", stepUpdateCity),
		stepUpdateCity:   cityStep(stepUpdateRoom),
		stepUpdateRoom:   roomStep(stepUpdateConfirm),
		stepUpdateConfirm: confirmStep(func(d locationDraft) string {
			return fmt.Sprintf("Change %s to %s?", d.TargetName, d.label())
		}, (*turn).updateLocation),

		stepRemoveSelect: selectStep("Which location do you want to remove?", stepLocRemove),
		stepLocRemove: confirmStep(func(d locationDraft) string {
			return fmt.Sprintf("Remove location %s?", d.TargetName)
		}, (*turn).removeLocation),
	}
}

func (t *turn) locationsMenu() {
	locs, err := t.e.store.ListLocations(t.ctx)
	if err != nil {
		t.fail("list_locations", err)
		return
	}
	t.say(chat.LocationList(locs), chat.LocationsMenu(t.id.IsAdmin)...)
}

func (t *turn) routeLocation(parts []string) bool {
	if len(parts) == 0 {
		return false
	}
	switch parts[0] {
	case "menu":
		t.locationsMenu()
	case "add":
		if t.admin() {
			t.begin(domain.WorkflowLocation, stepAddCity)
		}
	case "update", "remove":
		if !t.admin() {
			return true
		}
		locs, err := t.e.store.ListLocations(t.ctx)
		if err != nil {
			t.fail("list_locations", err)
			return true
		}
		if len(locs) == 0 {
			t.say("There are no locations yet.", []domain.Button{{Label: "➕ Add location", Tag: "loc:add"}})
			return true
		}
		first := stepUpdateSelect
		if parts[0] == "remove" {
			first = stepRemoveSelect
		}
		t.begin(domain.WorkflowLocation, first)
	case "qrlist":
		if !t.admin() {
			return true
		}
		locs, err := t.e.store.ListLocations(t.ctx)
		if err != nil {
			t.fail("list_locations", err)
			return true
		}
		t.say("🔳 Choose a location.", chat.LocationQRs(locs)...)
	case "qr":
		if len(parts) != 2 {
			return false
		}
		id, ok := parseID(parts[1])
		if !ok {
			return false
		}
		t.sendLocationQR(id)
	default:
		return false
	}
	return true
}

// conflict reports a (city, room) collision and sends the chat back to city selection.
func (t *turn) conflict(op string, city domain.Step, label string, err error) {
	t.e.emitFailure(t.ctx, t.state.ChatID, op, domain.ConflictFailure, err)
	delete(t.state.Scratchpad, "city")
	delete(t.state.Scratchpad, "room")
	t.say(fmt.Sprintf("Location %s already exists. Choose another city or room.", label))
	t.next(city)
}

func (t *turn) addLocation() {
	d := readDraft[locationDraft](t)
	city, ok := domain.ParseCity(d.City)
	if !ok || d.Room == "" {
		t.fail("location_add", domain.ErrNotFound)
		return
	}
	_, err := t.e.store.FindLocation(t.ctx, city, d.Room)
	switch {
	case err == nil:
		t.conflict("location_add", stepAddCity, d.label(), domain.ErrDuplicate)
		return
	case !errors.Is(err, domain.ErrNotFound):
		t.fail("location_add", err)
		return
	}

	id := uuid.New()
	loc, err := t.e.store.CreateLocation(t.ctx, domain.Location{
		ID:        id,
		City:      city,
		Room:      d.Room,
		QRPayload: domain.LocationDeepLink(t.e.botLink, id),
	})
	if errors.Is(err, domain.ErrDuplicate) {
		t.conflict("location_add", stepAddCity, d.label(), err)
		return
	}
	if err != nil {
		t.fail("location_add", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "location", "create", loc.ID.String())
	t.done(fmt.Sprintf("📍 Location %s was created.", loc.Label()))
	t.attachQR(ports.QRLocation, loc.ID, loc.QRPayload, loc.Label())
}

func (t *turn) updateLocation() {
	d := readDraft[locationDraft](t)
	id, okID := parseID(d.TargetID)
	city, okCity := domain.ParseCity(d.City)
	if !okID || !okCity || d.Room == "" {
		t.fail("location_update", domain.ErrNotFound)
		return
	}
	existing, err := t.e.store.FindLocation(t.ctx, city, d.Room)
	switch {
	case err == nil && existing.ID != id:
		t.conflict("location_update", stepUpdateCity, d.label(), domain.ErrDuplicate)
		return
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		t.fail("location_update", err)
		return
	}

	room := d.Room
	loc, err := t.e.store.UpdateLocation(t.ctx, id, domain.LocationPatch{City: &city, Room: &room})
	if errors.Is(err, domain.ErrDuplicate) {
		t.conflict("location_update", stepUpdateCity, d.label(), err)
		return
	}
	if err != nil {
		t.fail("location_update", err)
		return
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "location", "update", loc.ID.String())
	t.done(fmt.Sprintf("📍 Location %s is now %s.", d.TargetName, loc.Label()))
}

func (t *turn) removeLocation() {
	d := readDraft[locationDraft](t)
	id, ok := parseID(d.TargetID)
	if !ok {
		t.fail("location_remove", domain.ErrNotFound)
		return
	}
	err := t.e.store.DeleteLocation(t.ctx, id)
	switch {
	case errors.Is(err, domain.ErrHasDependents):
		t.e.emitFailure(t.ctx, t.state.ChatID, "location_remove", domain.ConflictFailure, err)
		t.done(fmt.Sprintf("Location %s cannot be deleted while it contains books.", d.TargetName))
	case err != nil:
		t.fail("location_remove", err)
	default:
		t.e.emitCommit(t.ctx, t.state.ChatID, "location", "delete", id.String())
		t.done(fmt.Sprintf("🗑 Location %s was deleted.", d.TargetName))
	}
}

func (t *turn) sendLocationQR(id uuid.UUID) {
	if !t.admin() {
		return
	}
	loc, err := t.e.store.GetLocation(t.ctx, id)
	if err != nil {
		t.failLookup("location_qr", "That location", err)
		return
	}
	if len(loc.QRCode) > 0 {
		t.image(loc.Label(), loc.QRCode)
		return
	}
	if t.attachQR(ports.QRLocation, loc.ID, loc.QRPayload, loc.Label()) == nil {
		t.say("The QR code is being generated. Try again in a moment.")
	}
}
