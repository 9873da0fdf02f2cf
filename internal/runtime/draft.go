package runtime

import (
	"maps"
	"slices"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Scratchpad keys shared by several workflows.
const (
	keyPending    = "pending"
	keySelection  = "selection"
	keyAttempts   = "attempts"
	keyTargetID   = "target_id"
	keyTargetName = "target_name"
)

// readDraft decodes the scratchpad into a typed draft. Values that went
// through a JSON session store come back as float64 or []any, so decoding is
// weakly typed. Fields that fail to decode keep their zero value and the
// failure is logged.
func readDraft[T any](t *turn) T {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err == nil {
		err = dec.Decode(t.state.Scratchpad)
	}
	if err != nil {
		t.e.logger.Warn("scratchpad decode failed", "chat_id", t.state.ChatID, "step", t.state.Step, "err", err)
	}
	return out
}

// writeDraft merges a typed draft back into the scratchpad.
func writeDraft[T any](t *turn, draft T) {
	m := make(map[string]any)
	if err := mapstructure.Decode(draft, &m); err != nil {
		t.e.logger.Warn("scratchpad encode failed", "chat_id", t.state.ChatID, "step", t.state.Step, "err", err)
		return
	}
	maps.Copy(t.state.Scratchpad, m)
}

// pending returns the accumulated field changes of an update workflow.
func pending(s *domain.State) map[string]any {
	if m, ok := s.Scratchpad[keyPending].(map[string]any); ok {
		return m
	}
	m := make(map[string]any)
	s.Scratchpad[keyPending] = m
	return m
}

// selection reads the category set being edited, in catalog order.
func selection(s *domain.State) []domain.Category {
	var names []string
	switch v := s.Scratchpad[keySelection].(type) {
	case []string:
		names = v
	case []any:
		for _, x := range v {
			if str, ok := x.(string); ok {
				names = append(names, str)
			}
		}
	}
	out := make([]domain.Category, 0, len(names))
	for _, n := range names {
		if c, ok := domain.ParseCategory(n); ok {
			out = append(out, c)
		}
	}
	return out
}

func setSelection(s *domain.State, cs []domain.Category) {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = string(c)
	}
	s.Scratchpad[keySelection] = names
}

// toggle flips c in the set and keeps catalog order. It reports whether c is now selected.
func toggle(set []domain.Category, c domain.Category) ([]domain.Category, bool) {
	if i := slices.Index(set, c); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1), false
	}
	out := make([]domain.Category, 0, len(set)+1)
	for _, known := range domain.Categories {
		if known == c || slices.Contains(set, known) {
			out = append(out, known)
		}
	}
	return out, true
}
