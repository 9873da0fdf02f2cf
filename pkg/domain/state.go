package domain

import "time"

// Workflow identifies one independent multi-step conversation.
type Workflow string

const (
	WorkflowNone           Workflow = ""
	WorkflowBookCreate     Workflow = "book_create"
	WorkflowBookUpdate     Workflow = "book_update"
	WorkflowBookRemove     Workflow = "book_remove"
	WorkflowLocation       Workflow = "location"
	WorkflowWishlistCreate Workflow = "wishlist_create"
	WorkflowWishlistUpdate Workflow = "wishlist_update"
	WorkflowWishlistRemove Workflow = "wishlist_remove"
	WorkflowRegistration   Workflow = "registration"
)

// Step names the input a workflow expects next. Steps are scoped to their workflow.
type Step string

// StateTag is the (workflow, step) pair a session currently sits in.
type StateTag struct {
	Workflow Workflow `json:"workflow"`
	Step     Step     `json:"step"`
}

func (t StateTag) String() string {
	if t.Workflow == WorkflowNone {
		return "idle"
	}
	return string(t.Workflow) + "/" + string(t.Step)
}

// State is the ephemeral per-chat session.
type State struct {
	// ChatID identifies the chat the session belongs to.
	ChatID string `json:"chat_id"`

	Workflow Workflow `json:"workflow,omitempty"`
	Step     Step     `json:"step,omitempty"`

	// Scratchpad accumulates input across turns of the active workflow.
	Scratchpad map[string]any `json:"scratchpad,omitempty"`

	// History records the steps visited by the active workflow (debugging aid).
	History []string `json:"history,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates an idle session for a chat.
func NewState(chatID string) *State {
	return &State{
		ChatID:     chatID,
		Scratchpad: make(map[string]any),
	}
}

// Tag returns the current state tag.
func (s *State) Tag() StateTag {
	return StateTag{Workflow: s.Workflow, Step: s.Step}
}

// Idle reports whether no workflow is active.
func (s *State) Idle() bool {
	return s.Workflow == WorkflowNone
}

// Begin starts a workflow with a fresh scratchpad.
func (s *State) Begin(w Workflow, step Step) {
	s.Workflow = w
	s.Step = step
	s.Scratchpad = make(map[string]any)
	s.History = []string{string(step)}
}

// Goto moves to another step of the active workflow.
func (s *State) Goto(step Step) {
	s.Step = step
	s.History = append(s.History, string(step))
}

// Reset clears the workflow and its scratchpad.
func (s *State) Reset() {
	s.Workflow = WorkflowNone
	s.Step = ""
	s.Scratchpad = make(map[string]any)
	s.History = nil
}

// Clone returns a copy that shares no maps or slices with s.
// Scratchpad values are copied one level deep.
func (s *State) Clone() *State {
	c := *s
	c.Scratchpad = make(map[string]any, len(s.Scratchpad))
	for k, v := range s.Scratchpad {
		c.Scratchpad[k] = cloneValue(v)
	}
	c.History = append([]string(nil), s.History...)
	return &c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		return append([]any(nil), t...)
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
