package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventTransition EventType = "transition"
	EventCommit     EventType = "commit"
	EventFailure    EventType = "failure"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id"`
}

// TransitionEvent is emitted after every handled inbound event.
type TransitionEvent struct {
	EventBase
	From     StateTag      `json:"from"`
	To       StateTag      `json:"to"`
	Input    EventKind     `json:"input"`
	Duration time.Duration `json:"duration"`
}

// CommitEvent is emitted when a workflow writes to the entity store.
type CommitEvent struct {
	EventBase
	Entity string `json:"entity"`
	Op     string `json:"op"`
	ID     string `json:"id"`
}

// FailureEvent is emitted when an operation fails.
type FailureEvent struct {
	EventBase
	Op   string      `json:"op"`
	Kind FailureKind `json:"kind"`
	Err  error       `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnCommit     func(context.Context, *CommitEvent)
	OnFailure    func(context.Context, *FailureEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition: chain(h.OnTransition, other.OnTransition),
		OnCommit:     chain(h.OnCommit, other.OnCommit),
		OnFailure:    chain(h.OnFailure, other.OnFailure),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
