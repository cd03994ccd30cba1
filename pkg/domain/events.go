package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRulesResolved EventType = "rules_resolved"
	EventLocalResolved EventType = "local_resolved"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ZoneID    string    `json:"zone_id"`
}

// ResolveEvent reports a zone identity being resolved to its rules.
type ResolveEvent struct {
	EventBase
	Group    string        `json:"group"`
	Region   string        `json:"region"`
	Version  string        `json:"version,omitempty"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LocalEvent reports the classification of a local date-time.
type LocalEvent struct {
	EventBase
	Local LocalDateTime  `json:"local"`
	Kind  ResolutionKind `json:"kind"`
}

// Hooks defines callbacks for resolution observability. Nil callbacks are skipped.
type Hooks struct {
	OnRulesResolved func(context.Context, *ResolveEvent)
	OnLocalResolved func(context.Context, *LocalEvent)
}

// RulesResolved invokes OnRulesResolved if set.
func (h Hooks) RulesResolved(ctx context.Context, e *ResolveEvent) {
	if h.OnRulesResolved != nil {
		h.OnRulesResolved(ctx, e)
	}
}

// LocalResolved invokes OnLocalResolved if set.
func (h Hooks) LocalResolved(ctx context.Context, e *LocalEvent) {
	if h.OnLocalResolved != nil {
		h.OnLocalResolved(ctx, e)
	}
}
