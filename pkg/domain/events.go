package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Event is a message delivered to a machine instance.
// Payload keys follow the camelCase names used on the wire.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewEvent builds an event from a type and an optional flat payload.
func NewEvent(eventType string, payload map[string]any) Event {
	return Event{Type: eventType, Payload: payload}
}

// Decode copies the payload into out, which must be a pointer to a struct
// tagged with `json` names. Strings are accepted for time and duration fields
// so that payloads coming from JSON decode the same as in-process ones.
func (e Event) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(e.Payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidEvent, e.Type, err)
	}
	return nil
}

// TransitionEvent describes a committed transition.
type TransitionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Machine   string    `json:"machine"`
	// Kind is the definition id, shared by every instance of a machine.
	Kind      string    `json:"kind"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Event     string    `json:"event"`
}

// DroppedEvent describes an event with no matching transition.
type DroppedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Machine   string    `json:"machine"`
	Kind      string    `json:"kind"`
	State     string    `json:"state"`
	Event     string    `json:"event"`
}

// TimerEvent describes a delayed transition whose timer fired while still live.
type TimerEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Machine   string        `json:"machine"`
	Kind      string        `json:"kind"`
	State     string        `json:"state"`
	Delay     time.Duration `json:"delay"`
}

// ChildEvent describes a spawned or stopped child instance.
type ChildEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Parent    string    `json:"parent"`
	ChildID   string    `json:"child_id"`
	Forced    bool      `json:"forced,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTransition   func(context.Context, *TransitionEvent)
	OnEventDropped func(context.Context, *DroppedEvent)
	OnTimerFired   func(context.Context, *TimerEvent)
	OnChildSpawned func(context.Context, *ChildEvent)
	OnChildStopped func(context.Context, *ChildEvent)
}

// Merge returns hooks that call h first and then other for every callback.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition:   chain(h.OnTransition, other.OnTransition),
		OnEventDropped: chain(h.OnEventDropped, other.OnEventDropped),
		OnTimerFired:   chain(h.OnTimerFired, other.OnTimerFired),
		OnChildSpawned: chain(h.OnChildSpawned, other.OnChildSpawned),
		OnChildStopped: chain(h.OnChildStopped, other.OnChildStopped),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, ev T) {
		a(ctx, ev)
		b(ctx, ev)
	}
}
