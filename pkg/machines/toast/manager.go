// Package toast implements the notification manager: a parent machine that
// spawns one child machine per notification and forgets each child once it
// has finished hiding.
package toast

import (
	"slices"
	"time"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/google/uuid"
)

const (
	MachineID = "toasts"

	StateActive = "active"

	EventAddToast     = "ADD_TOAST"
	EventRemoveToast  = "REMOVE_TOAST"
	EventDismissToast = "DISMISS_TOAST"
	EventHoverToast   = "HOVER_TOAST"
	EventUnhoverToast = "UNHOVER_TOAST"
	EventClearAll     = "CLEAR_ALL"
)

// Context is the manager context: the ids of live notifications in the order
// they were added.
type Context struct {
	Toasts []string `json:"toasts"`
}

// Options tunes notification defaults.
type Options struct {
	DefaultDuration time.Duration
	Hide            time.Duration
}

func (o Options) withDefaults() Options {
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = DefaultDuration
	}
	if o.Hide <= 0 {
		o.Hide = DefaultHide
	}
	return o
}

// Spawner creates the child actor for a notification.
type Spawner func(t Toast) runtime.Actor

type addPayload struct {
	Toast Toast `json:"toast"`
}

type idPayload struct {
	ID string `json:"id"`
}

// Add builds an ADD_TOAST event.
func Add(t Toast) domain.Event {
	toast := map[string]any{"id": t.ID, "message": t.Message}
	if t.Severity != "" {
		toast["type"] = string(t.Severity)
	}
	if t.Duration > 0 {
		toast["duration"] = t.Duration
	}
	return domain.NewEvent(EventAddToast, map[string]any{"toast": toast})
}

// Remove builds a REMOVE_TOAST event, which discards a child immediately.
func Remove(id string) domain.Event { return withID(EventRemoveToast, id) }

// DismissToast builds a DISMISS_TOAST event, which lets a child hide itself.
func DismissToast(id string) domain.Event { return withID(EventDismissToast, id) }

// HoverToast builds a HOVER_TOAST event.
func HoverToast(id string) domain.Event { return withID(EventHoverToast, id) }

// UnhoverToast builds an UNHOVER_TOAST event.
func UnhoverToast(id string) domain.Event { return withID(EventUnhoverToast, id) }

// ClearAll builds a CLEAR_ALL event.
func ClearAll() domain.Event { return domain.NewEvent(EventClearAll, nil) }

func withID(eventType, id string) domain.Event {
	return domain.NewEvent(eventType, map[string]any{"id": id})
}

// Definition returns the manager machine. spawn builds the child for each
// accepted notification.
func Definition(opts Options, spawn Spawner) *runtime.Definition[Context] {
	opts = opts.withDefaults()

	add := func(c Context, ev domain.Event, s *runtime.Scope) Context {
		var p addPayload
		if err := ev.Decode(&p); err != nil {
			s.Logger().Warn("Ignoring malformed toast", "err", err)
			return c
		}
		t := p.Toast
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Severity == "" {
			t.Severity = DefaultSeverity
		}
		if t.Duration <= 0 {
			t.Duration = int(opts.DefaultDuration / time.Millisecond)
		}
		if !s.Spawn(t.ID, spawn(t)) {
			return c
		}
		c.Toasts = append(slices.Clone(c.Toasts), t.ID)
		return c
	}

	// forward relays one child event keyed by the payload id.
	forward := func(child func() domain.Event) runtime.Action[Context] {
		return func(c Context, ev domain.Event, s *runtime.Scope) Context {
			var p idPayload
			if err := ev.Decode(&p); err == nil {
				s.Forward(p.ID, child())
			}
			return c
		}
	}

	// drop forgets id when remove reports that the child went away.
	drop := func(remove func(s *runtime.Scope, id string) bool) runtime.Action[Context] {
		return func(c Context, ev domain.Event, s *runtime.Scope) Context {
			var p idPayload
			if err := ev.Decode(&p); err != nil || !remove(s, p.ID) {
				return c
			}
			c.Toasts = slices.DeleteFunc(slices.Clone(c.Toasts), func(id string) bool { return id == p.ID })
			return c
		}
	}

	clearAll := func(c Context, _ domain.Event, s *runtime.Scope) Context {
		s.StopChildren()
		c.Toasts = nil
		return c
	}

	return &runtime.Definition[Context]{
		ID:      MachineID,
		Initial: StateActive,
		Context: func() Context { return Context{} },
		States: map[string]runtime.StateNode[Context]{
			StateActive: {
				On: map[string]runtime.Transition[Context]{
					EventAddToast:     {Actions: []runtime.Action[Context]{add}},
					EventDismissToast: {Actions: []runtime.Action[Context]{forward(Dismiss)}},
					EventHoverToast:   {Actions: []runtime.Action[Context]{forward(Hover)}},
					EventUnhoverToast: {Actions: []runtime.Action[Context]{forward(Unhover)}},
					EventRemoveToast:  {Actions: []runtime.Action[Context]{drop((*runtime.Scope).StopChild)}},
					runtime.EventChildStopped: {
						Actions: []runtime.Action[Context]{drop((*runtime.Scope).ReleaseChild)},
					},
					EventClearAll: {Actions: []runtime.Action[Context]{clearAll}},
				},
			},
		},
	}
}

// Item is the observable state of one live notification.
type Item struct {
	Toast
	State string `json:"state"`
}

// Manager is a running notification manager.
type Manager struct {
	*runtime.Instance[Context]
}

// New creates a manager. Children share the manager's clock, logger and hooks.
func New(opts Options, ropts ...runtime.Option) *Manager {
	opts = opts.withDefaults()
	spawn := func(t Toast) runtime.Actor {
		childOpts := append(slices.Clone(ropts), runtime.WithID("toast-"+t.ID))
		return runtime.New(ChildDefinition(t, opts.Hide), childOpts...)
	}
	return &Manager{Instance: runtime.New(Definition(opts, spawn), ropts...)}
}

// Notify adds a notification and returns its id. An empty id is generated.
func (m *Manager) Notify(t Toast) string {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m.Send(Add(t))
	return t.ID
}

func (m *Manager) notify(sev Severity, message string, duration []time.Duration) string {
	t := Toast{Message: message, Severity: sev}
	if len(duration) > 0 {
		t.Duration = int(duration[0] / time.Millisecond)
	}
	return m.Notify(t)
}

// Success shows a success notification.
func (m *Manager) Success(message string, duration ...time.Duration) string {
	return m.notify(SeveritySuccess, message, duration)
}

// Error shows an error notification.
func (m *Manager) Error(message string, duration ...time.Duration) string {
	return m.notify(SeverityError, message, duration)
}

// Info shows an informational notification.
func (m *Manager) Info(message string, duration ...time.Duration) string {
	return m.notify(SeverityInfo, message, duration)
}

// Warning shows a warning notification.
func (m *Manager) Warning(message string, duration ...time.Duration) string {
	return m.notify(SeverityWarning, message, duration)
}

// Dismiss starts the hide sequence of one notification.
func (m *Manager) Dismiss(id string) { m.Send(DismissToast(id)) }

// Remove discards one notification without hiding it.
func (m *Manager) Remove(id string) { m.Send(Remove(id)) }

// Hover pauses the display timer of one notification.
func (m *Manager) Hover(id string) { m.Send(HoverToast(id)) }

// Unhover restarts the display timer of one notification from its full duration.
func (m *Manager) Unhover(id string) { m.Send(UnhoverToast(id)) }

// DismissAll dismisses every live notification individually so each one plays
// its hide sequence.
func (m *Manager) DismissAll() {
	for _, id := range m.Snapshot().Context.Toasts {
		m.Dismiss(id)
	}
}

// ClearAll discards every notification at once.
func (m *Manager) ClearAll() { m.Send(ClearAll()) }

// Toasts returns the live notifications in the order they were added.
func (m *Manager) Toasts() []Item {
	var items []Item
	for _, id := range m.Snapshot().Context.Toasts {
		actor, ok := m.Children().Get(id)
		if !ok {
			continue
		}
		child, ok := actor.(*runtime.Instance[Toast])
		if !ok {
			continue
		}
		snap := child.Snapshot()
		items = append(items, Item{Toast: snap.Context, State: snap.State})
	}
	return items
}
