// Package navigation walks the ordered slide list of the presentation and
// converts slides to URL paths and back.
package navigation

import (
	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/domain"
)

const (
	MachineID = "navigation"

	StateActive = "active"

	EventNext = "NEXT"
	EventPrev = "PREV"
	EventGoTo = "GO_TO"
)

// Context is the navigation machine context.
type Context struct {
	CurrentSlide Slide `json:"currentSlide"`
}

// Index returns the position of the current slide, or -1 when the slide was
// set to a value outside the list.
func (c Context) Index() int {
	return Index(c.CurrentSlide)
}

type goToPayload struct {
	Slide Slide `json:"slide"`
}

// Next builds a NEXT event.
func Next() domain.Event { return domain.NewEvent(EventNext, nil) }

// Prev builds a PREV event.
func Prev() domain.Event { return domain.NewEvent(EventPrev, nil) }

// GoTo builds a GO_TO event. The slide is not checked against the list.
func GoTo(s Slide) domain.Event {
	return domain.NewEvent(EventGoTo, map[string]any{
		"slide": map[string]any{"example": s.Example, "view": s.View},
	})
}

// Definition returns the navigation machine.
func Definition() *runtime.Definition[Context] {
	return &runtime.Definition[Context]{
		ID:      MachineID,
		Initial: StateActive,
		Context: func() Context { return Context{CurrentSlide: First()} },
		States: map[string]runtime.StateNode[Context]{
			StateActive: {
				On: map[string]runtime.Transition[Context]{
					EventNext: {Actions: []runtime.Action[Context]{next}},
					EventPrev: {Actions: []runtime.Action[Context]{prev}},
					EventGoTo: {Actions: []runtime.Action[Context]{goTo}},
				},
			},
		},
	}
}

// next steps forward. A slide outside the list moves to the first slide.
func next(c Context, _ domain.Event, _ *runtime.Scope) Context {
	if idx := c.Index(); idx < len(slides)-1 {
		c.CurrentSlide = slides[idx+1]
	}
	return c
}

func prev(c Context, _ domain.Event, _ *runtime.Scope) Context {
	if idx := c.Index(); idx > 0 {
		c.CurrentSlide = slides[idx-1]
	}
	return c
}

func goTo(c Context, ev domain.Event, s *runtime.Scope) Context {
	var p goToPayload
	if err := ev.Decode(&p); err != nil {
		s.Logger().Warn("Ignoring malformed slide", "err", err)
		return c
	}
	c.CurrentSlide = p.Slide
	return c
}

// Machine is a running navigation instance.
type Machine struct {
	*runtime.Instance[Context]
}

// New creates a navigation machine.
func New(opts ...runtime.Option) *Machine {
	return &Machine{Instance: runtime.New(Definition(), opts...)}
}

// Path returns the path of the current slide.
func (m *Machine) Path() string {
	return SlideToPath(m.Snapshot().Context.CurrentSlide)
}
