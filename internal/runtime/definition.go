package runtime

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/statecraft/pkg/domain"
)

// Action computes the next context from the current one. Actions must return a
// new value instead of mutating slices or maps reachable from c, because
// snapshots already handed out share them.
type Action[C any] func(c C, ev domain.Event, s *Scope) C

// Guard decides whether a transition applies.
type Guard[C any] func(c C, ev domain.Event) bool

// Transition moves an instance to Target after running Actions.
// An empty Target is an internal transition: actions run, the state stays.
type Transition[C any] struct {
	Target  string
	Guard   Guard[C]
	Actions []Action[C]
}

// Delayed is a transition fired by the clock after the owning state has been
// active for Delay(c).
type Delayed[C any] struct {
	Delay   func(c C) time.Duration
	Target  string
	Actions []Action[C]
}

// StateNode describes one state. Names containing dots are nested below the
// state named by the prefix, so "visible.running" inherits the transitions of
// "visible".
type StateNode[C any] struct {
	// Initial names the child entered when this compound state is targeted,
	// relative to this state ("running" for "visible").
	Initial string
	On      map[string]Transition[C]
	After   *Delayed[C]
	// Always transitions are checked in order after every committed step.
	Always []Transition[C]
	Entry  []Action[C]
	Exit   []Action[C]
	Final  bool
}

// Definition is the immutable description of one machine kind.
type Definition[C any] struct {
	ID      string
	Initial string
	Context func() C
	States  map[string]StateNode[C]
}

// Validate checks that every target names a declared state and that compound
// states resolve to a leaf.
func (d *Definition[C]) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("definition has no id")
	}
	if d.Context == nil {
		return fmt.Errorf("definition %s: missing context factory", d.ID)
	}
	if _, err := d.resolve(d.Initial); err != nil {
		return fmt.Errorf("definition %s: initial: %w", d.ID, err)
	}

	check := func(from, label, target string) error {
		if target == "" {
			return nil
		}
		if _, err := d.resolve(target); err != nil {
			return fmt.Errorf("definition %s: %s %s: %w", d.ID, from, label, err)
		}
		return nil
	}

	for _, name := range d.StateNames() {
		node := d.States[name]
		for ev, t := range node.On {
			if err := check(name, "on "+ev, t.Target); err != nil {
				return err
			}
		}
		for i, t := range node.Always {
			if err := check(name, fmt.Sprintf("always[%d]", i), t.Target); err != nil {
				return err
			}
		}
		if node.After != nil {
			if node.After.Delay == nil {
				return fmt.Errorf("definition %s: %s after: missing delay", d.ID, name)
			}
			if err := check(name, "after", node.After.Target); err != nil {
				return err
			}
		}
	}
	return nil
}

// StateNames returns every declared state in lexical order.
func (d *Definition[C]) StateNames() []string {
	names := make([]string, 0, len(d.States))
	for name := range d.States {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolve follows Initial pointers from target down to a leaf state.
func (d *Definition[C]) resolve(target string) (string, error) {
	seen := map[string]bool{}
	for {
		node, ok := d.States[target]
		if !ok {
			return "", fmt.Errorf("unknown state %q", target)
		}
		if node.Initial == "" {
			return target, nil
		}
		if seen[target] {
			return "", fmt.Errorf("initial cycle at %q", target)
		}
		seen[target] = true
		target = target + "." + node.Initial
	}
}

// lineage returns the state followed by its ancestors, leaf first.
func lineage(state string) []string {
	parts := strings.Split(state, ".")
	out := make([]string, 0, len(parts))
	for i := len(parts); i > 0; i-- {
		out = append(out, strings.Join(parts[:i], "."))
	}
	return out
}

// lookup finds the transition handling ev, bubbling from the leaf up. A state
// whose guard rejects the event passes it on to its parent.
func (d *Definition[C]) lookup(state string, c C, ev domain.Event) (Transition[C], bool) {
	for _, name := range lineage(state) {
		t, ok := d.States[name].On[ev.Type]
		if !ok {
			continue
		}
		if t.Guard == nil || t.Guard(c, ev) {
			return t, true
		}
	}
	return Transition[C]{}, false
}
