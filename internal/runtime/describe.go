package runtime

import (
	"sort"

	"github.com/aretw0/statecraft/pkg/domain"
)

// Graph describes the definition for introspection. Delays are evaluated
// against a fresh context, built only when some state has one.
func (d *Definition[C]) Graph() domain.MachineGraph {
	g := domain.MachineGraph{ID: d.ID, Initial: d.Initial}
	var (
		fresh C
		built bool
	)

	for _, name := range d.StateNames() {
		node := d.States[name]
		sg := domain.StateGraph{Name: name, Initial: node.Initial, Final: node.Final}

		events := make([]string, 0, len(node.On))
		for ev := range node.On {
			events = append(events, ev)
		}
		sort.Strings(events)
		for _, ev := range events {
			t := node.On[ev]
			sg.Edges = append(sg.Edges, domain.Edge{
				Kind:    domain.EdgeEvent,
				Event:   ev,
				Target:  t.Target,
				Guarded: t.Guard != nil,
			})
		}
		if node.After != nil {
			if !built {
				fresh, built = d.Context(), true
			}
			sg.Edges = append(sg.Edges, domain.Edge{
				Kind:   domain.EdgeAfter,
				Target: node.After.Target,
				Delay:  node.After.Delay(fresh),
			})
		}
		for _, t := range node.Always {
			sg.Edges = append(sg.Edges, domain.Edge{
				Kind:    domain.EdgeAlways,
				Target:  t.Target,
				Guarded: t.Guard != nil,
			})
		}
		g.States = append(g.States, sg)
	}
	return g
}

// Graph describes the definition this instance runs.
func (i *Instance[C]) Graph() domain.MachineGraph {
	return i.def.Graph()
}
