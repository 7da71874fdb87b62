package domain

import "time"

// EdgeKind tells how a transition is triggered.
type EdgeKind string

const (
	EdgeEvent  EdgeKind = "event"
	EdgeAfter  EdgeKind = "after"
	EdgeAlways EdgeKind = "always"
)

// MachineGraph is the untyped structure of a machine definition, used for
// introspection and rendering.
type MachineGraph struct {
	ID      string       `json:"id"`
	Initial string       `json:"initial"`
	States  []StateGraph `json:"states"`
}

// StateGraph describes one state and its outgoing transitions.
type StateGraph struct {
	Name    string `json:"name"`
	Initial string `json:"initial,omitempty"`
	Final   bool   `json:"final,omitempty"`
	Edges   []Edge `json:"edges,omitempty"`
}

// Edge is one outgoing transition. Target is empty for internal transitions.
type Edge struct {
	Kind    EdgeKind      `json:"kind"`
	Event   string        `json:"event,omitempty"`
	Target  string        `json:"target,omitempty"`
	Guarded bool          `json:"guarded,omitempty"`
	Delay   time.Duration `json:"delay,omitempty"`
}

// Parent returns the name of the compound state containing name, or "".
func (s StateGraph) Parent() string {
	for i := len(s.Name) - 1; i >= 0; i-- {
		if s.Name[i] == '.' {
			return s.Name[:i]
		}
	}
	return ""
}
