package domain

import "strings"

// Snapshot is a read-only view of an instance.
// Context holds the machine's typed context value and must not be mutated.
type Snapshot struct {
	Machine  string     `json:"machine"`
	State    string     `json:"state"`
	Context  any        `json:"context"`
	Done     bool       `json:"done,omitempty"`
	Children []Snapshot `json:"children,omitempty"`
}

// Matches reports whether the snapshot is in state or in one of its descendants.
// "visible" matches "visible.running".
func (s Snapshot) Matches(state string) bool {
	return MatchesState(s.State, state)
}

// MatchesState reports whether current equals state or is nested below it.
func MatchesState(current, state string) bool {
	return current == state || strings.HasPrefix(current, state+".")
}
