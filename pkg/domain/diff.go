package domain

import (
	"encoding/json"
	"reflect"
)

// SnapshotDiff represents the changes between two snapshots of one machine.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	Machine string  `json:"machine"`
	State   *string `json:"state,omitempty"`
	Done    *bool   `json:"done,omitempty"`

	// Context contains only changed, added or deleted top-level keys.
	// For deletions, the key is present with a nil value.
	Context map[string]any `json:"context,omitempty"`

	// Children carries the full list of live children whenever a child was
	// added, removed or changed state. An empty list means all were removed.
	Children []Snapshot `json:"children,omitempty"`
}

// Diff calculates the difference between old and new.
// If old is nil, it returns a diff representing the entire new snapshot.
// It returns nil when nothing changed.
func Diff(old, new *Snapshot) *SnapshotDiff {
	if new == nil {
		return nil
	}

	diff := &SnapshotDiff{Machine: new.Machine}

	if old == nil || old.State != new.State {
		diff.State = &new.State
	}
	if old == nil {
		if new.Done {
			diff.Done = &new.Done
		}
	} else if old.Done != new.Done {
		diff.Done = &new.Done
	}

	var oldCtx map[string]any
	if old != nil {
		oldCtx = flatten(old.Context)
	}
	diff.Context = diffContext(oldCtx, flatten(new.Context), old == nil)

	if old == nil || !sameChildren(old.Children, new.Children) {
		if old != nil || len(new.Children) > 0 {
			diff.Children = new.Children
			if diff.Children == nil {
				diff.Children = []Snapshot{}
			}
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.State == nil &&
		d.Done == nil &&
		len(d.Context) == 0 &&
		d.Children == nil
}

// flatten turns a typed context into its JSON object form so that contexts of
// any machine can be compared key by key.
func flatten(ctx any) map[string]any {
	if ctx == nil {
		return nil
	}
	if m, ok := ctx.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(ctx)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func diffContext(old, new map[string]any, initial bool) map[string]any {
	delta := make(map[string]any)

	if initial {
		for k, v := range new {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}
	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

func sameChildren(a, b []Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Machine != b[i].Machine || a[i].State != b[i].State {
			return false
		}
	}
	return true
}
