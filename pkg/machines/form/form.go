// Package form implements the collaborative form machine: a single editing
// state whose fields keep a history of previous values that can be restored.
package form

import (
	"slices"
	"time"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/mockdata"
)

const (
	MachineID = "form"

	StateEditing = "editing"

	EventUpdateField  = "UPDATE_FIELD"
	EventRemoteUpdate = "REMOTE_UPDATE"
	EventRevertField  = "REVERT_FIELD"

	// DefaultUser is the name recorded for local edits.
	DefaultUser = "You"
)

// Edit is one (value, editor, time) triple.
type Edit struct {
	Value    string    `json:"value"`
	EditedBy string    `json:"editedBy"`
	EditedAt time.Time `json:"editedAt"`
}

// Field is a form field with its previous values, oldest first.
type Field struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Value    string    `json:"value"`
	EditedBy string    `json:"lastEditedBy,omitempty"`
	EditedAt time.Time `json:"lastEditedAt,omitzero"`
	History  []Edit    `json:"history,omitempty"`
}

// Context is the form machine context.
type Context struct {
	Fields      []Field `json:"fields"`
	CurrentUser string  `json:"currentUser"`
}

// Field returns the field with the given id.
func (c Context) Field(id string) (Field, bool) {
	for _, f := range c.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// FieldIDs returns the field ids in display order.
func (c Context) FieldIDs() []string {
	ids := make([]string, len(c.Fields))
	for k, f := range c.Fields {
		ids[k] = f.ID
	}
	return ids
}

// NewContext lays out the four form fields with the given initial values.
func NewContext(v mockdata.FieldValues) Context {
	return Context{
		Fields: []Field{
			{ID: "name", Label: "Name", Value: v.Name},
			{ID: "email", Label: "Email", Value: v.Email},
			{ID: "phone", Label: "Phone", Value: v.Phone},
			{ID: "address", Label: "Address", Value: v.Address},
		},
		CurrentUser: DefaultUser,
	}
}

type updatePayload struct {
	FieldID  string    `json:"fieldId"`
	Value    string    `json:"value"`
	EditedBy string    `json:"editedBy"`
	EditedAt time.Time `json:"editedAt"`
}

type revertPayload struct {
	FieldID      string `json:"fieldId"`
	HistoryIndex int    `json:"historyIndex"`
}

// UpdateField builds a local edit event.
func UpdateField(fieldID, value string) domain.Event {
	return domain.NewEvent(EventUpdateField, map[string]any{
		"fieldId": fieldID,
		"value":   value,
	})
}

// RemoteUpdate builds an edit event made by someone else.
func RemoteUpdate(fieldID, value, editedBy string, editedAt time.Time) domain.Event {
	return domain.NewEvent(EventRemoteUpdate, map[string]any{
		"fieldId":  fieldID,
		"value":    value,
		"editedBy": editedBy,
		"editedAt": editedAt,
	})
}

// RevertField builds an event restoring history entry index of a field.
func RevertField(fieldID string, index int) domain.Event {
	return domain.NewEvent(EventRevertField, map[string]any{
		"fieldId":      fieldID,
		"historyIndex": index,
	})
}

// Definition returns the form machine seeded with initial.
func Definition(initial Context) *runtime.Definition[Context] {
	return &runtime.Definition[Context]{
		ID:      MachineID,
		Initial: StateEditing,
		Context: func() Context { return initial },
		States: map[string]runtime.StateNode[Context]{
			StateEditing: {
				On: map[string]runtime.Transition[Context]{
					EventUpdateField:  {Actions: []runtime.Action[Context]{applyLocalEdit}},
					EventRemoteUpdate: {Actions: []runtime.Action[Context]{applyRemoteEdit}},
					EventRevertField:  {Actions: []runtime.Action[Context]{revert}},
				},
			},
		},
	}
}

func applyLocalEdit(c Context, ev domain.Event, s *runtime.Scope) Context {
	var p updatePayload
	if err := ev.Decode(&p); err != nil {
		s.Logger().Warn("Ignoring malformed edit", "err", err)
		return c
	}
	return c.edit(p.FieldID, p.Value, c.CurrentUser, s.Now(), s.Now())
}

func applyRemoteEdit(c Context, ev domain.Event, s *runtime.Scope) Context {
	var p updatePayload
	if err := ev.Decode(&p); err != nil {
		s.Logger().Warn("Ignoring malformed remote edit", "err", err)
		return c
	}
	editedAt := p.EditedAt
	if editedAt.IsZero() {
		editedAt = s.Now()
	}
	return c.edit(p.FieldID, p.Value, p.EditedBy, editedAt, s.Now())
}

func revert(c Context, ev domain.Event, s *runtime.Scope) Context {
	var p revertPayload
	if err := ev.Decode(&p); err != nil {
		s.Logger().Warn("Ignoring malformed revert", "err", err)
		return c
	}
	return c.revert(p.FieldID, p.HistoryIndex, s.Now())
}

// edit sets a new value, pushing the current one onto history when it is
// non-empty and differs.
func (c Context) edit(fieldID, value, editor string, editedAt, now time.Time) Context {
	return c.withField(fieldID, func(f Field) Field {
		history := slices.Clone(f.History)
		if f.Value != "" && f.Value != value {
			history = append(history, c.current(f, now))
		}
		f.Value = value
		f.EditedBy = editor
		f.EditedAt = editedAt
		f.History = prune(history, value)
		return f
	})
}

// revert promotes history[index] to current and moves the current triple to
// the end of history. An index out of range leaves the field untouched.
func (c Context) revert(fieldID string, index int, now time.Time) Context {
	return c.withField(fieldID, func(f Field) Field {
		if index < 0 || index >= len(f.History) {
			return f
		}
		target := f.History[index]
		history := slices.Clone(f.History)
		history = append(history, c.current(f, now))
		history = slices.Delete(history, index, index+1)

		f.Value = target.Value
		f.EditedBy = target.EditedBy
		f.EditedAt = target.EditedAt
		f.History = prune(history, f.Value)
		return f
	})
}

// current returns the field's present triple, filling in the local user and
// now for fields never edited.
func (c Context) current(f Field, now time.Time) Edit {
	e := Edit{Value: f.Value, EditedBy: f.EditedBy, EditedAt: f.EditedAt}
	if e.EditedBy == "" {
		e.EditedBy = c.CurrentUser
	}
	if e.EditedAt.IsZero() {
		e.EditedAt = now
	}
	return e
}

// withField returns a copy of c with fn applied to the matching field.
// Unknown ids return c unchanged.
func (c Context) withField(id string, fn func(Field) Field) Context {
	idx := slices.IndexFunc(c.Fields, func(f Field) bool { return f.ID == id })
	if idx < 0 {
		return c
	}
	fields := slices.Clone(c.Fields)
	fields[idx] = fn(fields[idx])
	c.Fields = fields
	return c
}

// prune drops entries holding the current value so history never repeats it.
func prune(history []Edit, current string) []Edit {
	return slices.DeleteFunc(history, func(e Edit) bool { return e.Value == current })
}

// Machine is a running form instance.
type Machine struct {
	*runtime.Instance[Context]
}

// New creates a form machine with the given initial values. It starts on
// Start or on the first event.
func New(values mockdata.FieldValues, opts ...runtime.Option) *Machine {
	return &Machine{Instance: runtime.New(Definition(NewContext(values)), opts...)}
}
