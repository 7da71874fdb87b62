// Package syncing models a set of documents synchronised with a server. The
// machine is online only while every document is synced.
package syncing

import (
	"slices"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/mockdata"
)

const (
	MachineID = "syncing"

	StateOffline = "offline"
	StateSyncing = "syncing"
	StateOnline  = "online"

	EventGoOnline       = "GO_ONLINE"
	EventGoOffline      = "GO_OFFLINE"
	EventDocumentSynced = "DOCUMENT_SYNCED"
	EventReset          = "RESET"
)

// Status is the sync status of one document.
type Status string

const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
)

// Document is a file tracked by the machine.
type Document struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Status Status `json:"status"`
}

// Context is the sync machine context.
type Context struct {
	Documents []Document `json:"documents"`
}

// Count returns how many documents have the given status.
func (c Context) Count(s Status) int {
	n := 0
	for _, d := range c.Documents {
		if d.Status == s {
			n++
		}
	}
	return n
}

// AllSynced reports whether every document is synced.
func (c Context) AllSynced() bool {
	return c.Count(StatusSynced) == len(c.Documents)
}

// Next returns the first document with the given status.
func (c Context) Next(s Status) (Document, bool) {
	idx := slices.IndexFunc(c.Documents, func(d Document) bool { return d.Status == s })
	if idx < 0 {
		return Document{}, false
	}
	return c.Documents[idx], true
}

// Source produces fresh document sets for the initial context and RESET.
type Source interface {
	Documents() []mockdata.Document
}

// NewContext converts generated documents into a context.
func NewContext(docs []mockdata.Document) Context {
	out := make([]Document, len(docs))
	for k, d := range docs {
		status := StatusSynced
		if d.Pending {
			status = StatusPending
		}
		out[k] = Document{ID: d.ID, Title: d.Title, Body: d.Body, Status: status}
	}
	return Context{Documents: out}
}

type syncedPayload struct {
	DocumentID string `json:"documentId"`
}

// GoOnline builds a GO_ONLINE event.
func GoOnline() domain.Event { return domain.NewEvent(EventGoOnline, nil) }

// GoOffline builds a GO_OFFLINE event.
func GoOffline() domain.Event { return domain.NewEvent(EventGoOffline, nil) }

// Reset builds a RESET event.
func Reset() domain.Event { return domain.NewEvent(EventReset, nil) }

// DocumentSynced builds the event reporting that document id finished syncing.
func DocumentSynced(id string) domain.Event {
	return domain.NewEvent(EventDocumentSynced, map[string]any{"documentId": id})
}

// Definition returns the sync machine drawing documents from src.
func Definition(src Source) *runtime.Definition[Context] {
	reset := runtime.Transition[Context]{
		Target: StateOffline,
		Actions: []runtime.Action[Context]{
			func(Context, domain.Event, *runtime.Scope) Context {
				return NewContext(src.Documents())
			},
		},
	}

	return &runtime.Definition[Context]{
		ID:      MachineID,
		Initial: StateOffline,
		Context: func() Context { return NewContext(src.Documents()) },
		States: map[string]runtime.StateNode[Context]{
			StateOffline: {
				On: map[string]runtime.Transition[Context]{
					EventGoOnline: {
						Target:  StateSyncing,
						Actions: []runtime.Action[Context]{mark(StatusPending, StatusSyncing)},
					},
					EventReset: reset,
				},
			},
			StateSyncing: {
				Always: []runtime.Transition[Context]{
					{Target: StateOnline, Guard: func(c Context, _ domain.Event) bool { return c.AllSynced() }},
				},
				On: map[string]runtime.Transition[Context]{
					EventDocumentSynced: {Actions: []runtime.Action[Context]{markSynced}},
					EventGoOffline: {
						Target:  StateOffline,
						Actions: []runtime.Action[Context]{mark(StatusSyncing, StatusPending)},
					},
					EventReset: reset,
				},
			},
			StateOnline: {
				On: map[string]runtime.Transition[Context]{
					EventGoOffline: {Target: StateOffline},
					EventReset:     reset,
				},
			},
		},
	}
}

// mark moves every document in status from to status to.
func mark(from, to Status) runtime.Action[Context] {
	return func(c Context, _ domain.Event, _ *runtime.Scope) Context {
		docs := slices.Clone(c.Documents)
		for k := range docs {
			if docs[k].Status == from {
				docs[k].Status = to
			}
		}
		c.Documents = docs
		return c
	}
}

// markSynced completes one document. Only documents currently syncing move.
func markSynced(c Context, ev domain.Event, s *runtime.Scope) Context {
	var p syncedPayload
	if err := ev.Decode(&p); err != nil {
		s.Logger().Warn("Ignoring malformed sync report", "err", err)
		return c
	}
	idx := slices.IndexFunc(c.Documents, func(d Document) bool { return d.ID == p.DocumentID })
	if idx < 0 || c.Documents[idx].Status != StatusSyncing {
		return c
	}
	docs := slices.Clone(c.Documents)
	docs[idx].Status = StatusSynced
	c.Documents = docs
	return c
}

// Machine is a running sync instance.
type Machine struct {
	*runtime.Instance[Context]
}

// New creates a sync machine.
func New(src Source, opts ...runtime.Option) *Machine {
	return &Machine{Instance: runtime.New(Definition(src), opts...)}
}
