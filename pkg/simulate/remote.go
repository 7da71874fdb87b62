package simulate

import (
	"sync"

	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/machines/form"
	"github.com/aretw0/statecraft/pkg/machines/network"
)

// RemoteEditor sends REMOTE_UPDATE events to the form at random intervals
// while the network machine is connected.
type RemoteEditor struct {
	net  *network.Machine
	form *form.Machine
	opts Options

	mu      sync.Mutex
	timer   clock.Timer
	running bool
	edits   int
}

// NewRemoteEditor creates a stopped editor.
func NewRemoteEditor(net *network.Machine, f *form.Machine, opts Options) *RemoteEditor {
	return &RemoteEditor{net: net, form: f, opts: opts.withDefaults()}
}

// Start schedules the first edit. Calling Start twice is a no-op.
func (r *RemoteEditor) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.schedule()
}

// Stop cancels the pending edit.
func (r *RemoteEditor) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Edits returns how many remote edits were sent.
func (r *RemoteEditor) Edits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edits
}

// schedule must be called with r.mu held.
func (r *RemoteEditor) schedule() {
	delay := r.opts.Generator.Duration(r.opts.MinDelay, r.opts.MaxDelay)
	r.timer = r.opts.Clock.AfterFunc(delay, r.tick)
}

func (r *RemoteEditor) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	defer r.schedule()

	if !r.net.Connected() {
		return
	}
	ids := r.form.Snapshot().Context.FieldIDs()
	if len(ids) == 0 {
		return
	}

	gen := r.opts.Generator
	field := ids[gen.IntRange(0, len(ids)-1)]
	editor := gen.Editor()
	r.form.Send(form.RemoteUpdate(field, gen.FieldValue(field), editor, r.opts.Clock.Now()))
	r.edits++
	r.opts.Logger.Debug("Remote edit", "field", field, "editor", editor)
}
