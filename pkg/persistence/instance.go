package persistence

import (
	"context"

	"github.com/aretw0/statecraft/internal/runtime"
)

// Restore seeds inst with the snapshot stored under its id. It must run before
// the instance starts; it reports whether a snapshot was applied.
func Restore[C any](ctx context.Context, m *Manager, inst *runtime.Instance[C]) bool {
	state, c, ok := LoadState[C](ctx, m, inst.ID())
	if !ok {
		return false
	}
	if !inst.Restore(state, c) {
		m.logger.Warn("Stored snapshot does not fit the machine", "key", inst.ID(), "state", state)
		return false
	}
	m.logger.Debug("Snapshot restored", "key", inst.ID(), "state", state)
	return true
}

// Persist saves the current snapshot of inst under its id.
func Persist[C any](ctx context.Context, m *Manager, inst *runtime.Instance[C]) bool {
	snap := inst.Snapshot()
	return SaveState(ctx, m, inst.ID(), snap.State, snap.Context)
}
