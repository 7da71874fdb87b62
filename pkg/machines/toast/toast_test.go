package toast_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/toast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newManager(t *testing.T, ropts ...runtime.Option) (*toast.Manager, *clock.Manual) {
	t.Helper()
	c := clock.NewManual(epoch)
	m := toast.New(toast.Options{}, append([]runtime.Option{runtime.WithClock(c)}, ropts...)...)
	m.Start()
	return m, c
}

func state(t *testing.T, m *toast.Manager, id string) string {
	t.Helper()
	for _, item := range m.Toasts() {
		if item.ID == id {
			return item.State
		}
	}
	return ""
}

func TestDefinitions_Valid(t *testing.T) {
	require.NoError(t, toast.ChildDefinition(toast.Toast{ID: "x"}, toast.DefaultHide).Validate())
	require.NoError(t, toast.Definition(toast.Options{}, nil).Validate())
}

func TestManager_Defaults(t *testing.T) {
	m, _ := newManager(t)
	id := m.Notify(toast.Toast{Message: "saved"})

	items := m.Toasts()
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "saved", items[0].Message)
	assert.Equal(t, toast.SeverityInfo, items[0].Severity)
	assert.Equal(t, 6000, items[0].Duration)
	assert.Equal(t, toast.StateRunning, items[0].State)
}

func TestManager_Helpers(t *testing.T) {
	m, _ := newManager(t)
	ids := []string{
		m.Success("ok"),
		m.Error("boom", 2*time.Second),
		m.Info("fyi"),
		m.Warning("careful"),
	}

	items := m.Toasts()
	require.Len(t, items, 4)
	for k, want := range []toast.Severity{toast.SeveritySuccess, toast.SeverityError, toast.SeverityInfo, toast.SeverityWarning} {
		assert.Equal(t, ids[k], items[k].ID)
		assert.Equal(t, want, items[k].Severity)
	}
	assert.Equal(t, 2000, items[1].Duration)
	assert.Equal(t, ids, m.Snapshot().Context.Toasts)
}

func TestToast_AutoDismissLifecycle(t *testing.T) {
	m, c := newManager(t)
	id := m.Info("hello", time.Second)

	c.Advance(999 * time.Millisecond)
	assert.Equal(t, toast.StateRunning, state(t, m, id))

	c.Advance(time.Millisecond)
	assert.Equal(t, toast.StateHiding, state(t, m, id))

	c.Advance(300 * time.Millisecond)
	assert.Empty(t, m.Toasts())
	assert.Empty(t, m.Snapshot().Context.Toasts)
	assert.Zero(t, m.Children().Len())
	assert.Zero(t, c.Pending())
}

func TestToast_DiscardedChildIgnoresEvents(t *testing.T) {
	m, c := newManager(t)
	id := m.Info("bye", time.Second)
	child, ok := m.Children().Get(id)
	require.True(t, ok)

	m.Dismiss(id)
	c.Advance(300 * time.Millisecond)
	require.True(t, child.Done())
	_, ok = m.Children().Get(id)
	assert.False(t, ok)

	child.Send(toast.Unhover())
	child.Send(toast.Dismiss())
	assert.Equal(t, toast.StateRemoved, child.View().State)

	// Late parent events for the id are no-ops.
	m.Dismiss(id)
	m.Hover(id)
	m.Remove(id)
	assert.Equal(t, toast.StateActive, m.Snapshot().State)
	assert.Zero(t, c.Pending())
}

func TestToast_HoverPausesAndRestartsFullDuration(t *testing.T) {
	m, c := newManager(t)
	id := m.Info("hover me", time.Second)

	c.Advance(800 * time.Millisecond)
	m.Hover(id)
	assert.Equal(t, toast.StatePaused, state(t, m, id))
	assert.Zero(t, c.Pending(), "the display timer is cancelled while paused")

	c.Advance(10 * time.Second)
	assert.Equal(t, toast.StatePaused, state(t, m, id))

	m.Unhover(id)
	c.Advance(900 * time.Millisecond)
	assert.Equal(t, toast.StateRunning, state(t, m, id), "remaining time is not preserved")

	c.Advance(100 * time.Millisecond)
	assert.Equal(t, toast.StateHiding, state(t, m, id))
}

func TestToast_DismissFromPaused(t *testing.T) {
	m, c := newManager(t)
	id := m.Info("paused")
	m.Hover(id)

	m.Dismiss(id)
	assert.Equal(t, toast.StateHiding, state(t, m, id))

	m.Dismiss(id)
	m.Unhover(id)
	assert.Equal(t, toast.StateHiding, state(t, m, id))

	c.Advance(300 * time.Millisecond)
	assert.Empty(t, m.Toasts())
}

func TestManager_RemoveIsImmediate(t *testing.T) {
	var forced []string
	m, c := newManager(t, runtime.WithHooks(domain.LifecycleHooks{
		OnChildStopped: func(_ context.Context, ev *domain.ChildEvent) {
			if ev.Forced {
				forced = append(forced, ev.ChildID)
			}
		},
	}))
	keep := m.Info("keep")
	drop := m.Info("drop")
	child, _ := m.Children().Get(drop)

	m.Remove(drop)
	assert.Equal(t, []string{keep}, m.Snapshot().Context.Toasts)
	assert.Equal(t, []string{drop}, forced)

	c.Advance(time.Minute)
	assert.False(t, child.Done(), "a removed toast skips its hide sequence")
	assert.Empty(t, m.Toasts())
}

func TestManager_DismissAllHidesEachToast(t *testing.T) {
	m, c := newManager(t)
	a := m.Info("a")
	b := m.Info("b")

	m.DismissAll()
	assert.Equal(t, toast.StateHiding, state(t, m, a))
	assert.Equal(t, toast.StateHiding, state(t, m, b))
	assert.Len(t, m.Toasts(), 2, "dismissed toasts stay until they finish hiding")

	c.Advance(300 * time.Millisecond)
	assert.Empty(t, m.Toasts())
	assert.Empty(t, m.Snapshot().Context.Toasts)
}

func TestManager_ClearAllIsSynchronous(t *testing.T) {
	m, c := newManager(t)
	m.Info("a")
	m.Info("b")
	m.Dismiss(m.Info("c"))

	m.ClearAll()
	assert.Empty(t, m.Snapshot().Context.Toasts)
	assert.Zero(t, m.Children().Len())
	assert.Zero(t, c.Pending())

	c.Advance(time.Minute)
	assert.Empty(t, m.Snapshot().Context.Toasts)
}

func TestManager_DuplicateIDIgnored(t *testing.T) {
	m, _ := newManager(t)
	m.Notify(toast.Toast{ID: "same", Message: "first"})
	m.Notify(toast.Toast{ID: "same", Message: "second"})

	items := m.Toasts()
	require.Len(t, items, 1)
	assert.Equal(t, "first", items[0].Message)
}

func TestManager_MalformedAddIgnored(t *testing.T) {
	m, _ := newManager(t)
	m.Send(domain.NewEvent(toast.EventAddToast, map[string]any{"toast": "nope"}))
	assert.Empty(t, m.Toasts())
}

func TestManager_ViewIncludesChildren(t *testing.T) {
	m, _ := newManager(t)
	m.Notify(toast.Toast{ID: "v", Message: "view"})

	view := m.View()
	assert.Equal(t, toast.MachineID, view.Machine)
	require.Len(t, view.Children, 1)
	assert.Equal(t, "toast-v", view.Children[0].Machine)
	assert.Equal(t, toast.StateRunning, view.Children[0].State)
}

func TestManager_StopTearsDownChildren(t *testing.T) {
	m, c := newManager(t)
	m.Info("a")
	m.Info("b")

	m.Stop()
	assert.Zero(t, m.Children().Len())
	assert.Zero(t, c.Pending())
}
