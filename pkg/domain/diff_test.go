package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterCtx struct {
	Count int    `json:"count"`
	Label string `json:"label"`
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name      string
		old       *Snapshot
		new       *Snapshot
		wantNil   bool
		wantState string
		wantCtx   map[string]any
	}{
		{
			name:      "Initial Load",
			old:       nil,
			new:       &Snapshot{Machine: "m", State: "idle", Context: counterCtx{Count: 1, Label: "a"}},
			wantState: "idle",
			wantCtx:   map[string]any{"count": float64(1), "label": "a"},
		},
		{
			name:    "No Changes",
			old:     &Snapshot{Machine: "m", State: "idle", Context: counterCtx{Count: 1}},
			new:     &Snapshot{Machine: "m", State: "idle", Context: counterCtx{Count: 1}},
			wantNil: true,
		},
		{
			name:      "State Only",
			old:       &Snapshot{Machine: "m", State: "idle", Context: counterCtx{Count: 1}},
			new:       &Snapshot{Machine: "m", State: "busy", Context: counterCtx{Count: 1}},
			wantState: "busy",
		},
		{
			name:    "Context Modified",
			old:     &Snapshot{Machine: "m", State: "idle", Context: counterCtx{Count: 1, Label: "a"}},
			new:     &Snapshot{Machine: "m", State: "idle", Context: counterCtx{Count: 2, Label: "a"}},
			wantCtx: map[string]any{"count": float64(2)},
		},
		{
			name:    "Context Key Deleted",
			old:     &Snapshot{Machine: "m", State: "idle", Context: map[string]any{"a": 1, "b": 2}},
			new:     &Snapshot{Machine: "m", State: "idle", Context: map[string]any{"a": 1}},
			wantCtx: map[string]any{"b": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.new.Machine, got.Machine)
			if tt.wantState != "" {
				require.NotNil(t, got.State)
				assert.Equal(t, tt.wantState, *got.State)
			} else {
				assert.Nil(t, got.State)
			}
			assert.Equal(t, tt.wantCtx, got.Context)
		})
	}
}

func TestDiff_Children(t *testing.T) {
	old := &Snapshot{Machine: "toasts", State: "active", Children: []Snapshot{
		{Machine: "a", State: "visible.running"},
		{Machine: "b", State: "visible.running"},
	}}
	next := &Snapshot{Machine: "toasts", State: "active", Children: []Snapshot{
		{Machine: "b", State: "hiding"},
	}}

	got := Diff(old, next)
	require.NotNil(t, got)
	require.Len(t, got.Children, 1)
	assert.Equal(t, "hiding", got.Children[0].State)

	cleared := &Snapshot{Machine: "toasts", State: "active"}
	got = Diff(next, cleared)
	require.NotNil(t, got)
	assert.NotNil(t, got.Children)
	assert.Empty(t, got.Children)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"state"`)
}

func TestSnapshot_Matches(t *testing.T) {
	s := Snapshot{State: "visible.paused"}
	assert.True(t, s.Matches("visible"))
	assert.True(t, s.Matches("visible.paused"))
	assert.False(t, s.Matches("visible.running"))
	assert.False(t, s.Matches("vis"))
}

func TestEvent_Decode(t *testing.T) {
	var out struct {
		FieldID  string `json:"fieldId"`
		Index    int    `json:"historyIndex"`
		Optional *int   `json:"delay"`
	}

	ev := NewEvent("REVERT_FIELD", map[string]any{"fieldId": "name", "historyIndex": float64(2)})
	require.NoError(t, ev.Decode(&out))
	assert.Equal(t, "name", out.FieldID)
	assert.Equal(t, 2, out.Index)
	assert.Nil(t, out.Optional)

	bad := NewEvent("REVERT_FIELD", map[string]any{"historyIndex": []string{"x"}})
	err := bad.Decode(&out)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnTransition: func(_ context.Context, _ *TransitionEvent) { calls = append(calls, "a") }}
	b := LifecycleHooks{
		OnTransition:   func(_ context.Context, _ *TransitionEvent) { calls = append(calls, "b") },
		OnEventDropped: func(_ context.Context, _ *DroppedEvent) { calls = append(calls, "drop") },
	}

	merged := a.Merge(b)
	merged.OnTransition(context.Background(), &TransitionEvent{})
	merged.OnEventDropped(context.Background(), &DroppedEvent{})
	assert.Nil(t, merged.OnTimerFired)
	assert.Equal(t, []string{"a", "b", "drop"}, calls)
}
