package toast

import (
	"time"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/domain"
)

const (
	ChildMachineID = "toast"

	StateVisible = "visible"
	StateRunning = "visible.running"
	StatePaused  = "visible.paused"
	StateHiding  = "hiding"
	StateRemoved = "removed"

	EventDismiss = "DISMISS"
	EventHover   = "HOVER"
	EventUnhover = "UNHOVER"
)

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

const (
	DefaultSeverity = SeverityInfo
	DefaultDuration = 6000 * time.Millisecond
	DefaultHide     = 300 * time.Millisecond
)

// Toast is the context of one notification child.
type Toast struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Severity Severity `json:"type,omitempty"`
	// Duration is the display time in milliseconds.
	Duration int `json:"duration,omitempty"`
}

// Display returns Duration as a time.Duration.
func (t Toast) Display() time.Duration {
	return time.Duration(t.Duration) * time.Millisecond
}

// ChildDefinition returns the machine of a single notification. It is visible
// for the toast's duration (paused while hovered), then hides for hide before
// reaching its final state.
func ChildDefinition(t Toast, hide time.Duration) *runtime.Definition[Toast] {
	return &runtime.Definition[Toast]{
		ID:      ChildMachineID,
		Initial: StateVisible,
		Context: func() Toast { return t },
		States: map[string]runtime.StateNode[Toast]{
			StateVisible: {
				Initial: "running",
				On: map[string]runtime.Transition[Toast]{
					EventDismiss: {Target: StateHiding},
				},
			},
			StateRunning: {
				After: &runtime.Delayed[Toast]{
					Delay:  Toast.Display,
					Target: StateHiding,
				},
				On: map[string]runtime.Transition[Toast]{
					EventHover: {Target: StatePaused},
				},
			},
			StatePaused: {
				On: map[string]runtime.Transition[Toast]{
					EventUnhover: {Target: StateRunning},
				},
			},
			StateHiding: {
				After: &runtime.Delayed[Toast]{
					Delay:  func(Toast) time.Duration { return hide },
					Target: StateRemoved,
				},
			},
			StateRemoved: {Final: true},
		},
	}
}

// Dismiss builds the event that starts the hide sequence of a child.
func Dismiss() domain.Event { return domain.NewEvent(EventDismiss, nil) }

// Hover builds the event that pauses a child's display timer.
func Hover() domain.Event { return domain.NewEvent(EventHover, nil) }

// Unhover builds the event that restarts a child's display timer.
func Unhover() domain.Event { return domain.NewEvent(EventUnhover, nil) }
