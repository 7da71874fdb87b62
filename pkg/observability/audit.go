package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/statecraft/pkg/domain"
)

// AuditHooks logs every lifecycle event at info level, except dropped events
// which are logged at debug.
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"machine", e.Machine,
				"from", e.From,
				"to", e.To,
				"event", e.Event,
			)
		},
		OnEventDropped: func(ctx context.Context, e *domain.DroppedEvent) {
			logger.DebugContext(ctx, "event_dropped",
				"machine", e.Machine,
				"state", e.State,
				"event", e.Event,
			)
		},
		OnTimerFired: func(ctx context.Context, e *domain.TimerEvent) {
			logger.InfoContext(ctx, "timer_fired",
				"machine", e.Machine,
				"state", e.State,
				"delay", e.Delay,
			)
		},
		OnChildSpawned: func(ctx context.Context, e *domain.ChildEvent) {
			logger.InfoContext(ctx, "child_spawned", "parent", e.Parent, "child", e.ChildID)
		},
		OnChildStopped: func(ctx context.Context, e *domain.ChildEvent) {
			logger.InfoContext(ctx, "child_stopped", "parent", e.Parent, "child", e.ChildID, "forced", e.Forced)
		},
	}
}
