package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/statecraft/pkg/domain"
)

// Scope gives actions controlled access to side effects while a step is being
// committed. Everything that reaches another instance is deferred until the
// owning instance has released its lock.
type Scope struct {
	ctx      context.Context
	now      time.Time
	self     string
	logger   *slog.Logger
	raise    func(domain.Event)
	defer_   func(func())
	children *Supervisor
}

func (i *Instance[C]) scope(ctx context.Context) *Scope {
	return &Scope{
		ctx:    ctx,
		now:    i.clock.Now(),
		self:   i.id,
		logger: i.logger,
		raise: func(ev domain.Event) {
			i.queue = append(i.queue, ev)
		},
		defer_: func(fn func()) {
			i.outbox = append(i.outbox, fn)
		},
		children: i.children,
	}
}

// Context returns the context of the event being processed.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Now returns the clock time at which the step started.
func (s *Scope) Now() time.Time {
	return s.now
}

// Self returns the id of the instance running the action.
func (s *Scope) Self() string {
	return s.self
}

// Logger returns the instance logger.
func (s *Scope) Logger() *slog.Logger {
	return s.logger
}

// Raise queues ev on the running instance. It is processed after the current
// step, before the triggering Send returns.
func (s *Scope) Raise(ev domain.Event) {
	s.raise(ev)
}

// Defer runs fn after the step commits and the instance lock is released.
func (s *Scope) Defer(fn func()) {
	s.defer_(fn)
}

// Spawn registers child under id and starts it once the step commits.
// It returns false when id is already taken.
func (s *Scope) Spawn(id string, child Actor) bool {
	if !s.children.add(s.ctx, id, child) {
		return false
	}
	s.defer_(child.Start)
	return true
}

// Forward delivers ev to the child registered under id once the step commits.
// It returns false for unknown ids.
func (s *Scope) Forward(id string, ev domain.Event) bool {
	child, ok := s.children.Get(id)
	if !ok {
		return false
	}
	s.defer_(func() { child.SendContext(s.ctx, ev) })
	return true
}

// StopChild forcibly discards the child registered under id.
func (s *Scope) StopChild(id string) bool {
	return s.children.Stop(id)
}

// StopChildren forcibly discards every child and returns their ids.
func (s *Scope) StopChildren() []string {
	return s.children.StopAll()
}

// ReleaseChild forgets a child that reported its own termination.
func (s *Scope) ReleaseChild(id string) bool {
	return s.children.release(s.ctx, id)
}

// ChildIDs returns the ids of the registered children in spawn order.
func (s *Scope) ChildIDs() []string {
	return s.children.IDs()
}
