package runtime

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/domain"
)

// EventChildStopped is sent to a parent when one of its children reached a
// final state. The payload carries the child id under "id".
const EventChildStopped = "CHILD_STOPPED"

// ChildStopped builds the notification a child sends to its parent.
func ChildStopped(id string) domain.Event {
	return domain.NewEvent(EventChildStopped, map[string]any{"id": id})
}

// Supervisor is the identifier-keyed arena of children owned by one instance.
// Only the owner's actions add or remove entries; reads are safe from anywhere.
type Supervisor struct {
	parent string
	notify func(context.Context, domain.Event)
	clock  clock.Clock
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mu       sync.RWMutex
	children map[string]Actor
	order    []string
}

func newSupervisor(parent string, notify func(context.Context, domain.Event), c clock.Clock, logger *slog.Logger, hooks domain.LifecycleHooks) *Supervisor {
	return &Supervisor{
		parent:   parent,
		notify:   notify,
		clock:    c,
		logger:   logger,
		hooks:    hooks,
		children: make(map[string]Actor),
	}
}

// add records child and wires its termination to a CHILD_STOPPED event on the
// parent. Duplicate ids are rejected.
func (s *Supervisor) add(ctx context.Context, id string, child Actor) bool {
	s.mu.Lock()
	if _, exists := s.children[id]; exists {
		s.mu.Unlock()
		s.logger.Debug("Child id already in use", "child", id)
		return false
	}
	s.children[id] = child
	s.order = append(s.order, id)
	s.mu.Unlock()

	child.OnDone(func() {
		s.notify(context.Background(), ChildStopped(id))
	})

	s.logger.Debug("Child spawned", "child", id)
	if s.hooks.OnChildSpawned != nil {
		s.hooks.OnChildSpawned(ctx, &domain.ChildEvent{
			Timestamp: s.clock.Now(),
			Parent:    s.parent,
			ChildID:   id,
		})
	}
	return true
}

// release removes a child that terminated on its own. A live child registered
// under the same id is left alone.
func (s *Supervisor) release(ctx context.Context, id string) bool {
	s.mu.Lock()
	child, ok := s.children[id]
	if !ok || !child.Done() {
		s.mu.Unlock()
		return false
	}
	s.remove(id)
	s.mu.Unlock()

	s.logger.Debug("Child stopped", "child", id)
	if s.hooks.OnChildStopped != nil {
		s.hooks.OnChildStopped(ctx, &domain.ChildEvent{
			Timestamp: s.clock.Now(),
			Parent:    s.parent,
			ChildID:   id,
		})
	}
	return true
}

// Stop forcibly discards the child registered under id, skipping its own
// shutdown sequence. The parent is not notified. Unknown ids are a no-op.
func (s *Supervisor) Stop(id string) bool {
	s.mu.Lock()
	child, ok := s.children[id]
	if ok {
		s.remove(id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	child.Stop()
	s.stopped(id)
	return true
}

// StopAll forcibly discards every child and empties the arena.
func (s *Supervisor) StopAll() []string {
	s.mu.Lock()
	ids := s.order
	children := s.children
	s.order = nil
	s.children = make(map[string]Actor)
	s.mu.Unlock()

	for _, id := range ids {
		children[id].Stop()
		s.stopped(id)
	}
	return ids
}

func (s *Supervisor) stopped(id string) {
	s.logger.Debug("Child force-stopped", "child", id)
	if s.hooks.OnChildStopped != nil {
		s.hooks.OnChildStopped(context.Background(), &domain.ChildEvent{
			Timestamp: s.clock.Now(),
			Parent:    s.parent,
			ChildID:   id,
			Forced:    true,
		})
	}
}

// remove must be called with s.mu held.
func (s *Supervisor) remove(id string) {
	delete(s.children, id)
	if idx := slices.Index(s.order, id); idx >= 0 {
		s.order = slices.Delete(s.order, idx, idx+1)
	}
}

// Get returns the child registered under id.
func (s *Supervisor) Get(id string) (Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	child, ok := s.children[id]
	return child, ok
}

// IDs returns the registered child ids in spawn order.
func (s *Supervisor) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Len returns the number of registered children.
func (s *Supervisor) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Views returns the snapshots of the registered children in spawn order.
func (s *Supervisor) Views() []domain.Snapshot {
	s.mu.RLock()
	children := make([]Actor, 0, len(s.order))
	for _, id := range s.order {
		children = append(children, s.children[id])
	}
	s.mu.RUnlock()

	if len(children) == 0 {
		return nil
	}
	views := make([]domain.Snapshot, len(children))
	for k, c := range children {
		views[k] = c.View()
	}
	return views
}
