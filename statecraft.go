package statecraft

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/form"
	"github.com/aretw0/statecraft/pkg/machines/navigation"
	"github.com/aretw0/statecraft/pkg/machines/network"
	"github.com/aretw0/statecraft/pkg/machines/syncing"
	"github.com/aretw0/statecraft/pkg/machines/toast"
	"github.com/aretw0/statecraft/pkg/mockdata"
	"github.com/aretw0/statecraft/pkg/persistence"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/aretw0/statecraft/pkg/schema"
	"github.com/aretw0/statecraft/pkg/simulate"
)

// Machine ids accepted by Send and Snapshot.
const (
	MachineForm       = form.MachineID
	MachineNetwork    = network.MachineID
	MachineSync       = syncing.MachineID
	MachineNavigation = navigation.MachineID
	MachineToasts     = toast.MachineID
)

// FriendCount is the size of the generated contact list.
const FriendCount = 20

var machineOrder = []string{MachineForm, MachineNetwork, MachineSync, MachineNavigation, MachineToasts}

// Listener is called after a machine committed one or more transitions.
// Calls are coalesced: a listener sees the latest snapshot, not every step.
type Listener func(domain.Snapshot)

// System owns the singleton instances of the demo machines and wires them to
// persistence, lifecycle hooks and the simulators.
type System struct {
	Form       *form.Machine
	Network    *network.Machine
	Sync       *syncing.Machine
	Navigation *navigation.Machine
	Toasts     *toast.Manager

	logger    *slog.Logger
	clock     clock.Clock
	hooks     domain.LifecycleHooks
	generator *mockdata.Generator
	seed      uint64
	store     ports.SnapshotStore
	storeOpts []persistence.Option
	persist   *persistence.Manager
	netOpts   network.Options
	toastOpts toast.Options
	simOpts   simulate.Options
	remote    bool
	syncer    bool

	remoteEditor *simulate.RemoteEditor
	slowSyncer   *simulate.Syncer

	actors map[string]runtime.Actor
	saves  map[string]func(context.Context) bool

	friendsOnce sync.Once
	friends     []mockdata.Friend

	mu        sync.Mutex
	started   bool
	closed    bool
	dirty     map[string]bool
	listeners []Listener
	changed   chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
}

// Option defines a functional option for configuring the System.
type Option func(*System)

// WithLogger sets a custom structured logger for the system and its machines.
func WithLogger(logger *slog.Logger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

// WithClock sets the time source shared by every machine and simulator.
func WithClock(c clock.Clock) Option {
	return func(s *System) {
		s.clock = c
	}
}

// WithLifecycleHooks registers observability hooks on every machine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *System) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithStore enables persistence of the form, sync and navigation snapshots.
func WithStore(store ports.SnapshotStore, opts ...persistence.Option) Option {
	return func(s *System) {
		s.store = store
		s.storeOpts = opts
	}
}

// WithSeed makes generated data reproducible.
func WithSeed(seed uint64) Option {
	return func(s *System) {
		s.seed = seed
	}
}

// WithNetwork tunes the network machine delays.
func WithNetwork(opts network.Options) Option {
	return func(s *System) {
		s.netOpts = opts
	}
}

// WithToasts tunes notification defaults.
func WithToasts(opts toast.Options) Option {
	return func(s *System) {
		s.toastOpts = opts
	}
}

// WithSimulation enables the remote-edit and slow-sync simulators. Clock,
// Logger and Generator default to the system's own.
func WithSimulation(remoteEdits, syncer bool, opts simulate.Options) Option {
	return func(s *System) {
		s.remote = remoteEdits
		s.syncer = syncer
		s.simOpts = opts
	}
}

// New builds the machines. Nothing runs until Start.
func New(opts ...Option) *System {
	s := &System{
		dirty:   make(map[string]bool),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	s.generator = mockdata.New(s.seed)

	hooks := s.hooks.Merge(domain.LifecycleHooks{
		OnTransition: func(_ context.Context, ev *domain.TransitionEvent) { s.markKind(ev.Kind) },
		OnChildSpawned: func(_ context.Context, ev *domain.ChildEvent) {
			s.markKind(ev.Parent)
		},
		OnChildStopped: func(_ context.Context, ev *domain.ChildEvent) {
			s.markKind(ev.Parent)
		},
	})
	ropts := []runtime.Option{
		runtime.WithClock(s.clock),
		runtime.WithLogger(s.logger),
		runtime.WithHooks(hooks),
	}

	s.Form = form.New(s.generator.Fields(), ropts...)
	s.Network = network.New(s.netOpts, ropts...)
	s.Sync = syncing.New(s.generator, ropts...)
	s.Navigation = navigation.New(ropts...)
	s.Toasts = toast.New(s.toastOpts, ropts...)

	s.actors = map[string]runtime.Actor{
		MachineForm:       s.Form,
		MachineNetwork:    s.Network,
		MachineSync:       s.Sync,
		MachineNavigation: s.Navigation,
		MachineToasts:     s.Toasts,
	}

	if s.store != nil {
		popts := append([]persistence.Option{
			persistence.WithLogger(s.logger),
			persistence.WithClock(s.clock),
		}, s.storeOpts...)
		s.persist = persistence.NewManager(s.store, popts...)
		// Network and notifications always start fresh.
		s.saves = map[string]func(context.Context) bool{
			MachineForm: func(ctx context.Context) bool {
				return persistence.Persist(ctx, s.persist, s.Form.Instance)
			},
			MachineSync: func(ctx context.Context) bool {
				return persistence.Persist(ctx, s.persist, s.Sync.Instance)
			},
			MachineNavigation: func(ctx context.Context) bool {
				return persistence.Persist(ctx, s.persist, s.Navigation.Instance)
			},
		}
	}

	if s.remote || s.syncer {
		sim := s.simOpts
		if sim.Clock == nil {
			sim.Clock = s.clock
		}
		if sim.Logger == nil {
			sim.Logger = s.logger
		}
		if sim.Generator == nil {
			sim.Generator = s.generator
		}
		if s.remote {
			s.remoteEditor = simulate.NewRemoteEditor(s.Network, s.Form, sim)
		}
		if s.syncer {
			s.slowSyncer = simulate.NewSyncer(s.Network, s.Sync, sim)
		}
	}
	return s
}

// Start restores persisted snapshots, starts every machine and then the
// simulators. Calling Start twice is a no-op.
func (s *System) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	if s.persist != nil {
		persistence.Restore(ctx, s.persist, s.Form.Instance)
		persistence.Restore(ctx, s.persist, s.Sync.Instance)
		persistence.Restore(ctx, s.persist, s.Navigation.Instance)
	}
	for _, id := range machineOrder {
		s.actors[id].Start()
	}

	s.wg.Add(1)
	go s.loop()

	if s.remoteEditor != nil {
		s.remoteEditor.Start()
	}
	if s.slowSyncer != nil {
		s.slowSyncer.Start()
	}
	s.logger.Info("System started", "machines", len(s.actors), "persistent", s.persist != nil)
}

// Send delivers ev to machine and returns the snapshot after processing.
// Payloads of known events are validated and their strings sanitized first;
// a rejected event wraps domain.ErrInvalidEvent. Persisted machines are saved
// before Send returns.
func (s *System) Send(ctx context.Context, machine string, ev domain.Event) (domain.Snapshot, error) {
	actor, ok := s.actors[machine]
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: %q", domain.ErrUnknownMachine, machine)
	}
	ev, err := checkEvent(machine, ev)
	if err != nil {
		return domain.Snapshot{}, err
	}

	actor.SendContext(ctx, ev)
	if save, ok := s.saves[machine]; ok {
		save(ctx)
	}
	return actor.View(), nil
}

// Snapshot returns the current view of machine.
func (s *System) Snapshot(machine string) (domain.Snapshot, error) {
	actor, ok := s.actors[machine]
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: %q", domain.ErrUnknownMachine, machine)
	}
	return actor.View(), nil
}

// Machines returns the machine ids in a stable order.
func (s *System) Machines() []string {
	return append([]string(nil), machineOrder...)
}

// Snapshots returns the view of every machine in the order of Machines.
func (s *System) Snapshots() []domain.Snapshot {
	out := make([]domain.Snapshot, len(machineOrder))
	for k, id := range machineOrder {
		out[k] = s.actors[id].View()
	}
	return out
}

// Graph describes the definition of machine. The notification child is
// available under "toast".
func (s *System) Graph(machine string) (domain.MachineGraph, error) {
	switch machine {
	case MachineForm:
		return s.Form.Graph(), nil
	case MachineNetwork:
		return s.Network.Graph(), nil
	case MachineSync:
		return s.Sync.Graph(), nil
	case MachineNavigation:
		return s.Navigation.Graph(), nil
	case MachineToasts:
		return s.Toasts.Graph(), nil
	case toast.ChildMachineID:
		opts := s.toastOpts
		if opts.DefaultDuration <= 0 {
			opts.DefaultDuration = toast.DefaultDuration
		}
		if opts.Hide <= 0 {
			opts.Hide = toast.DefaultHide
		}
		t := toast.Toast{Duration: int(opts.DefaultDuration / time.Millisecond)}
		return toast.ChildDefinition(t, opts.Hide).Graph(), nil
	}
	return domain.MachineGraph{}, fmt.Errorf("%w: %q", domain.ErrUnknownMachine, machine)
}

// Graphs describes every definition, the notification child last.
func (s *System) Graphs() []domain.MachineGraph {
	out := make([]domain.MachineGraph, 0, len(machineOrder)+1)
	for _, id := range append(s.Machines(), toast.ChildMachineID) {
		g, _ := s.Graph(id)
		out = append(out, g)
	}
	return out
}

// Notify shows a notification and returns its id. Control characters are
// stripped from the message.
func (s *System) Notify(t toast.Toast) string {
	if clean, err := schema.SanitizeInput(t.Message); err == nil {
		t.Message = clean
	} else {
		s.logger.Warn("Notification message kept unsanitized", "error", err)
	}
	return s.Toasts.Notify(t)
}

// Notifications returns the live notifications in the order they were added.
func (s *System) Notifications() []toast.Item {
	return s.Toasts.Toasts()
}

// Friends returns the generated contact list with its message threads. It is
// built on first use from its own generator, so it never shifts the data the
// machines draw. The result is shared and must not be modified.
func (s *System) Friends() []mockdata.Friend {
	s.friendsOnce.Do(func() {
		s.friends = mockdata.New(s.seed).Friends(FriendCount, s.clock.Now())
	})
	return s.friends
}

// Friend returns one contact by id.
func (s *System) Friend(id string) (mockdata.Friend, bool) {
	for _, f := range s.Friends() {
		if f.ID == id {
			return f, true
		}
	}
	return mockdata.Friend{}, false
}

// OnChange registers a listener for snapshot changes.
func (s *System) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Persistence returns the snapshot manager, or nil when no store is set.
func (s *System) Persistence() *persistence.Manager {
	return s.persist
}

// Close stops the simulators and every machine, flushes pending changes and
// waits for the change loop to exit.
func (s *System) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	if s.remoteEditor != nil {
		s.remoteEditor.Stop()
	}
	if s.slowSyncer != nil {
		s.slowSyncer.Stop()
	}
	for _, id := range machineOrder {
		s.actors[id].Stop()
	}

	close(s.done)
	if started {
		s.wg.Wait()
	}
	s.logger.Info("System closed")
}

// markKind records a change reported by a hook. Hooks run under the
// instance lock, so it only flags the machine and never blocks.
func (s *System) markKind(kind string) {
	if kind == toast.ChildMachineID {
		kind = MachineToasts
	}
	if _, ok := s.actors[kind]; !ok {
		return
	}
	s.mu.Lock()
	s.dirty[kind] = true
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *System) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.changed:
			s.flush(context.Background())
		case <-s.done:
			s.flush(context.Background())
			return
		}
	}
}

// flush persists and announces every machine flagged since the last call.
func (s *System) flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return
	}
	dirty := s.dirty
	s.dirty = make(map[string]bool)
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, id := range machineOrder {
		if !dirty[id] {
			continue
		}
		if save, ok := s.saves[id]; ok {
			save(ctx)
		}
		view := s.actors[id].View()
		for _, l := range listeners {
			l(view)
		}
	}
}
