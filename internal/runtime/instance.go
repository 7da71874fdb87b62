package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/domain"
)

// maxMicrosteps bounds the chain of always transitions settled after one event.
const maxMicrosteps = 64

// Actor is the type-erased view of an instance used by supervisors and adapters.
type Actor interface {
	ID() string
	Start()
	Send(ev domain.Event)
	SendContext(ctx context.Context, ev domain.Event)
	View() domain.Snapshot
	Stop()
	Done() bool
	OnDone(fn func())
}

// Snapshot is the typed, read-only projection of an instance.
type Snapshot[C any] struct {
	State   string
	Context C
	Done    bool
}

// Matches reports whether the snapshot is in state or nested below it.
func (s Snapshot[C]) Matches(state string) bool {
	return domain.MatchesState(s.State, state)
}

type armedTimer struct {
	token uint64
	timer clock.Timer
	delay time.Duration
}

// Instance is a live machine. All mutation happens under mu, and hooks run with
// mu held so they must not call back into the instance. Work that touches
// other instances is queued in the outbox and run after mu is released, so an
// instance never holds its own lock while waiting on another one's, except for
// a parent force-stopping its children.
type Instance[C any] struct {
	def      *Definition[C]
	id       string
	clock    clock.Clock
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	children *Supervisor

	mu      sync.Mutex
	state   string
	ctx     C
	started bool
	stopped bool
	done    bool
	seq     uint64
	timers  map[string]armedTimer
	queue   []domain.Event
	outbox  []func()
	onDone  []func()
}

var _ Actor = (*Instance[struct{}])(nil)

// Option configures an Instance.
type Option func(*settings)

type settings struct {
	id     string
	clock  clock.Clock
	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// WithID overrides the instance id (defaults to the definition id).
func WithID(id string) Option {
	return func(s *settings) {
		s.id = id
	}
}

// WithClock sets the time source used for delayed transitions.
func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = hooks
	}
}

// New creates an instance of def positioned at its initial state with a fresh
// context. Nothing runs until Start or the first Send.
func New[C any](def *Definition[C], opts ...Option) *Instance[C] {
	cfg := settings{id: def.ID}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}

	i := &Instance[C]{
		def:    def,
		id:     cfg.id,
		clock:  cfg.clock,
		logger: cfg.logger.With("machine", cfg.id),
		hooks:  cfg.hooks,
		state:  def.Initial,
		ctx:    def.Context(),
		timers: make(map[string]armedTimer),
	}
	i.children = newSupervisor(i.id, i.SendContext, i.clock, i.logger, i.hooks)
	return i
}

// ID returns the instance id.
func (i *Instance[C]) ID() string {
	return i.id
}

// Children returns the supervisor owning this instance's spawned children.
func (i *Instance[C]) Children() *Supervisor {
	return i.children
}

// Restore replaces the starting state and context with a persisted pair. It
// reports false and leaves the instance untouched when the instance already
// started or state is not declared.
func (i *Instance[C]) Restore(state string, ctx C) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.started {
		return false
	}
	leaf, err := i.def.resolve(state)
	if err != nil {
		i.logger.Warn("Ignoring restored state", "state", state, "err", err)
		return false
	}
	i.state = leaf
	i.ctx = ctx
	return true
}

// Start enters the current state: entry actions run, delayed transitions are
// armed and always transitions settle. Calling Start twice is a no-op.
func (i *Instance[C]) Start() {
	i.mu.Lock()
	i.start(context.Background())
	out := i.takeOutbox()
	i.mu.Unlock()
	run(out)
}

func (i *Instance[C]) start(ctx context.Context) {
	if i.started || i.stopped {
		return
	}
	i.started = true

	leaf, err := i.def.resolve(i.state)
	if err != nil {
		i.logger.Error("Cannot start instance", "state", i.state, "err", err)
		i.stopped = true
		return
	}
	i.state = leaf

	ev := domain.Event{Type: "init"}
	lin := lineage(leaf)
	for k := len(lin) - 1; k >= 0; k-- {
		i.enter(ctx, lin[k], ev)
	}
	i.logger.Debug("Instance started", "state", i.state)
	if i.def.States[i.state].Final {
		i.finish()
		return
	}
	i.settle(ctx)
	i.drain(ctx)
}

// Send delivers ev and returns once it and everything it caused has been
// processed. Events with no matching transition are dropped.
func (i *Instance[C]) Send(ev domain.Event) {
	i.SendContext(context.Background(), ev)
}

// SendContext is Send with a context passed through to actions and hooks.
func (i *Instance[C]) SendContext(ctx context.Context, ev domain.Event) {
	i.mu.Lock()
	if !i.started {
		i.start(ctx)
	}
	if i.stopped {
		i.mu.Unlock()
		i.logger.Debug("Event sent to stopped instance", "event", ev.Type)
		return
	}
	i.queue = append(i.queue, ev)
	i.drain(ctx)
	out := i.takeOutbox()
	i.mu.Unlock()
	run(out)
}

// Snapshot returns the current state and context.
func (i *Instance[C]) Snapshot() Snapshot[C] {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Snapshot[C]{State: i.state, Context: i.ctx, Done: i.done}
}

// View returns the untyped snapshot, including the views of live children.
func (i *Instance[C]) View() domain.Snapshot {
	snap := i.Snapshot()
	return domain.Snapshot{
		Machine:  i.id,
		State:    snap.State,
		Context:  snap.Context,
		Done:     snap.Done,
		Children: i.children.Views(),
	}
}

// Done reports whether the instance reached a final state.
func (i *Instance[C]) Done() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.done
}

// OnDone registers fn to run once when the instance reaches a final state.
// It is not called when the instance is stopped with Stop.
func (i *Instance[C]) OnDone(fn func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onDone = append(i.onDone, fn)
}

// Stop discards the instance: pending timers are cancelled, children are
// stopped and later events are ignored. OnDone callbacks do not run.
func (i *Instance[C]) Stop() {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		return
	}
	i.stopped = true
	i.cancelAll()
	i.queue = nil
	i.outbox = nil
	i.logger.Debug("Instance stopped", "state", i.state)
	i.mu.Unlock()

	i.children.StopAll()
}

// PendingTimers returns the states that currently have an armed delayed transition.
func (i *Instance[C]) PendingTimers() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, 0, len(i.timers))
	for name := range i.timers {
		out = append(out, name)
	}
	return out
}

// drain processes queued events until the queue is empty or the instance stops.
// Must be called with i.mu held.
func (i *Instance[C]) drain(ctx context.Context) {
	for len(i.queue) > 0 && !i.stopped {
		ev := i.queue[0]
		i.queue = i.queue[1:]
		i.step(ctx, ev)
	}
}

func (i *Instance[C]) step(ctx context.Context, ev domain.Event) {
	t, ok := i.def.lookup(i.state, i.ctx, ev)
	if !ok {
		i.logger.Debug("Event dropped", "state", i.state, "event", ev.Type)
		if i.hooks.OnEventDropped != nil {
			i.hooks.OnEventDropped(ctx, &domain.DroppedEvent{
				Timestamp: i.clock.Now(),
				Machine:   i.id,
				Kind:      i.def.ID,
				State:     i.state,
				Event:     ev.Type,
			})
		}
		return
	}
	i.commit(ctx, ev, t.Target, t.Actions)
	i.settle(ctx)
}

// commit applies one transition. Must be called with i.mu held.
func (i *Instance[C]) commit(ctx context.Context, ev domain.Event, target string, actions []Action[C]) {
	from := i.state

	if target == "" {
		i.apply(ctx, ev, actions)
		i.transitioned(ctx, from, ev)
		return
	}

	to, err := i.def.resolve(target)
	if err != nil {
		i.logger.Error("Transition to unknown state", "from", from, "target", target, "event", ev.Type, "err", err)
		return
	}

	exits, entries := path(from, to)
	for _, name := range exits {
		i.exit(ctx, name, ev)
	}
	i.apply(ctx, ev, actions)
	i.state = to
	for _, name := range entries {
		i.enter(ctx, name, ev)
	}
	i.transitioned(ctx, from, ev)

	if i.def.States[to].Final {
		i.finish()
	}
}

func (i *Instance[C]) transitioned(ctx context.Context, from string, ev domain.Event) {
	i.logger.Debug("Transition", "from", from, "to", i.state, "event", ev.Type)
	if i.hooks.OnTransition != nil {
		i.hooks.OnTransition(ctx, &domain.TransitionEvent{
			Timestamp: i.clock.Now(),
			Machine:   i.id,
			Kind:      i.def.ID,
			From:      from,
			To:        i.state,
			Event:     ev.Type,
		})
	}
}

// settle fires always transitions until none applies.
func (i *Instance[C]) settle(ctx context.Context) {
	for n := 0; n < maxMicrosteps; n++ {
		if i.stopped {
			return
		}
		t, ok := i.always()
		if !ok {
			return
		}
		i.commit(ctx, domain.Event{Type: "always"}, t.Target, t.Actions)
	}
	i.logger.Error("Always transitions did not settle", "state", i.state, "limit", maxMicrosteps)
}

func (i *Instance[C]) always() (Transition[C], bool) {
	ev := domain.Event{Type: "always"}
	for _, name := range lineage(i.state) {
		for _, t := range i.def.States[name].Always {
			if t.Guard == nil || t.Guard(i.ctx, ev) {
				return t, true
			}
		}
	}
	return Transition[C]{}, false
}

func (i *Instance[C]) apply(ctx context.Context, ev domain.Event, actions []Action[C]) {
	if len(actions) == 0 {
		return
	}
	scope := i.scope(ctx)
	for _, a := range actions {
		i.ctx = a(i.ctx, ev, scope)
	}
}

func (i *Instance[C]) enter(ctx context.Context, name string, ev domain.Event) {
	node := i.def.States[name]
	i.apply(ctx, ev, node.Entry)
	if node.After != nil {
		i.arm(name, node.After)
	}
}

func (i *Instance[C]) exit(ctx context.Context, name string, ev domain.Event) {
	i.cancel(name)
	i.apply(ctx, ev, i.def.States[name].Exit)
}

func (i *Instance[C]) arm(name string, after *Delayed[C]) {
	i.cancel(name)
	i.seq++
	token := i.seq
	d := after.Delay(i.ctx)
	t := i.clock.AfterFunc(d, func() { i.fire(name, token) })
	i.timers[name] = armedTimer{token: token, timer: t, delay: d}
	i.logger.Debug("Timer armed", "state", name, "delay", d)
}

func (i *Instance[C]) cancel(name string) {
	if at, ok := i.timers[name]; ok {
		at.timer.Stop()
		delete(i.timers, name)
	}
}

func (i *Instance[C]) cancelAll() {
	for name := range i.timers {
		i.cancel(name)
	}
}

// fire runs a delayed transition if the timer is still the live one for a
// state the instance is still in.
func (i *Instance[C]) fire(name string, token uint64) {
	ctx := context.Background()

	i.mu.Lock()
	at, ok := i.timers[name]
	if i.stopped || !ok || at.token != token || !domain.MatchesState(i.state, name) {
		i.mu.Unlock()
		i.logger.Debug("Stale timer ignored", "state", name)
		return
	}
	delete(i.timers, name)

	if i.hooks.OnTimerFired != nil {
		i.hooks.OnTimerFired(ctx, &domain.TimerEvent{
			Timestamp: i.clock.Now(),
			Machine:   i.id,
			Kind:      i.def.ID,
			State:     name,
			Delay:     at.delay,
		})
	}

	after := i.def.States[name].After
	i.commit(ctx, domain.Event{Type: "after:" + name}, after.Target, after.Actions)
	i.settle(ctx)
	i.drain(ctx)
	out := i.takeOutbox()
	i.mu.Unlock()
	run(out)
}

// finish marks the instance done and schedules the OnDone callbacks.
func (i *Instance[C]) finish() {
	i.done = true
	i.stopped = true
	i.cancelAll()
	i.queue = nil
	i.outbox = append(i.outbox, i.onDone...)
	i.onDone = nil
	i.logger.Debug("Instance reached final state", "state", i.state)
}

func (i *Instance[C]) takeOutbox() []func() {
	out := i.outbox
	i.outbox = nil
	return out
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// path returns the states exited (leaf first) and entered (root first) when
// moving from one leaf to another. A self transition exits and re-enters the leaf.
func path(from, to string) (exits, entries []string) {
	if from == to {
		return []string{from}, []string{to}
	}

	fromLin := lineage(from)
	toLin := lineage(to)

	inTo := make(map[string]bool, len(toLin))
	for _, s := range toLin {
		inTo[s] = true
	}
	inFrom := make(map[string]bool, len(fromLin))
	for _, s := range fromLin {
		inFrom[s] = true
	}

	for _, s := range fromLin {
		if !inTo[s] {
			exits = append(exits, s)
		}
	}
	for k := len(toLin) - 1; k >= 0; k-- {
		if !inFrom[toLin[k]] {
			entries = append(entries, toLin[k])
		}
	}
	return exits, entries
}
