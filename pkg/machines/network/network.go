// Package network models connectivity: disconnected, connecting and connected,
// with the connecting phase completing after a configurable delay.
package network

import (
	"time"

	"github.com/aretw0/statecraft/internal/runtime"
	"github.com/aretw0/statecraft/pkg/domain"
)

const (
	MachineID = "network"

	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"

	EventConnect    = "CONNECT"
	EventDisconnect = "DISCONNECT"

	// BaselineDelay is the delay held in a fresh context.
	BaselineDelay = 500 * time.Millisecond
	// DefaultConnectDelay applies to CONNECT events that carry no delay.
	DefaultConnectDelay = 800 * time.Millisecond
)

// Context is the network machine context.
type Context struct {
	// ConnectionDelay is how long the connecting phase lasts, in milliseconds.
	ConnectionDelay int `json:"connectionDelay"`
}

// Delay returns ConnectionDelay as a duration.
func (c Context) Delay() time.Duration {
	return time.Duration(c.ConnectionDelay) * time.Millisecond
}

// Options tunes the machine delays.
type Options struct {
	Baseline     time.Duration
	ConnectDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Baseline <= 0 {
		o.Baseline = BaselineDelay
	}
	if o.ConnectDelay <= 0 {
		o.ConnectDelay = DefaultConnectDelay
	}
	return o
}

type connectPayload struct {
	// Delay in milliseconds; nil means the default.
	Delay *int `json:"delay"`
}

// Connect builds a CONNECT event using the default delay.
func Connect() domain.Event {
	return domain.NewEvent(EventConnect, nil)
}

// ConnectAfter builds a CONNECT event with an explicit delay.
func ConnectAfter(d time.Duration) domain.Event {
	return domain.NewEvent(EventConnect, map[string]any{"delay": int(d / time.Millisecond)})
}

// Disconnect builds a DISCONNECT event.
func Disconnect() domain.Event {
	return domain.NewEvent(EventDisconnect, nil)
}

// Definition returns the network machine.
func Definition(opts Options) *runtime.Definition[Context] {
	opts = opts.withDefaults()

	setDelay := func(c Context, ev domain.Event, s *runtime.Scope) Context {
		var p connectPayload
		if err := ev.Decode(&p); err != nil {
			s.Logger().Warn("Ignoring malformed connect delay", "err", err)
		}
		if p.Delay != nil && *p.Delay >= 0 {
			c.ConnectionDelay = *p.Delay
		} else {
			c.ConnectionDelay = int(opts.ConnectDelay / time.Millisecond)
		}
		return c
	}

	return &runtime.Definition[Context]{
		ID:      MachineID,
		Initial: StateDisconnected,
		Context: func() Context {
			return Context{ConnectionDelay: int(opts.Baseline / time.Millisecond)}
		},
		States: map[string]runtime.StateNode[Context]{
			StateDisconnected: {
				On: map[string]runtime.Transition[Context]{
					EventConnect: {Target: StateConnecting, Actions: []runtime.Action[Context]{setDelay}},
				},
			},
			StateConnecting: {
				After: &runtime.Delayed[Context]{
					Delay:  Context.Delay,
					Target: StateConnected,
				},
				On: map[string]runtime.Transition[Context]{
					EventDisconnect: {Target: StateDisconnected},
				},
			},
			StateConnected: {
				On: map[string]runtime.Transition[Context]{
					EventDisconnect: {Target: StateDisconnected},
				},
			},
		},
	}
}

// Machine is a running network instance.
type Machine struct {
	*runtime.Instance[Context]
}

// New creates a network machine.
func New(opts Options, ropts ...runtime.Option) *Machine {
	return &Machine{Instance: runtime.New(Definition(opts), ropts...)}
}

// Connected reports whether the machine is connected.
func (m *Machine) Connected() bool {
	return m.Snapshot().State == StateConnected
}
