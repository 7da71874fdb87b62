// Package simulate drives the demo machines the way remote collaborators and a
// slow server would: remote form edits while connected, and documents synced
// one at a time.
package simulate

import (
	"log/slog"
	"time"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/mockdata"
)

const (
	DefaultMinDelay     = time.Second
	DefaultMaxDelay     = 3 * time.Second
	DefaultWarmup       = 300 * time.Millisecond
	DefaultPollInterval = 100 * time.Millisecond
)

// Options configures the simulators.
type Options struct {
	Clock     clock.Clock
	Logger    *slog.Logger
	Generator *mockdata.Generator
	// MinDelay and MaxDelay bound the random pause between simulated actions.
	MinDelay time.Duration
	MaxDelay time.Duration
	// Warmup is the pause before the syncer starts on a new batch.
	Warmup time.Duration
	// PollInterval is how often the syncer inspects the machines.
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Generator == nil {
		o.Generator = mockdata.New(0)
	}
	if o.MinDelay <= 0 {
		o.MinDelay = DefaultMinDelay
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = max(DefaultMaxDelay, o.MinDelay)
	}
	if o.Warmup <= 0 {
		o.Warmup = DefaultWarmup
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}
