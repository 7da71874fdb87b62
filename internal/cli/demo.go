package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/presentation/tui"
	"github.com/aretw0/statecraft/pkg/machines/navigation"
	"github.com/aretw0/statecraft/pkg/machines/network"
	"github.com/muesli/termenv"
)

// DemoOptions configures RunDemo.
type DemoOptions struct {
	// Interval is the refresh period of the status board.
	Interval time.Duration
	// Duration ends the demo after that long. Zero runs until ctx is done.
	Duration time.Duration
	// Tour advances one slide per refresh.
	Tour bool
	// Clear wipes the screen before each frame.
	Clear  bool
	Out    io.Writer
	Render func(string) (string, error)
}

// RunDemo connects the network and prints the status board of sys every
// Interval. sys must already be started.
func RunDemo(ctx context.Context, sys *statecraft.System, opts DemoOptions) error {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Render == nil {
		opts.Render = func(s string) (string, error) { return s, nil }
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}
	screen := termenv.NewOutput(opts.Out)

	if _, err := sys.Send(ctx, statecraft.MachineNetwork, network.Connect()); err != nil {
		return err
	}
	sys.Toasts.Info("Demo started")
	printSystemMessage(opts.Out, "Connecting...")

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if opts.Tour {
			if _, err := sys.Send(ctx, statecraft.MachineNavigation, navigation.Next()); err != nil {
				return err
			}
		}

		frame, err := opts.Render(tui.StatusMarkdown(sys))
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if opts.Clear {
			screen.ClearScreen()
		}
		fmt.Fprint(opts.Out, frame)
	}
}
