package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/cli"
	"github.com/aretw0/statecraft/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Watch the machines on a live terminal board",
	Long: `Connects the network, starts the remote-edit and sync simulators and
prints a status board of every machine until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		duration, _ := cmd.Flags().GetDuration("duration")
		tour, _ := cmd.Flags().GetBool("tour")

		rt, _, err := newRuntime(cmd, os.Stderr, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		out := cmd.OutOrStdout()
		interactive := tui.IsTerminal(out)
		if interactive {
			tui.PrintBanner(out, strings.TrimSpace(statecraft.Version))
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()
		rt.System.Start(sigCtx)

		err = cli.RunDemo(sigCtx, rt.System, cli.DemoOptions{
			Interval: interval,
			Duration: duration,
			Tour:     tour,
			Clear:    interactive,
			Out:      out,
			Render:   tui.NewRenderer(tui.TerminalWidth(out)),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.StopMessage(sigCtx.Signal()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().Duration("interval", 0, "Board refresh period (default 1s)")
	demoCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	demoCmd.Flags().Bool("tour", false, "Advance one slide per refresh")
}
