package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <machine> <event>",
	Short: "Send one event and print the resulting snapshot",
	Long: `Starts the machines, restores their snapshots from the configured store,
sends a single event and prints the snapshot as JSON. With a file or redis
store, successive invocations continue from the saved state.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("payload")
		ev, err := parseEvent(args[1], raw)
		if err != nil {
			return err
		}

		rt, _, err := newRuntime(cmd, cmd.ErrOrStderr(), false)
		if err != nil {
			return err
		}
		defer rt.Close()
		rt.System.Start(cmd.Context())

		snap, err := rt.System.Send(cmd.Context(), args[0], ev)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), snap)
	},
}

func parseEvent(eventType, payload string) (domain.Event, error) {
	ev := domain.Event{Type: eventType}
	if payload == "" {
		return ev, nil
	}
	if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
		return ev, fmt.Errorf("%w: payload must be a JSON object: %v", domain.ErrInvalidEvent, err)
	}
	return ev, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringP("payload", "p", "", `Event payload as a JSON object, e.g. '{"delay":200}'`)
}
