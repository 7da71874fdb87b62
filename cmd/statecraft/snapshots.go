package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/statecraft/internal/cli"
	"github.com/spf13/cobra"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage persisted machine snapshots",
	Long:  `List, inspect and remove the snapshots kept by the file or redis store.`,
}

var snapshotsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openDurableStore(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		keys, err := backend.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing snapshots: %w", err)
		}
		if len(keys) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
			return nil
		}
		sort.Strings(keys)
		fmt.Fprintln(cmd.OutOrStdout(), "Snapshots:")
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), "- " + k)
		}
		return nil
	},
}

var snapshotsInspectCmd = &cobra.Command{
	Use:   "inspect <machine>",
	Short: "Print a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openDurableStore(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		rec, err := backend.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading snapshot '%s': %w", args[0], err)
		}
		return writeJSON(cmd.OutOrStdout(), rec)
	},
}

var snapshotsRmCmd = &cobra.Command{
	Use:   "rm [machine...]",
	Short: "Remove stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("name at least one machine or pass --all")
		}

		backend, err := openDurableStore(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		keys := args
		if all {
			if keys, err = backend.Store.List(cmd.Context()); err != nil {
				return fmt.Errorf("error listing snapshots: %w", err)
			}
		}

		var errs []error
		for _, key := range keys {
			if err := backend.Store.Delete(cmd.Context(), key); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", key, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed snapshot '%s'\n", key)
		}
		return errors.Join(errs...)
	},
}

func openDurableStore(cmd *cobra.Command) (*cli.Backend, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	switch cfg.Store.Backend {
	case "file", "redis":
	default:
		return nil, fmt.Errorf("store backend %q keeps no snapshots between runs", cfg.Store.Backend)
	}
	return cli.OpenStore(cfg.Store)
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsLsCmd)
	snapshotsCmd.AddCommand(snapshotsInspectCmd)
	snapshotsCmd.AddCommand(snapshotsRmCmd)
	snapshotsRmCmd.Flags().Bool("all", false, "Remove every snapshot")
}
