package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/cli"
	"github.com/aretw0/statecraft/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "statecraft",
	Short: "Statecraft runs a set of interactive state machines",
	Long: `Statecraft hosts the form, network, sync, navigation and toast machines
and exposes them through a terminal board, an HTTP API and an MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "statecraft.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().Uint64("seed", 0, "Seed for generated data (0 picks a random one)")
	rootCmd.PersistentFlags().String("store", "", "Snapshot store: none, memory, file or redis")
}

// loadConfig reads the configuration file and applies environment and flag
// overrides on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Backend = v
	}
	return cfg, cfg.Validate()
}

// newRuntime loads the configuration and builds a runtime whose logs go to
// logOut. simulated enables the simulators configured in the simulate section.
func newRuntime(cmd *cobra.Command, logOut io.Writer, simulated bool) (*cli.Runtime, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	var extra []statecraft.Option
	if simulated {
		extra = append(extra, cli.Simulation(cfg.Simulate))
	}
	logger, err := cli.NewLogger(cfg.Log, logOut)
	if err != nil {
		return nil, cfg, err
	}
	rt, err := cli.NewRuntime(cfg, logger, extra...)
	if err != nil {
		return nil, cfg, fmt.Errorf("error initializing statecraft: %w", err)
	}
	return rt, cfg, nil
}
