package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/statecraft"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of statecraft",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "statecraft version %s\n", strings.TrimSpace(statecraft.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
