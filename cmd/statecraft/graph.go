package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/presentation/graph"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [machine]",
	Short: "Export machine definitions as graphs",
	Long: `Outputs a Mermaid flowchart (graph TD) of a machine definition, or of
every machine when none is named. Use "toast" for the notification child.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		sys := statecraft.New()
		defer sys.Close()

		var graphs []domain.MachineGraph
		if len(args) == 1 {
			g, err := sys.Graph(args[0])
			if err != nil {
				return err
			}
			graphs = append(graphs, g)
		} else {
			graphs = sys.Graphs()
		}
		return writeGraphs(cmd.OutOrStdout(), graphs, format)
	},
}

func writeGraphs(w io.Writer, graphs []domain.MachineGraph, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(graphs) == 1 {
			return enc.Encode(graphs[0])
		}
		return enc.Encode(graphs)
	case "mermaid", "":
		for i, g := range graphs {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%%%% %s\n", g.ID)
			fmt.Fprint(w, graph.GenerateMermaid(g, nil))
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want mermaid or json)", format)
	}
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or json")
}
