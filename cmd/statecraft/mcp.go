package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/statecraft/internal/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the machines as an MCP Server so that AI agents can inspect them
and send events as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		simulated, _ := cmd.Flags().GetBool("simulate")

		// Stdout carries JSON-RPC; every log goes to Stderr.
		log.SetOutput(os.Stderr)
		rt, _, err := newRuntime(cmd, os.Stderr, simulated)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		rt.System.Start(ctx)

		srv := mcp.NewServer(rt.System, rt.Logger)

		switch transport {
		case "stdio":
			rt.Logger.Info("Starting Statecraft MCP Server (Stdio)")
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP Server execution failed: %w", err)
			}
		case "sse":
			rt.Logger.Info("Starting Statecraft MCP Server (SSE)", "port", port)
			addr := fmt.Sprintf(":%d", port)
			if err := srv.ServeSSE(ctx, addr, fmt.Sprintf("http://localhost:%d", port)); err != nil {
				return fmt.Errorf("MCP Server execution failed: %w", err)
			}
			rt.Logger.Info("MCP Server stopped gracefully")
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().Bool("simulate", false, "Run the remote-edit and sync simulators")
}
