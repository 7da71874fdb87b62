package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/presentation/graph"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/toast"
	"github.com/aretw0/statecraft/pkg/mockdata"
	"github.com/aretw0/statecraft/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// System defines what the MCP server needs from the machine runtime.
type System interface {
	Machines() []string
	Snapshots() []domain.Snapshot
	Snapshot(machine string) (domain.Snapshot, error)
	Send(ctx context.Context, machine string, ev domain.Event) (domain.Snapshot, error)
	Graph(machine string) (domain.MachineGraph, error)
	Events(machine string) (map[string]schema.Schema, error)
	Notify(t toast.Toast) string
	Friends() []mockdata.Friend
}

// SnapshotArgs selects one machine.
type SnapshotArgs struct {
	Machine string `json:"machine"`
}

// SendEventArgs is the input of the send_event tool. Payload is a JSON object
// encoded as a string.
type SendEventArgs struct {
	Machine string `json:"machine"`
	Type    string `json:"type"`
	Payload string `json:"payload,omitempty"`
}

// NotifyArgs is the input of the notify tool.
type NotifyArgs struct {
	Message  string `json:"message"`
	Type     string `json:"type,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// NotifyResponse carries the id of the created notification.
type NotifyResponse struct {
	ID string `json:"id" jsonschema_description:"Notification id, usable with DISMISS_TOAST"`
}

// SnapshotResponse is the structured result of get_snapshot and send_event.
// Children are flattened to plain JSON objects so the output schema stays
// finite.
type SnapshotResponse struct {
	Machine  string           `json:"machine"`
	State    string           `json:"state"`
	Context  any              `json:"context"`
	Done     bool             `json:"done,omitempty"`
	Children []map[string]any `json:"children,omitempty"`
}

func newSnapshotResponse(snap domain.Snapshot) (SnapshotResponse, error) {
	resp := SnapshotResponse{
		Machine: snap.Machine,
		State:   snap.State,
		Context: snap.Context,
		Done:    snap.Done,
	}
	for _, child := range snap.Children {
		data, err := json.Marshal(child)
		if err != nil {
			return SnapshotResponse{}, fmt.Errorf("failed to encode child %s: %w", child.Machine, err)
		}
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return SnapshotResponse{}, fmt.Errorf("failed to encode child %s: %w", child.Machine, err)
		}
		resp.Children = append(resp.Children, obj)
	}
	return resp, nil
}

// Server exposes a System as an MCP server.
type Server struct {
	system    System
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(system System, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Server{
		system: system,
		logger: logger,
		mcpServer: server.NewMCPServer("statecraft-mcp", strings.TrimSpace(statecraft.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.SSEHandler(baseURL),
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// SSEHandler mounts the SSE stream on /sse and the message endpoint on
// /message. baseURL is what clients are told to post to.
func (s *Server) SSEHandler(baseURL string) http.Handler {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))
	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	return mux
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_machines",
		mcp.WithDescription("List every machine with its current state and context."),
	), s.handleListMachines)

	s.mcpServer.AddTool(mcp.NewTool("get_snapshot",
		mcp.WithDescription("Get the current snapshot of one machine."),
		mcp.WithString("machine", mcp.Required(), mcp.Description("Machine id: form, network, syncing, navigation or toasts")),
		mcp.WithOutputSchema[SnapshotResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetSnapshot))

	s.mcpServer.AddTool(mcp.NewTool("list_events",
		mcp.WithDescription("List the events a machine handles and the payload each one takes. A trailing ? marks an optional key."),
		mcp.WithString("machine", mcp.Required(), mcp.Description("Machine id")),
	), s.handleListEvents)

	s.mcpServer.AddTool(mcp.NewTool("send_event",
		mcp.WithDescription("Send an event to a machine and return its snapshot once processed. Events the current state does not handle are ignored."),
		mcp.WithString("machine", mcp.Required(), mcp.Description("Machine id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Event type, e.g. CONNECT, NEXT, UPDATE_FIELD")),
		mcp.WithString("payload", mcp.Description("JSON object with the event payload (optional)")),
		mcp.WithOutputSchema[SnapshotResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendEvent))

	s.mcpServer.AddTool(mcp.NewTool("notify",
		mcp.WithDescription("Show a notification that hides itself after its duration."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Notification text")),
		mcp.WithString("type", mcp.Description("Severity"), mcp.Enum("success", "error", "info", "warning")),
		mcp.WithNumber("duration", mcp.Description("Display time in milliseconds (optional)")),
		mcp.WithOutputSchema[NotifyResponse](),
	), mcp.NewStructuredToolHandler(s.handleNotify))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render a machine definition as a Mermaid flowchart, highlighting its current state."),
		mcp.WithString("machine", mcp.Required(), mcp.Description("Machine id, or toast for the notification child")),
	), s.handleGetGraph)
}

func (s *Server) handleListMachines(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(s.system.Snapshots())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	machine, err := request.RequireString("machine")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	events, err := s.system.Events(machine)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, err := json.Marshal(events)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetSnapshot(ctx context.Context, request mcp.CallToolRequest, args SnapshotArgs) (SnapshotResponse, error) {
	snap, err := s.system.Snapshot(args.Machine)
	if err != nil {
		return SnapshotResponse{}, err
	}
	return newSnapshotResponse(snap)
}

func (s *Server) handleSendEvent(ctx context.Context, request mcp.CallToolRequest, args SendEventArgs) (SnapshotResponse, error) {
	ev := domain.Event{Type: args.Type}
	if args.Payload != "" {
		if err := json.Unmarshal([]byte(args.Payload), &ev.Payload); err != nil {
			s.logger.Warn("MCP send_event: Invalid payload", "error", err)
			return SnapshotResponse{}, fmt.Errorf("%w: payload must be a JSON object: %v", domain.ErrInvalidEvent, err)
		}
	}
	snap, err := s.system.Send(ctx, args.Machine, ev)
	if err != nil {
		return SnapshotResponse{}, err
	}
	return newSnapshotResponse(snap)
}

func (s *Server) handleNotify(ctx context.Context, request mcp.CallToolRequest, args NotifyArgs) (NotifyResponse, error) {
	if strings.TrimSpace(args.Message) == "" {
		return NotifyResponse{}, fmt.Errorf("message is required")
	}
	id := s.system.Notify(toast.Toast{
		Message:  args.Message,
		Severity: toast.Severity(args.Type),
		Duration: args.Duration,
	})
	return NotifyResponse{ID: id}, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	machine, err := request.RequireString("machine")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := s.system.Graph(machine)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var overlay *graph.GraphOverlay
	if snap, err := s.system.Snapshot(machine); err == nil {
		overlay = &graph.GraphOverlay{CurrentState: snap.State}
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(g, overlay)), nil
}

// friendsURI serves the contact list backing the messages example.
const friendsURI = "statecraft://friends"

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(friendsURI, "Friends and their message threads",
		mcp.WithMIMEType("application/json"),
	), s.handleReadFriends)

	for _, id := range s.system.Machines() {
		uri := "statecraft://machines/" + id
		s.mcpServer.AddResource(mcp.NewResource(uri, "Snapshot of "+id,
			mcp.WithMIMEType("application/json"),
		), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			snap, err := s.system.Snapshot(id)
			if err != nil {
				return nil, err
			}
			jsonBytes, err := json.Marshal(snap)
			if err != nil {
				return nil, fmt.Errorf("failed to encode snapshot: %w", err)
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(jsonBytes),
				},
			}, nil
		})
	}
}

func (s *Server) handleReadFriends(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.system.Friends())
	if err != nil {
		return nil, fmt.Errorf("failed to encode friends: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      friendsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
