package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/presentation/graph"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/toast"
	"github.com/aretw0/statecraft/pkg/mockdata"
	"github.com/aretw0/statecraft/pkg/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// System defines what the HTTP adapter needs from the machine runtime.
type System interface {
	Machines() []string
	Snapshot(machine string) (domain.Snapshot, error)
	Send(ctx context.Context, machine string, ev domain.Event) (domain.Snapshot, error)
	Graph(machine string) (domain.MachineGraph, error)
	Events(machine string) (map[string]schema.Schema, error)
	Notify(t toast.Toast) string
	Notifications() []toast.Item
	Friends() []mockdata.Friend
	Friend(id string) (mockdata.Friend, bool)
	OnChange(l statecraft.Listener)
}

// Server serves the machine API.
type Server struct {
	System  System
	Streams *StreamManager
	Metrics http.Handler
	Logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics exposes h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithLogger sets a structured logger for request errors and streams.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates the HTTP handler and subscribes its streams to sys.
// It must be called once per System.
func NewHandler(sys System, opts ...Option) http.Handler {
	server := &Server{System: sys}
	for _, opt := range opts {
		opt(server)
	}
	if server.Logger == nil {
		server.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	server.Streams = NewStreamManager(server.Logger)
	sys.OnChange(server.Streams.Broadcast)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Route("/machines", func(r chi.Router) {
		r.Get("/", server.ListMachines)
		r.Get("/{machine}", server.GetMachine)
		r.Get("/{machine}/events", server.ListEvents)
		r.Post("/{machine}/events", server.SendEvent)
		r.Get("/{machine}/stream", server.StreamMachine)
	})
	r.Get("/toasts", server.ListToasts)
	r.Post("/toasts", server.CreateToast)
	r.Get("/friends", server.ListFriends)
	r.Get("/friends/{id}", server.GetFriend)
	r.Get("/graph/{machine}", server.GetGraph)
	if server.Metrics != nil {
		r.Handle("/metrics", server.Metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":      "statecraft-http",
		"version":  strings.TrimSpace(statecraft.Version),
		"machines": s.System.Machines(),
	})
}

// ListMachines handles the GET /machines request.
func (s *Server) ListMachines(w http.ResponseWriter, r *http.Request) {
	ids := s.System.Machines()
	snaps := make([]domain.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.System.Snapshot(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		snaps = append(snaps, snap)
	}
	s.writeJSON(w, http.StatusOK, snaps)
}

// GetMachine handles the GET /machines/{machine} request.
func (s *Server) GetMachine(w http.ResponseWriter, r *http.Request) {
	snap, err := s.System.Snapshot(chi.URLParam(r, "machine"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// ListEvents handles the GET /machines/{machine}/events request. It maps each
// event type to the payload it takes.
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.System.Events(chi.URLParam(r, "machine"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

// SendEvent handles the POST /machines/{machine}/events request.
func (s *Server) SendEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("SendEvent: Invalid request body", "error", err)
		return
	}

	snap, err := s.System.Send(r.Context(), chi.URLParam(r, "machine"), ev)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// ListToasts handles the GET /toasts request.
func (s *Server) ListToasts(w http.ResponseWriter, r *http.Request) {
	items := s.System.Notifications()
	if items == nil {
		items = []toast.Item{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

// CreateToast handles the POST /toasts request.
func (s *Server) CreateToast(w http.ResponseWriter, r *http.Request) {
	var t toast.Toast
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("CreateToast: Invalid request body", "error", err)
		return
	}
	if strings.TrimSpace(t.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": s.System.Notify(t)})
}

// ListFriends handles the GET /friends request.
func (s *Server) ListFriends(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.System.Friends())
}

// GetFriend handles the GET /friends/{id} request.
func (s *Server) GetFriend(w http.ResponseWriter, r *http.Request) {
	f, ok := s.System.Friend(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "friend not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, f)
}

// GetGraph handles the GET /graph/{machine} request. It renders Mermaid by
// default and the raw structure with ?format=json.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	machine := chi.URLParam(r, "machine")
	g, err := s.System.Graph(machine)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		s.writeJSON(w, http.StatusOK, g)
		return
	}

	var overlay *graph.GraphOverlay
	if snap, err := s.System.Snapshot(machine); err == nil {
		overlay = &graph.GraphOverlay{CurrentState: snap.State}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(g, overlay))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownMachine):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidEvent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.Logger.Error("Request failed", "error", err)
	}
}
