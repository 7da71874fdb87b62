package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans machine snapshots out to SSE subscribers.
type StreamManager struct {
	logger      *slog.Logger
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Snapshot]struct{} // machine -> set of channels
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan domain.Snapshot]struct{}),
	}
}

// Subscribe registers a channel for the snapshots of machine. The returned
// function unregisters and closes it.
func (sm *StreamManager) Subscribe(machine string) (<-chan domain.Snapshot, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan domain.Snapshot, 10)
	if _, ok := sm.subscribers[machine]; !ok {
		sm.subscribers[machine] = make(map[chan domain.Snapshot]struct{})
	}
	sm.subscribers[machine][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[machine]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, machine)
			}
		}
	}
}

// Broadcast delivers snap to the subscribers of its machine.
func (sm *StreamManager) Broadcast(snap domain.Snapshot) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[snap.Machine] {
		select {
		case ch <- snap:
		default:
			// Slow client; it catches up with the next diff.
			sm.logger.Warn("SSE: Client buffer full, dropping snapshot", "machine", snap.Machine)
		}
	}
}

// Subscribers returns the number of live subscriptions to machine.
func (sm *StreamManager) Subscribers(machine string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[machine])
}

// StreamMachine handles the GET /machines/{machine}/stream request (SSE).
// The first message carries the whole snapshot, later ones only what changed.
// ?watch=state,context,children restricts which changes are sent.
func (s *Server) StreamMachine(w http.ResponseWriter, r *http.Request) {
	machine := chi.URLParam(r, "machine")
	current, err := s.System.Snapshot(machine)
	if err != nil {
		s.writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("StreamMachine: Streaming not supported")
		return
	}

	ch, cancel := s.Streams.Subscribe(machine)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, field := range strings.Split(raw, ",") {
			watch = append(watch, strings.TrimSpace(field))
		}
	}

	s.Logger.Info("SSE: Subscribing to machine updates", "machine", machine)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	writeDiff(w, domain.Diff(nil, &current))
	flusher.Flush()

	last := current
	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "machine", machine)
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			diff := domain.Diff(&last, &snap)
			last = snap
			if diff == nil || !wanted(diff, watch) {
				continue
			}
			writeDiff(w, diff)
			flusher.Flush()
		}
	}
}

func writeDiff(w http.ResponseWriter, diff *domain.SnapshotDiff) {
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func wanted(diff *domain.SnapshotDiff, watch []string) bool {
	if len(watch) == 0 {
		return true
	}
	for _, field := range watch {
		switch field {
		case "state":
			if diff.State != nil || diff.Done != nil {
				return true
			}
		case "context":
			if len(diff.Context) > 0 {
				return true
			}
		case "children":
			if diff.Children != nil {
				return true
			}
		}
	}
	return false
}
