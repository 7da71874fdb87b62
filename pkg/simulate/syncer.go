package simulate

import (
	"sync"

	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/machines/network"
	"github.com/aretw0/statecraft/pkg/machines/syncing"
)

// Syncer plays the server side of document syncing. It polls both machines:
// once the network is connected it sends GO_ONLINE, then reports one syncing
// document at a time after a random delay. When the network drops it cancels
// the batch and sends GO_OFFLINE.
type Syncer struct {
	net  *network.Machine
	docs *syncing.Machine
	opts Options

	mu      sync.Mutex
	running bool
	poll    clock.Timer
	step    clock.Timer
	active  bool
	// batch invalidates step callbacks armed before the last cancel.
	batch  uint64
	synced int
}

// NewSyncer creates a stopped syncer.
func NewSyncer(net *network.Machine, docs *syncing.Machine, opts Options) *Syncer {
	return &Syncer{net: net, docs: docs, opts: opts.withDefaults()}
}

// Start begins polling. Calling Start twice is a no-op.
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.poll = s.opts.Clock.AfterFunc(s.opts.PollInterval, s.tick)
}

// Stop cancels polling and any batch in progress.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.poll != nil {
		s.poll.Stop()
		s.poll = nil
	}
	s.cancel()
}

// Synced returns how many DOCUMENT_SYNCED events were sent.
func (s *Syncer) Synced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

func (s *Syncer) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.check()
	s.poll = s.opts.Clock.AfterFunc(s.opts.PollInterval, s.tick)
}

// Check inspects the machines once, outside the polling cadence.
func (s *Syncer) Check() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.check()
}

// check must be called with s.mu held.
func (s *Syncer) check() {
	connected := s.net.Connected()
	snap := s.docs.Snapshot()

	if !connected {
		s.cancel()
		if snap.Context.Count(syncing.StatusSyncing) > 0 && snap.State != syncing.StateOffline {
			s.opts.Logger.Debug("Network lost, pausing sync")
			s.docs.Send(syncing.GoOffline())
		}
		return
	}

	switch {
	case snap.State == syncing.StateOffline && snap.Context.Count(syncing.StatusPending) > 0:
		s.docs.Send(syncing.GoOnline())
	case snap.State == syncing.StateSyncing && !s.active && snap.Context.Count(syncing.StatusSyncing) > 0:
		s.active = true
		batch := s.batch
		s.step = s.opts.Clock.AfterFunc(s.opts.Warmup, func() { s.next(batch) })
	}
}

// next picks the first syncing document and reports it after a random delay.
func (s *Syncer) next(batch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if batch != s.batch {
		return
	}

	doc, ok := s.current()
	if !ok {
		s.active = false
		return
	}

	delay := s.opts.Generator.Duration(s.opts.MinDelay, s.opts.MaxDelay)
	s.step = s.opts.Clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if batch != s.batch {
			s.mu.Unlock()
			return
		}
		if latest, ok := s.current(); ok && latest.ID == doc.ID {
			s.docs.Send(syncing.DocumentSynced(doc.ID))
			s.synced++
			s.opts.Logger.Debug("Document synced", "document", doc.ID)
		}
		s.mu.Unlock()
		s.next(batch)
	})
}

// current returns the first syncing document while syncing can proceed.
func (s *Syncer) current() (syncing.Document, bool) {
	if !s.net.Connected() {
		return syncing.Document{}, false
	}
	snap := s.docs.Snapshot()
	if snap.State != syncing.StateSyncing {
		return syncing.Document{}, false
	}
	return snap.Context.Next(syncing.StatusSyncing)
}

// cancel must be called with s.mu held.
func (s *Syncer) cancel() {
	s.batch++
	s.active = false
	if s.step != nil {
		s.step.Stop()
		s.step = nil
	}
}
