package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a simulated clock. Time only moves when Advance is called, and due
// callbacks run synchronously on the caller's goroutine in deadline order.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	clock    *Manual
	deadline time.Time
	seq      uint64
	fn       func()
	stopped  bool
}

// NewManual returns a simulated clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{clock: m, deadline: m.now.Add(d), seq: m.seq, fn: f}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d, firing every callback whose deadline
// falls inside the window. Callbacks armed while advancing fire too when they
// are due before the new time.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.popDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.deadline
		m.mu.Unlock()

		next.fn()
	}
}

// Pending reports how many callbacks are armed and not yet fired or stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// popDue removes and returns the earliest timer due at or before target.
// Must be called with m.mu held.
func (m *Manual) popDue(target time.Time) *manualTimer {
	if len(m.pending) == 0 {
		return nil
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].deadline.Equal(m.pending[j].deadline) {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].deadline.Before(m.pending[j].deadline)
	})
	head := m.pending[0]
	if head.deadline.After(target) {
		return nil
	}
	m.pending = m.pending[1:]
	return head
}

func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.stopped {
		return false
	}
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			t.stopped = true
			return true
		}
	}
	return false
}
