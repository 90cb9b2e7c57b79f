// ABOUTME: Latest-frame mailbox for display consumers
// ABOUTME: Single-slot overwrite hand-off; the pacing loop never waits on a renderer
package player

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
	internalsync "github.com/mmstac/RC-Cockpit-Simulator/internal/sync"
)

// Snapshot is what display consumers receive for every emitted frame
type Snapshot struct {
	Frame    telemetry.Frame // shaped values, absolute grid index
	Sent     int             // real frames sent so far, this one included
	Total    int             // real frames this session will send
	LogTime  time.Duration   // grid position of the frame in log time
	Elapsed  time.Duration   // wall time since the anchor
	Lateness time.Duration   // how late this frame left versus its target
	Quality  internalsync.Quality
}

// Display receives snapshots from the pacing loop. Offer must return
// immediately.
type Display interface {
	Offer(s Snapshot)
}

// Mailbox holds at most one pending snapshot. Offer overwrites an
// unconsumed snapshot and counts it as dropped.
type Mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	latest  *Snapshot
	closed  bool
	drops   atomic.Uint64
	offered atomic.Uint64
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Offer publishes s, replacing any snapshot the consumer has not taken yet
func (m *Mailbox) Offer(s Snapshot) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.latest != nil {
		m.drops.Add(1)
	}
	m.latest = &s
	m.offered.Add(1)
	m.cond.Signal()
	m.mu.Unlock()
}

// Next blocks until a snapshot is available. It returns false once the
// mailbox is closed and drained.
func (m *Mailbox) Next() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.latest == nil && !m.closed {
		m.cond.Wait()
	}
	if m.latest == nil {
		return Snapshot{}, false
	}

	s := *m.latest
	m.latest = nil
	return s, true
}

// Close wakes the consumer; a pending snapshot can still be taken
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Drops returns how many snapshots were overwritten before being consumed
func (m *Mailbox) Drops() uint64 { return m.drops.Load() }

// Offered returns how many snapshots were published
func (m *Mailbox) Offered() uint64 { return m.offered.Load() }
