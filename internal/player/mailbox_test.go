// ABOUTME: Tests for the latest-frame mailbox
// ABOUTME: Verifies overwrite, drop counting and close semantics
package player

import (
	"testing"
	"time"
)

func TestMailboxKeepsLatest(t *testing.T) {
	m := NewMailbox()
	for i := 1; i <= 3; i++ {
		m.Offer(Snapshot{Sent: i})
	}

	s, ok := m.Next()
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if s.Sent != 3 {
		t.Errorf("expected latest snapshot 3, got %d", s.Sent)
	}
	if m.Drops() != 2 {
		t.Errorf("expected 2 drops, got %d", m.Drops())
	}
	if m.Offered() != 3 {
		t.Errorf("expected 3 offers, got %d", m.Offered())
	}
}

func TestMailboxNextBlocksUntilOffer(t *testing.T) {
	m := NewMailbox()
	got := make(chan Snapshot, 1)

	go func() {
		s, _ := m.Next()
		got <- s
	}()

	select {
	case <-got:
		t.Fatal("Next returned before Offer")
	case <-time.After(20 * time.Millisecond):
	}

	m.Offer(Snapshot{Sent: 7})

	select {
	case s := <-got:
		if s.Sent != 7 {
			t.Errorf("expected 7, got %d", s.Sent)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not wake on Offer")
	}
}

func TestMailboxClose(t *testing.T) {
	m := NewMailbox()
	m.Offer(Snapshot{Sent: 1})
	m.Close()

	if s, ok := m.Next(); !ok || s.Sent != 1 {
		t.Errorf("expected pending snapshot after close, got %v %v", s, ok)
	}
	if _, ok := m.Next(); ok {
		t.Error("expected closed mailbox to report no more snapshots")
	}

	m.Offer(Snapshot{Sent: 2})
	if m.Offered() != 1 {
		t.Error("offers after close should be ignored")
	}
}

func TestMailboxCloseWakesWaiter(t *testing.T) {
	m := NewMailbox()
	done := make(chan bool, 1)

	go func() {
		_, ok := m.Next()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	m.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected ok=false after close")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake Next")
	}
}
