// ABOUTME: Tests for serial and datagram transports
// ABOUTME: Tests write failure semantics, buffer reset and close idempotency
package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

type fakePort struct {
	buf        bytes.Buffer
	writeErr   error
	short      bool
	inResets   int
	outResets  int
	closeCalls int
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	if p.short {
		return len(b) - 1, nil
	}
	return p.buf.Write(b)
}

func (p *fakePort) ResetInputBuffer() error  { p.inResets++; return nil }
func (p *fakePort) ResetOutputBuffer() error { p.outResets++; return nil }
func (p *fakePort) Close() error             { p.closeCalls++; return nil }

func TestSerialSend(t *testing.T) {
	p := &fakePort{}
	s := newSerial("fake", p, 0)

	if err := s.Send([]byte("<1500,1500,1500,1000>\n")); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	if p.buf.String() != "<1500,1500,1500,1000>\n" {
		t.Errorf("unexpected bytes written: %q", p.buf.String())
	}
	if s.Kind() != KindSerial {
		t.Errorf("expected KindSerial, got %v", s.Kind())
	}
}

func TestSerialWriteErrorIsFatal(t *testing.T) {
	boom := errors.New("device disconnected")
	s := newSerial("fake", &fakePort{writeErr: boom}, 0)

	if err := s.Send([]byte("x")); !errors.Is(err, boom) {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}

func TestSerialShortWrite(t *testing.T) {
	s := newSerial("fake", &fakePort{short: true}, 0)

	if err := s.Send([]byte("abc")); !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("expected io.ErrShortWrite, got %v", err)
	}
}

func TestSerialReset(t *testing.T) {
	p := &fakePort{}
	s := newSerial("fake", p, time.Millisecond)

	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if p.inResets != 1 || p.outResets != 1 {
		t.Errorf("expected both buffers reset once, got in=%d out=%d", p.inResets, p.outResets)
	}
}

func TestSerialResetCancelledDuringSettle(t *testing.T) {
	p := &fakePort{}
	s := newSerial("fake", p, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	start := time.Now()
	err := s.Reset(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if waited := time.Since(start); waited > time.Second {
		t.Errorf("Reset ignored cancellation for %v", waited)
	}
	if p.inResets != 0 || p.outResets != 0 {
		t.Error("buffers should not be touched after cancellation")
	}
}

func TestSerialCloseOnce(t *testing.T) {
	p := &fakePort{}
	s := newSerial("fake", p, 0)

	s.Close()
	s.Close()

	if p.closeCalls != 1 {
		t.Errorf("expected port closed once, got %d", p.closeCalls)
	}
}

func TestDatagramSend(t *testing.T) {
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	d, err := DialUDP(ln.LocalAddr().String())
	if err != nil {
		t.Fatalf("DialUDP() failed: %v", err)
	}
	defer d.Close()

	packet := []byte{1, 2, 3, 4}
	if err := d.Send(packet); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	ln.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, _, err := ln.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(buf[:n], packet) {
		t.Errorf("expected %v, got %v", packet, buf[:n])
	}
}

func TestDatagramNoListenerIsNotFatal(t *testing.T) {
	// Grab a free port, then close it so nothing is listening
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.LocalAddr().String()
	ln.Close()

	d, err := DialUDP(addr)
	if err != nil {
		t.Fatalf("DialUDP() failed: %v", err)
	}
	defer d.Close()

	for i := 0; i < 10; i++ {
		if err := d.Send([]byte{0}); err != nil {
			t.Fatalf("send %d: expected nil for unreachable peer, got %v", i, err)
		}
	}
}

func TestDatagramClosedSocketIsUnusable(t *testing.T) {
	d, err := DialUDP("127.0.0.1:9")
	if err != nil {
		t.Fatalf("DialUDP() failed: %v", err)
	}
	d.Close()

	if err := d.Send([]byte{0}); !errors.Is(err, ErrUnusable) {
		t.Errorf("expected ErrUnusable after close, got %v", err)
	}
	if d.Kind() != KindDatagram {
		t.Errorf("expected KindDatagram, got %v", d.Kind())
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"serial", KindSerial, false},
		{"udp", KindDatagram, false},
		{"datagram", KindDatagram, false},
		{"tcp", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
