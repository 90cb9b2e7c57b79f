// ABOUTME: UDP datagram transport for the remote display/control device
// ABOUTME: Fire-and-forget sends; only a dead socket is reported as an error
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
)

// Datagram is a connected UDP socket
type Datagram struct {
	addr      string
	conn      *net.UDPConn
	dropped   atomic.Int64
	closeOnce sync.Once
	closeErr  error
}

// DialUDP resolves addr and connects a UDP socket to it
func DialUDP(addr string) (*Datagram, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", addr, err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	log.Printf("UDP socket %s -> %s", conn.LocalAddr(), raddr)

	return &Datagram{addr: raddr.String(), conn: conn}, nil
}

// Reset is a no-op: a datagram socket has no stream state to flush
func (d *Datagram) Reset(ctx context.Context) error { return ctx.Err() }

// Send writes one datagram. Delivery is not guaranteed, so transient
// errors (e.g. ICMP port unreachable surfacing as ECONNREFUSED) are
// counted and logged, not returned.
func (d *Datagram) Send(p []byte) error {
	_, err := d.conn.Write(p)
	if err == nil {
		return nil
	}

	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %s: %v", ErrUnusable, d.addr, err)
	}

	n := d.dropped.Add(1)
	if n <= 5 || n%100 == 0 {
		log.Printf("UDP send to %s failed (%d so far): %v", d.addr, n, err)
	}
	return nil
}

// Dropped returns the number of failed sends
func (d *Datagram) Dropped() int64 {
	return d.dropped.Load()
}

// Close closes the socket once
func (d *Datagram) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.conn.Close()
		log.Printf("UDP socket to %s closed", d.addr)
	})
	return d.closeErr
}

// Kind returns KindDatagram
func (d *Datagram) Kind() Kind { return KindDatagram }
