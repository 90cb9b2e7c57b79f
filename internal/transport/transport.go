// ABOUTME: Transport abstraction for frame delivery
// ABOUTME: Defines the send/reset/close contract shared by serial and datagram links
package transport

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnusable marks a transport that can no longer deliver anything.
// The scheduler treats every error returned from Send as fatal; datagram
// transports only return errors wrapping ErrUnusable.
var ErrUnusable = errors.New("transport unusable")

// Kind distinguishes failure semantics
type Kind int

const (
	// KindSerial is a byte stream; any write failure ends the session
	KindSerial Kind = iota

	// KindDatagram is fire-and-forget; transient send failures are logged
	KindDatagram
)

func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindDatagram:
		return "udp"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses "serial" or "udp"
func ParseKind(s string) (Kind, error) {
	switch s {
	case "serial":
		return KindSerial, nil
	case "udp", "datagram":
		return KindDatagram, nil
	}
	return 0, fmt.Errorf("unknown transport %q", s)
}

// Transport sends encoded frames
type Transport interface {
	// Send writes one packet now. A returned error is fatal for the session.
	Send(p []byte) error

	// Reset discards pending input/output before streaming starts.
	// It returns ctx.Err() if cancelled while waiting.
	Reset(ctx context.Context) error

	// Close releases the link. Safe to call more than once.
	Close() error

	// Kind reports the failure semantics
	Kind() Kind
}
