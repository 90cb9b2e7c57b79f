// ABOUTME: Console progress display for non-TUI sessions
// ABOUTME: Prints the outgoing command every few frames from its own goroutine
package player

import (
	"fmt"
	"io"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/encode"
)

// DefaultProgressEvery is how often the console prints a progress line
const DefaultProgressEvery = 5

// Console renders snapshots as progress lines. The scheduler offers into
// its mailbox; Run drains it on a separate goroutine.
type Console struct {
	out   io.Writer
	enc   encode.Encoder
	every int
	box   *Mailbox
}

// NewConsole writes a line to out for every nth frame, encoded with enc
func NewConsole(out io.Writer, enc encode.Encoder, every int) *Console {
	if every <= 0 {
		every = DefaultProgressEvery
	}
	return &Console{
		out:   out,
		enc:   enc,
		every: every,
		box:   NewMailbox(),
	}
}

// Offer implements Display
func (c *Console) Offer(s Snapshot) {
	if s.Sent%c.every != 0 && s.Sent != s.Total {
		return
	}
	c.box.Offer(s)
}

// Run prints until Close is called
func (c *Console) Run() {
	for {
		s, ok := c.box.Next()
		if !ok {
			return
		}
		fmt.Fprintln(c.out, c.line(s))
	}
}

// Close stops Run after the pending line is printed
func (c *Console) Close() { c.box.Close() }

// Drops returns how many progress lines were skipped because output lagged
func (c *Console) Drops() uint64 { return c.box.Drops() }

func (c *Console) line(s Snapshot) string {
	var packet string
	if c.enc.Name() == "text" {
		packet = string(trimNewline(c.enc.Append(nil, s.Frame)))
	} else {
		packet = fmt.Sprint(encode.Fields(c.enc.Layout(), s.Frame))
	}
	return fmt.Sprintf("Sending: %s | Time: %.2fs | Frame %d/%d", packet, s.Elapsed.Seconds(), s.Sent, s.Total)
}

func trimNewline(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		return b[:n-1]
	}
	return b
}
