// ABOUTME: Tests for the console progress display
// ABOUTME: Checks line format and frame filtering
package player

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/encode"
)

func TestConsoleLine(t *testing.T) {
	var f telemetry.Frame
	f.Values[telemetry.RollCmd] = 1500
	f.Values[telemetry.PitchCmd] = 1480
	f.Values[telemetry.YawCmd] = 1510
	f.Values[telemetry.ThrottleCmd] = 1100

	tests := []struct {
		name string
		enc  encode.Encoder
		want string
	}{
		{"text", encode.NewText(telemetry.SerialLayout), "Sending: <1500,1480,1510,1100> | Time: 1.25s | Frame 5/100"},
		{"binary", encode.NewBinary(telemetry.SerialLayout), "Sending: [1500 1480 1510 1100] | Time: 1.25s | Frame 5/100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsole(&bytes.Buffer{}, tt.enc, 5)
			got := c.line(Snapshot{Frame: f, Sent: 5, Total: 100, Elapsed: 1250 * time.Millisecond})
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConsolePrintsEveryNth(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, encode.NewText(telemetry.SerialLayout), 5)

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	// offers are spaced so the consumer keeps up
	for i := 1; i <= 12; i++ {
		c.Offer(Snapshot{Sent: i, Total: 12})
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	c.Close()
	<-done

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (5, 10, final), got %d: %q", len(lines), out.String())
	}
	if !strings.HasSuffix(lines[2], "Frame 12/12") {
		t.Errorf("expected final frame line, got %q", lines[2])
	}
}
