// ABOUTME: Frame encoder interface definition
// ABOUTME: Common interface for serial text and datagram binary encodings
package encode

import (
	"math"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

// Encoder packs a frame into a transport's wire format
type Encoder interface {
	// Append encodes f onto dst and returns the extended slice
	Append(dst []byte, f telemetry.Frame) []byte

	// Layout returns the channel order on the wire
	Layout() telemetry.Layout

	// Name identifies the encoding in logs
	Name() string
}

// Encode is a convenience wrapper that allocates a fresh packet
func Encode(e Encoder, f telemetry.Frame) []byte {
	return e.Append(nil, f)
}

// Fields converts a frame to the integer fields the layout selects.
// Values are truncated toward zero and saturated to the int32 range;
// NaN becomes 0.
func Fields(layout telemetry.Layout, f telemetry.Frame) []int32 {
	out := make([]int32, len(layout))
	for i, ch := range layout {
		out[i] = toInt32(f.Values[ch])
	}
	return out
}

func toInt32(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
