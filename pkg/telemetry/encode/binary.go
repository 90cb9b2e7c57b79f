// ABOUTME: Fixed-width binary encoder for the datagram link
// ABOUTME: Packs frames as consecutive native-order int32 fields, no header
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

// FieldSize is the width of one binary field in bytes
const FieldSize = 4

// BinaryEncoder writes len(layout) signed 32-bit integers in host byte
// order. The receiver has no schema negotiation, so the layout is the
// whole contract: with telemetry.DatagramLayout a packet is 44 bytes of
// roll, pitch, yaw, throttle, gyro x/y/z and motors 0-3.
type BinaryEncoder struct {
	layout telemetry.Layout
}

// NewBinary creates a binary encoder for the given layout
func NewBinary(layout telemetry.Layout) *BinaryEncoder {
	return &BinaryEncoder{layout: append(telemetry.Layout(nil), layout...)}
}

// Append encodes f as packed int32 values
func (e *BinaryEncoder) Append(dst []byte, f telemetry.Frame) []byte {
	for _, ch := range e.layout {
		dst = binary.NativeEndian.AppendUint32(dst, uint32(toInt32(f.Values[ch])))
	}
	return dst
}

// Layout returns the field order
func (e *BinaryEncoder) Layout() telemetry.Layout { return e.layout }

// Name returns "binary"
func (e *BinaryEncoder) Name() string { return "binary" }

// Size returns the packet length in bytes
func (e *BinaryEncoder) Size() int { return len(e.layout) * FieldSize }

// DecodeBinary unpacks a datagram into its integer fields
func DecodeBinary(packet []byte, fields int) ([]int32, error) {
	if len(packet) != fields*FieldSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformed, fields*FieldSize, len(packet))
	}

	out := make([]int32, fields)
	for i := range out {
		out[i] = int32(binary.NativeEndian.Uint32(packet[i*FieldSize:]))
	}
	return out, nil
}
