// ABOUTME: ASCII command encoder for the serial actuator link
// ABOUTME: Encodes frames as "<c0,c1,...>\n" lines of signed integers
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

// ErrMalformed is returned when a packet does not match its layout
var ErrMalformed = errors.New("malformed packet")

// TextEncoder writes one command line per frame
type TextEncoder struct {
	layout telemetry.Layout
}

// NewText creates a text encoder for the given layout
func NewText(layout telemetry.Layout) *TextEncoder {
	return &TextEncoder{layout: append(telemetry.Layout(nil), layout...)}
}

// Append encodes f as "<a,b,c,d>\n"
func (e *TextEncoder) Append(dst []byte, f telemetry.Frame) []byte {
	dst = append(dst, '<')
	for i, ch := range e.layout {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendInt(dst, int64(toInt32(f.Values[ch])), 10)
	}
	return append(dst, '>', '\n')
}

// Layout returns the field order
func (e *TextEncoder) Layout() telemetry.Layout { return e.layout }

// Name returns "text"
func (e *TextEncoder) Name() string { return "text" }

// ParseText decodes one command line back into its integer fields
func ParseText(line []byte, fields int) ([]int32, error) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) < 2 || line[0] != '<' || line[len(line)-1] != '>' {
		return nil, fmt.Errorf("%w: missing brackets in %q", ErrMalformed, line)
	}

	parts := bytes.Split(line[1:len(line)-1], []byte{','})
	if len(parts) != fields {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformed, fields, len(parts))
	}

	out := make([]int32, fields)
	for i, p := range parts {
		v, err := strconv.ParseInt(string(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, i, err)
		}
		out[i] = int32(v)
	}
	return out, nil
}
