// ABOUTME: Serial port transport for the actuator microcontroller
// ABOUTME: Writes command lines over a byte stream; any write failure is fatal
package transport

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaud matches the microcontroller sketch
	DefaultBaud = 115200

	// DefaultSettle covers the auto-reset an Arduino Mega performs when
	// its port is opened
	DefaultSettle = 2 * time.Second
)

// SerialConfig configures a serial link
type SerialConfig struct {
	Port   string
	Baud   int
	Settle time.Duration
}

// port is the subset of serial.Port the transport uses
type port interface {
	io.Writer
	ResetInputBuffer() error
	ResetOutputBuffer() error
	Close() error
}

// Serial is a serial-port transport
type Serial struct {
	name      string
	port      port
	settle    time.Duration
	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens the named port
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}

	p, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}

	log.Printf("Serial port %s opened at %d baud", cfg.Port, cfg.Baud)

	return newSerial(cfg.Port, p, cfg.Settle), nil
}

func newSerial(name string, p port, settle time.Duration) *Serial {
	return &Serial{name: name, port: p, settle: settle}
}

// Reset waits for the device to settle and clears both buffers
func (s *Serial) Reset(ctx context.Context) error {
	if s.settle > 0 {
		log.Printf("Waiting %v for %s to settle", s.settle, s.name)
		timer := time.NewTimer(s.settle)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}
	if err := s.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("failed to reset output buffer: %w", err)
	}
	return nil
}

// Send writes a packet. Short writes and write errors are returned.
func (s *Serial) Send(p []byte) error {
	n, err := s.port.Write(p)
	if err != nil {
		return fmt.Errorf("serial write to %s: %w", s.name, err)
	}
	if n < len(p) {
		return fmt.Errorf("serial write to %s: %w", s.name, io.ErrShortWrite)
	}
	return nil
}

// Close closes the port once
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.port.Close()
		log.Printf("Serial port %s closed", s.name)
	})
	return s.closeErr
}

// Kind returns KindSerial
func (s *Serial) Kind() Kind { return KindSerial }

// ListPorts returns the serial ports present on this machine
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
