// ABOUTME: Operator confirmation gates
// ABOUTME: Blocks the Armed state until the operator explicitly starts the stream
package player

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Gate blocks until the operator confirms stream start. It returns
// ctx.Err() if the session is aborted first.
type Gate interface {
	Wait(ctx context.Context) error
}

// GateFunc adapts a function to Gate
type GateFunc func(ctx context.Context) error

// Wait calls f
func (f GateFunc) Wait(ctx context.Context) error { return f(ctx) }

// LineGate waits for a line (Enter) on r after printing prompt to w
func LineGate(r io.Reader, w io.Writer, prompt string) Gate {
	return GateFunc(func(ctx context.Context) error {
		if w != nil && prompt != "" {
			fmt.Fprint(w, prompt)
		}

		done := make(chan error, 1)
		go func() {
			_, err := bufio.NewReader(r).ReadString('\n')
			if err == io.EOF {
				err = fmt.Errorf("stdin closed before confirmation: %w", err)
			}
			done <- err
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// ChanGate waits for a value (or close) on ch, e.g. a TUI key press
func ChanGate(ch <-chan struct{}) Gate {
	return GateFunc(func(ctx context.Context) error {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
