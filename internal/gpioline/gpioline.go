// Package gpioline wraps the periph.io gpio.PinIn interrupt line the DMP
// data-ready signal arrives on, exposing a context-aware edge wait so the
// FIFO reader (C7) can block without polling.
package gpioline

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Line is an interrupt-capable GPIO input configured to detect the falling
// edge that ends the DMP's data-ready pulse.
type Line struct {
	pin gpio.PinIO
}

// Open resolves a GPIO pin by periph.io name (e.g. "GPIO23") and configures
// it as a pulled-down, falling-edge input.
func Open(name string) (*Line, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpioline: no such pin %q", name)
	}
	if err := pin.In(gpio.PullDown, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("gpioline: configure %q as input: %w", name, err)
	}
	return &Line{pin: pin}, nil
}

// WaitEdge blocks until a falling edge is observed or ctx is done. It
// implements the context-aware cancellation by racing the blocking
// WaitForEdge call against ctx.Done on a helper goroutine; periph.io's
// gpio.PinIn has no native context support.
func (l *Line) WaitEdge(ctx context.Context) error {
	done := make(chan bool, 1)
	go func() {
		done <- l.pin.WaitForEdge(-1)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ok := <-done:
		if !ok {
			return fmt.Errorf("gpioline: WaitForEdge returned false")
		}
		return nil
	}
}

// Read returns the instantaneous logic level of the line.
func (l *Line) Read() gpio.Level {
	return l.pin.Read()
}

// Halt releases the pin's edge-detection resources.
func (l *Line) Halt() error {
	return l.pin.Halt()
}
