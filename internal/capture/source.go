// Package capture retrieves raw framebuffer snapshots from devices.
package capture

import (
	"context"
	"sync"
)

// ScreenshotSource fetches one framebuffer snapshot from a device. Fetch may
// block for a transport round-trip and must return promptly once ctx is done.
type ScreenshotSource interface {
	Fetch(ctx context.Context, dev *Device) (*RawFrame, error)
}

// SourceFunc adapts a function to ScreenshotSource.
type SourceFunc func(ctx context.Context, dev *Device) (*RawFrame, error)

func (f SourceFunc) Fetch(ctx context.Context, dev *Device) (*RawFrame, error) {
	return f(ctx, dev)
}

// Device is a handle to one capture target. Only one request is in flight
// per Device at a time.
type Device struct {
	Serial string

	mu sync.Mutex
}

// NewDevice returns a handle for the device with the given serial.
func NewDevice(serial string) *Device {
	return &Device{Serial: serial}
}

// Fetch asks src for a snapshot while holding the device exclusively.
func (d *Device) Fetch(ctx context.Context, src ScreenshotSource) (*RawFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return src.Fetch(ctx, d)
}

func (d *Device) String() string {
	if d == nil {
		return "<none>"
	}
	if d.Serial == "" {
		return "<default>"
	}
	return d.Serial
}
