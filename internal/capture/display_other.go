//go:build !darwin

package capture

import (
	"context"
	"errors"
)

// DisplaySource is only available on macOS.
type DisplaySource struct{}

// NewDisplaySource always fails outside macOS.
func NewDisplaySource(int) (*DisplaySource, error) {
	return nil, errors.New("local display capture requires macOS")
}

// Fetch implements ScreenshotSource.
func (*DisplaySource) Fetch(context.Context, *Device) (*RawFrame, error) {
	return nil, ErrTransportRejected
}
