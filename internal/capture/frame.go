package capture

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTransportTimeout means the device did not answer in time.
	ErrTransportTimeout = errors.New("capture: transport timeout")
	// ErrTransportRejected means the transport refused or aborted the request.
	ErrTransportRejected = errors.New("capture: transport rejected request")
	// ErrMalformedFrame means a RawFrame's metadata disagrees with its pixel data.
	ErrMalformedFrame = errors.New("capture: malformed frame")
)

// Channel locates one color component inside a little-endian pixel value.
type Channel struct {
	Offset uint8 // bit offset
	Length uint8 // bit length, 0 = absent
}

// PixelFormat describes how color components are packed in a pixel.
type PixelFormat struct {
	Red   Channel
	Green Channel
	Blue  Channel
	Alpha Channel
}

// Common framebuffer layouts. Byte order in memory is the name order.
var (
	FormatRGBA8888 = PixelFormat{Red: Channel{0, 8}, Green: Channel{8, 8}, Blue: Channel{16, 8}, Alpha: Channel{24, 8}}
	FormatRGBX8888 = PixelFormat{Red: Channel{0, 8}, Green: Channel{8, 8}, Blue: Channel{16, 8}}
	FormatBGRA8888 = PixelFormat{Blue: Channel{0, 8}, Green: Channel{8, 8}, Red: Channel{16, 8}, Alpha: Channel{24, 8}}
	FormatRGB888   = PixelFormat{Red: Channel{0, 8}, Green: Channel{8, 8}, Blue: Channel{16, 8}}
	FormatRGB565   = PixelFormat{Blue: Channel{0, 5}, Green: Channel{5, 6}, Red: Channel{11, 5}}
)

// RawFrame is an undecoded framebuffer snapshot. It must not be modified
// after a source returns it.
type RawFrame struct {
	Width        int
	Height       int
	BitsPerPixel int
	// Stride is the number of bytes per row; 0 means tightly packed.
	Stride int
	Format PixelFormat
	Data   []byte
}

// BytesPerPixel returns BitsPerPixel/8.
func (f *RawFrame) BytesPerPixel() int {
	return f.BitsPerPixel >> 3
}

// RowStride returns the effective number of bytes per row.
func (f *RawFrame) RowStride() int {
	if f.Stride > 0 {
		return f.Stride
	}
	return f.Width * f.BytesPerPixel()
}

// Validate checks that the declared geometry fits the pixel data.
func (f *RawFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrMalformedFrame, f.Width, f.Height)
	}
	switch f.BitsPerPixel {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: unsupported bpp %d", ErrMalformedFrame, f.BitsPerPixel)
	}
	if f.Width > math.MaxInt/f.BytesPerPixel() {
		return fmt.Errorf("%w: width %d too large", ErrMalformedFrame, f.Width)
	}
	row := f.Width * f.BytesPerPixel()
	stride := f.RowStride()
	if stride < row {
		return fmt.Errorf("%w: stride %d shorter than row %d", ErrMalformedFrame, stride, row)
	}
	if f.Height-1 > (math.MaxInt-row)/stride {
		return fmt.Errorf("%w: size %dx%d stride %d too large", ErrMalformedFrame, f.Width, f.Height, stride)
	}
	need := stride*(f.Height-1) + row
	if len(f.Data) < need {
		return fmt.Errorf("%w: have %d bytes, need %d for %dx%d@%dbpp",
			ErrMalformedFrame, len(f.Data), need, f.Width, f.Height, f.BitsPerPixel)
	}
	return nil
}
