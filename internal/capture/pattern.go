package capture

import (
	"context"
	"sync/atomic"
)

// PatternSource synthesizes RGBA8888 frames: a diagonal gradient with a bar
// that advances every fetch. It needs no device and is used for demos and tests.
type PatternSource struct {
	Width  int
	Height int

	seq atomic.Uint64
}

// NewPatternSource returns a w×h pattern generator.
func NewPatternSource(w, h int) *PatternSource {
	return &PatternSource{Width: w, Height: h}
}

// Fetch implements ScreenshotSource.
func (p *PatternSource) Fetch(ctx context.Context, _ *Device) (*RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := int(p.seq.Add(1) - 1)
	w, h := p.Width, p.Height
	data := make([]byte, w*h*4)
	bar := 0
	if w > 0 {
		bar = (n * 8) % w
	}
	for y := 0; y < h; y++ {
		row := data[y*w*4 : (y+1)*w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			row[i] = byte(x * 255 / max(w-1, 1))
			row[i+1] = byte(y * 255 / max(h-1, 1))
			row[i+2] = 0x60
			row[i+3] = 0xff
			if x >= bar && x < bar+8 {
				row[i], row[i+1], row[i+2] = 0xff, 0xff, 0xff
			}
		}
	}
	return &RawFrame{
		Width:        w,
		Height:       h,
		BitsPerPixel: 32,
		Format:       FormatRGBA8888,
		Data:         data,
	}, nil
}

// Frames reports how many frames have been generated.
func (p *PatternSource) Frames() uint64 {
	return p.seq.Load()
}
