// Package frame turns raw device framebuffers into displayable RGBA images.
package frame

import (
	"fmt"
	"image"
	"math"
)

// Orientation selects how the raw framebuffer is laid out on screen.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// Toggle returns the other orientation.
func (o Orientation) Toggle() Orientation {
	if o == Landscape {
		return Portrait
	}
	return Landscape
}

// ParseOrientation accepts "portrait" and "landscape".
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "portrait", "":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	}
	return Portrait, fmt.Errorf("unknown orientation %q", s)
}

// TargetSize returns the display size for a raw frame of w×h.
func TargetSize(w, h int, o Orientation) image.Point {
	if o == Landscape {
		return image.Pt(h, w)
	}
	return image.Pt(w, h)
}

// Copy copies src into dst, reallocating dst when the sizes differ, and
// returns the destination. Consumers use it to keep a published frame past
// the OnFrame call.
func Copy(dst, src *image.RGBA) *image.RGBA {
	if dst == nil || dst.Rect.Size() != src.Rect.Size() {
		dst = image.NewRGBA(image.Rectangle{Max: src.Rect.Size()})
	}
	w := src.Rect.Dx() * 4
	for y := 0; y < src.Rect.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
	return dst
}

// AspectFit returns the scale and offsets that fit a frame of size f into a
// view of size v with letterboxing.
func AspectFit(v, f image.Point) (scale, offsetX, offsetY float64) {
	if f.X <= 0 || f.Y <= 0 {
		return 1, 0, 0
	}
	scale = math.Min(float64(v.X)/float64(f.X), float64(v.Y)/float64(f.Y))
	offsetX = (float64(v.X) - float64(f.X)*scale) / 2
	offsetY = (float64(v.Y) - float64(f.Y)*scale) / 2
	return scale, offsetX, offsetY
}
