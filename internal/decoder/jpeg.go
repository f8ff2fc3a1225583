package decoder

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// JPEGDecoder decodes JPEG frames.
type JPEGDecoder struct{}

func NewJPEGDecoder() *JPEGDecoder {
	return &JPEGDecoder{}
}

// Decode returns a freshly allocated RGBA image.
func (d *JPEGDecoder) Decode(data []byte) (*image.RGBA, error) {
	return d.DecodeInto(data, nil)
}

// DecodeInto decodes into dst when it has the frame's bounds, otherwise
// into a new image. The returned image is the one written.
func (d *JPEGDecoder) DecodeInto(data []byte, dst *image.RGBA) (*image.RGBA, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg frame: %w", err)
	}
	b := img.Bounds()
	if dst == nil || dst.Bounds() != b {
		dst = image.NewRGBA(b)
	}
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst, nil
}
