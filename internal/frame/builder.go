package frame

import (
	"image"

	"github.com/junsooki/screencast/internal/capture"
)

// Builder decodes raw framebuffers. It holds no state; reuse of the output
// buffer is driven entirely by the prev argument.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Decode converts raw into an RGBA image in the given orientation.
//
// prev is reused in place when its size already matches the target;
// otherwise a new image is allocated and prev is left untouched, so a
// consumer still holding prev never sees it change size under it.
// In Landscape the source pixel (x, y) lands at (y, raw.Width-x-1).
func (b *Builder) Decode(raw *capture.RawFrame, o Orientation, prev *image.RGBA) (*image.RGBA, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	size := TargetSize(raw.Width, raw.Height, o)
	dst := prev
	if dst == nil || dst.Rect.Dx() != size.X || dst.Rect.Dy() != size.Y || dst.Rect.Min != (image.Point{}) {
		dst = image.NewRGBA(image.Rectangle{Max: size})
	}

	dec := newPixelDecoder(raw.Format, raw.BytesPerPixel())
	bpp := raw.BytesPerPixel()
	stride := raw.RowStride()

	for y := 0; y < raw.Height; y++ {
		row := raw.Data[y*stride : y*stride+raw.Width*bpp]
		for x := 0; x < raw.Width; x++ {
			r, g, bl := dec.rgb(row[x*bpp : x*bpp+bpp])
			var dx, dy int
			if o == Landscape {
				dx, dy = y, raw.Width-x-1
			} else {
				dx, dy = x, y
			}
			i := dy*dst.Stride + dx*4
			p := dst.Pix[i : i+4 : i+4]
			p[0], p[1], p[2], p[3] = r, g, bl, 0xff
		}
	}
	return dst, nil
}

// pixelDecoder extracts 8-bit channels from a little-endian packed pixel.
type pixelDecoder struct {
	red, green, blue channelDecoder
	bytes            int
}

type channelDecoder struct {
	shift uint8
	mask  uint32
}

func newChannelDecoder(c capture.Channel) channelDecoder {
	if c.Length == 0 {
		return channelDecoder{}
	}
	return channelDecoder{shift: c.Offset, mask: (1 << c.Length) - 1}
}

func (c channelDecoder) value(v uint32) uint8 {
	if c.mask == 0 {
		return 0
	}
	x := (v >> c.shift) & c.mask
	if c.mask == 0xff {
		return uint8(x)
	}
	return uint8((uint64(x)*255 + uint64(c.mask)/2) / uint64(c.mask))
}

func newPixelDecoder(f capture.PixelFormat, bytesPerPixel int) pixelDecoder {
	return pixelDecoder{
		red:   newChannelDecoder(f.Red),
		green: newChannelDecoder(f.Green),
		blue:  newChannelDecoder(f.Blue),
		bytes: bytesPerPixel,
	}
}

func (d pixelDecoder) rgb(px []byte) (r, g, b uint8) {
	var v uint32
	switch d.bytes {
	case 2:
		v = uint32(px[0]) | uint32(px[1])<<8
	case 3:
		v = uint32(px[0]) | uint32(px[1])<<8 | uint32(px[2])<<16
	default:
		v = uint32(px[0]) | uint32(px[1])<<8 | uint32(px[2])<<16 | uint32(px[3])<<24
	}
	return d.red.value(v), d.green.value(v), d.blue.value(v)
}
