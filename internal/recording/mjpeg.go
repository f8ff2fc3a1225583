package recording

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"github.com/icza/mjpeg"
	xdraw "golang.org/x/image/draw"

	"github.com/junsooki/screencast/internal/encoder"
)

// MJPEGOpener opens Motion-JPEG AVI sinks.
type MJPEGOpener struct{}

// Open checks the destination is writable. The AVI header needs the frame
// size, so the container itself is created on the first frame.
func (MJPEGOpener) Open(path string, opts Options) (Sink, error) {
	opts = opts.withDefaults()
	if opts.Format != FormatMJPEG {
		return nil, fmt.Errorf("mjpeg sink cannot write %q", opts.Format)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &mjpegSink{
		path: path,
		fps:  opts.FrameRate,
		enc:  encoder.NewJPEGEncoder(encoder.QualityFromFraction(opts.Quality)),
	}, nil
}

type mjpegSink struct {
	path   string
	fps    int
	enc    *encoder.JPEGEncoder
	aw     mjpeg.AviWriter
	canvas *image.RGBA
}

// WriteFrame encodes img once and repeats it durationTicks times. Frames whose
// size differs from the first frame (after an orientation change) are
// letterboxed into the first frame's canvas.
func (s *mjpegSink) WriteFrame(img image.Image, durationTicks int) error {
	b := img.Bounds()
	if s.aw == nil {
		aw, err := mjpeg.New(s.path, int32(b.Dx()), int32(b.Dy()), int32(s.fps))
		if err != nil {
			return err
		}
		s.aw = aw
		s.canvas = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}

	src := img
	if b.Size() != s.canvas.Rect.Size() {
		draw.Draw(s.canvas, s.canvas.Rect, image.Black, image.Point{}, draw.Src)
		xdraw.ApproxBiLinear.Scale(s.canvas, fitRect(s.canvas.Rect, b.Size()), img, b, draw.Src, nil)
		src = s.canvas
	}

	data, err := s.enc.Encode(src)
	if err != nil {
		return err
	}
	for i := 0; i < durationTicks; i++ {
		if err := s.aw.AddFrame(data); err != nil {
			return err
		}
	}
	return nil
}

func (s *mjpegSink) Close() error {
	if s.aw == nil {
		// Nothing was recorded; drop the placeholder.
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return s.aw.Close()
}

// fitRect returns the largest rectangle with size's aspect ratio centered in bounds.
func fitRect(bounds image.Rectangle, size image.Point) image.Rectangle {
	bw, bh := bounds.Dx(), bounds.Dy()
	if size.X <= 0 || size.Y <= 0 {
		return bounds
	}
	w, h := bw, size.Y*bw/size.X
	if h > bh {
		w, h = size.X*bh/size.Y, bh
	}
	x0 := bounds.Min.X + (bw-w)/2
	y0 := bounds.Min.Y + (bh-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}
