package mirror

import (
	"image"

	"github.com/junsooki/screencast/internal/frame"
)

// FrameConsumer receives every published frame on the capture goroutine.
//
// img is only valid for the duration of the call: the loop reuses it for the
// next frame. A consumer that keeps the frame must copy it (see frame.Copy)
// before returning, and should return quickly.
type FrameConsumer interface {
	OnFrame(size image.Point, img *image.RGBA, o frame.Orientation)
}

// ConsumerFunc adapts a function to FrameConsumer.
type ConsumerFunc func(size image.Point, img *image.RGBA, o frame.Orientation)

func (f ConsumerFunc) OnFrame(size image.Point, img *image.RGBA, o frame.Orientation) {
	f(size, img, o)
}
