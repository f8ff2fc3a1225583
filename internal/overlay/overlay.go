// Package overlay draws recent pointer gestures on top of mirrored frames.
package overlay

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/junsooki/screencast/internal/pointer"
)

// Stroke style for gesture trails.
const (
	StrokeWidth = 20.0
)

// StrokeColor is the trail color.
var StrokeColor = color.RGBA{R: 0xff, A: 0xff}

// Renderer replays a pointer event sequence as stroked paths.
type Renderer struct {
	stroked int // paths drawn since creation
}

// NewRenderer returns a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Overlay strokes the gestures described by events onto img.
//
// Down opens a path (flushing a path that was left open), Move extends the
// open path or opens one, Up extends and strokes it. A path still open at the
// end is stroked too, so gestures in progress are visible.
func (r *Renderer) Overlay(img *image.RGBA, events []pointer.Event) {
	if img == nil || len(events) == 0 {
		return
	}

	dc := gg.NewContextForRGBA(img)
	dc.SetColor(StrokeColor)
	dc.SetLineWidth(StrokeWidth)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	var path []gg.Point
	for _, e := range events {
		p := gg.Point{X: e.X, Y: e.Y}
		switch e.Kind {
		case pointer.Down:
			if path != nil {
				r.stroke(dc, path)
			}
			path = []gg.Point{p}
		case pointer.Move:
			path = append(path, p)
		case pointer.Up:
			if path == nil {
				path = []gg.Point{p}
			}
			path = append(path, p)
			r.stroke(dc, path)
			path = nil
		}
	}
	if path != nil {
		r.stroke(dc, path)
	}
}

func (r *Renderer) stroke(dc *gg.Context, path []gg.Point) {
	r.stroked++
	if degenerate(path) {
		// A round-capped segment of zero length is a disc.
		dc.DrawCircle(path[0].X, path[0].Y, StrokeWidth/2)
		dc.Fill()
		return
	}
	dc.MoveTo(path[0].X, path[0].Y)
	for _, p := range path[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()
}

func degenerate(path []gg.Point) bool {
	for _, p := range path[1:] {
		if p != path[0] {
			return false
		}
	}
	return true
}
