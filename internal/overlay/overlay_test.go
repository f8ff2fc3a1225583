package overlay

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/junsooki/screencast/internal/pointer"
)

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

func events(kinds []pointer.Kind, pts [][2]float64) []pointer.Event {
	t0 := time.Now()
	out := make([]pointer.Event, len(kinds))
	for i, k := range kinds {
		out[i] = pointer.Event{X: pts[i][0], Y: pts[i][1], Kind: k, Time: t0.Add(time.Duration(i) * time.Millisecond)}
	}
	return out
}

func isRed(c color.RGBA) bool {
	return c.R > 200 && c.G < 60 && c.B < 60
}

func TestOverlay_ZeroLengthStrokeIsDrawn(t *testing.T) {
	img := blank(100, 100)
	r := NewRenderer()
	r.Overlay(img, events(
		[]pointer.Kind{pointer.Down, pointer.Move, pointer.Up},
		[][2]float64{{50, 50}, {50, 50}, {50, 50}},
	))

	if r.stroked != 1 {
		t.Errorf("Stroked = %d, want 1", r.stroked)
	}
	if !isRed(img.RGBAAt(50, 50)) {
		t.Errorf("center pixel = %v, want red", img.RGBAAt(50, 50))
	}
	if isRed(img.RGBAAt(5, 5)) {
		t.Error("far pixel should be untouched")
	}
}

func TestOverlay_OpenPathIsStroked(t *testing.T) {
	img := blank(200, 100)
	r := NewRenderer()
	r.Overlay(img, events(
		[]pointer.Kind{pointer.Down, pointer.Move},
		[][2]float64{{20, 50}, {180, 50}},
	))

	if r.stroked != 1 {
		t.Errorf("Stroked = %d, want 1", r.stroked)
	}
	if !isRed(img.RGBAAt(100, 50)) {
		t.Errorf("midpoint = %v, want red", img.RGBAAt(100, 50))
	}
}

func TestOverlay_DownFlushesOpenPath(t *testing.T) {
	img := blank(200, 200)
	r := NewRenderer()
	r.Overlay(img, events(
		[]pointer.Kind{pointer.Down, pointer.Move, pointer.Down, pointer.Up},
		[][2]float64{{20, 20}, {180, 20}, {20, 180}, {180, 180}},
	))
	if r.stroked != 2 {
		t.Errorf("Stroked = %d, want 2", r.stroked)
	}
	if !isRed(img.RGBAAt(100, 20)) || !isRed(img.RGBAAt(100, 180)) {
		t.Error("both gestures should be visible")
	}
}

func TestOverlay_UpWithoutDown(t *testing.T) {
	img := blank(100, 100)
	r := NewRenderer()
	r.Overlay(img, events([]pointer.Kind{pointer.Up}, [][2]float64{{30, 30}}))
	if r.stroked != 1 || !isRed(img.RGBAAt(30, 30)) {
		t.Errorf("lone Up should draw a dot (stroked=%d, px=%v)", r.stroked, img.RGBAAt(30, 30))
	}
}

func TestOverlay_MoveStartsPath(t *testing.T) {
	img := blank(100, 100)
	r := NewRenderer()
	r.Overlay(img, events(
		[]pointer.Kind{pointer.Move, pointer.Move, pointer.Up},
		[][2]float64{{10, 10}, {50, 10}, {90, 10}},
	))
	if r.stroked != 1 || !isRed(img.RGBAAt(50, 10)) {
		t.Errorf("stroked=%d px=%v", r.stroked, img.RGBAAt(50, 10))
	}
}

func TestOverlay_OutOfBoundsIsClipped(t *testing.T) {
	img := blank(50, 50)
	r := NewRenderer()
	r.Overlay(img, events(
		[]pointer.Kind{pointer.Down, pointer.Up},
		[][2]float64{{-500, -500}, {5000, 5000}},
	))
	if !isRed(img.RGBAAt(25, 25)) {
		t.Errorf("diagonal through the frame should be visible, got %v", img.RGBAAt(25, 25))
	}
}

func TestOverlay_NoEventsNoChange(t *testing.T) {
	img := blank(10, 10)
	before := append([]byte(nil), img.Pix...)
	NewRenderer().Overlay(img, nil)
	for i := range before {
		if before[i] != img.Pix[i] {
			t.Fatal("image changed without events")
		}
	}
}
