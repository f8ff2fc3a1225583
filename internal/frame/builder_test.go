package frame

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/junsooki/screencast/internal/capture"
)

// rgbaFrame builds a packed RGBA8888 frame where pixel (x, y) has R=x, G=y.
func rgbaFrame(w, h int) *capture.RawFrame {
	data := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			data[i] = byte(x)
			data[i+1] = byte(y)
			data[i+2] = 7
			data[i+3] = 0x10
		}
	}
	return &capture.RawFrame{Width: w, Height: h, BitsPerPixel: 32, Format: capture.FormatRGBA8888, Data: data}
}

func TestDecode_Dimensions(t *testing.T) {
	b := NewBuilder()
	sizes := [][2]int{{1, 1}, {3, 5}, {16, 9}, {800, 600}}
	for _, s := range sizes {
		raw := rgbaFrame(s[0], s[1])

		img, err := b.Decode(raw, Portrait, nil)
		if err != nil {
			t.Fatalf("Decode portrait %v: %v", s, err)
		}
		if img.Bounds().Dx() != s[0] || img.Bounds().Dy() != s[1] {
			t.Errorf("portrait %v: got %v", s, img.Bounds().Size())
		}

		img, err = b.Decode(raw, Landscape, nil)
		if err != nil {
			t.Fatalf("Decode landscape %v: %v", s, err)
		}
		if img.Bounds().Dx() != s[1] || img.Bounds().Dy() != s[0] {
			t.Errorf("landscape %v: got %v", s, img.Bounds().Size())
		}
	}
}

func TestDecode_PortraitPlacementAndOpaque(t *testing.T) {
	img, err := NewBuilder().Decode(rgbaFrame(4, 3), Portrait, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := img.RGBAAt(2, 1)
	want := color.RGBA{R: 2, G: 1, B: 7, A: 0xff}
	if got != want {
		t.Errorf("pixel (2,1) = %v, want %v", got, want)
	}
}

func TestDecode_LandscapeRemap(t *testing.T) {
	const w, h = 4, 3
	img, err := NewBuilder().Decode(rgbaFrame(w, h), Landscape, nil)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			got := img.RGBAAt(y, w-x-1)
			if got.R != byte(x) || got.G != byte(y) {
				t.Fatalf("source (%d,%d) landed as R=%d G=%d", x, y, got.R, got.G)
			}
		}
	}
}

func TestDecode_ReusesMatchingBuffer(t *testing.T) {
	b := NewBuilder()
	first, err := b.Decode(rgbaFrame(8, 6), Portrait, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Decode(rgbaFrame(8, 6), Portrait, first)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected buffer reuse for unchanged dimensions")
	}
}

func TestDecode_OrientationToggleReallocates(t *testing.T) {
	b := NewBuilder()
	raw := rgbaFrame(800, 600)

	before, err := b.Decode(raw, Portrait, nil)
	if err != nil {
		t.Fatal(err)
	}
	if before.Bounds().Size() != image.Pt(800, 600) {
		t.Fatalf("before toggle: %v", before.Bounds().Size())
	}

	after, err := b.Decode(raw, Portrait.Toggle(), before)
	if err != nil {
		t.Fatal(err)
	}
	if after == before {
		t.Fatal("toggle must not reuse a buffer of mismatched dimensions")
	}
	if after.Bounds().Size() != image.Pt(600, 800) {
		t.Errorf("after toggle: %v", after.Bounds().Size())
	}
	if before.Bounds().Size() != image.Pt(800, 600) {
		t.Error("previous buffer was modified")
	}
}

func TestDecode_SquareToggleReusesBuffer(t *testing.T) {
	b := NewBuilder()
	raw := rgbaFrame(5, 5)
	first, _ := b.Decode(raw, Portrait, nil)
	second, err := b.Decode(raw, Landscape, first)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("square frames keep their dimensions across a toggle")
	}
}

func TestDecode_RGB565(t *testing.T) {
	// Pure red, pure green, pure blue, white.
	vals := []uint16{0xF800, 0x07E0, 0x001F, 0xFFFF}
	data := make([]byte, 0, 8)
	for _, v := range vals {
		data = append(data, byte(v), byte(v>>8))
	}
	raw := &capture.RawFrame{Width: 4, Height: 1, BitsPerPixel: 16, Format: capture.FormatRGB565, Data: data}

	img, err := NewBuilder().Decode(raw, Portrait, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []color.RGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 255, 255},
	}
	for x, w := range want {
		if got := img.RGBAAt(x, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
}

func TestDecode_BGRAWithStride(t *testing.T) {
	// 1x2 frame, 8-byte rows (4 bytes padding).
	data := []byte{
		10, 20, 30, 0xff, 0, 0, 0, 0,
		40, 50, 60, 0xff,
	}
	raw := &capture.RawFrame{Width: 1, Height: 2, BitsPerPixel: 32, Stride: 8, Format: capture.FormatBGRA8888, Data: data}
	img, err := NewBuilder().Decode(raw, Portrait, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{30, 20, 10, 255}) {
		t.Errorf("row 0 = %v", got)
	}
	if got := img.RGBAAt(0, 1); got != (color.RGBA{60, 50, 40, 255}) {
		t.Errorf("row 1 = %v", got)
	}
}

func TestDecode_RGB888(t *testing.T) {
	raw := &capture.RawFrame{Width: 2, Height: 1, BitsPerPixel: 24, Format: capture.FormatRGB888, Data: []byte{1, 2, 3, 4, 5, 6}}
	img, err := NewBuilder().Decode(raw, Portrait, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{4, 5, 6, 255}) {
		t.Errorf("pixel 1 = %v", got)
	}
}

func TestDecode_Malformed(t *testing.T) {
	short := rgbaFrame(4, 4)
	short.Data = short.Data[:len(short.Data)-1]

	tests := []struct {
		name string
		raw  *capture.RawFrame
	}{
		{"short data", short},
		{"zero width", &capture.RawFrame{Width: 0, Height: 4, BitsPerPixel: 32, Data: make([]byte, 64)}},
		{"bad bpp", &capture.RawFrame{Width: 2, Height: 2, BitsPerPixel: 12, Data: make([]byte, 64)}},
		{"stride too short", &capture.RawFrame{Width: 4, Height: 2, BitsPerPixel: 32, Stride: 8, Data: make([]byte, 64)}},
		{"overflowing size", &capture.RawFrame{Width: 1 << 31, Height: 1 << 31, BitsPerPixel: 32, Data: make([]byte, 16)}},
		{"overflowing width", &capture.RawFrame{Width: math.MaxInt / 2, Height: 1, BitsPerPixel: 32, Data: make([]byte, 16)}},
		{"overflowing stride", &capture.RawFrame{Width: 1, Height: 3, BitsPerPixel: 32, Stride: math.MaxInt / 2, Data: make([]byte, 16)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := image.NewRGBA(image.Rect(0, 0, 4, 4))
			img, err := NewBuilder().Decode(tt.raw, Portrait, prev)
			if !errors.Is(err, capture.ErrMalformedFrame) {
				t.Fatalf("expected ErrMalformedFrame, got %v", err)
			}
			if img != nil {
				t.Error("expected nil image on error")
			}
		})
	}
}

func TestParseOrientation(t *testing.T) {
	if o, err := ParseOrientation("landscape"); err != nil || o != Landscape {
		t.Errorf("landscape: %v %v", o, err)
	}
	if o, err := ParseOrientation(""); err != nil || o != Portrait {
		t.Errorf("empty: %v %v", o, err)
	}
	if _, err := ParseOrientation("sideways"); err == nil {
		t.Error("expected error")
	}
}

func TestCopy(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(2, 1, color.RGBA{R: 9, A: 255})

	dst := Copy(nil, src)
	if dst == src || dst.At(2, 1) != src.At(2, 1) {
		t.Fatal("Copy did not produce an independent equal image")
	}
	src.SetRGBA(2, 1, color.RGBA{G: 9, A: 255})
	if dst.RGBAAt(2, 1).G != 0 {
		t.Error("dst aliases src")
	}

	again := Copy(dst, src)
	if again != dst {
		t.Error("matching dst was not reused")
	}
	if other := Copy(dst, image.NewRGBA(image.Rect(0, 0, 2, 3))); other == dst {
		t.Error("mismatched dst was reused")
	}
}

func TestAspectFit(t *testing.T) {
	tests := []struct {
		view, frame      image.Point
		scale, offX, offY float64
	}{
		{image.Pt(1280, 720), image.Pt(640, 360), 2, 0, 0},
		{image.Pt(1000, 1000), image.Pt(500, 1000), 1, 250, 0},
		{image.Pt(800, 600), image.Pt(1600, 600), 0.5, 0, 150},
		{image.Pt(800, 600), image.Pt(0, 0), 1, 0, 0},
	}
	for _, tt := range tests {
		s, x, y := AspectFit(tt.view, tt.frame)
		if s != tt.scale || x != tt.offX || y != tt.offY {
			t.Errorf("AspectFit(%v, %v) = %v, %v, %v; want %v, %v, %v",
				tt.view, tt.frame, s, x, y, tt.scale, tt.offX, tt.offY)
		}
	}
}
