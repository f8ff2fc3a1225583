package display

import (
	"context"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/junsooki/screencast/internal/frame"
	"github.com/junsooki/screencast/internal/pointer"
)

// EbitenDisplay renders mirrored frames using Ebitengine. It is a frame
// consumer: OnFrame copies the frame and returns.
type EbitenDisplay struct {
	opts     Options
	controls Controls

	mu    sync.Mutex
	front *image.RGBA
	back  *image.RGBA
	dirty bool

	ebitenImage *ebiten.Image
	ctx         context.Context

	pressed    bool
	prevMouseX int
	prevMouseY int
}

// NewEbitenDisplay creates an Ebitengine-based display.
func NewEbitenDisplay(opts Options, controls Controls) *EbitenDisplay {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 720, 1280
	}
	if opts.Title == "" {
		opts.Title = "screencast"
	}
	return &EbitenDisplay{opts: opts, controls: controls}
}

// OnFrame copies img for the next Draw. Called from the capture goroutine.
func (d *EbitenDisplay) OnFrame(size image.Point, img *image.RGBA, o frame.Orientation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.back = frame.Copy(d.back, img)
	d.front, d.back = d.back, d.front
	d.dirty = true
}

// Run starts the Ebitengine game loop and returns when the window is closed
// or ctx is done. Must be called from the main goroutine.
func (d *EbitenDisplay) Run(ctx context.Context) error {
	d.ctx = ctx
	ebiten.SetWindowSize(d.opts.Width/2, d.opts.Height/2)
	ebiten.SetWindowTitle(d.opts.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err := ebiten.RunGame(d)
	if err == ebiten.Termination {
		return nil
	}
	return err
}

// --- ebiten.Game interface ---

func (d *EbitenDisplay) Update() error {
	if d.ctx != nil && d.ctx.Err() != nil {
		return ebiten.Termination
	}
	d.captureMouseInput()
	d.captureHotkeys()
	return nil
}

func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	d.mu.Lock()
	f := d.front
	if f == nil {
		d.mu.Unlock()
		return
	}
	size := f.Rect.Size()
	if d.ebitenImage == nil || d.ebitenImage.Bounds().Size() != size {
		d.ebitenImage = ebiten.NewImage(size.X, size.Y)
		d.dirty = true
	}
	if d.dirty {
		d.ebitenImage.WritePixels(f.Pix)
		d.dirty = false
	}
	d.mu.Unlock()

	scale, offsetX, offsetY := frame.AspectFit(screen.Bounds().Size(), size)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(d.ebitenImage, op)
}

func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// --- Input capture ---

func (d *EbitenDisplay) frameSize() image.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.front == nil {
		return image.Point{}
	}
	return d.front.Rect.Size()
}

func (d *EbitenDisplay) captureMouseInput() {
	if d.controls.OnPointer == nil {
		return
	}
	size := d.frameSize()
	if size == (image.Point{}) {
		return
	}

	mx, my := ebiten.CursorPosition()
	sw, sh := ebiten.WindowSize()
	scale, offsetX, offsetY := frame.AspectFit(image.Pt(sw, sh), size)
	fx := (float64(mx) - offsetX) / scale
	fy := (float64(my) - offsetY) / scale
	inside := fx >= 0 && fy >= 0 && fx < float64(size.X) && fy < float64(size.Y)

	moved := mx != d.prevMouseX || my != d.prevMouseY
	d.prevMouseX, d.prevMouseY = mx, my

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && inside:
		d.pressed = true
		d.controls.OnPointer(pointer.Down, fx, fy)
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) && d.pressed:
		d.pressed = false
		d.controls.OnPointer(pointer.Up, fx, fy)
	case d.pressed && moved:
		d.controls.OnPointer(pointer.Move, fx, fy)
	}
}

func (d *EbitenDisplay) captureHotkeys() {
	if inpututil.IsKeyJustPressed(ebiten.KeyO) && d.controls.OnToggleOrientation != nil {
		d.controls.OnToggleOrientation()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) && d.controls.OnToggleRecording != nil {
		d.controls.OnToggleRecording()
	}
}
