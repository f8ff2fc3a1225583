// Package mirror runs the capture loop: it polls a device for framebuffers,
// decodes them, overlays recent pointer gestures, feeds the active recording
// and publishes each frame to the registered consumers.
package mirror

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/junsooki/screencast/internal/capture"
	"github.com/junsooki/screencast/internal/frame"
	"github.com/junsooki/screencast/internal/logging"
	"github.com/junsooki/screencast/internal/metrics"
	"github.com/junsooki/screencast/internal/overlay"
	"github.com/junsooki/screencast/internal/pointer"
	"github.com/junsooki/screencast/internal/recording"
)

var (
	ErrAlreadyStarted = errors.New("mirror: loop already started")
	ErrStopped        = errors.New("mirror: loop stopped")
)

// State is the loop's coarse lifecycle state.
type State int32

const (
	WaitingForDevice State = iota
	Capturing
	Stopped
)

func (s State) String() string {
	switch s {
	case Capturing:
		return "capturing"
	case Stopped:
		return "stopped"
	default:
		return "waiting_for_device"
	}
}

// Loop is the capture loop. All methods are safe for concurrent use.
type Loop struct {
	source     capture.ScreenshotSource
	builder    *frame.Builder
	renderer   *overlay.Renderer
	pointers   *pointer.Log
	consumers  []FrameConsumer
	metrics    *metrics.Metrics
	log        *slog.Logger
	idleDelay  time.Duration
	frameDelay time.Duration
	now        func() time.Time

	device      atomic.Pointer[capture.Device]
	orientation atomic.Int32
	state       atomic.Int32
	frames      atomic.Uint64

	sizeMu sync.Mutex
	size   image.Point

	// Owned by the capture goroutine.
	prev    *image.RGBA
	failing bool

	recMu   sync.Mutex
	opener  recording.Opener
	recOpts recording.Options
	session *recording.Session
	recErr  error

	startMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	firstFrame chan struct{}
	firstOnce  sync.Once
}

// New creates a Loop reading from source. It does nothing until Start.
func New(source capture.ScreenshotSource, opts ...Option) *Loop {
	l := &Loop{
		source:     source,
		builder:    frame.NewBuilder(),
		renderer:   overlay.NewRenderer(),
		idleDelay:  DefaultIdleDelay,
		frameDelay: DefaultFrameDelay,
		now:        time.Now,
		opener:     recording.MJPEGOpener{},
		recOpts:    recording.DefaultOptions(),
		done:       make(chan struct{}),
		firstFrame: make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	if l.pointers == nil {
		l.pointers = pointer.NewLog()
	}
	if l.log == nil {
		l.log = logging.For("mirror")
	}
	return l
}

// Start launches the capture goroutine. The loop runs until Stop or until ctx
// is cancelled. A loop runs at most once.
func (l *Loop) Start(ctx context.Context) error {
	l.startMu.Lock()
	defer l.startMu.Unlock()

	if l.started {
		return ErrAlreadyStarted
	}
	l.started = true
	ctx, l.cancel = context.WithCancel(ctx)

	l.log.Info("capture loop starting",
		"device", l.device.Load().String(),
		"orientation", l.Orientation().String(),
		"idle_delay", l.idleDelay,
		"frame_delay", l.frameDelay)
	go l.run(ctx)
	return nil
}

// Stop cancels the loop and waits for the capture goroutine to exit. Any
// recording still in progress is finalized. Stop is idempotent.
func (l *Loop) Stop() {
	l.startMu.Lock()
	if !l.started {
		l.started = true
		l.state.Store(int32(Stopped))
		close(l.done)
		l.startMu.Unlock()
		return
	}
	cancel := l.cancel
	l.startMu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-l.done
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run(ctx context.Context) {
	defer func() {
		l.finishRecording()
		l.state.Store(int32(Stopped))
		l.log.Info("capture loop stopped", "frames", l.frames.Load())
		close(l.done)
	}()

	for {
		delay := l.tick(ctx)
		if !sleep(ctx, delay) {
			return
		}
	}
}

// tick runs one capture cycle and returns how long to sleep before the next.
func (l *Loop) tick(ctx context.Context) time.Duration {
	dev := l.device.Load()
	if dev == nil {
		l.state.Store(int32(WaitingForDevice))
		return l.idleDelay
	}
	l.state.Store(int32(Capturing))

	start := time.Now()
	raw, err := dev.Fetch(ctx, l.source)
	if ctx.Err() != nil {
		return 0
	}
	if err != nil {
		l.fetchFailed(dev, err)
		return l.frameDelay
	}

	o := l.Orientation()
	img, err := l.builder.Decode(raw, o, l.prev)
	if err != nil {
		l.fetchFailed(dev, err)
		return l.frameDelay
	}
	if l.failing {
		l.failing = false
		l.log.Info("capture recovered", "device", dev.String())
	}
	l.prev = img

	events := l.pointers.SnapshotAndPrune(l.now())
	l.metrics.SetPointerEvents(len(events))
	l.renderer.Overlay(img, events)

	l.submit(img)
	l.publish(img, o)
	l.metrics.ObserveCapture(time.Since(start))
	return l.frameDelay
}

func (l *Loop) fetchFailed(dev *capture.Device, err error) {
	reason := failureReason(err)
	l.metrics.IncFetchFailure(reason)

	// Log the first failure of a streak loudly; the rest would flood at the frame rate.
	level := slog.LevelDebug
	if !l.failing {
		level = slog.LevelWarn
		l.failing = true
	}
	l.log.Log(context.Background(), level, "capture cycle skipped",
		"device", dev.String(),
		"reason", reason,
		"error", err)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, capture.ErrTransportTimeout):
		return metrics.ReasonTimeout
	case errors.Is(err, capture.ErrTransportRejected):
		return metrics.ReasonRejected
	case errors.Is(err, capture.ErrMalformedFrame):
		return metrics.ReasonMalformed
	default:
		return metrics.ReasonOther
	}
}

func (l *Loop) publish(img *image.RGBA, o frame.Orientation) {
	size := img.Rect.Size()
	l.sizeMu.Lock()
	l.size = size
	l.sizeMu.Unlock()

	for _, c := range l.consumers {
		c.OnFrame(size, img, o)
	}
	l.frames.Add(1)
	l.metrics.IncFrames()
	l.firstOnce.Do(func() {
		l.log.Info("first frame published", "width", size.X, "height", size.Y)
		close(l.firstFrame)
	})
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// WaitForFirstFrame blocks until the first frame has been published. It
// returns ErrStopped if the loop stops first.
func (l *Loop) WaitForFirstFrame(ctx context.Context) error {
	select {
	case <-l.firstFrame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-l.firstFrame:
			return nil
		default:
			return ErrStopped
		}
	}
}

// SetDevice supplies or replaces the capture device. nil puts the loop back
// into WaitingForDevice.
func (l *Loop) SetDevice(dev *capture.Device) {
	old := l.device.Swap(dev)
	if old != dev {
		l.log.Info("device changed", "from", old.String(), "to", dev.String())
	}
}

// Device returns the current device, or nil.
func (l *Loop) Device() *capture.Device {
	return l.device.Load()
}

// ToggleOrientation flips between portrait and landscape and returns the new
// orientation. It takes effect from the next decoded frame.
func (l *Loop) ToggleOrientation() frame.Orientation {
	for {
		old := l.orientation.Load()
		next := frame.Orientation(old).Toggle()
		if l.orientation.CompareAndSwap(old, int32(next)) {
			l.log.Info("orientation changed", "orientation", next.String())
			return next
		}
	}
}

// SetOrientation sets the orientation used from the next decoded frame.
func (l *Loop) SetOrientation(o frame.Orientation) {
	l.orientation.Store(int32(o))
}

// Orientation returns the current orientation.
func (l *Loop) Orientation() frame.Orientation {
	return frame.Orientation(l.orientation.Load())
}

// AddPointerEvent records a pointer event to be drawn on upcoming frames.
func (l *Loop) AddPointerEvent(kind pointer.Kind, x, y float64) {
	l.pointers.Append(kind, x, y)
}

// CurrentSize returns the size of the last published frame, or the zero
// point before the first frame.
func (l *Loop) CurrentSize() image.Point {
	l.sizeMu.Lock()
	defer l.sizeMu.Unlock()
	return l.size
}

// State returns the loop state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Frames returns the number of frames published so far.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}
