package mirror

import (
	"log/slog"
	"time"

	"github.com/junsooki/screencast/internal/capture"
	"github.com/junsooki/screencast/internal/frame"
	"github.com/junsooki/screencast/internal/metrics"
	"github.com/junsooki/screencast/internal/pointer"
	"github.com/junsooki/screencast/internal/recording"
)

// Default polling cadence.
const (
	DefaultIdleDelay  = 100 * time.Millisecond
	DefaultFrameDelay = 10 * time.Millisecond
)

// Option configures a Loop.
type Option func(*Loop)

// WithDevice sets the initial device. Without it the loop waits for SetDevice.
func WithDevice(dev *capture.Device) Option {
	return func(l *Loop) { l.device.Store(dev) }
}

// WithConsumers registers frame consumers, called in the given order.
func WithConsumers(cs ...FrameConsumer) Option {
	return func(l *Loop) { l.consumers = append(l.consumers, cs...) }
}

// WithPointerLog shares an existing pointer log.
func WithPointerLog(p *pointer.Log) Option {
	return func(l *Loop) { l.pointers = p }
}

// WithRecorder sets how recordings are opened and encoded.
func WithRecorder(opener recording.Opener, opts recording.Options) Option {
	return func(l *Loop) {
		l.opener = opener
		l.recOpts = opts
	}
}

// WithMetrics records loop activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithLogger overrides the "mirror" module logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithDelays sets the sleep while no device is present and the sleep after
// each capture cycle. Non-positive values keep the defaults.
func WithDelays(idle, frameDelay time.Duration) Option {
	return func(l *Loop) {
		if idle > 0 {
			l.idleDelay = idle
		}
		if frameDelay > 0 {
			l.frameDelay = frameDelay
		}
	}
}

// WithOrientation sets the initial orientation.
func WithOrientation(o frame.Orientation) Option {
	return func(l *Loop) { l.orientation.Store(int32(o)) }
}

// WithClock overrides time.Now for pointer trail pruning.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}
