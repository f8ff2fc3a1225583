// Package relay forwards mirrored frames to a remote viewer.
//
// The relay is a FrameConsumer with a single-slot mailbox: OnFrame copies the
// frame into the slot and returns, a sender goroutine encodes and sends
// whatever is in the slot. A slow viewer only ever sees the latest frame.
package relay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/junsooki/screencast/internal/encoder"
	"github.com/junsooki/screencast/internal/frame"
	"github.com/junsooki/screencast/internal/logging"
	"github.com/junsooki/screencast/internal/metrics"
	"github.com/junsooki/screencast/internal/pointer"
	"github.com/junsooki/screencast/internal/transport"
)

// Relay encodes and sends the latest published frame.
type Relay struct {
	enc     encoder.Encoder
	metrics *metrics.Metrics
	log     *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	slot    *image.RGBA
	spare   *image.RGBA
	pending bool
	sender  transport.FrameSender

	sent    atomic.Uint64
	dropped atomic.Uint64

	startedMu sync.Mutex
	started   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Option configures a Relay.
type Option func(*Relay)

// WithMetrics counts dropped frames in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithLogger overrides the "relay" module logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Relay) { r.log = log }
}

// New returns a Relay that compresses frames with enc.
func New(enc encoder.Encoder, opts ...Option) *Relay {
	r := &Relay{enc: enc}
	r.cond = sync.NewCond(&r.mu)
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = logging.For("relay")
	}
	return r
}

// SetSender attaches the viewer connection. nil detaches it; frames are then
// ignored without being copied or encoded.
func (r *Relay) SetSender(s transport.FrameSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sender = s
	if s == nil {
		r.pending = false
	}
}

// OnFrame implements mirror.FrameConsumer.
func (r *Relay) OnFrame(size image.Point, img *image.RGBA, o frame.Orientation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sender == nil {
		return
	}
	if r.pending {
		r.dropped.Add(1)
		r.metrics.IncRelayDropped()
	}
	r.slot = frame.Copy(r.slot, img)
	r.pending = true
	r.cond.Signal()
}

// Start spawns the sender goroutine.
func (r *Relay) Start(ctx context.Context) error {
	r.startedMu.Lock()
	defer r.startedMu.Unlock()

	if r.started {
		return fmt.Errorf("relay already started")
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.started = true

	r.wg.Add(1)
	go r.sendLoop()

	// Wake the sender when the parent context ends.
	context.AfterFunc(r.ctx, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	return nil
}

// Stop shuts the sender goroutine down and waits for it. Idempotent.
func (r *Relay) Stop() {
	r.startedMu.Lock()
	if !r.started {
		r.startedMu.Unlock()
		return
	}
	r.startedMu.Unlock()

	r.cancel()
	r.mu.Lock()
	r.cond.Broadcast()
	r.mu.Unlock()
	r.wg.Wait()
}

// Sent returns the number of frames handed to the sender successfully.
func (r *Relay) Sent() uint64 { return r.sent.Load() }

// Dropped returns the number of frames replaced before they were sent.
func (r *Relay) Dropped() uint64 { return r.dropped.Load() }

func (r *Relay) sendLoop() {
	defer r.wg.Done()

	for {
		r.mu.Lock()
		for !r.pending {
			if r.ctx.Err() != nil {
				r.mu.Unlock()
				return
			}
			r.cond.Wait()
		}
		if r.ctx.Err() != nil {
			r.mu.Unlock()
			return
		}
		img := r.slot
		r.slot = r.spare
		r.spare = nil
		r.pending = false
		sender := r.sender
		r.mu.Unlock()

		r.send(sender, img)

		r.mu.Lock()
		r.spare = img
		r.mu.Unlock()
	}
}

func (r *Relay) send(sender transport.FrameSender, img *image.RGBA) {
	if sender == nil {
		return
	}
	data, err := r.enc.Encode(img)
	if err != nil {
		r.log.Warn("encode frame", "error", err)
		return
	}
	if err := sender.SendFrame(data); err != nil {
		if errors.Is(err, transport.ErrCongested) || errors.Is(err, transport.ErrNotOpen) {
			r.dropped.Add(1)
			r.metrics.IncRelayDropped()
			r.log.Debug("frame not sent", "error", err)
			return
		}
		r.log.Warn("send frame", "error", err)
		return
	}
	r.sent.Add(1)
}

// PointerHandler returns a callback for raw pointer messages arriving from a
// viewer. Valid messages are passed to add; malformed ones are logged and dropped.
func PointerHandler(add func(kind pointer.Kind, x, y float64), log *slog.Logger) func(data []byte) {
	return func(data []byte) {
		kind, x, y, err := pointer.DecodeMessage(data)
		if err != nil {
			log.Debug("dropping pointer message", "error", err)
			return
		}
		add(kind, x, y)
	}
}
