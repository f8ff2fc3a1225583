package transport

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/screencast/internal/pointer"
)

// maxBufferedFrames bounds the bytes queued on the frames channel before
// SendFrame starts refusing frames.
const maxBufferedFrames = 4 << 20

// DataChannelTransport implements frame and pointer transport over WebRTC DataChannels.
type DataChannelTransport struct {
	mu        sync.Mutex
	framesDC  *webrtc.DataChannel
	pointerDC *webrtc.DataChannel

	onFrame   func(data []byte)
	onPointer func(data []byte)
}

// NewDataChannelTransport wraps two DataChannels (frames + pointer). Either may
// be nil and attached later.
func NewDataChannelTransport(framesDC, pointerDC *webrtc.DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{}
	if framesDC != nil {
		t.SetFramesChannel(framesDC)
	}
	if pointerDC != nil {
		t.SetPointerChannel(pointerDC)
	}
	return t
}

// SendFrame sends one encoded frame. Frames are dropped with ErrCongested
// while the channel's send buffer is full.
func (t *DataChannelTransport) SendFrame(data []byte) error {
	dc := t.channel(&t.framesDC)
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	if dc.BufferedAmount() > maxBufferedFrames {
		return ErrCongested
	}
	return dc.Send(data)
}

// SendPointer sends one pointer message as JSON.
func (t *DataChannelTransport) SendPointer(m pointer.Message) error {
	dc := t.channel(&t.pointerDC)
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal pointer message: %w", err)
	}
	return dc.Send(data)
}

func (t *DataChannelTransport) OnFrame(cb func(data []byte)) {
	t.mu.Lock()
	t.onFrame = cb
	t.mu.Unlock()
}

func (t *DataChannelTransport) OnPointer(cb func(data []byte)) {
	t.mu.Lock()
	t.onPointer = cb
	t.mu.Unlock()
}

// SetFramesChannel sets or replaces the frames DataChannel (used when receiving negotiated channels).
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.framesDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if cb := t.callback(&t.onFrame); cb != nil {
			cb(msg.Data)
		}
	})
}

// SetPointerChannel sets or replaces the pointer DataChannel.
func (t *DataChannelTransport) SetPointerChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.pointerDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if cb := t.callback(&t.onPointer); cb != nil {
			cb(msg.Data)
		}
	})
}

func (t *DataChannelTransport) channel(p **webrtc.DataChannel) *webrtc.DataChannel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *p
}

func (t *DataChannelTransport) callback(p *func([]byte)) func([]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *p
}
