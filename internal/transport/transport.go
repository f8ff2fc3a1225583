// Package transport carries encoded frames and pointer messages between a
// mirroring host and a remote viewer.
package transport

import (
	"errors"

	"github.com/junsooki/screencast/internal/pointer"
)

// Data channel labels.
const (
	FramesLabel  = "frames"
	PointerLabel = "input"
)

var (
	// ErrNotOpen is returned when the target channel is missing or not open yet.
	ErrNotOpen = errors.New("transport: data channel not open")
	// ErrCongested is returned when too much data is already queued on the frames channel.
	ErrCongested = errors.New("transport: frames channel congested")
)

// FrameSender sends encoded video frames.
type FrameSender interface {
	SendFrame(data []byte) error
}

// FrameReceiver receives encoded video frames.
type FrameReceiver interface {
	OnFrame(callback func(data []byte))
}

// PointerSender sends pointer gestures.
type PointerSender interface {
	SendPointer(m pointer.Message) error
}

// PointerReceiver receives serialized pointer messages.
type PointerReceiver interface {
	OnPointer(callback func(data []byte))
}
