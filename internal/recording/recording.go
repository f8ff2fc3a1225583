// Package recording streams mirrored frames into a video file.
//
// A Session moves Inactive -> Active -> Closed. The zero Session is Inactive;
// Start returns an Active one. Submit appends frames in presentation order and
// Stop finalizes the file. Stop is not idempotent.
package recording

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidState is returned for submit-before-start and double stop.
	ErrInvalidState = errors.New("recording: invalid session state")
	// ErrInvalidDuration is returned when a frame would last less than one tick.
	ErrInvalidDuration = errors.New("recording: frame duration must be at least one tick")
)

// IOError reports a sink failure. It is surfaced to the caller, never retried.
type IOError struct {
	Op   string // "open", "write" or "close"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("recording %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Format is a container/codec pairing.
type Format string

// FormatMJPEG writes Motion-JPEG in an AVI container.
const FormatMJPEG Format = "mjpeg"

// Extension returns the file extension the format expects.
func (f Format) Extension() string {
	switch f {
	case FormatMJPEG:
		return ".avi"
	default:
		return "." + string(f)
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatMJPEG, "":
		return FormatMJPEG, nil
	}
	return "", fmt.Errorf("unsupported recording format %q", s)
}

// Options configures a recording.
type Options struct {
	Format Format
	// Quality is the compression quality in (0, 1].
	Quality float64
	// FrameRate is the time scale: one tick lasts 1/FrameRate seconds.
	FrameRate int
}

// DefaultOptions records MJPEG at full quality, 30 ticks per second.
func DefaultOptions() Options {
	return Options{Format: FormatMJPEG, Quality: 1, FrameRate: 30}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = d.Quality
	}
	if o.FrameRate <= 0 {
		o.FrameRate = d.FrameRate
	}
	return o
}

// NormalizePath appends the format's extension unless dest already ends with it.
func NormalizePath(dest string, f Format) string {
	ext := f.Extension()
	if strings.EqualFold(filepath.Ext(dest), ext) {
		return dest
	}
	return dest + ext
}

// Sink is an open encoding stream.
type Sink interface {
	WriteFrame(img image.Image, durationTicks int) error
	Close() error
}

// Opener opens sinks.
type Opener interface {
	Open(path string, opts Options) (Sink, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string, opts Options) (Sink, error)

func (f OpenerFunc) Open(path string, opts Options) (Sink, error) { return f(path, opts) }

// State of a Session.
type State int

const (
	Inactive State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return "inactive"
	}
}

// Session is one recording bound to one destination.
type Session struct {
	mu     sync.Mutex
	state  State
	sink   Sink
	path   string
	opts   Options
	frames int
	ticks  int64
}

// Start opens a sink at destination (normalized to the format's extension).
func Start(opener Opener, destination string, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	path := NormalizePath(destination, opts.Format)
	sink, err := opener.Open(path, opts)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	return &Session{state: Active, sink: sink, path: path, opts: opts}, nil
}

// Submit encodes img for durationTicks ticks.
func (s *Session) Submit(img image.Image, durationTicks int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return fmt.Errorf("%w: submit on %s session", ErrInvalidState, s.state)
	}
	if durationTicks < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, durationTicks)
	}
	if err := s.sink.WriteFrame(img, durationTicks); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	s.frames++
	s.ticks += int64(durationTicks)
	return nil
}

// Stop finalizes the sink. The session is Closed afterwards even if closing failed.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return fmt.Errorf("%w: stop on %s session", ErrInvalidState, s.state)
	}
	s.state = Closed
	sink := s.sink
	s.sink = nil
	if err := sink.Close(); err != nil {
		return &IOError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Path returns the normalized destination.
func (s *Session) Path() string { return s.path }

// Options returns the effective options.
func (s *Session) Options() Options { return s.opts }

// Frames returns the number of submitted frames.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Duration returns the presentation time written so far.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.FrameRate <= 0 {
		return 0
	}
	return time.Duration(s.ticks) * time.Second / time.Duration(s.opts.FrameRate)
}
