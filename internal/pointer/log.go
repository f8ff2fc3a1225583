// Package pointer records recent pointer and touch events for visualization.
package pointer

import (
	"sync"
	"time"
)

// DefaultRetention is how long an event stays visible.
const DefaultRetention = 1000 * time.Millisecond

// Log is a time-windowed, insertion-ordered buffer of pointer events.
// Any goroutine may Append; one renderer calls SnapshotAndPrune.
type Log struct {
	mu        sync.Mutex
	events    []Event
	retention time.Duration
	now       func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(l *Log) { l.retention = d }
}

// WithClock overrides time.Now for stamping appended events.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// NewLog creates an empty Log.
func NewLog(opts ...Option) *Log {
	l := &Log{
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Append records an event stamped with the current time.
func (l *Log) Append(kind Kind, x, y float64) {
	l.mu.Lock()
	l.events = append(l.events, Event{X: x, Y: y, Kind: kind, Time: l.now()})
	l.mu.Unlock()
}

// SnapshotAndPrune drops events older than the retention window relative to now
// and returns a copy of the survivors in insertion order.
func (l *Log) SnapshotAndPrune(now time.Time) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.events[:0]
	for _, e := range l.events {
		if now.Sub(e.Time) > l.retention {
			continue
		}
		kept = append(kept, e)
	}
	// Clear the tail so evicted events don't linger in the backing array.
	for i := len(kept); i < len(l.events); i++ {
		l.events[i] = Event{}
	}
	l.events = kept

	if len(kept) == 0 {
		return nil
	}
	out := make([]Event, len(kept))
	copy(out, kept)
	return out
}

// Len reports the number of buffered events, including expired ones not yet pruned.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
