package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/junsooki/screencast/internal/logging"
)

// scriptedLister returns one scripted answer per call, repeating the last.
type scriptedLister struct {
	mu    sync.Mutex
	steps [][]DeviceInfo
	errs  []error
	calls int
}

func (l *scriptedLister) Devices(ctx context.Context) ([]DeviceInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.calls
	if i >= len(l.steps) {
		i = len(l.steps) - 1
	}
	l.calls++
	return l.steps[i], l.errs[i]
}

func TestWatchDevices(t *testing.T) {
	lister := &scriptedLister{
		steps: [][]DeviceInfo{
			nil,
			{{Serial: "abc", State: "unauthorized"}},
			nil,
			{{Serial: "abc", State: "device"}},
			{{Serial: "abc", State: "device"}},
			{},
		},
		errs: []error{nil, nil, errors.New("adb down"), nil, nil, nil},
	}

	events := make(chan *Device, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		WatchDevices(ctx, lister, "", time.Millisecond, func(d *Device) { events <- d }, logging.Discard())
		close(done)
	}()

	select {
	case d := <-events:
		if d == nil || d.Serial != "abc" {
			t.Fatalf("first event = %v, want abc", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("device never attached")
	}
	select {
	case d := <-events:
		if d != nil {
			t.Fatalf("second event = %v, want detach", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("device never detached")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestPickDevice(t *testing.T) {
	infos := []DeviceInfo{
		{Serial: "a", State: "offline"},
		{Serial: "b", State: "device"},
		{Serial: "c", State: "device"},
	}
	if s, ok := pickDevice(infos, ""); !ok || s != "b" {
		t.Errorf("any = %q %v, want b", s, ok)
	}
	if s, ok := pickDevice(infos, "c"); !ok || s != "c" {
		t.Errorf("c = %q %v", s, ok)
	}
	if _, ok := pickDevice(infos, "a"); ok {
		t.Error("offline device picked")
	}
}
