package control

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/junsooki/screencast/internal/frame"
	"github.com/junsooki/screencast/internal/metrics"
	"github.com/junsooki/screencast/internal/mirror"
	"github.com/junsooki/screencast/internal/pointer"
	"github.com/junsooki/screencast/internal/recording"
)

type fakeMirror struct {
	state       mirror.State
	orientation frame.Orientation
	recPath     string
	stopErr     error
	startErr    error
	pointers    []pointer.Event
}

func (m *fakeMirror) State() mirror.State                  { return m.state }
func (m *fakeMirror) Orientation() frame.Orientation       { return m.orientation }
func (m *fakeMirror) SetOrientation(o frame.Orientation)   { m.orientation = o }
func (m *fakeMirror) CurrentSize() image.Point             { return frame.TargetSize(800, 600, m.orientation) }
func (m *fakeMirror) Frames() uint64                       { return 12 }
func (m *fakeMirror) Recording() bool                      { return m.recPath != "" }
func (m *fakeMirror) RecordingPath() string                { return m.recPath }
func (m *fakeMirror) ToggleOrientation() frame.Orientation { m.orientation = m.orientation.Toggle(); return m.orientation }

func (m *fakeMirror) StartRecording(path string) (string, error) {
	if m.startErr != nil {
		return "", m.startErr
	}
	m.recPath = recording.NormalizePath(path, recording.FormatMJPEG)
	return m.recPath, nil
}

func (m *fakeMirror) StopRecording() (time.Duration, error) {
	if m.stopErr != nil {
		return 0, m.stopErr
	}
	if m.recPath == "" {
		return 0, recording.ErrInvalidState
	}
	m.recPath = ""
	return 1500 * time.Millisecond, nil
}

func (m *fakeMirror) AddPointerEvent(kind pointer.Kind, x, y float64) {
	m.pointers = append(m.pointers, pointer.Event{Kind: kind, X: x, Y: y})
}

func newTestRouter(t *testing.T, m *fakeMirror) http.Handler {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewHandler(m, func() string { return "emulator-5554" }, "/rec", log, metrics.New())
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }
	return h.Router(nil)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Status(t *testing.T) {
	r := newTestRouter(t, &fakeMirror{state: mirror.Capturing})
	rec := do(r, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.State != "capturing" || st.Device != "emulator-5554" || st.Width != 800 || st.Height != 600 || st.Frames != 12 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestHandler_Orientation(t *testing.T) {
	m := &fakeMirror{}
	r := newTestRouter(t, m)

	rec := do(r, http.MethodPost, "/orientation", "")
	if rec.Code != http.StatusOK || m.orientation != frame.Landscape {
		t.Fatalf("toggle: code %d orientation %v", rec.Code, m.orientation)
	}
	rec = do(r, http.MethodPost, "/orientation", `{"orientation":"portrait"}`)
	if rec.Code != http.StatusOK || m.orientation != frame.Portrait {
		t.Fatalf("set: code %d orientation %v", rec.Code, m.orientation)
	}
	if rec := do(r, http.MethodPost, "/orientation", `{"orientation":"sideways"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_RecordingLifecycle(t *testing.T) {
	m := &fakeMirror{}
	r := newTestRouter(t, m)

	rec := do(r, http.MethodPost, "/recording", `{"path":"/tmp/demo"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp RecordingResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Path != "/tmp/demo.avi" {
		t.Errorf("path = %q", resp.Path)
	}

	rec = do(r, http.MethodDelete, "/recording", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp = RecordingResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.DurationMS != 1500 || resp.Path != "/tmp/demo.avi" {
		t.Errorf("unexpected stop response %+v", resp)
	}

	if rec := do(r, http.MethodDelete, "/recording", ""); rec.Code != http.StatusConflict {
		t.Errorf("stop when idle: expected 409, got %d", rec.Code)
	}
}

func TestHandler_RecordingDefaultPath(t *testing.T) {
	m := &fakeMirror{}
	r := newTestRouter(t, m)
	if rec := do(r, http.MethodPost, "/recording", ""); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if want := filepath.Join("/rec", "screencast-20260301-123000.avi"); m.recPath != want {
		t.Errorf("path = %q, want %q", m.recPath, want)
	}
}

func TestHandler_RecordingErrors(t *testing.T) {
	m := &fakeMirror{startErr: &recording.IOError{Op: "open", Path: "x.avi", Err: errors.New("denied")}}
	r := newTestRouter(t, m)
	if rec := do(r, http.MethodPost, "/recording", `{"path":"x"}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("start failure: expected 500, got %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/recording", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400, got %d", rec.Code)
	}

	m.stopErr = &recording.IOError{Op: "write", Path: "x.avi", Err: errors.New("disk full")}
	rec := do(r, http.MethodDelete, "/recording", "")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "disk full") {
		t.Errorf("write failure: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Pointer(t *testing.T) {
	m := &fakeMirror{}
	r := newTestRouter(t, m)

	if rec := do(r, http.MethodPost, "/pointer", `{"type":"down","x":3,"y":4}`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(m.pointers) != 1 || m.pointers[0].Kind != pointer.Down || m.pointers[0].X != 3 {
		t.Errorf("pointers = %+v", m.pointers)
	}
	if rec := do(r, http.MethodPost, "/pointer", `{"type":"tap"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind: expected 400, got %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/pointer", `nope`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", rec.Code)
	}
}

func TestHandler_HealthzAndMetrics(t *testing.T) {
	m := &fakeMirror{state: mirror.Stopped}
	r := newTestRouter(t, m)
	if rec := do(r, http.MethodGet, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("stopped healthz: expected 503, got %d", rec.Code)
	}
	m.state = mirror.WaitingForDevice
	if rec := do(r, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", rec.Code)
	}
	rec := do(r, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "screencast_control_requests_total") {
		t.Errorf("metrics: got %d", rec.Code)
	}
}
