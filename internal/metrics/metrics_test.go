package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics, update func()) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler(update).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.IncFrames()
	m.IncFrames()
	m.IncFetchFailure(ReasonTimeout)
	m.IncRecordingFrames()
	m.ObserveCapture(20 * time.Millisecond)
	m.SetRecording(true)

	body := scrape(t, m, func() { m.SetPointerEvents(7) })
	for _, want := range []string{
		"screencast_frames_published_total 2",
		`screencast_fetch_failures_total{reason="timeout"} 1`,
		"screencast_recording_frames_total 1",
		"screencast_capture_duration_seconds_count 1",
		"screencast_pointer_events 7",
		"screencast_recording_active 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.IncFrames()
	m.IncFetchFailure(ReasonOther)
	m.ObserveCapture(time.Second)
	m.SetRecording(false)
	m.IncRequests()
}

func TestRequestMiddleware(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	h := RequestMiddleware(m)(mux)
	for _, path := range []string{"/ok", "/bad", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m, nil)
	if !strings.Contains(body, "screencast_control_requests_total 3") {
		t.Error("want 3 requests counted")
	}
	if !strings.Contains(body, "screencast_control_errors_total 1") {
		t.Error("want 1 error counted")
	}
}
