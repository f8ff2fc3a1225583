// Package metrics exposes capture and control counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch failure reasons.
const (
	ReasonTimeout   = "timeout"
	ReasonRejected  = "rejected"
	ReasonMalformed = "malformed"
	ReasonOther     = "other"
)

// Metrics holds Prometheus collectors for the capture loop and control API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	framesTotal       prometheus.Counter
	fetchFailures     *prometheus.CounterVec
	recordingFrames   prometheus.Counter
	recordingErrors   prometheus.Counter
	relayDropped      prometheus.Counter
	captureSeconds    prometheus.Histogram
	pointerEvents     prometheus.Gauge
	recordingActive   prometheus.Gauge
	requestsTotal     prometheus.Counter
	requestErrorTotal prometheus.Counter
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	framesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screencast_frames_published_total",
		Help: "Total number of frames published to consumers",
	})
	fetchFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "screencast_fetch_failures_total",
		Help: "Capture cycles skipped, by reason",
	}, []string{"reason"})
	recordingFrames := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screencast_recording_frames_total",
		Help: "Total number of frames written to recordings",
	})
	recordingErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screencast_recording_errors_total",
		Help: "Total number of recording write failures",
	})
	relayDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screencast_relay_frames_dropped_total",
		Help: "Frames replaced in the relay mailbox before being sent",
	})
	captureSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "screencast_capture_duration_seconds",
		Help:    "Time from fetch start to publish",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})
	pointerEvents := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "screencast_pointer_events",
		Help: "Pointer events currently inside the retention window",
	})
	recordingActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "screencast_recording_active",
		Help: "1 while a recording is in progress",
	})
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screencast_control_requests_total",
		Help: "Total number of control API requests received",
	})
	requestErrorTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screencast_control_errors_total",
		Help: "Total number of control API responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		framesTotal,
		fetchFailures,
		recordingFrames,
		recordingErrors,
		relayDropped,
		captureSeconds,
		pointerEvents,
		recordingActive,
		requestsTotal,
		requestErrorTotal,
	)

	return &Metrics{
		registry:          registry,
		framesTotal:       framesTotal,
		fetchFailures:     fetchFailures,
		recordingFrames:   recordingFrames,
		recordingErrors:   recordingErrors,
		relayDropped:      relayDropped,
		captureSeconds:    captureSeconds,
		pointerEvents:     pointerEvents,
		recordingActive:   recordingActive,
		requestsTotal:     requestsTotal,
		requestErrorTotal: requestErrorTotal,
	}
}

// IncFrames increments the published frame counter.
func (m *Metrics) IncFrames() {
	if m == nil {
		return
	}
	m.framesTotal.Inc()
}

// IncFetchFailure counts a skipped capture cycle.
func (m *Metrics) IncFetchFailure(reason string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(reason).Inc()
}

// IncRecordingFrames counts a frame written to the active recording.
func (m *Metrics) IncRecordingFrames() {
	if m == nil {
		return
	}
	m.recordingFrames.Inc()
}

// IncRecordingErrors counts a failed recording write.
func (m *Metrics) IncRecordingErrors() {
	if m == nil {
		return
	}
	m.recordingErrors.Inc()
}

// IncRelayDropped counts a frame superseded in the relay mailbox.
func (m *Metrics) IncRelayDropped() {
	if m == nil {
		return
	}
	m.relayDropped.Inc()
}

// ObserveCapture records one capture cycle duration.
func (m *Metrics) ObserveCapture(d time.Duration) {
	if m == nil {
		return
	}
	m.captureSeconds.Observe(d.Seconds())
}

// SetPointerEvents sets the pointer log size gauge.
func (m *Metrics) SetPointerEvents(n int) {
	if m == nil {
		return
	}
	m.pointerEvents.Set(float64(n))
}

// SetRecording sets the recording gauge.
func (m *Metrics) SetRecording(active bool) {
	if m == nil {
		return
	}
	if active {
		m.recordingActive.Set(1)
	} else {
		m.recordingActive.Set(0)
	}
}

// IncRequests increments the control request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the control error counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.requestErrorTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
