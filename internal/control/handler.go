// Package control exposes the mirror over a small HTTP API.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/junsooki/screencast/internal/frame"
	"github.com/junsooki/screencast/internal/metrics"
	"github.com/junsooki/screencast/internal/mirror"
	"github.com/junsooki/screencast/internal/pointer"
	"github.com/junsooki/screencast/internal/recording"
)

// Mirror is the part of *mirror.Loop the API drives.
type Mirror interface {
	State() mirror.State
	Orientation() frame.Orientation
	SetOrientation(o frame.Orientation)
	ToggleOrientation() frame.Orientation
	CurrentSize() image.Point
	Frames() uint64
	Recording() bool
	RecordingPath() string
	StartRecording(path string) (string, error)
	StopRecording() (time.Duration, error)
	AddPointerEvent(kind pointer.Kind, x, y float64)
}

// Handler exposes control endpoints using go-chi.
type Handler struct {
	mirror    Mirror
	device    func() string
	recordDir string
	log       *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewHandler returns a Handler. device reports the current device for
// /status and may be nil. Metrics may be nil to disable metric recording.
func NewHandler(m Mirror, device func() string, recordDir string, log *slog.Logger, met *metrics.Metrics) *Handler {
	return &Handler{mirror: m, device: device, recordDir: recordDir, log: log, metrics: met, now: time.Now}
}

// Status is the body of GET /status.
type Status struct {
	State         string `json:"state"`
	Device        string `json:"device,omitempty"`
	Orientation   string `json:"orientation"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Frames        uint64 `json:"frames"`
	Recording     bool   `json:"recording"`
	RecordingPath string `json:"recording_path,omitempty"`
}

// RecordingRequest is the optional body of POST /recording.
type RecordingRequest struct {
	Path string `json:"path"`
}

// RecordingResponse reports a started or stopped recording.
type RecordingResponse struct {
	Path       string `json:"path,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// OrientationRequest is the optional body of POST /orientation. Without
// a body the orientation is toggled.
type OrientationRequest struct {
	Orientation string `json:"orientation"`
}

// Router builds the chi router with request logging and metrics middleware.
func (h *Handler) Router(requestLog func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if requestLog != nil {
		r.Use(requestLog)
	}
	if h.metrics != nil {
		r.Use(metrics.RequestMiddleware(h.metrics))
		r.Get("/metrics", h.metrics.Handler(nil).ServeHTTP)
	}
	r.Get("/healthz", h.Healthz)
	r.Get("/status", h.GetStatus)
	r.Post("/orientation", h.SetOrientation)
	r.Post("/recording", h.StartRecording)
	r.Delete("/recording", h.StopRecording)
	r.Post("/pointer", h.AddPointer)
	return r
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.mirror.State() == mirror.Stopped {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetStatus handles GET /status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	size := h.mirror.CurrentSize()
	st := Status{
		State:         h.mirror.State().String(),
		Orientation:   h.mirror.Orientation().String(),
		Width:         size.X,
		Height:        size.Y,
		Frames:        h.mirror.Frames(),
		Recording:     h.mirror.Recording(),
		RecordingPath: h.mirror.RecordingPath(),
	}
	if h.device != nil {
		st.Device = h.device()
	}
	writeJSON(w, http.StatusOK, st)
}

// SetOrientation handles POST /orientation.
func (h *Handler) SetOrientation(w http.ResponseWriter, r *http.Request) {
	var req OrientationRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log.Debug("invalid orientation body", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	var o frame.Orientation
	if req.Orientation == "" {
		o = h.mirror.ToggleOrientation()
	} else {
		parsed, err := frame.ParseOrientation(req.Orientation)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.mirror.SetOrientation(parsed)
		o = parsed
	}
	writeJSON(w, http.StatusOK, OrientationRequest{Orientation: o.String()})
}

// StartRecording handles POST /recording. Without a path a timestamped file
// is created in the recording directory.
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	var req RecordingRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log.Debug("invalid recording body", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}
	if req.Path == "" {
		req.Path = DefaultRecordingPath(h.recordDir, h.now())
	}

	path, err := h.mirror.StartRecording(req.Path)
	if err != nil {
		h.log.Error("start recording failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, RecordingResponse{Path: path})
}

// StopRecording handles DELETE /recording.
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	path := h.mirror.RecordingPath()
	d, err := h.mirror.StopRecording()
	switch {
	case errors.Is(err, recording.ErrInvalidState):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		h.log.Error("recording failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordingResponse{Path: path, DurationMS: d.Milliseconds()})
}

// AddPointer handles POST /pointer with a pointer.Message body.
func (h *Handler) AddPointer(w http.ResponseWriter, r *http.Request) {
	var msg pointer.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	kind, err := msg.Kind()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.mirror.AddPointerEvent(kind, msg.X, msg.Y)
	w.WriteHeader(http.StatusNoContent)
}

// DefaultRecordingPath names a recording after its start time.
func DefaultRecordingPath(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("screencast-%s", t.Format("20060102-150405")))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
