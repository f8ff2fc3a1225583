package mirror

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/junsooki/screencast/internal/recording"
)

// StartRecording begins recording published frames to path and returns the
// normalized file name. A recording already in progress is finalized first.
func (l *Loop) StartRecording(path string) (string, error) {
	l.recMu.Lock()
	defer l.recMu.Unlock()

	if l.session != nil {
		d, err := l.stopSessionLocked()
		if err != nil {
			l.log.Warn("finalizing replaced recording failed", "error", err)
		} else {
			l.log.Info("recording replaced", "duration", d)
		}
	}
	l.recErr = nil

	s, err := recording.Start(l.opener, path, l.recOpts)
	if err != nil {
		return "", err
	}
	l.session = s
	l.metrics.SetRecording(true)
	l.log.Info("recording started", "path", s.Path(), "frame_rate", s.Options().FrameRate)
	return s.Path(), nil
}

// StopRecording finalizes the active recording and returns its duration. If a
// write failure already ended the recording, that failure is returned once.
func (l *Loop) StopRecording() (time.Duration, error) {
	l.recMu.Lock()
	defer l.recMu.Unlock()

	if l.session == nil {
		if err := l.recErr; err != nil {
			l.recErr = nil
			return 0, err
		}
		return 0, fmt.Errorf("%w: not recording", recording.ErrInvalidState)
	}
	d, err := l.stopSessionLocked()
	if err != nil {
		return d, err
	}
	l.log.Info("recording stopped", "duration", d)
	return d, nil
}

// Recording reports whether a recording is in progress.
func (l *Loop) Recording() bool {
	l.recMu.Lock()
	defer l.recMu.Unlock()
	return l.session != nil
}

// RecordingPath returns the active recording's file name, or "".
func (l *Loop) RecordingPath() string {
	l.recMu.Lock()
	defer l.recMu.Unlock()
	if l.session == nil {
		return ""
	}
	return l.session.Path()
}

// submit appends img to the active recording. A write failure ends the
// recording; the loop itself keeps running.
func (l *Loop) submit(img image.Image) {
	l.recMu.Lock()
	defer l.recMu.Unlock()

	if l.session == nil {
		return
	}
	err := l.session.Submit(img, 1)
	if err == nil {
		l.metrics.IncRecordingFrames()
		return
	}

	l.metrics.IncRecordingErrors()
	path := l.session.Path()
	if _, stopErr := l.stopSessionLocked(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	l.recErr = err
	l.log.Error("recording aborted", "path", path, "error", err)
}

func (l *Loop) stopSessionLocked() (time.Duration, error) {
	s := l.session
	l.session = nil
	l.metrics.SetRecording(false)
	d := s.Duration()
	return d, s.Stop()
}

// finishRecording finalizes a recording left running when the loop exits.
func (l *Loop) finishRecording() {
	l.recMu.Lock()
	defer l.recMu.Unlock()

	if l.session == nil {
		return
	}
	path := l.session.Path()
	d, err := l.stopSessionLocked()
	if err != nil {
		l.recErr = err
		l.log.Error("finalizing recording on shutdown failed", "path", path, "error", err)
		return
	}
	l.log.Warn("recording still open when the loop stopped; finalized", "path", path, "duration", d)
}
