package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/junsooki/screencast/internal/capture"
	"github.com/junsooki/screencast/internal/config"
	"github.com/junsooki/screencast/internal/control"
	"github.com/junsooki/screencast/internal/display"
	"github.com/junsooki/screencast/internal/encoder"
	"github.com/junsooki/screencast/internal/frame"
	"github.com/junsooki/screencast/internal/logging"
	"github.com/junsooki/screencast/internal/metrics"
	"github.com/junsooki/screencast/internal/mirror"
	"github.com/junsooki/screencast/internal/pointer"
	"github.com/junsooki/screencast/internal/recording"
	"github.com/junsooki/screencast/internal/relay"
)

const shutdownTimeout = 10 * time.Second

// deviceWatchInterval is how often adb is asked for attached devices.
const deviceWatchInterval = time.Second

func runHost(ctx context.Context, cfg config.Config) error {
	log := logging.For("main")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, adb, err := newSource(cfg)
	if err != nil {
		return err
	}

	met := metrics.New()
	pointers := pointer.NewLog(pointer.WithRetention(time.Duration(cfg.Capture.PointerRetention)))
	orientation := frame.Portrait
	if cfg.Capture.Landscape {
		orientation = frame.Landscape
	}

	var loop *mirror.Loop
	var consumers []mirror.FrameConsumer

	var win *display.EbitenDisplay
	if cfg.Window.Enabled {
		win = display.NewEbitenDisplay(display.Options{
			Title:  cfg.Window.Title,
			Width:  cfg.Window.Width,
			Height: cfg.Window.Height,
		}, display.Controls{
			OnPointer:           pointers.Append,
			OnToggleOrientation: func() { loop.ToggleOrientation() },
			OnToggleRecording:   func() { toggleRecording(loop, cfg.Recording.Dir) },
		})
		consumers = append(consumers, win)
	}

	var rel *relay.Relay
	if cfg.Remote.SignalingURL != "" {
		rel = relay.New(encoder.NewJPEGEncoder(cfg.Remote.Quality), relay.WithMetrics(met))
		consumers = append(consumers, rel)
	}

	opts := []mirror.Option{
		mirror.WithConsumers(consumers...),
		mirror.WithPointerLog(pointers),
		mirror.WithMetrics(met),
		mirror.WithDelays(time.Duration(cfg.Capture.IdleDelay), time.Duration(cfg.Capture.FrameDelay)),
		mirror.WithOrientation(orientation),
		mirror.WithRecorder(recording.MJPEGOpener{}, cfg.RecordingOptions()),
	}
	if adb == nil || !cfg.Device.WaitForDevice {
		opts = append(opts, mirror.WithDevice(capture.NewDevice(cfg.Device.Serial)))
	}
	loop = mirror.New(src, opts...)

	if err := loop.Start(ctx); err != nil {
		return err
	}
	defer loop.Stop()

	if adb != nil && cfg.Device.WaitForDevice {
		go capture.WatchDevices(ctx, adb, cfg.Device.Serial, deviceWatchInterval, loop.SetDevice, logging.For("capture"))
	}

	if cfg.Control.Addr != "" {
		srv := startControl(cfg, loop, met)
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Error("control shutdown error", "error", err)
			}
		}()
	}

	if rel != nil {
		if err := rel.Start(ctx); err != nil {
			return err
		}
		defer rel.Stop()
		remote, err := startRemote(ctx, cfg, loop, rel)
		if err != nil {
			return err
		}
		defer remote.Close()
	}

	go func() {
		if err := loop.WaitForFirstFrame(ctx); err == nil {
			size := loop.CurrentSize()
			log.Info("mirroring", "width", size.X, "height", size.Y)
		}
	}()

	if win != nil {
		err := win.Run(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("window: %w", err)
		}
	} else {
		<-ctx.Done()
	}

	log.Info("shutting down")
	return nil
}

func newSource(cfg config.Config) (capture.ScreenshotSource, *capture.ADBSource, error) {
	switch cfg.Device.Source {
	case config.SourcePattern:
		return capture.NewPatternSource(cfg.Device.PatternWidth, cfg.Device.PatternHeight), nil, nil
	case config.SourceDisplay:
		src, err := capture.NewDisplaySource(cfg.Device.DisplayIndex)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	default:
		adb := capture.NewADBSource(cfg.Device.ADBAddr, time.Duration(cfg.Device.Timeout))
		return adb, adb, nil
	}
}

func startControl(cfg config.Config, loop *mirror.Loop, met *metrics.Metrics) *http.Server {
	log := logging.For("control")
	h := control.NewHandler(loop, func() string { return loop.Device().String() }, cfg.Recording.Dir, log, met)
	srv := &http.Server{
		Addr:              cfg.Control.Addr,
		Handler:           h.Router(logging.RequestLogger(log)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("control server error", "error", err)
		}
	}()
	log.Info("control API listening", "addr", cfg.Control.Addr)
	return srv
}

func toggleRecording(loop *mirror.Loop, dir string) {
	log := logging.For("main")
	if loop.Recording() {
		d, err := loop.StopRecording()
		if err != nil {
			log.Error("stop recording", "error", err)
			return
		}
		log.Info("recording saved", "duration", d)
		return
	}
	if _, err := loop.StartRecording(control.DefaultRecordingPath(dir, time.Now())); err != nil {
		log.Error("start recording", "error", err)
	}
}
