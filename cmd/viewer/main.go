// Command screencast-viewer shows a remote screencast host in a window and
// sends pointer input back to it.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/junsooki/screencast/internal/config"
	"github.com/junsooki/screencast/internal/decoder"
	"github.com/junsooki/screencast/internal/display"
	"github.com/junsooki/screencast/internal/frame"
	"github.com/junsooki/screencast/internal/logging"
	"github.com/junsooki/screencast/internal/peer"
	"github.com/junsooki/screencast/internal/pointer"
	"github.com/junsooki/screencast/internal/signaling"
)

type options struct {
	signalingURL string
	hostID       string
	viewerID     string
	title        string
	logLevel     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:           "screencast-viewer",
		Short:         "Watch and control a remote screencast host",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.signalingURL == "" || o.hostID == "" {
				return errors.New("both --signaling and --host are required")
			}
			if o.viewerID == "" {
				o.viewerID = "viewer-" + randomID()
			}
			logging.Setup(logging.Config{Level: o.logLevel})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, o)
		},
	}

	// .env values become flag defaults; a failed load only matters when the
	// file exists, which LoadDotEnv already reports.
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	f := cmd.Flags()
	f.StringVar(&o.signalingURL, "signaling", os.Getenv(config.EnvPrefix+"SIGNALING_URL"), "signaling server WebSocket URL")
	f.StringVar(&o.hostID, "host", os.Getenv(config.EnvPrefix+"HOST_ID"), "host ID to connect to")
	f.StringVar(&o.viewerID, "id", os.Getenv(config.EnvPrefix+"VIEWER_ID"), "viewer ID (random when empty)")
	f.StringVar(&o.title, "title", "screencast viewer", "window title")
	f.StringVar(&o.logLevel, "log-level", envOr(config.EnvPrefix+"LOG_LEVEL", "info"), "log level")
	return cmd
}

func run(ctx context.Context, o options) error {
	log := logging.For("viewer")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var view atomic.Pointer[peer.Viewer]

	win := display.NewEbitenDisplay(display.Options{Title: o.title}, display.Controls{
		OnPointer: func(kind pointer.Kind, x, y float64) {
			v := view.Load()
			if v == nil {
				return
			}
			if err := v.Transport().SendPointer(pointer.NewMessage(kind, x, y)); err != nil {
				log.Debug("send pointer", "error", err)
			}
		},
	})

	var sig *signaling.Client
	sig = signaling.NewClient(o.signalingURL, o.viewerID, signaling.ClientTypeViewer, signaling.Handler{
		OnRegistered: func() {
			log.Info("registered with signaling server", "viewer_id", o.viewerID)
			v, err := peer.NewViewer(sig, o.hostID, logging.For("peer"))
			if err != nil {
				log.Error("create viewer peer", "error", err)
				cancel()
				return
			}
			v.Transport().OnFrame(frameDecoder(win, log))
			if old := view.Swap(v); old != nil {
				old.Close()
			}
			if err := v.Connect(); err != nil {
				log.Error("viewer connect", "error", err)
			}
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if v := view.Load(); v != nil {
				if err := v.HandleAnswer(payload); err != nil {
					log.Warn("handle answer", "error", err)
				}
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if v := view.Load(); v != nil {
				if err := v.HandleICECandidate(payload); err != nil {
					log.Warn("handle ICE candidate", "error", err)
				}
			}
		},
		OnHostDisconnected: func(hostID string) {
			if hostID == o.hostID {
				log.Info("host disconnected", "host_id", hostID)
			}
		},
		OnError: func(msg string) {
			log.Warn("signaling error", "message", msg)
		},
	}, logging.For("signaling"))

	if err := sig.Connect(ctx); err != nil {
		return fmt.Errorf("signaling connect: %w", err)
	}
	defer sig.Close()
	defer func() {
		if v := view.Swap(nil); v != nil {
			v.Close()
		}
	}()

	log.Info("viewer starting", "host_id", o.hostID, "signaling", o.signalingURL)

	// The window must own the main goroutine.
	if err := win.Run(ctx); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	return nil
}

// frameDecoder decodes JPEG messages into a reused buffer. Frames arrive
// already rotated by the host, so they are shown in portrait.
func frameDecoder(win *display.EbitenDisplay, log *slog.Logger) func([]byte) {
	dec := decoder.NewJPEGDecoder()
	var buf *image.RGBA
	return func(data []byte) {
		img, err := dec.DecodeInto(data, buf)
		if err != nil {
			log.Debug("decode frame", "error", err)
			return
		}
		buf = img
		win.OnFrame(img.Bounds().Size(), img, frame.Portrait)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func randomID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
