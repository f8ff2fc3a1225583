package main

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/screencast/internal/config"
	"github.com/junsooki/screencast/internal/logging"
	"github.com/junsooki/screencast/internal/mirror"
	"github.com/junsooki/screencast/internal/peer"
	"github.com/junsooki/screencast/internal/relay"
	"github.com/junsooki/screencast/internal/signaling"
)

// remoteHost serves one remote viewer at a time. A new offer replaces the
// current viewer.
type remoteHost struct {
	loop  *mirror.Loop
	relay *relay.Relay
	sig   *signaling.Client

	mu      sync.Mutex
	current atomic.Pointer[peer.Host]
}

func startRemote(ctx context.Context, cfg config.Config, loop *mirror.Loop, rel *relay.Relay) (*remoteHost, error) {
	log := logging.For("remote")
	r := &remoteHost{loop: loop, relay: rel}
	r.sig = signaling.NewClient(cfg.Remote.SignalingURL, cfg.Remote.HostID, signaling.ClientTypeHost, signaling.Handler{
		OnRegistered: func() {
			log.Info("registered with signaling server", "host_id", cfg.Remote.HostID)
		},
		OnOffer: r.handleOffer,
		OnICECandidate: func(from string, payload json.RawMessage) {
			if h := r.current.Load(); h != nil {
				if err := h.HandleICECandidate(payload); err != nil {
					log.Warn("handle ICE candidate", "error", err)
				}
			}
		},
		OnError: func(msg string) {
			log.Warn("signaling error", "message", msg)
		},
	}, logging.For("signaling"))

	if err := r.sig.Connect(ctx); err != nil {
		return nil, err
	}
	log.Info("remote viewers enabled", "host_id", cfg.Remote.HostID)
	return r, nil
}

func (r *remoteHost) handleOffer(from string, payload json.RawMessage) {
	log := logging.For("remote")
	log.Info("viewer offer", "viewer", from)

	r.mu.Lock()
	defer r.mu.Unlock()

	if old := r.current.Swap(nil); old != nil {
		r.relay.SetSender(nil)
		old.Close()
	}

	var h *peer.Host
	h, err := peer.NewHost(r.sig, logging.For("peer"), func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			if r.current.CompareAndSwap(h, nil) {
				r.relay.SetSender(nil)
				log.Info("viewer gone", "viewer", from, "state", state.String())
			}
		}
	})
	if err != nil {
		log.Error("create host peer", "error", err)
		return
	}
	h.Transport().OnPointer(relay.PointerHandler(r.loop.AddPointerEvent, log))

	if err := h.HandleOffer(from, payload); err != nil {
		log.Error("handle offer", "error", err)
		h.Close()
		return
	}
	r.current.Store(h)
	r.relay.SetSender(h.Transport())
}

func (r *remoteHost) Close() {
	if h := r.current.Swap(nil); h != nil {
		r.relay.SetSender(nil)
		h.Close()
	}
	r.sig.Close()
}
