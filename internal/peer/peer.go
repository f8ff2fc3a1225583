// Package peer negotiates the WebRTC connection between a mirroring host and
// a remote viewer over the signaling channel.
package peer

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"
)

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// Signaler relays session descriptions and ICE candidates to the other side.
type Signaler interface {
	SendOffer(target string, payload json.RawMessage) error
	SendAnswer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// NewPeerConnection creates a configured PeerConnection.
func NewPeerConnection(log *slog.Logger, onState func(webrtc.PeerConnectionState)) (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: ICEServers})
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Info("peer connection state", "state", state.String())
		if onState != nil {
			onState(state)
		}
	})
	return pc, nil
}

func sendCandidates(pc *webrtc.PeerConnection, sig Signaler, target func() string, log *slog.Logger) {
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		to := target()
		if c == nil || to == "" {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Warn("marshal ICE candidate", "error", err)
			return
		}
		if err := sig.SendICECandidate(to, data); err != nil {
			log.Debug("send ICE candidate", "error", err)
		}
	})
}

func addCandidate(pc *webrtc.PeerConnection, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	return pc.AddICECandidate(candidate)
}
