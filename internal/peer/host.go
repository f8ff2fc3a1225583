package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/screencast/internal/transport"
)

// Host is the mirroring side of a viewer connection. It creates the frames
// and pointer channels and answers the viewer's offer.
type Host struct {
	pc        *webrtc.PeerConnection
	sig       Signaler
	transport *transport.DataChannelTransport
	log       *slog.Logger

	mu     sync.Mutex
	viewer string
}

// NewHost creates a Host peer. onState may be nil.
func NewHost(sig Signaler, log *slog.Logger, onState func(webrtc.PeerConnectionState)) (*Host, error) {
	pc, err := NewPeerConnection(log, onState)
	if err != nil {
		return nil, err
	}
	h := &Host{pc: pc, sig: sig, log: log}

	// Frames are unordered and never retransmitted; a late frame is useless.
	framesOrdered := false
	framesMaxRetransmits := uint16(0)
	framesDC, err := pc.CreateDataChannel(transport.FramesLabel, &webrtc.DataChannelInit{
		Ordered:        &framesOrdered,
		MaxRetransmits: &framesMaxRetransmits,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}

	pointerOrdered := true
	pointerDC, err := pc.CreateDataChannel(transport.PointerLabel, &webrtc.DataChannelInit{
		Ordered: &pointerOrdered,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}

	h.transport = transport.NewDataChannelTransport(framesDC, pointerDC)
	sendCandidates(pc, sig, h.Viewer, log)
	return h, nil
}

// Transport returns the channel pair for sending frames and receiving pointer messages.
func (h *Host) Transport() *transport.DataChannelTransport {
	return h.transport
}

// Viewer returns the id of the connected viewer.
func (h *Host) Viewer() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewer
}

// HandleOffer answers an offer from viewer from.
func (h *Host) HandleOffer(from string, payload json.RawMessage) error {
	h.mu.Lock()
	h.viewer = from
	h.mu.Unlock()

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}
	if err := h.pc.SetRemoteDescription(offer); err != nil {
		return err
	}
	answer, err := h.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := h.pc.SetLocalDescription(answer); err != nil {
		return err
	}
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return h.sig.SendAnswer(from, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (h *Host) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(h.pc, payload)
}

// Close shuts down the peer connection.
func (h *Host) Close() {
	if h.pc != nil {
		h.pc.Close()
	}
}
