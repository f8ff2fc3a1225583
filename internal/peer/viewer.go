package peer

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/screencast/internal/transport"
)

// Viewer is the remote side: it offers a connection to a host and receives
// the channels the host created.
type Viewer struct {
	pc        *webrtc.PeerConnection
	sig       Signaler
	transport *transport.DataChannelTransport
	hostID    string
	log       *slog.Logger
}

// NewViewer creates a Viewer peer for hostID.
func NewViewer(sig Signaler, hostID string, log *slog.Logger) (*Viewer, error) {
	pc, err := NewPeerConnection(log, nil)
	if err != nil {
		return nil, err
	}
	v := &Viewer{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(nil, nil),
		hostID:    hostID,
		log:       log,
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		label := dc.Label()
		dc.OnOpen(func() { log.Info("data channel open", "label", label) })
		switch label {
		case transport.FramesLabel:
			v.transport.SetFramesChannel(dc)
		case transport.PointerLabel:
			v.transport.SetPointerChannel(dc)
		default:
			log.Warn("ignoring unknown data channel", "label", label)
		}
	})
	sendCandidates(pc, sig, func() string { return hostID }, log)
	return v, nil
}

// Transport returns the channel pair for receiving frames and sending pointer messages.
func (v *Viewer) Transport() *transport.DataChannelTransport {
	return v.transport
}

// Connect creates and sends the offer.
func (v *Viewer) Connect() error {
	// The host creates the channels; the offer still needs an SCTP section.
	if _, err := v.pc.CreateDataChannel("negotiation", nil); err != nil {
		return err
	}
	offer, err := v.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := v.pc.SetLocalDescription(offer); err != nil {
		return err
	}
	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return v.sig.SendOffer(v.hostID, offerJSON)
}

// HandleAnswer processes the host's SDP answer.
func (v *Viewer) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	return v.pc.SetRemoteDescription(answer)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(v.pc, payload)
}

// Close shuts down the peer connection.
func (v *Viewer) Close() {
	if v.pc != nil {
		v.pc.Close()
	}
}
