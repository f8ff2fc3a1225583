package pointer

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the phase of a pointer gesture.
type Kind int

const (
	Down Kind = iota
	Move
	Up
)

func (k Kind) String() string {
	switch k {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "down":
		return Down, nil
	case "move":
		return Move, nil
	case "up":
		return Up, nil
	}
	return 0, fmt.Errorf("unknown pointer kind %q", s)
}

// Event is one recorded pointer sample in display coordinates.
type Event struct {
	X    float64
	Y    float64
	Kind Kind
	Time time.Time
}

// Message is the wire format for pointer events sent by remote viewers
// and accepted by the control API.
type Message struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// NewMessage builds the wire form of a pointer sample.
func NewMessage(kind Kind, x, y float64) Message {
	return Message{Type: kind.String(), X: x, Y: y}
}

// Kind parses the message type.
func (m Message) Kind() (Kind, error) {
	return ParseKind(m.Type)
}

// DecodeMessage unmarshals and validates a wire message.
func DecodeMessage(data []byte) (Kind, float64, float64, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return 0, 0, 0, fmt.Errorf("decode pointer message: %w", err)
	}
	k, err := m.Kind()
	if err != nil {
		return 0, 0, 0, err
	}
	return k, m.X, m.Y, nil
}
