// Package hub fans messages out to websocket subscribers using the
// channel-based register/unregister/broadcast pattern.
package hub

import "encoding/json"

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded text message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data
	BinaryMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Envelope is the JSON shape of typed events.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Encode marshals an Envelope of the given type.
func Encode(eventType string, data any) (Message, error) {
	b, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(b), nil
}
