/*
Package protocol defines the JSON frames exchanged between lobby clients and the server.

Every frame, in both directions, is an envelope {"type": "<event>", "payload": {...}}.
*/
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType names an event carried in the envelope.
type MessageType string

// Client → server events.
const (
	TypeReqLogin MessageType = "req_login"
	TypeReqJoin  MessageType = "req_join"
	TypeChat     MessageType = "c_chat"
	TypeStart    MessageType = "c_start"
)

// Server → client events.
const (
	TypeResLogin    MessageType = "res_login"
	TypeResJoin     MessageType = "res_join"
	TypeServerChat  MessageType = "s_chat"
	TypeServerStart MessageType = "s_start"
	TypeFrame       MessageType = "frame"
	TypeFatal       MessageType = "fatal"
	TypeError       MessageType = "error"
)

// Message is the wire envelope.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds an envelope with payload marshaled to JSON. A nil payload becomes {}.
func NewMessage(msgType MessageType, payload any) (Message, error) {
	if payload == nil {
		payload = struct{}{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}

	return Message{Type: msgType, Payload: raw}, nil
}

// Encode marshals a complete frame ready to be written to a connection.
func Encode(msgType MessageType, payload any) ([]byte, error) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(msg)
}

// Decode unmarshals a raw frame into its envelope. The payload stays raw until the
// receiver knows which struct to decode it into.
func Decode(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, err
	}

	if msg.Type == "" {
		return Message{}, fmt.Errorf("frame has no type")
	}

	return msg, nil
}

// DecodePayload unmarshals the envelope payload into dst. An absent payload leaves dst untouched.
func (m Message) DecodePayload(dst any) error {
	if len(m.Payload) == 0 {
		return nil
	}

	return json.Unmarshal(m.Payload, dst)
}
