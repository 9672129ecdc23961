// Package chat implements the real-time message gateway: it authenticates
// persistent websocket connections, tracks room membership, persists inbound
// messages, and fans out events to the connections that should see them.
package chat

import (
	"encoding/json"

	messagestore "github.com/dalemusser/ghostwire/internal/app/store/messages"
)

// Client-to-server event names.
const (
	EventAuth        = "auth"
	EventJoinGroup   = "join_group"
	EventSendMessage = "send_message"
)

// Server-to-client event names.
const (
	EventHistory    = "history"
	EventNewMessage = "new_message"
	EventError      = "error"
)

// Envelope is the wire frame for every event in both directions:
// {"event": "...", "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// AuthPayload is the handshake fallback for non-browser clients that cannot
// send the credential cookie.
type AuthPayload struct {
	Token string `json:"token"`
}

// JoinGroupPayload asks the gateway to join the connection to a group room.
type JoinGroupPayload struct {
	GroupID string `json:"groupId"`
}

// SendMessagePayload carries one outbound message from a client.
type SendMessagePayload struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	Content  string `json:"content"`
}

// ErrorPayload is sent to the originating connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}

// encodeEvent marshals an envelope with its payload. Marshaling our own
// payload types cannot fail at runtime; errors are swallowed into a nil
// frame the pumps drop.
func encodeEvent(event string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return frame
}

func encodeError(msg string) []byte {
	return encodeEvent(EventError, ErrorPayload{Message: msg})
}

func encodeHistory(msgs []messagestore.EnrichedMessage) []byte {
	return encodeEvent(EventHistory, msgs)
}

func encodeNewMessage(m messagestore.EnrichedMessage) []byte {
	return encodeEvent(EventNewMessage, m)
}
