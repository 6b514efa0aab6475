package lobby

import "lobby/internal/app/protocol"

// Transport is the connection capability the lobby needs. Connections are addressed by id,
// so no User or Room ever holds a connection handle.
//
// Join and Leave apply the room tag before returning and report the outcome later through done.
// done is always invoked exactly once, on the goroutine that owns the Registry.
type Transport interface {
	// Join tags connection connID with roomID.
	Join(connID, roomID string, done func(error))

	// Leave removes the roomID tag from connection connID.
	Leave(connID, roomID string, done func(error))

	// Tagged reports whether connection connID currently carries the roomID tag.
	Tagged(connID, roomID string) bool

	// Emit sends one event to connection connID. Unknown connections are ignored.
	Emit(connID string, msgType protocol.MessageType, payload any)
}

// Reasons sent in fatal events when a tag operation fails.
const (
	ReasonJoinFailed  = "server side join room failed"
	ReasonLeaveFailed = "server side leave room failed"
)
