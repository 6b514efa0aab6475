/*
Package randx generates identifiers used by the transport layer.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnectionID returns a fresh UUID v4 string identifying one WebSocket connection.
// The lobby User created for the connection shares this id.
func ConnectionID() string {
	return uuid.NewString()
}

