/*
Package hub is the WebSocket transport of the lobby server.

This file defines the Hub struct, which tracks every live connection by id together with the
room tags attached to it, and fans encoded frames out to single connections or whole rooms.
*/
package hub

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lobby/internal/app/protocol"
	"lobby/internal/pkg/logx"
)

var (
	// ErrUnknownConnection is reported when a tag operation names a connection the hub does not track.
	ErrUnknownConnection = errors.New("hub: unknown connection")

	// ErrClosed is reported for operations issued after Shutdown.
	ErrClosed = errors.New("hub: closed")
)

// Hub coordinates all live clients and their room tags. It is safe for concurrent use.
type Hub struct {
	// clients maps connection id to its Client.
	clients map[string]*Client

	// rooms maps a room tag to the clients carrying it.
	rooms map[string]map[string]*Client

	// closed is set by Shutdown; no client may attach afterwards.
	closed bool

	// mu protects clients, rooms, closed and every client's tag set and send channel.
	mu sync.RWMutex

	// structured logger with Hub context.
	logger zerolog.Logger
}

// New constructs an empty Hub.
func New() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		logger:  logx.Component("Hub"),
	}
}

// Attach wraps conn in a new Client with a fresh connection id and registers it.
// The caller must start WritePump and ReadPump. After Shutdown the connection is closed and
// ErrClosed is returned.
func (h *Hub) Attach(conn *websocket.Conn, remoteIP string) (*Client, error) {
	client := newClient(h, conn, remoteIP)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil, ErrClosed
	}
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	client.logger.Info().Int("total_clients", total).Msg("Client attached.")
	return client, nil
}

// unregister removes the client and all its tags and closes its send channel, which stops
// WritePump. It is a no-op for clients already removed.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.ID] != c {
		return
	}

	delete(h.clients, c.ID)
	for roomID := range c.rooms {
		h.untag(c, roomID)
	}
	close(c.send)

	c.logger.Info().Int("total_clients", len(h.clients)).Msg("Client unregistered.")
}

// Join tags connection connID with roomID. The tag is visible to Tagged and EmitRoom as soon
// as Join returns; done receives the outcome on a separate goroutine.
func (h *Hub) Join(connID, roomID string, done func(error)) {
	h.mu.Lock()
	err := h.lookupLocked(connID)
	if err == nil {
		c := h.clients[connID]
		c.rooms[roomID] = struct{}{}

		members := h.rooms[roomID]
		if members == nil {
			members = make(map[string]*Client)
			h.rooms[roomID] = members
		}
		members[connID] = c
	}
	h.mu.Unlock()

	go done(err)
}

// Leave removes the roomID tag from connection connID. Removing a tag the connection does not
// carry succeeds.
func (h *Hub) Leave(connID, roomID string, done func(error)) {
	h.mu.Lock()
	err := h.lookupLocked(connID)
	if err == nil {
		h.untag(h.clients[connID], roomID)
	}
	h.mu.Unlock()

	go done(err)
}

// Tagged reports whether connection connID currently carries the roomID tag.
func (h *Hub) Tagged(connID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[roomID][connID]
	return ok
}

// Emit sends one event to connection connID. Unknown connections are ignored.
func (h *Hub) Emit(connID string, msgType protocol.MessageType, payload any) {
	frame, err := protocol.Encode(msgType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("msg_type", string(msgType)).Msg("Failed to encode event.")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[connID]; ok {
		c.enqueue(frame)
	}
}

// EmitRoom sends one event to every connection tagged with roomID. The frame is encoded once.
func (h *Hub) EmitRoom(roomID string, msgType protocol.MessageType, payload any) {
	frame, err := protocol.Encode(msgType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("msg_type", string(msgType)).Msg("Failed to encode room event.")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[roomID] {
		c.enqueue(frame)
	}
}

// Len returns the number of attached clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Shutdown closes every client and refuses new ones. Read pumps observe the closed
// connections and report their disconnects as usual.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}

	h.logger.Info().Int("closed_clients", len(clients)).Msg("Hub shutdown complete.")
}

func (h *Hub) lookupLocked(connID string) error {
	if h.closed {
		return ErrClosed
	}
	if _, ok := h.clients[connID]; !ok {
		return ErrUnknownConnection
	}
	return nil
}

// untag must be called with mu held for writing.
func (h *Hub) untag(c *Client, roomID string) {
	delete(c.rooms, roomID)

	members := h.rooms[roomID]
	delete(members, c.ID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}
