/*
Package hub is the WebSocket transport of the lobby server.

This file defines the Client struct, representing an active WebSocket connection. It manages the
connection's read and write loops (ReadPump and WritePump), the ping/pong heartbeat, and the
inbound rate limit.
*/
package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"lobby/internal/app/protocol"
	"lobby/internal/pkg/errs"
	"lobby/internal/pkg/logx"
	"lobby/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// capacity of the per-client outbound queue.
	sendBufferSize = 256

	// MessageRate is the sustained number of inbound frames per second a client may send.
	MessageRate = 20

	// MessageBurst is the number of inbound frames a client may send back to back.
	MessageBurst = 40
)

// Receiver consumes the events of a client connection.
type Receiver interface {
	// Receive is called for every well-formed inbound frame.
	Receive(connID string, msg protocol.Message)

	// Disconnect is called once, after the client has been removed from the hub.
	Disconnect(connID string)
}

// Client represents an active WebSocket connection.
type Client struct {
	// ID identifies the connection and the lobby user bound to it.
	ID string

	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// room tags carried by this client, guarded by hub.mu.
	rooms map[string]struct{}

	// inbound token bucket.
	limiter *rate.Limiter

	// structured logger with client context.
	logger zerolog.Logger
}

func newClient(h *Hub, conn *websocket.Conn, remoteIP string) *Client {
	id := randx.ConnectionID()

	return &Client{
		ID:      id,
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		rooms:   make(map[string]struct{}),
		limiter: rate.NewLimiter(rate.Limit(MessageRate), MessageBurst),
		logger: logx.Logger().With().
			Str("client_id", id).
			Str("remote_ip", logx.AnonymizeIP(remoteIP)).
			Logger(),
	}
}

// ReadPump reads frames until the connection fails or closes, handing each decoded frame to recv.
// On exit the client is unregistered, recv.Disconnect is called and the connection is closed.
func (c *Client) ReadPump(recv Receiver) {
	defer c.cleanupOnDisconnect(recv)

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundFrame(frame, recv)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when ReadPump terminates.
func (c *Client) cleanupOnDisconnect(recv Receiver) {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.unregister(c)
	recv.Disconnect(c.ID)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame rate limits and decodes one frame. Rejected frames are answered with an
// error event and never reach recv.
func (c *Client) processInboundFrame(frame []byte, recv Receiver) {
	if !c.limiter.Allow() {
		c.logger.Warn().Msg("Client exceeded inbound message rate")
		c.SendError(errs.NewError(errs.ErrTooManyMessages))
		return
	}

	msg, err := protocol.Decode(frame)
	if err != nil {
		c.logger.Warn().Err(err).
			Int("frame_bytes", len(frame)).
			Msg("Client sent invalid frame")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	recv.Receive(c.ID, msg)
}

// WritePump writes queued frames to the connection and sends periodic pings. It returns when
// the send channel is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send channel.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueue queues frame without blocking; a full queue drops the frame.
// The caller must hold hub.mu, which keeps send open for the duration.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
	}
}

// SendError sends an error event to this client only.
func (c *Client) SendError(err error) {
	customErr := errs.From(err)

	c.hub.Emit(c.ID, protocol.TypeError, protocol.ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}

// Close sends a going-away close frame and closes the connection, which ends ReadPump.
func (c *Client) Close() {
	closeMessage := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")

	if err := c.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send close frame.")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

