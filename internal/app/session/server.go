/*
Package session maps protocol events onto the lobby state machine.

The Server owns the lobby Registry and runs the single goroutine allowed to touch it. Inbound
events, transport confirmations, countdown steps, frame broadcasts and HTTP snapshot reads are
all posted onto that goroutine as closures and executed one at a time.
*/
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"lobby/internal/app/lobby"
	"lobby/internal/app/protocol"
	"lobby/internal/configs"
	"lobby/internal/pkg/errs"
	"lobby/internal/pkg/logx"
)

const (
	// capacity of the event queue feeding the loop.
	eventBufferSize = 1024

	// how long an inbound event may wait for room in the event queue.
	postTimeout = 2 * time.Second
)

// ErrStopped is returned by operations that need the loop after it has stopped.
var ErrStopped = errors.New("session: server stopped")

// Transport is the connection capability the Server drives: the lobby tag operations plus a
// broadcast to every connection tagged with a room.
type Transport interface {
	lobby.Transport

	// EmitRoom sends one event to every connection tagged with roomID.
	EmitRoom(roomID string, msgType protocol.MessageType, payload any)
}

// Server is the session protocol handler. Connect, Receive, Disconnect and Snapshot may be
// called from any goroutine; everything else runs on the loop started by Run.
type Server struct {
	settings  configs.Settings
	transport Transport
	reg       *lobby.Registry

	// events feeds closures to the loop.
	events chan func()

	// stopped is closed when Run returns.
	stopped chan struct{}

	// countdownStep is the spacing between countdown notices.
	countdownStep time.Duration

	// timers holds pending countdown timers, loop-owned.
	timers map[*time.Timer]struct{}

	logger zerolog.Logger
}

// NewServer creates a Server for the given settings. The registry sees transport through an
// adapter that delivers tag confirmations on the loop.
func NewServer(settings configs.Settings, transport Transport) *Server {
	s := &Server{
		settings:      settings,
		transport:     transport,
		events:        make(chan func(), eventBufferSize),
		stopped:       make(chan struct{}),
		countdownStep: time.Second,
		timers:        make(map[*time.Timer]struct{}),
		logger:        logx.Component("Session"),
	}
	s.reg = lobby.NewRegistry(settings, loopTransport{Transport: transport, server: s})

	return s
}

// Run executes posted events and the frame broadcast until ctx is done. Events posted after
// Run returns are dropped.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.settings.FrameInterval())

	defer func() {
		ticker.Stop()
		for t := range s.timers {
			t.Stop()
		}
		close(s.stopped)
		s.logger.Info().Msg("Session loop stopped.")
	}()

	s.logger.Info().
		Dur("frame_interval", s.settings.FrameInterval()).
		Int("max_players", s.settings.MaxPlayerPerRoom).
		Msg("Session loop started.")

	for {
		select {
		case <-ctx.Done():
			return

		case fn := <-s.events:
			fn()

		case <-ticker.C:
			s.broadcastFrames()
		}
	}
}

// Done is closed once Run has returned.
func (s *Server) Done() <-chan struct{} {
	return s.stopped
}

// Connect registers the User for a new connection.
func (s *Server) Connect(connID string) {
	s.post(func() {
		s.reg.NewUser(connID)
	})
}

// Disconnect announces the departure to the user's room and logs the user out.
func (s *Server) Disconnect(connID string) {
	s.post(func() {
		u := s.reg.User(connID)
		if u == nil {
			return
		}

		if u.RoomID != "" {
			s.notifyRoom(u.RoomID, leftNotice(displayName(u)))
		}
		u.Logout()
	})
}

// Receive dispatches one inbound event. When the loop is saturated the event is refused with
// ErrServerBusy instead of blocking the connection's read pump indefinitely.
func (s *Server) Receive(connID string, msg protocol.Message) {
	fn := func() { s.dispatch(connID, msg) }

	select {
	case s.events <- fn:
		return
	default:
	}

	timer := time.NewTimer(postTimeout)
	defer timer.Stop()

	select {
	case s.events <- fn:
	case <-s.stopped:
	case <-timer.C:
		s.logger.Warn().Str("user_id", connID).Str("msg_type", string(msg.Type)).Msg("Event queue full, refusing event.")
		s.emitError(connID, errs.NewError(errs.ErrServerBusy))
	}
}

// Snapshot returns the current rooms ordered by id.
func (s *Server) Snapshot(ctx context.Context) ([]lobby.RoomView, error) {
	result := make(chan []lobby.RoomView, 1)

	fn := func() {
		rooms := s.reg.Rooms()
		views := make([]lobby.RoomView, 0, len(rooms))
		for _, room := range rooms {
			views = append(views, room.View())
		}
		result <- views
	}

	select {
	case s.events <- fn:
	case <-s.stopped:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case views := <-result:
		return views, nil
	case <-s.stopped:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// post queues fn for the loop, blocking while the queue is full. It reports false once the
// loop has stopped.
func (s *Server) post(fn func()) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.stopped:
		return false
	}
}

// after runs fn on the loop once d has elapsed, unless the loop stops first.
func (s *Server) after(d time.Duration, fn func()) {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.post(func() {
			delete(s.timers, t)
			fn()
		})
	})
	s.timers[t] = struct{}{}
}

// broadcastFrames sends every room its ordered member list.
func (s *Server) broadcastFrames() {
	for _, room := range s.reg.Rooms() {
		s.transport.EmitRoom(room.ID, protocol.TypeFrame, protocol.FramePayload{Users: room.UserViews()})
	}
}

// loopTransport hands tag confirmations back to the loop, as the lobby package requires.
type loopTransport struct {
	Transport
	server *Server
}

func (t loopTransport) Join(connID, roomID string, done func(error)) {
	t.Transport.Join(connID, roomID, func(err error) {
		t.server.post(func() { done(err) })
	})
}

func (t loopTransport) Leave(connID, roomID string, done func(error)) {
	t.Transport.Leave(connID, roomID, func(err error) {
		t.server.post(func() { done(err) })
	})
}
