package session

import (
	"fmt"
	"time"

	"lobby/internal/app/lobby"
	"lobby/internal/app/protocol"
	"lobby/internal/pkg/errs"
)

// MaxChatBytes is the longest chat message accepted, in bytes.
const MaxChatBytes = 2000

// dispatch runs on the loop.
func (s *Server) dispatch(connID string, msg protocol.Message) {
	u := s.reg.User(connID)
	if u == nil {
		s.logger.Warn().Str("user_id", connID).Str("msg_type", string(msg.Type)).Msg("Event from unregistered connection ignored.")
		return
	}

	switch msg.Type {
	case protocol.TypeReqLogin:
		s.handleLogin(u, msg)

	case protocol.TypeReqJoin:
		s.handleJoin(u, msg)

	case protocol.TypeChat:
		s.handleChat(u, msg)

	case protocol.TypeStart:
		s.handleStart(u)

	default:
		s.logger.Warn().Str("user_id", u.ID).Str("msg_type", string(msg.Type)).Msg("Client sent unsupported event")
		s.emitError(u.ID, errs.NewError(errs.ErrUnknownEvent, msg.Type))
	}
}

func (s *Server) handleLogin(u *lobby.User, msg protocol.Message) {
	var req protocol.LoginRequest
	if err := msg.DecodePayload(&req); err != nil {
		s.rejectPayload(u, msg, err)
		return
	}

	status := u.Login(req.Username, req.Password)
	s.logger.Debug().Str("user_id", u.ID).Str("status", string(status)).Msg("Login handled.")

	s.transport.Emit(u.ID, protocol.TypeResLogin, statusResponse(u, status))
}

func (s *Server) handleJoin(u *lobby.User, msg protocol.Message) {
	var req protocol.JoinRequest
	if err := msg.DecodePayload(&req); err != nil {
		s.rejectPayload(u, msg, err)
		return
	}

	var roomID string
	if req.RoomID != nil {
		roomID = *req.RoomID
	}

	previous := u.RoomID
	status := u.Join(roomID)
	s.logger.Debug().
		Str("user_id", u.ID).
		Str("requested_room", roomID).
		Str("room_id", u.RoomID).
		Str("status", string(status)).
		Msg("Join handled.")

	s.transport.Emit(u.ID, protocol.TypeResJoin, statusResponse(u, status))

	if status != lobby.StatusSucceed || u.RoomID == previous {
		return
	}
	if previous != "" {
		s.notifyRoom(previous, leftNotice(displayName(u)))
	}
	s.notifyRoom(u.RoomID, joinedNotice(displayName(u)))
}

func (s *Server) handleChat(u *lobby.User, msg protocol.Message) {
	var req protocol.ChatRequest
	if err := msg.DecodePayload(&req); err != nil {
		s.rejectPayload(u, msg, err)
		return
	}

	if len(req.Message) > MaxChatBytes {
		s.emitError(u.ID, errs.NewError(errs.ErrMessageTooLong, MaxChatBytes))
		return
	}

	if u.RoomID == "" {
		return
	}

	s.transport.EmitRoom(u.RoomID, protocol.TypeServerChat, protocol.ChatPayload{
		User:    u.View(),
		Message: req.Message,
	})
}

func (s *Server) handleStart(u *lobby.User) {
	room := u.Room()
	if room == nil {
		s.logger.Info().Str("user_id", u.ID).Msg("Start requested outside a room.")
		return
	}

	switch status := room.Start(); status {
	case lobby.StatusSucceed:
		s.startCountdown(room.ID, displayName(u))

	case lobby.StatusInsufficient:
		s.notifyUser(u.ID, insufficientNotice)

	default:
		s.logger.Info().
			Str("user_id", u.ID).
			Str("room_id", room.ID).
			Str("status", string(status)).
			Msg("Start request refused.")
	}
}

// startCountdown announces the start, one notice per remaining second, and finally the start
// signal. Every step is bound to roomID and skipped when that room no longer exists.
func (s *Server) startCountdown(roomID, starter string) {
	n := s.settings.StartCountdown

	s.notifyRoom(roomID, countdownStartedNotice(starter, n))

	for k := n - 1; k >= 1; k-- {
		remaining := k
		s.after(time.Duration(n-k)*s.countdownStep, func() {
			if s.reg.Room(roomID) == nil {
				s.logger.Debug().Str("room_id", roomID).Int("remaining", remaining).Msg("Countdown step skipped, room is gone.")
				return
			}
			s.notifyRoom(roomID, countdownNotice(remaining))
		})
	}

	s.after(time.Duration(n)*s.countdownStep, func() {
		if s.reg.Room(roomID) == nil {
			s.logger.Info().Str("room_id", roomID).Msg("Game start skipped, room is gone.")
			return
		}

		s.notifyRoom(roomID, gameStartedNotice)
		s.transport.EmitRoom(roomID, protocol.TypeServerStart, nil)
		s.logger.Info().Str("room_id", roomID).Msg("Game started.")
	})
}

func (s *Server) rejectPayload(u *lobby.User, msg protocol.Message, err error) {
	s.logger.Warn().Err(err).Str("user_id", u.ID).Str("msg_type", string(msg.Type)).Msg("Client sent invalid payload")
	s.emitError(u.ID, errs.NewError(errs.ErrInvalidPayload, msg.Type))
}

func (s *Server) emitError(connID string, customErr *errs.CustomError) {
	s.transport.Emit(connID, protocol.TypeError, protocol.ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}

// notifyRoom sends a system chat notice to every connection tagged with roomID.
func (s *Server) notifyRoom(roomID, text string) {
	s.transport.EmitRoom(roomID, protocol.TypeServerChat, protocol.ChatPayload{
		User:    protocol.SystemUser(),
		Message: text,
	})
}

// notifyUser sends a system chat notice to one connection.
func (s *Server) notifyUser(connID, text string) {
	s.transport.Emit(connID, protocol.TypeServerChat, protocol.ChatPayload{
		User:    protocol.SystemUser(),
		Message: text,
	})
}

func statusResponse(u *lobby.User, status lobby.Status) protocol.StatusResponse {
	res := protocol.StatusResponse{Status: string(status)}
	if status == lobby.StatusSucceed {
		me := u.View()
		res.Me = &me
	}
	return res
}

// displayName is the name used in notices; users that never logged in have no nickname.
func displayName(u *lobby.User) string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return anonymousName
}

// System notice texts.
const (
	anonymousName      = "Someone"
	insufficientNotice = "Not enough players to start the game"
	gameStartedNotice  = "Game started"
)

func joinedNotice(name string) string {
	return fmt.Sprintf("%s joined the room", name)
}

func leftNotice(name string) string {
	return fmt.Sprintf("%s left the room", name)
}

func countdownStartedNotice(starter string, seconds int) string {
	return fmt.Sprintf("%s started the game, the game starts in %d seconds...", starter, seconds)
}

func countdownNotice(seconds int) string {
	return fmt.Sprintf("The game starts in %d seconds...", seconds)
}
