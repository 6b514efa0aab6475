package lobby

import (
	"encoding/json"
	"unicode/utf8"

	"lobby/internal/app/protocol"
)

// User is the identity and session state of one connection.
type User struct {
	// ID equals the owning connection's id.
	ID string

	// Username is empty until login succeeds and never changes afterwards.
	Username string

	// Nickname is the display name, initialized to Username.
	Nickname string

	// RoomID is the room the user occupies, empty when in none.
	RoomID string

	reg *Registry
}

// Login claims username for this user. The password is accepted but never checked.
func (u *User) Login(username, _ string) Status {
	if username == "" {
		return StatusInvalid
	}
	if u.Username != "" {
		return StatusAlready
	}
	if u.reg.usernameTaken(username) {
		return StatusDuplicate
	}
	if utf8.RuneCountInString(username) > u.reg.settings.MaxUsernameLength {
		return StatusTooLong
	}

	u.Username = username
	u.Nickname = username
	return StatusSucceed
}

// Logout leaves the current room and unregisters the user. Calling it again has no effect.
func (u *User) Logout() Status {
	u.Leave()
	u.reg.removeUser(u)
	return StatusSucceed
}

// Join enters the room with the given id, or lets the matchmaker pick one when roomID is empty.
// The target room accepts the user before the current room is left, so a refused join keeps the
// user where they were. Joining the room the user already occupies succeeds without changes.
//
// On success the connection is tagged with the room. If the transport later reports that the
// tagging failed, the join is undone and the connection receives a fatal event, even though
// StatusSucceed has already been returned.
func (u *User) Join(roomID string) Status {
	var room *Room
	if roomID == "" {
		room = u.reg.matchmake()
	} else {
		room = u.reg.rooms[roomID]
	}
	if room == nil {
		return StatusNonexistent
	}
	if room.ID == u.RoomID {
		return StatusSucceed
	}

	status := room.Add(u)
	if status != StatusSucceed {
		if room.Len() == 0 {
			u.reg.removeRoom(room)
		}
		return status
	}

	if u.RoomID != "" {
		u.Leave()
	}
	u.RoomID = room.ID

	joined := room.ID
	u.reg.transport.Join(u.ID, joined, func(err error) {
		if err == nil {
			return
		}

		u.reg.logger.Error().Err(err).
			Str("user_id", u.ID).
			Str("room_id", joined).
			Msg("Transport join failed, undoing room membership.")

		if u.RoomID == joined {
			u.Leave()
		}
		u.emitFatal(ReasonJoinFailed)
	})

	return StatusSucceed
}

// Leave exits the current room, if any. It always succeeds and always clears RoomID;
// a failure to untag the connection is reported to the client as fatal.
func (u *User) Leave() Status {
	former := u.RoomID
	u.RoomID = ""

	if former == "" {
		return StatusSucceed
	}

	if room := u.reg.rooms[former]; room != nil {
		room.Remove(u)
	}

	if u.reg.transport.Tagged(u.ID, former) {
		u.reg.transport.Leave(u.ID, former, func(err error) {
			if err == nil {
				return
			}

			u.reg.logger.Error().Err(err).
				Str("user_id", u.ID).
				Str("room_id", former).
				Msg("Transport leave failed.")

			u.emitFatal(ReasonLeaveFailed)
		})
	}

	return StatusSucceed
}

// LoggedIn reports whether the user holds a username.
func (u *User) LoggedIn() bool {
	return u.Username != ""
}

// Room returns the room the user occupies, or nil.
func (u *User) Room() *Room {
	if u.RoomID == "" {
		return nil
	}
	return u.reg.rooms[u.RoomID]
}

func (u *User) emitFatal(reason string) {
	u.reg.transport.Emit(u.ID, protocol.TypeFatal, protocol.FatalPayload{Reason: reason})
}

// View returns a snapshot of the user in wire form.
func (u *User) View() protocol.UserView {
	id := u.ID
	return protocol.UserView{
		ID:       &id,
		Username: nullable(u.Username),
		Nickname: nullable(u.Nickname),
		RoomID:   nullable(u.RoomID),
	}
}

// MarshalJSON encodes the user as its UserView.
func (u *User) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.View())
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
