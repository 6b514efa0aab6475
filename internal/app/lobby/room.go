package lobby

import (
	"encoding/json"
	"slices"
	"strconv"

	"lobby/internal/app/protocol"
)

// Room is a matchable group of users with a fixed capacity.
type Room struct {
	// ID is the creation stamp rendered in decimal.
	ID string

	// CreatedAt is the creation stamp in Unix milliseconds, unique per registry.
	CreatedAt int64

	Status RoomStatus

	// users keeps members in arrival order.
	users []*User

	reg *Registry
}

func newRoom(reg *Registry, stamp int64) *Room {
	return &Room{
		ID:        strconv.FormatInt(stamp, 10),
		CreatedAt: stamp,
		Status:    RoomWaiting,
		reg:       reg,
	}
}

// Add appends u to the room. A running room answers StatusRunning before capacity is looked at.
func (r *Room) Add(u *User) Status {
	if r.Status == RoomRunning {
		return StatusRunning
	}
	if r.IsFull() {
		return StatusFull
	}

	r.users = append(r.users, u)
	return StatusSucceed
}

// Remove takes u out of the room. Removing the last member deletes the room from the registry.
func (r *Room) Remove(u *User) Status {
	idx := slices.Index(r.users, u)
	if idx < 0 {
		return StatusNonexistent
	}

	r.users = slices.Delete(r.users, idx, idx+1)

	if len(r.users) == 0 {
		r.reg.removeRoom(r)
	}
	return StatusSucceed
}

// Start closes the room to joins. It needs at least MinPlayersToStart members and only
// succeeds once.
func (r *Room) Start() Status {
	if r.Status == RoomRunning {
		return StatusRunning
	}
	if len(r.users) < MinPlayersToStart {
		return StatusInsufficient
	}

	r.Status = RoomRunning
	r.reg.logger.Info().Str("room_id", r.ID).Int("users", len(r.users)).Msg("Room started.")
	return StatusSucceed
}

// Len returns the member count.
func (r *Room) Len() int {
	return len(r.users)
}

// IsFull reports whether the room has reached maxPlayerPerRoom.
func (r *Room) IsFull() bool {
	return len(r.users) >= r.reg.settings.MaxPlayerPerRoom
}

// Users returns a copy of the member list in arrival order.
func (r *Room) Users() []*User {
	return slices.Clone(r.users)
}

// UserViews returns the wire form of every member in arrival order.
func (r *Room) UserViews() []protocol.UserView {
	views := make([]protocol.UserView, 0, len(r.users))
	for _, u := range r.users {
		views = append(views, u.View())
	}
	return views
}

// Exists reports whether the room is still registered.
func (r *Room) Exists() bool {
	return r.reg.rooms[r.ID] == r
}

// RoomView is the wire form of a room used by the HTTP snapshot endpoint.
type RoomView struct {
	ID     string              `json:"id"`
	Status RoomStatus          `json:"status"`
	Users  []protocol.UserView `json:"users"`
}

// View returns the wire form of the room.
func (r *Room) View() RoomView {
	return RoomView{
		ID:     r.ID,
		Status: r.Status,
		Users:  r.UserViews(),
	}
}

// MarshalJSON encodes the room as its RoomView.
func (r *Room) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.View())
}
