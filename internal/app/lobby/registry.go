package lobby

import (
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lobby/internal/configs"
	"lobby/internal/pkg/logx"
)

// Registry is the process-wide store of users (by connection id) and rooms (by room id).
// Entries are inserted and removed only by User and Room methods; everyone else reads.
type Registry struct {
	// settings holds the read-only game parameters.
	settings configs.Settings

	// transport tags connections and delivers fatal notifications.
	transport Transport

	// users maps connection id to its User.
	users map[string]*User

	// rooms maps room id to its Room.
	rooms map[string]*Room

	// lastRoomStamp is the creation stamp of the most recently created room.
	lastRoomStamp int64

	// now is the wall clock, replaceable in tests.
	now func() time.Time

	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(settings configs.Settings, transport Transport) *Registry {
	return &Registry{
		settings:  settings,
		transport: transport,
		users:     make(map[string]*User),
		rooms:     make(map[string]*Room),
		now:       time.Now,
		logger:    logx.Component("lobby"),
	}
}

// Settings returns the game parameters the registry was created with.
func (r *Registry) Settings() configs.Settings {
	return r.settings
}

// NewUser creates and registers the User owned by connection connID.
// An existing entry for the same id is replaced.
func (r *Registry) NewUser(connID string) *User {
	u := &User{
		ID:  connID,
		reg: r,
	}
	r.users[connID] = u

	r.logger.Debug().Str("user_id", connID).Int("total_users", len(r.users)).Msg("User registered.")
	return u
}

// NewRoom creates an empty waiting room and registers it. The caller is expected to add a
// member in the same operation, since empty rooms must not persist.
func (r *Registry) NewRoom() *Room {
	room := newRoom(r, r.nextRoomStamp())
	r.rooms[room.ID] = room

	r.logger.Info().Str("room_id", room.ID).Int("total_rooms", len(r.rooms)).Msg("Room created.")
	return room
}

// User returns the registered user with the given id, or nil.
func (r *Registry) User(id string) *User {
	return r.users[id]
}

// Room returns the room with the given id, or nil.
func (r *Registry) Room(id string) *Room {
	return r.rooms[id]
}

// Rooms returns all rooms ordered by creation time.
func (r *Registry) Rooms() []*Room {
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}

	slices.SortFunc(rooms, func(a, b *Room) int {
		return compareCreation(a, b)
	})
	return rooms
}

// UserCount returns the number of registered users, logged in or not.
func (r *Registry) UserCount() int {
	return len(r.users)
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}

// usernameTaken reports whether any registered user holds name.
func (r *Registry) usernameTaken(name string) bool {
	for _, u := range r.users {
		if u.Username == name {
			return true
		}
	}
	return false
}

func (r *Registry) removeUser(u *User) {
	if r.users[u.ID] != u {
		return
	}
	delete(r.users, u.ID)

	r.logger.Debug().Str("user_id", u.ID).Int("total_users", len(r.users)).Msg("User removed.")
}

func (r *Registry) removeRoom(room *Room) {
	if r.rooms[room.ID] != room {
		return
	}
	delete(r.rooms, room.ID)

	r.logger.Info().Str("room_id", room.ID).Int("total_rooms", len(r.rooms)).Msg("Room removed.")
}

// nextRoomStamp returns the current time in milliseconds, bumped past the previous stamp
// when rooms are created within the same millisecond or the clock steps back.
func (r *Registry) nextRoomStamp() int64 {
	stamp := r.now().UnixMilli()
	if stamp <= r.lastRoomStamp {
		stamp = r.lastRoomStamp + 1
	}
	r.lastRoomStamp = stamp
	return stamp
}

func compareCreation(a, b *Room) int {
	switch {
	case a.CreatedAt < b.CreatedAt:
		return -1
	case a.CreatedAt > b.CreatedAt:
		return 1
	default:
		return strings.Compare(a.ID, b.ID)
	}
}
