package lobby

import "slices"

// Candidates returns the rooms automatic assignment may pick from, best first:
// waiting rooms with a free seat, fullest first, earliest created first among equals.
func (r *Registry) Candidates() []*Room {
	candidates := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		if room.Status == RoomWaiting && !room.IsFull() {
			candidates = append(candidates, room)
		}
	}

	slices.SortFunc(candidates, func(a, b *Room) int {
		if a.Len() != b.Len() {
			return b.Len() - a.Len()
		}
		return compareCreation(a, b)
	})
	return candidates
}

// matchmake picks the best candidate room, creating a fresh one when there is none.
func (r *Registry) matchmake() *Room {
	if candidates := r.Candidates(); len(candidates) > 0 {
		return candidates[0]
	}
	return r.NewRoom()
}
