/*
Package lobby contains the session and room state machine: the Registry of users and rooms,
per-connection Users, capacity-bound Rooms and the matchmaking used for automatic room assignment.

Nothing in this package is safe for concurrent use. Every method, including the completion
callbacks handed to the Transport, must run on the one goroutine that owns the Registry.
*/
package lobby

// Status is the result code of a synchronous lobby operation. Codes are sent to clients verbatim.
type Status string

const (
	StatusSucceed      Status = "succeed"
	StatusDuplicate    Status = "duplicate"
	StatusTooLong      Status = "toolong"
	StatusInvalid      Status = "invalid"
	StatusAlready      Status = "already"
	StatusFull         Status = "full"
	StatusNonexistent  Status = "nonexistent"
	StatusRunning      Status = "running"
	StatusInsufficient Status = "insufficient"
)

// RoomStatus is the lifecycle state of a Room. The only transition is waiting → running.
type RoomStatus string

const (
	// RoomWaiting rooms accept new members.
	RoomWaiting RoomStatus = "waiting"

	// RoomRunning rooms have started and are closed to joins.
	RoomRunning RoomStatus = "running"
)

// MinPlayersToStart is the member count a room needs before it can start.
const MinPlayersToStart = 2
