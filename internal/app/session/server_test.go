package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lobby/internal/app/lobby"
	"lobby/internal/app/protocol"
	"lobby/internal/configs"
	"lobby/internal/pkg/errs"
)

// emission is one event handed to the transport. Exactly one of connID and roomID is set.
type emission struct {
	connID  string
	roomID  string
	msgType protocol.MessageType
	payload any
}

// fakeTransport tags synchronously and confirms on a separate goroutine, like the hub.
type fakeTransport struct {
	mu      sync.Mutex
	tags    map[string]map[string]bool
	joinErr error
	emitted []emission
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{tags: make(map[string]map[string]bool)}
}

func (f *fakeTransport) Join(connID, roomID string, done func(error)) {
	f.mu.Lock()
	err := f.joinErr
	if err == nil {
		if f.tags[connID] == nil {
			f.tags[connID] = make(map[string]bool)
		}
		f.tags[connID][roomID] = true
	}
	f.mu.Unlock()

	go done(err)
}

func (f *fakeTransport) Leave(connID, roomID string, done func(error)) {
	f.mu.Lock()
	delete(f.tags[connID], roomID)
	f.mu.Unlock()

	go done(nil)
}

func (f *fakeTransport) Tagged(connID, roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[connID][roomID]
}

func (f *fakeTransport) Emit(connID string, msgType protocol.MessageType, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, emission{connID: connID, msgType: msgType, payload: payload})
}

func (f *fakeTransport) EmitRoom(roomID string, msgType protocol.MessageType, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, emission{roomID: roomID, msgType: msgType, payload: payload})
}

// events returns the recorded emissions, leaving out frame broadcasts.
func (f *fakeTransport) events() []emission {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []emission
	for _, e := range f.emitted {
		if e.msgType != protocol.TypeFrame {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeTransport) frames() []emission {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []emission
	for _, e := range f.emitted {
		if e.msgType == protocol.TypeFrame {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = nil
}

// notices returns the texts of system notices sent to roomID, in order.
func (f *fakeTransport) notices(roomID string) []string {
	var texts []string
	for _, e := range f.events() {
		if e.roomID != roomID || e.msgType != protocol.TypeServerChat {
			continue
		}
		chat := e.payload.(protocol.ChatPayload)
		if chat.User.ID == nil {
			texts = append(texts, chat.Message)
		}
	}
	return texts
}

func testSettings() configs.Settings {
	return configs.Settings{
		MaxUsernameLength: 8,
		MaxPlayerPerRoom:  3,
		StartCountdown:    3,
		FramePerSecond:    1,
	}
}

// startServer runs a Server until the test ends.
func startServer(t *testing.T, settings configs.Settings) (*Server, *fakeTransport) {
	t.Helper()

	transport := newFakeTransport()
	s := NewServer(settings, transport)
	s.countdownStep = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})

	return s, transport
}

// settle waits until every event posted so far has been handled.
func settle(t *testing.T, s *Server) []lobby.RoomView {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rooms, err := s.Snapshot(ctx)
	require.NoError(t, err)
	return rooms
}

func send(t *testing.T, s *Server, connID string, msgType protocol.MessageType, payload any) {
	t.Helper()

	msg, err := protocol.NewMessage(msgType, payload)
	require.NoError(t, err)
	s.Receive(connID, msg)
}

// login connects connID and logs it in as username.
func login(t *testing.T, s *Server, connID, username string) {
	t.Helper()

	s.Connect(connID)
	send(t, s, connID, protocol.TypeReqLogin, protocol.LoginRequest{Username: username})
}

func joinRoom(t *testing.T, s *Server, connID string, roomID *string) {
	t.Helper()
	send(t, s, connID, protocol.TypeReqJoin, protocol.JoinRequest{RoomID: roomID})
}

func lastTo(t *testing.T, f *fakeTransport, connID string, msgType protocol.MessageType) emission {
	t.Helper()

	events := f.events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].connID == connID && events[i].msgType == msgType {
			return events[i]
		}
	}
	require.FailNowf(t, "missing event", "no %s sent to %s", msgType, connID)
	return emission{}
}

func TestServer_Login(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	login(t, s, "c2", "alice")
	settle(t, s)

	res := lastTo(t, transport, "c1", protocol.TypeResLogin).payload.(protocol.StatusResponse)
	assert.Equal(t, string(lobby.StatusSucceed), res.Status)
	require.NotNil(t, res.Me)
	assert.Equal(t, "alice", *res.Me.Username)
	assert.Equal(t, "c1", *res.Me.ID)

	res = lastTo(t, transport, "c2", protocol.TypeResLogin).payload.(protocol.StatusResponse)
	assert.Equal(t, string(lobby.StatusDuplicate), res.Status)
	assert.Nil(t, res.Me)
}

func TestServer_JoinBroadcastsNotice(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	joinRoom(t, s, "c1", nil)
	rooms := settle(t, s)
	require.Len(t, rooms, 1)
	roomID := rooms[0].ID

	res := lastTo(t, transport, "c1", protocol.TypeResJoin).payload.(protocol.StatusResponse)
	assert.Equal(t, string(lobby.StatusSucceed), res.Status)
	require.NotNil(t, res.Me)
	assert.Equal(t, roomID, *res.Me.RoomID)

	assert.Equal(t, []string{"alice joined the room"}, transport.notices(roomID))
	assert.True(t, transport.Tagged("c1", roomID))
}

func TestServer_JoinNonexistentRoom(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	missing := "42"
	joinRoom(t, s, "c1", &missing)
	assert.Empty(t, settle(t, s))

	res := lastTo(t, transport, "c1", protocol.TypeResJoin).payload.(protocol.StatusResponse)
	assert.Equal(t, string(lobby.StatusNonexistent), res.Status)
	assert.Nil(t, res.Me)
}

func TestServer_RejoinSameRoomIsSilent(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	joinRoom(t, s, "c1", nil)
	roomID := settle(t, s)[0].ID
	transport.reset()

	joinRoom(t, s, "c1", &roomID)
	joinRoom(t, s, "c1", nil)
	rooms := settle(t, s)

	require.Len(t, rooms, 1)
	assert.Equal(t, roomID, rooms[0].ID)
	assert.Empty(t, transport.notices(roomID))

	res := lastTo(t, transport, "c1", protocol.TypeResJoin).payload.(protocol.StatusResponse)
	assert.Equal(t, string(lobby.StatusSucceed), res.Status)
	require.NotNil(t, res.Me)
	assert.Equal(t, roomID, *res.Me.RoomID)
}

func TestServer_RefusedMoveKeepsRoom(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	joinRoom(t, s, "c1", nil)
	roomID := settle(t, s)[0].ID
	transport.reset()

	missing := "42"
	joinRoom(t, s, "c1", &missing)
	rooms := settle(t, s)

	res := lastTo(t, transport, "c1", protocol.TypeResJoin).payload.(protocol.StatusResponse)
	assert.Equal(t, string(lobby.StatusNonexistent), res.Status)
	require.Len(t, rooms, 1)
	assert.Equal(t, roomID, rooms[0].ID)
	assert.Empty(t, transport.notices(roomID), "no departure is announced")
	assert.True(t, transport.Tagged("c1", roomID))
}

func TestServer_Chat(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	send(t, s, "c1", protocol.TypeChat, protocol.ChatRequest{Message: "nobody hears this"})
	settle(t, s)
	assert.Empty(t, transport.events()[1:], "chat outside a room reaches no one")

	joinRoom(t, s, "c1", nil)
	roomID := settle(t, s)[0].ID
	transport.reset()

	send(t, s, "c1", protocol.TypeChat, protocol.ChatRequest{Message: "hello"})
	settle(t, s)

	events := transport.events()
	require.Len(t, events, 1)
	assert.Equal(t, roomID, events[0].roomID)
	assert.Equal(t, protocol.TypeServerChat, events[0].msgType)

	chat := events[0].payload.(protocol.ChatPayload)
	assert.Equal(t, "hello", chat.Message)
	assert.Equal(t, "alice", *chat.User.Nickname)
}

func TestServer_ChatTooLong(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	joinRoom(t, s, "c1", nil)
	settle(t, s)
	transport.reset()

	long := make([]byte, MaxChatBytes+1)
	for i := range long {
		long[i] = 'x'
	}
	send(t, s, "c1", protocol.TypeChat, protocol.ChatRequest{Message: string(long)})
	settle(t, s)

	payload := lastTo(t, transport, "c1", protocol.TypeError).payload.(protocol.ErrorPayload)
	assert.Equal(t, errs.ErrMessageTooLong, payload.Code)
	assert.Len(t, transport.events(), 1)
}

func TestServer_StartInsufficientIsPrivate(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	joinRoom(t, s, "c1", nil)
	roomID := settle(t, s)[0].ID
	transport.reset()

	send(t, s, "c1", protocol.TypeStart, nil)
	rooms := settle(t, s)

	events := transport.events()
	require.Len(t, events, 1)
	assert.Equal(t, "c1", events[0].connID)
	assert.Equal(t, "Not enough players to start the game", events[0].payload.(protocol.ChatPayload).Message)
	assert.Empty(t, transport.notices(roomID))
	assert.Equal(t, lobby.RoomWaiting, rooms[0].Status)
}

func TestServer_Countdown(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	login(t, s, "c2", "bob")
	joinRoom(t, s, "c1", nil)
	joinRoom(t, s, "c2", nil)
	rooms := settle(t, s)
	require.Len(t, rooms, 1)
	roomID := rooms[0].ID
	transport.reset()

	send(t, s, "c1", protocol.TypeStart, nil)
	assert.Equal(t, lobby.RoomRunning, settle(t, s)[0].Status)

	expected := []string{
		"alice started the game, the game starts in 3 seconds...",
		"The game starts in 2 seconds...",
		"The game starts in 1 seconds...",
		"Game started",
	}
	require.Eventually(t, func() bool {
		return len(transport.notices(roomID)) == len(expected)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, expected, transport.notices(roomID))

	events := transport.events()
	last := events[len(events)-1]
	assert.Equal(t, roomID, last.roomID)
	assert.Equal(t, protocol.TypeServerStart, last.msgType)

	// a second start on a running room changes nothing
	transport.reset()
	send(t, s, "c2", protocol.TypeStart, nil)
	settle(t, s)
	assert.Empty(t, transport.events())
}

func TestServer_CountdownSkippedWhenRoomVanishes(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	login(t, s, "c2", "bob")
	joinRoom(t, s, "c1", nil)
	joinRoom(t, s, "c2", nil)
	roomID := settle(t, s)[0].ID

	send(t, s, "c1", protocol.TypeStart, nil)
	s.Disconnect("c1")
	s.Disconnect("c2")
	assert.Empty(t, settle(t, s))

	time.Sleep(5 * s.countdownStep)
	settle(t, s)

	assert.NotContains(t, transport.notices(roomID), "Game started")
	for _, e := range transport.events() {
		assert.NotEqual(t, protocol.TypeServerStart, e.msgType)
	}
}

func TestServer_DisconnectAnnouncesDeparture(t *testing.T) {
	s, transport := startServer(t, testSettings())

	login(t, s, "c1", "alice")
	login(t, s, "c2", "bob")
	joinRoom(t, s, "c1", nil)
	joinRoom(t, s, "c2", nil)
	roomID := settle(t, s)[0].ID

	s.Disconnect("c1")
	rooms := settle(t, s)

	assert.Contains(t, transport.notices(roomID), "alice left the room")
	require.Len(t, rooms, 1)
	require.Len(t, rooms[0].Users, 1)
	assert.Equal(t, "bob", *rooms[0].Users[0].Username)

	// the username is free again
	login(t, s, "c3", "alice")
	settle(t, s)
	res := lastTo(t, transport, "c3", protocol.TypeResLogin).payload.(protocol.StatusResponse)
	assert.Equal(t, string(lobby.StatusSucceed), res.Status)
}

func TestServer_ProtocolErrors(t *testing.T) {
	s, transport := startServer(t, testSettings())
	s.Connect("c1")

	s.Receive("c1", protocol.Message{Type: "c_dance"})
	s.Receive("c1", protocol.Message{Type: protocol.TypeReqLogin, Payload: json.RawMessage(`"alice"`)})
	settle(t, s)

	events := transport.events()
	require.Len(t, events, 2)

	unknown := events[0].payload.(protocol.ErrorPayload)
	assert.Equal(t, errs.ErrUnknownEvent, unknown.Code)
	assert.Contains(t, unknown.Message, "c_dance")

	invalid := events[1].payload.(protocol.ErrorPayload)
	assert.Equal(t, errs.ErrInvalidPayload, invalid.Code)
}

func TestServer_JoinTaggingFailure(t *testing.T) {
	s, transport := startServer(t, testSettings())
	transport.joinErr = errors.New("tag failed")

	login(t, s, "c1", "alice")
	joinRoom(t, s, "c1", nil)

	require.Eventually(t, func() bool {
		for _, e := range transport.events() {
			if e.connID == "c1" && e.msgType == protocol.TypeFatal {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	fatal := lastTo(t, transport, "c1", protocol.TypeFatal).payload.(protocol.FatalPayload)
	assert.Equal(t, lobby.ReasonJoinFailed, fatal.Reason)
	assert.Empty(t, settle(t, s), "the join is undone")
}

func TestServer_Frames(t *testing.T) {
	settings := testSettings()
	settings.FramePerSecond = 50
	s, transport := startServer(t, settings)

	login(t, s, "c1", "alice")
	joinRoom(t, s, "c1", nil)
	roomID := settle(t, s)[0].ID

	require.Eventually(t, func() bool {
		for _, f := range transport.frames() {
			if f.roomID == roomID && len(f.payload.(protocol.FramePayload).Users) == 1 {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_SnapshotAfterStop(t *testing.T) {
	transport := newFakeTransport()
	s := NewServer(testSettings(), transport)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()
	<-s.Done()

	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestServer_MoveAnnouncesDeparture(t *testing.T) {
	s, transport := startServer(t, testSettings())

	for i, name := range []string{"alice", "bob", "carol", "dave"} {
		connID := "c" + string(rune('1'+i))
		login(t, s, connID, name)
		joinRoom(t, s, connID, nil)
	}
	rooms := settle(t, s)
	require.Len(t, rooms, 2)
	first, second := rooms[0].ID, rooms[1].ID
	transport.reset()

	joinRoom(t, s, "c1", &second)
	rooms = settle(t, s)

	assert.Equal(t, []string{"alice left the room"}, transport.notices(first))
	assert.Equal(t, []string{"alice joined the room"}, transport.notices(second))
	assert.Len(t, rooms[0].Users, 2)
	assert.Len(t, rooms[1].Users, 2)
	assert.False(t, transport.Tagged("c1", first))
	assert.True(t, transport.Tagged("c1", second))
}
