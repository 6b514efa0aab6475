package lobby

import (
	"errors"
	"time"

	"lobby/internal/app/protocol"
	"lobby/internal/configs"
)

var errTagFailed = errors.New("tag failed")

type emission struct {
	connID  string
	msgType protocol.MessageType
	payload any
}

// fakeTransport records tags and emissions. Completion callbacks are queued and only run on
// flush, mimicking the asynchronous confirmation of the real hub.
type fakeTransport struct {
	tags     map[string]map[string]bool
	joinErr  error
	leaveErr error
	pending  []func()
	emitted  []emission
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{tags: make(map[string]map[string]bool)}
}

func (f *fakeTransport) Join(connID, roomID string, done func(error)) {
	err := f.joinErr
	if err == nil {
		if f.tags[connID] == nil {
			f.tags[connID] = make(map[string]bool)
		}
		f.tags[connID][roomID] = true
	}
	f.pending = append(f.pending, func() { done(err) })
}

func (f *fakeTransport) Leave(connID, roomID string, done func(error)) {
	err := f.leaveErr
	if err == nil {
		delete(f.tags[connID], roomID)
	}
	f.pending = append(f.pending, func() { done(err) })
}

func (f *fakeTransport) Tagged(connID, roomID string) bool {
	return f.tags[connID][roomID]
}

func (f *fakeTransport) Emit(connID string, msgType protocol.MessageType, payload any) {
	f.emitted = append(f.emitted, emission{connID: connID, msgType: msgType, payload: payload})
}

func (f *fakeTransport) flush() {
	for len(f.pending) > 0 {
		next := f.pending[0]
		f.pending = f.pending[1:]
		next()
	}
}

func testSettings() configs.Settings {
	return configs.Settings{
		MaxUsernameLength: 8,
		MaxPlayerPerRoom:  3,
		StartCountdown:    1,
		FramePerSecond:    10,
	}
}

// newTestRegistry returns a registry whose clock advances one millisecond per reading, so rooms
// are created in a deterministic order.
func newTestRegistry(settings configs.Settings) (*Registry, *fakeTransport) {
	transport := newFakeTransport()
	reg := NewRegistry(settings, transport)

	base := time.UnixMilli(1_700_000_000_000)
	tick := 0
	reg.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	return reg, transport
}
