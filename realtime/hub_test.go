package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeConn blocks reads until closed and forwards text writes to a channel.
type fakeConn struct {
	written   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{written: make(chan []byte, 32), closed: make(chan struct{})}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("closed")
	default:
	}
	if messageType == websocket.TextMessage {
		f.written <- data
	}
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(appData string) error) {}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func receive(t *testing.T, c *fakeConn) map[string]string {
	t.Helper()
	select {
	case raw := <-c.written:
		var got map[string]string
		require.NoError(t, json.Unmarshal(raw, &got))
		return got
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestHubDeliversOnlyToAddressedUser(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Shutdown()

	alice, bob := newFakeConn(), newFakeConn()
	hub.Register("c1", "alice", alice)
	hub.Register("c2", "bob", bob)

	hub.SendToUser("alice", map[string]string{"title": "Pickup completed"})

	got := receive(t, alice)
	assert.Equal(t, "Pickup completed", got["title"])
	select {
	case <-bob.written:
		t.Fatal("bob received alice's notification")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubMultipleConnectionsPerUser(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Shutdown()

	first, second := newFakeConn(), newFakeConn()
	hub.Register("c1", "alice", first)
	hub.Register("c2", "alice", second)
	assert.Equal(t, 2, hub.Connected("alice"))

	hub.SendToUser("alice", map[string]string{"title": "hello"})
	assert.Equal(t, "hello", receive(t, first)["title"])
	assert.Equal(t, "hello", receive(t, second)["title"])
}

func TestHubUnregistersClosedConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Shutdown()

	conn := newFakeConn()
	hub.Register("c1", "alice", conn)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Connected("alice") == 0 }, time.Second, 10*time.Millisecond)
}
