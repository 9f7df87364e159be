package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// socketFixture is a WebSocket test server handing accepted connections to
// the test over a channel.
type socketFixture struct {
	server *httptest.Server
	url    string
	conns  chan *websocket.Conn
	dials  int64
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()

	f := &socketFixture{conns: make(chan *websocket.Conn, 8)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt64(&f.dials, 1)
		f.conns <- conn
	}))
	t.Cleanup(f.server.Close)

	f.url = "ws" + strings.TrimPrefix(f.server.URL, "http")
	return f
}

func (f *socketFixture) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-f.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a connection")
		return nil
	}
}

func (f *socketFixture) dialCount() int64 {
	return atomic.LoadInt64(&f.dials)
}

func waitState(t *testing.T, states <-chan State, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-states:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func newTestSocket(t *testing.T, url string, onFrame func([]byte)) (*Socket, chan State) {
	t.Helper()

	states := make(chan State, 32)
	socket, err := NewSocket(Config{
		URL:          url,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		OnStatus:     func(s State) { states <- s },
		OnFrame:      onFrame,
	})
	require.NoError(t, err)
	t.Cleanup(socket.Destroy)
	return socket, states
}

func TestSocket_ConnectAndReceive(t *testing.T) {
	fixture := newSocketFixture(t)

	frames := make(chan []byte, 8)
	socket, states := newTestSocket(t, fixture.url, func(data []byte) { frames <- data })

	socket.Connect()
	waitState(t, states, StateConnecting)
	waitState(t, states, StateConnected)
	assert.Equal(t, StateConnected, socket.State())

	server := fixture.accept(t)
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`)))

	select {
	case frame := <-frames:
		assert.JSONEq(t, `{"hello":"world"}`, string(frame))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}
}

func TestSocket_SendBeforeConnectFailsLocally(t *testing.T) {
	fixture := newSocketFixture(t)
	socket, _ := newTestSocket(t, fixture.url, nil)

	err := socket.SendJSON(map[string]string{"message": "hi"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, fixture.dialCount(), "no transport activity before Connect")
}

func TestSocket_SendWhileConnected(t *testing.T) {
	fixture := newSocketFixture(t)
	socket, states := newTestSocket(t, fixture.url, nil)

	socket.Connect()
	waitState(t, states, StateConnected)
	server := fixture.accept(t)

	require.NoError(t, socket.SendJSON(map[string]string{"message": "salut"}))

	var got map[string]string
	require.NoError(t, server.ReadJSON(&got))
	assert.Equal(t, "salut", got["message"])
}

func TestSocket_ReconnectsAfterDrop(t *testing.T) {
	fixture := newSocketFixture(t)
	socket, states := newTestSocket(t, fixture.url, nil)

	socket.Connect()
	waitState(t, states, StateConnected)
	first := fixture.accept(t)

	// Server-side drop triggers a scheduled reconnect.
	first.Close()
	waitState(t, states, StateDisconnected)
	waitState(t, states, StateConnecting)
	waitState(t, states, StateConnected)

	fixture.accept(t)
	assert.EqualValues(t, 2, fixture.dialCount())

	// Sending works again on the new connection.
	require.NoError(t, socket.SendJSON(map[string]string{"message": "back"}))
}

func TestSocket_SendWhileDisconnectedDoesNotTouchTransport(t *testing.T) {
	fixture := newSocketFixture(t)

	// A long reconnect delay keeps the socket disconnected for the whole test.
	states := make(chan State, 32)
	socket, err := NewSocket(Config{
		URL:          fixture.url,
		InitialDelay: 5 * time.Second,
		OnStatus:     func(s State) { states <- s },
	})
	require.NoError(t, err)
	t.Cleanup(socket.Destroy)

	socket.Connect()
	waitState(t, states, StateConnected)
	first := fixture.accept(t)

	first.Close()
	waitState(t, states, StateDisconnected)

	assert.ErrorIs(t, socket.SendJSON(map[string]string{"message": "lost?"}), ErrNotConnected)
	assert.EqualValues(t, 1, fixture.dialCount())
}

func TestSocket_DestroyStopsReconnects(t *testing.T) {
	fixture := newSocketFixture(t)
	socket, states := newTestSocket(t, fixture.url, nil)

	socket.Connect()
	waitState(t, states, StateConnected)
	server := fixture.accept(t)

	socket.Destroy()
	waitState(t, states, StateDestroyed)

	// A close event arriving after Destroy must not schedule a reconnect.
	server.Close()
	time.Sleep(150 * time.Millisecond)
	assert.EqualValues(t, 1, fixture.dialCount())
	assert.Equal(t, StateDestroyed, socket.State())

	assert.ErrorIs(t, socket.SendJSON(map[string]string{"message": "hi"}), ErrDestroyed)

	// Destroy is idempotent.
	socket.Destroy()
}

func TestSocket_DestroyCancelsPendingReconnect(t *testing.T) {
	// A server that is already gone: every dial fails.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	socket, states := newTestSocket(t, url, nil)
	socket.Connect()
	waitState(t, states, StateDisconnected)

	socket.Destroy()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StateDestroyed, socket.State())

	// Drain: no state change may follow destruction.
	for {
		select {
		case s := <-states:
			assert.Equal(t, StateDestroyed, s)
		default:
			return
		}
	}
}

func TestNewSocket_InvalidConfig(t *testing.T) {
	_, err := NewSocket(Config{})
	assert.Error(t, err)

	_, err = NewSocket(Config{URL: "http://not-a-socket"})
	assert.Error(t, err)
}
