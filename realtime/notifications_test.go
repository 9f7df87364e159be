package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotificationFixture(t *testing.T) (string, chan *websocket.Conn) {
	t.Helper()

	conns := make(chan *websocket.Conn, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/notifications/", r.URL.Path)
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http"), conns
}

func TestNotificationClient_InitSnapshot(t *testing.T) {
	url, conns := newNotificationFixture(t)

	counts := make(chan int, 8)
	events := make(chan NotificationEvent, 8)

	client, err := NewNotificationClient(NotificationConfig{
		BaseURL:        url,
		InitialDelay:   20 * time.Millisecond,
		OnUnreadCount:  func(n int) { counts <- n },
		OnNotification: func(e NotificationEvent) { events <- e },
	})
	require.NoError(t, err)
	t.Cleanup(client.Destroy)
	client.Connect()

	server := <-conns
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"type":"init","unread_count":3}`)))

	assert.Equal(t, 3, <-counts)
	assert.Empty(t, events, "an init frame is not a notification")
}

func TestNotificationClient_NotificationEvent(t *testing.T) {
	url, conns := newNotificationFixture(t)

	counts := make(chan int, 8)
	events := make(chan NotificationEvent, 8)

	client, err := NewNotificationClient(NotificationConfig{
		BaseURL:        url,
		InitialDelay:   20 * time.Millisecond,
		OnUnreadCount:  func(n int) { counts <- n },
		OnNotification: func(e NotificationEvent) { events <- e },
	})
	require.NoError(t, err)
	t.Cleanup(client.Destroy)
	client.Connect()

	server := <-conns
	require.NoError(t, server.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"notification","id":9,"titre":"Commande confirmée","message":"Votre commande #42 est confirmée","type_notif":"commande","lien":"/commandes/42/","unread_count":4}`)))

	event := <-events
	assert.Equal(t, 9, event.ID)
	assert.Equal(t, "Commande confirmée", event.Title)
	assert.Equal(t, "commande", event.Kind)
	assert.Equal(t, "/commandes/42/", event.Link)
	assert.Equal(t, 4, <-counts, "the badge count rides along with the event")
}

func TestNotificationClient_UnknownAndMalformedFramesAreDropped(t *testing.T) {
	url, conns := newNotificationFixture(t)

	counts := make(chan int, 8)
	client, err := NewNotificationClient(NotificationConfig{
		BaseURL:       url,
		InitialDelay:  20 * time.Millisecond,
		OnUnreadCount: func(n int) { counts <- n },
	})
	require.NoError(t, err)
	t.Cleanup(client.Destroy)
	client.Connect()

	server := <-conns
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"type":"presence","unread_count":99}`)))
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"type":"init","unread_count":1}`)))

	// Only the valid init frame produced a callback; the connection survived
	// the garbage.
	assert.Equal(t, 1, <-counts)
	assert.Empty(t, counts)
}

func TestNotificationClient_SnapshotAfterReconnect(t *testing.T) {
	url, conns := newNotificationFixture(t)

	counts := make(chan int, 8)
	client, err := NewNotificationClient(NotificationConfig{
		BaseURL:       url,
		InitialDelay:  20 * time.Millisecond,
		OnUnreadCount: func(n int) { counts <- n },
	})
	require.NoError(t, err)
	t.Cleanup(client.Destroy)
	client.Connect()

	first := <-conns
	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte(`{"type":"init","unread_count":2}`)))
	assert.Equal(t, 2, <-counts)

	// Drop the connection; the client reconnects and gets a fresh snapshot.
	first.Close()
	second := <-conns
	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte(`{"type":"init","unread_count":5}`)))
	assert.Equal(t, 5, <-counts)
}

func TestNewNotificationClient_InvalidConfig(t *testing.T) {
	_, err := NewNotificationClient(NotificationConfig{})
	assert.Error(t, err)
}
