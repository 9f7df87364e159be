package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Frame type discriminators on the notification channel.
const (
	frameTypeInit         = "init"
	frameTypeNotification = "notification"
)

// NotificationEvent is one frame on the personal notification channel. For
// "init" frames only UnreadCount is set; "notification" frames carry the
// full event.
type NotificationEvent struct {
	Type        string `json:"type"`
	UnreadCount int    `json:"unread_count"`
	ID          int    `json:"id"`
	Title       string `json:"titre"`
	Message     string `json:"message"`
	Kind        string `json:"type_notif"`
	Link        string `json:"lien"`
	Date        string `json:"date"`
}

// NotificationConfig configures a NotificationClient.
type NotificationConfig struct {
	// BaseURL is the WebSocket root of the backend, e.g.
	// "wss://market.example.com". Required.
	BaseURL string

	// Header is sent with the handshake (session cookie or authorization).
	Header http.Header

	// Dialer performs the handshake. Defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// InitialDelay and MaxDelay bound the reconnect backoff.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// OnUnreadCount receives the unread badge count: once from the initial
	// snapshot after every (re)connect, then with every new notification.
	OnUnreadCount func(count int)

	// OnNotification receives every new notification event.
	OnNotification func(event NotificationEvent)

	// OnStatus is invoked on every connection state transition.
	OnStatus func(State)

	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// NotificationClient is the live client for the user's personal
// notification stream. One instance per logged-in user.
type NotificationClient struct {
	cfg    NotificationConfig
	socket *Socket
	logger *zap.SugaredLogger
}

// NewNotificationClient validates the configuration and builds a client.
func NewNotificationClient(cfg NotificationConfig) (*NotificationClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("missing required field 'BaseURL'")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &NotificationClient{cfg: cfg, logger: logger}

	socket, err := NewSocket(Config{
		URL:          strings.TrimRight(cfg.BaseURL, "/") + "/ws/notifications/",
		Header:       cfg.Header,
		Dialer:       cfg.Dialer,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		OnStatus:     cfg.OnStatus,
		OnFrame:      c.handleFrame,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	c.socket = socket
	return c, nil
}

// Connect starts the connect/reconnect loop.
func (c *NotificationClient) Connect() {
	c.socket.Connect()
}

// State returns the current connection state.
func (c *NotificationClient) State() State {
	return c.socket.State()
}

// Destroy tears down the client; no further reconnects occur.
func (c *NotificationClient) Destroy() {
	c.socket.Destroy()
}

func (c *NotificationClient) handleFrame(data []byte) {
	var event NotificationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Warnw("Dropping malformed notification frame", "error", err)
		return
	}

	switch event.Type {
	case frameTypeInit:
		if c.cfg.OnUnreadCount != nil {
			c.cfg.OnUnreadCount(event.UnreadCount)
		}
	case frameTypeNotification:
		if c.cfg.OnNotification != nil {
			c.cfg.OnNotification(event)
		}
		if c.cfg.OnUnreadCount != nil {
			c.cfg.OnUnreadCount(event.UnreadCount)
		}
	default:
		c.logger.Debugw("Dropping frame with unknown type", "type", event.Type)
	}
}
