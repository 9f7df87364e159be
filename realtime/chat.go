package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrEmptyMessage is returned when Send is called with blank text. The
// backend silently drops empty messages, so the client rejects them locally.
var ErrEmptyMessage = errors.New("message is empty")

// ChatMessage is one frame broadcast on a conversation channel. The sender
// also receives their own messages back as a delivery confirmation.
type ChatMessage struct {
	SenderID  int    `json:"expediteur_id"`
	Sender    string `json:"expediteur"`
	Body      string `json:"message"`
	Timestamp string `json:"timestamp"`
	MessageID int    `json:"message_id"`
}

// chatOutbound is the frame sent to the backend.
type chatOutbound struct {
	Message string `json:"message"`
}

// ChatConfig configures a ChatClient.
type ChatConfig struct {
	// BaseURL is the WebSocket root of the backend, e.g.
	// "wss://market.example.com". Required.
	BaseURL string

	// ConversationID selects the conversation channel. Required.
	ConversationID int

	// CurrentUserID identifies the local user, so inbound frames can be
	// classified as outgoing (own messages echoed back) or incoming.
	CurrentUserID int

	// Header is sent with the handshake (session cookie or authorization).
	Header http.Header

	// Dialer performs the handshake. Defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// InitialDelay and MaxDelay bound the reconnect backoff.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// OnMessage receives every chat frame. outgoing is true when the sender
	// is the current user.
	OnMessage func(msg ChatMessage, outgoing bool)

	// OnStatus is invoked on every connection state transition.
	OnStatus func(State)

	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// ChatClient is the live client for one conversation channel. It stays
// connected until Destroy, reconnecting on drop; frames missed while
// disconnected are not replayed (fetch history over api.ChatService for
// gap recovery).
type ChatClient struct {
	cfg    ChatConfig
	socket *Socket
	logger *zap.SugaredLogger
}

// NewChatClient validates the configuration and builds a client for one
// conversation.
func NewChatClient(cfg ChatConfig) (*ChatClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("missing required field 'BaseURL'")
	}
	if cfg.ConversationID <= 0 {
		return nil, errors.Errorf("invalid conversation ID %d", cfg.ConversationID)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &ChatClient{cfg: cfg, logger: logger}

	socket, err := NewSocket(Config{
		URL:          fmt.Sprintf("%s/ws/chat/%d/", strings.TrimRight(cfg.BaseURL, "/"), cfg.ConversationID),
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
func (c *ChatClient) Connect() {
	c.socket.Connect()
}

// State returns the current connection state.
func (c *ChatClient) State() State {
	return c.socket.State()
}

// Send publishes a chat message. Blank text is rejected locally with
// ErrEmptyMessage; while not connected the send fails locally with
// ErrNotConnected and nothing is written, so the caller can keep the text
// and retry once reconnected.
func (c *ChatClient) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	return c.socket.SendJSON(chatOutbound{Message: text})
}

// Destroy tears down the client; no further reconnects occur.
func (c *ChatClient) Destroy() {
	c.socket.Destroy()
}

func (c *ChatClient) handleFrame(data []byte) {
	var msg ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warnw("Dropping malformed chat frame", "error", err)
		return
	}

	if c.cfg.OnMessage != nil {
		c.cfg.OnMessage(msg, msg.SenderID == c.cfg.CurrentUserID)
	}
}
