// Package realtime maintains resilient WebSocket connections to the HooYia
// Market backend. A Socket owns one logical connection and reconnects on
// drop with doubling backoff; ChatClient and NotificationClient wrap it with
// the frame formats of the two backend channels.
package realtime

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// State is the connection state of a Socket.
type State int

const (
	// StateDisconnected means no connection is up; a reconnect may be
	// pending. This is also the state before Connect is called.
	StateDisconnected State = iota

	// StateConnecting means a dial is in progress.
	StateConnecting

	// StateConnected means frames can be sent and received.
	StateConnected

	// StateDestroyed is terminal: the socket was torn down and will never
	// reconnect.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by send operations while the transport is not
// open. Nothing was written; the caller keeps its payload and may retry
// after the next StateConnected status.
var ErrNotConnected = errors.New("socket is not connected")

// ErrDestroyed is returned by send operations after Destroy.
var ErrDestroyed = errors.New("socket is destroyed")

// Config configures a Socket.
type Config struct {
	// URL is the full ws:// or wss:// endpoint. Required.
	URL string

	// Header is sent with the handshake (cookies, authorization).
	Header http.Header

	// Dialer performs the handshake. Defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// InitialDelay and MaxDelay bound the doubling reconnect backoff.
	// Defaults: 1s and 30s.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// OnStatus is invoked on every state transition. Optional.
	OnStatus func(State)

	// OnFrame is invoked with every inbound frame. Optional. It runs on the
	// read loop goroutine, so it must not block on the socket itself.
	OnFrame func(data []byte)

	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("missing required field 'URL'")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.Wrap(err, "invalid URL")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.Errorf("URL must use ws or wss scheme, got '%s'", u.Scheme)
	}
	return nil
}

// Socket maintains one logical WebSocket connection. After Connect it keeps
// itself connected until Destroy: every transport drop schedules a redial
// after the current backoff delay. All methods are safe for concurrent use.
type Socket struct {
	cfg     Config
	dialer  *websocket.Dialer
	logger  *zap.SugaredLogger
	backoff *reconnectBackoff

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	reconnectTimer *time.Timer

	writeMu sync.Mutex
}

// NewSocket validates the configuration and builds a socket. The socket does
// not connect until Connect is called.
func NewSocket(cfg Config) (*Socket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid socket configuration")
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Socket{
		cfg:     cfg,
		dialer:  dialer,
		logger:  logger,
		backoff: newReconnectBackoff(cfg.InitialDelay, cfg.MaxDelay),
	}, nil
}

// State returns the current connection state.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts the connect/reconnect loop. It returns immediately; watch
// OnStatus for the outcome. Calling Connect on a destroyed socket is a no-op.
func (s *Socket) Connect() {
	s.mu.Lock()
	if s.state != StateDisconnected || s.reconnectTimer != nil {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	cb := s.cfg.OnStatus
	s.mu.Unlock()

	if cb != nil {
		cb(StateConnecting)
	}
	go s.dial()
}

func (s *Socket) dial() {
	conn, _, err := s.dialer.Dial(s.cfg.URL, s.cfg.Header)
	if err != nil {
		s.logger.Debugw("Dial failed", "url", s.cfg.URL, "error", err)
		s.handleDisconnect()
		return
	}

	s.mu.Lock()
	if s.state == StateDestroyed {
		// Destroyed while the handshake was in flight.
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.state = StateConnected
	s.backoff.Reset()
	cb := s.cfg.OnStatus
	s.mu.Unlock()

	s.logger.Infow("Connected", "url", s.cfg.URL)
	if cb != nil {
		cb(StateConnected)
	}

	go s.readLoop(conn)
}

// readLoop pumps inbound frames until the connection drops, then hands off
// to the reconnect path. One read loop runs per live connection.
func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debugw("Connection lost", "url", s.cfg.URL, "error", err)
			break
		}
		if s.cfg.OnFrame != nil {
			s.cfg.OnFrame(data)
		}
	}
	conn.Close()
	s.handleDisconnect()
}

// handleDisconnect transitions to StateDisconnected and schedules a redial
// after the current backoff delay, unless the socket was destroyed.
func (s *Socket) handleDisconnect() {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateDisconnected
	delay := s.backoff.Next()
	s.reconnectTimer = time.AfterFunc(delay, s.redial)
	cb := s.cfg.OnStatus
	s.mu.Unlock()

	s.logger.Infow("Disconnected, reconnect scheduled", "url", s.cfg.URL, "delay", delay)
	if cb != nil {
		cb(StateDisconnected)
	}
}

func (s *Socket) redial() {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.reconnectTimer = nil
	s.state = StateConnecting
	cb := s.cfg.OnStatus
	s.mu.Unlock()

	if cb != nil {
		cb(StateConnecting)
	}
	s.dial()
}

// SendJSON writes v as a JSON text frame. It fails with ErrNotConnected
// without touching the transport unless the socket is currently connected.
func (s *Socket) SendJSON(v interface{}) error {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	if s.state != StateConnected || s.conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	conn := s.conn
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}
	return nil
}

// Destroy tears the socket down: the pending reconnect timer is canceled,
// the live connection is closed and no further reconnect will ever be
// scheduled, even for close events already in flight. Idempotent.
func (s *Socket) Destroy() {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.state = StateDestroyed
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	conn := s.conn
	s.conn = nil
	cb := s.cfg.OnStatus
	s.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline) //nolint:errcheck
		conn.Close()
	}

	s.logger.Infow("Socket destroyed", "url", s.cfg.URL)
	if cb != nil {
		cb(StateDestroyed)
	}
}
