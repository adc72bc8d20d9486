// Package realtime implements the persistent-connection messaging client:
// connect with a bearer token, heartbeat, reconnect with backoff, and typed
// envelope dispatch to observers.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DonShan/GeoTask/pkg/codec"
	"github.com/DonShan/GeoTask/pkg/events"
)

// ConnState is the connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Status pairs the state with the failure reason when the state is Failed.
type Status struct {
	State  ConnState
	Reason string
}

// Heartbeat sentinels exchanged as bare text frames.
const (
	pingSentinel = "ping"
	pongSentinel = "pong"
)

// Config holds realtime client configuration.
type Config struct {
	URL                  string
	HandshakeTimeout     time.Duration
	HeartbeatInterval    time.Duration
	TypingTTL            time.Duration
	MaxReconnectAttempts int
	// Reconnect delay doubles from Base up to Max, mirroring the HTTP
	// retry policy.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

// DefaultConfig returns sensible defaults for the realtime client.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		HandshakeTimeout:     10 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		TypingTTL:            3 * time.Second,
		MaxReconnectAttempts: 5,
		ReconnectBaseDelay:   2 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
	}
}

// activeConn is one websocket connection generation. The read loop and
// heartbeat of an old generation exit via its stop channel without touching
// a newer connection.
type activeConn struct {
	ws      *websocket.Conn
	stop    chan struct{}
	writeMu sync.Mutex
}

func (a *activeConn) writeText(data []byte) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.ws.WriteMessage(websocket.TextMessage, data)
}

// Client maintains one persistent connection to the realtime endpoint.
type Client struct {
	cfg    Config
	log    *slog.Logger
	dialer *websocket.Dialer

	mu         sync.Mutex
	conn       *activeConn
	status     Status
	attempts   int
	token      string
	deliberate bool
	reconnect  *time.Timer

	lastMu      sync.Mutex
	lastMessage *Envelope

	statusEvents  *events.Emitter[Status]
	messageEvents *events.Emitter[Envelope]
	typing        *typingRegistry
}

// NewClient creates a realtime client. Connect must be called to open the
// connection.
func NewClient(cfg Config, log *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		log: log,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		status:        Status{State: StateDisconnected},
		statusEvents:  events.NewEmitter[Status](),
		messageEvents: events.NewEmitter[Envelope](),
		typing:        newTypingRegistry(cfg.TypingTTL),
	}
}

// OnStatus registers an observer for connection state changes. Callbacks run
// on the client's internal goroutines and must not call back into the client.
func (c *Client) OnStatus(fn func(Status)) func() {
	return c.statusEvents.Subscribe(fn)
}

// OnMessage registers an observer for chat message envelopes.
func (c *Client) OnMessage(fn func(Envelope)) func() {
	return c.messageEvents.Subscribe(fn)
}

// OnTyping registers an observer for the active typing-indicator list.
func (c *Client) OnTyping(fn func([]string)) func() {
	return c.typing.emitter.Subscribe(fn)
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// TypingUsers returns the users with a live typing indicator.
func (c *Client) TypingUsers() []string {
	return c.typing.active()
}

// LastMessage returns the most recently received chat message, if any.
func (c *Client) LastMessage() (Envelope, bool) {
	c.lastMu.Lock()
	defer c.lastMu.Unlock()
	if c.lastMessage == nil {
		return Envelope{}, false
	}
	return *c.lastMessage, true
}

// Connect opens the connection with the given auth token. Valid from the
// disconnected and failed states; a no-op when already connecting or
// connected. The state becomes Connected once the server acknowledges the
// connect control message.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.status.State == StateConnected || c.status.State == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.token = token
	c.deliberate = false
	c.setStatusLocked(Status{State: StateConnecting})
	c.mu.Unlock()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, _, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		c.log.Warn("realtime dial failed",
			slog.String("url", c.cfg.URL),
			slog.String("error", err.Error()),
		)
		c.handleFailure(err)
		return connectionFailed(err)
	}

	conn := &activeConn{ws: ws, stop: make(chan struct{})}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.heartbeatLoop(conn)

	if err := c.send(conn, NewEnvelope(TypeConnect)); err != nil {
		c.teardown(conn)
		c.handleFailure(err)
		return sendFailed(err)
	}
	return nil
}

// Disconnect closes the connection deliberately: best-effort disconnect
// control message, heartbeat and reconnect timers stopped, transport closed.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.deliberate = true
	c.attempts = 0
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	c.setStatusLocked(Status{State: StateDisconnected})
	c.mu.Unlock()

	if conn != nil {
		// Best effort; teardown proceeds regardless.
		_ = c.send(conn, NewEnvelope(TypeDisconnect))
		c.teardown(conn)
	}
	c.typing.stopAll()
}

// Send delivers an envelope over the active connection.
func (c *Client) Send(_ context.Context, env Envelope) error {
	c.mu.Lock()
	conn := c.conn
	state := c.status.State
	c.mu.Unlock()

	if conn == nil || (state != StateConnected && state != StateConnecting) {
		return &Error{Kind: KindMessageSendFailed, Message: "not connected"}
	}
	return c.send(conn, env)
}

// SendMessage sends a chat message to a room.
func (c *Client) SendMessage(ctx context.Context, room, text string) error {
	env := NewEnvelope(TypeMessage)
	env.Room = room
	payload, err := codec.Encode(ChatPayload{Text: text})
	if err != nil {
		return invalidMessage(err)
	}
	env.Payload = payload
	return c.Send(ctx, env)
}

// SendTyping signals typing activity in a room.
func (c *Client) SendTyping(ctx context.Context, room string) error {
	env := NewEnvelope(TypeTyping)
	env.Room = room
	return c.Send(ctx, env)
}

// JoinRoom subscribes to a room's messages.
func (c *Client) JoinRoom(ctx context.Context, room string) error {
	env := NewEnvelope(TypeJoin)
	env.Room = room
	return c.Send(ctx, env)
}

// LeaveRoom unsubscribes from a room.
func (c *Client) LeaveRoom(ctx context.Context, room string) error {
	env := NewEnvelope(TypeLeave)
	env.Room = room
	return c.Send(ctx, env)
}

func (c *Client) send(conn *activeConn, env Envelope) error {
	data, err := codec.Encode(env)
	if err != nil {
		return invalidMessage(err)
	}
	if err := conn.writeText(data); err != nil {
		return sendFailed(err)
	}
	return nil
}

// readLoop consumes inbound frames until the connection dies or is torn
// down deliberately.
func (c *Client) readLoop(conn *activeConn) {
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			select {
			case <-conn.stop:
				// Deliberate teardown; nothing to report.
				return
			default:
			}
			c.teardown(conn)
			c.handleFailure(connectionLost(err))
			return
		}

		text := string(data)
		if text == pongSentinel || text == pingSentinel {
			if text == pingSentinel {
				_ = conn.writeText([]byte(pongSentinel))
			}
			continue
		}

		var env Envelope
		if err := codec.Decode(data, &env); err != nil {
			c.log.Warn("dropping undecodable realtime frame", slog.String("error", err.Error()))
			continue
		}
		c.dispatch(env)
	}
}

// dispatch routes one inbound envelope.
func (c *Client) dispatch(env Envelope) {
	switch env.Type {
	case TypeAck, TypeConnect:
		c.mu.Lock()
		c.attempts = 0
		c.setStatusLocked(Status{State: StateConnected})
		c.mu.Unlock()

	case TypeHeartbeat:
		// Consumed silently, never surfaced.

	case TypeMessage:
		c.lastMu.Lock()
		cpy := env
		c.lastMessage = &cpy
		c.lastMu.Unlock()
		c.messageEvents.Emit(env)

	case TypeTyping:
		c.typing.upsert(env.Sender)

	case TypeError:
		c.log.Warn("realtime server error envelope",
			slog.String("id", env.ID),
			slog.String("payload", string(env.Payload)),
		)

	default:
		c.messageEvents.Emit(env)
	}
}

// heartbeatLoop pings at a fixed interval; the server answers with the pong
// sentinel which the read loop swallows.
func (c *Client) heartbeatLoop(conn *activeConn) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-conn.stop:
			return
		case <-ticker.C:
			if err := conn.writeText([]byte(pingSentinel)); err != nil {
				// The read loop observes the dead connection and
				// drives reconnection.
				return
			}
		}
	}
}

// teardown closes one connection generation exactly once.
func (c *Client) teardown(conn *activeConn) {
	select {
	case <-conn.stop:
		return
	default:
		close(conn.stop)
	}
	_ = conn.ws.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

// handleFailure records the failure and, while attempts remain, schedules a
// reconnect with doubling delay. Exhausted attempts leave the client Failed
// with no timer armed.
func (c *Client) handleFailure(err error) {
	c.mu.Lock()
	if c.deliberate {
		c.mu.Unlock()
		return
	}

	c.setStatusLocked(Status{State: StateFailed, Reason: err.Error()})

	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		c.log.Warn("realtime reconnect attempts exhausted", slog.Int("attempts", c.attempts))
		return
	}

	c.attempts++
	delay := c.reconnectDelay(c.attempts)
	token := c.token
	c.setStatusLocked(Status{State: StateReconnecting})
	c.reconnect = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnect = nil
		// Reset to a connectable state for this attempt.
		if c.status.State == StateReconnecting {
			c.status = Status{State: StateDisconnected}
		}
		c.mu.Unlock()
		_ = c.Connect(context.Background(), token)
	})
	attempt := c.attempts
	c.mu.Unlock()

	c.log.Info("realtime reconnect scheduled",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
	)
}

// reconnectDelay doubles the base delay per attempt, capped at the maximum.
func (c *Client) reconnectDelay(attempt int) time.Duration {
	delay := c.cfg.ReconnectBaseDelay << uint(attempt-1)
	if delay > c.cfg.ReconnectMaxDelay {
		delay = c.cfg.ReconnectMaxDelay
	}
	return delay
}

// setStatusLocked commits a status change and notifies observers. Caller
// must hold c.mu; the emitter serializes delivery so observers see changes
// in commit order.
func (c *Client) setStatusLocked(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	c.statusEvents.Emit(s)
}
